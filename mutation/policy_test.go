package mutation

import (
	"errors"
	"testing"

	"kanban-client/domain"
)

func hasKey(keys []domain.Key, want domain.Key) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}

func TestDefaultPolicyRules(t *testing.T) {
	p := DefaultPolicy(false)
	for _, intent := range []Intent{CreateCard, CreateList, CreateBoard, CreateCustomField} {
		if r := p.Rule(intent); !r.IdentityChange || r.Strategy != RefetchAfterSettle {
			t.Fatalf("%s: unexpected rule %+v", intent, r)
		}
	}
	if r := p.Rule(MoveCard); r.IdentityChange {
		t.Fatalf("move is not an identity change")
	}
	if r := p.Rule(Intent("unknown")); r.Strategy != RefetchAfterSettle {
		t.Fatalf("unknown intents must refetch")
	}
}

func TestIdentityChangeNeverPatches(t *testing.T) {
	p := DefaultPolicy(false)
	p.Rules[CreateCard] = Rule{Strategy: PatchInPlace, IdentityChange: true}
	if p.Rule(CreateCard).Strategy != RefetchAfterSettle {
		t.Fatalf("identity changes must refetch")
	}
}

func TestInvalidationAddsCoarserKeys(t *testing.T) {
	card := domain.Committed("c1")
	touched := []domain.Key{keyA, domain.CardKey(card)}

	inv := DefaultPolicy(true).Invalidation(touched, Scope{BoardID: board, ListIDs: []domain.ID{listA}, CardID: card})
	for _, want := range []domain.Key{keyA, domain.CardKey(card), domain.ListsKey(board)} {
		if !hasKey(inv.Keys, want) {
			t.Fatalf("missing %s in %v", want, inv.Keys)
		}
	}
	if len(inv.Keys) != 3 {
		t.Fatalf("unexpected keys: %v", inv.Keys)
	}

	inv = DefaultPolicy(false).Invalidation(touched, Scope{BoardID: board, ListIDs: []domain.ID{listA}})
	if hasKey(inv.Keys, domain.ListsKey(board)) {
		t.Fatalf("lists must not be invalidated without embedded summaries")
	}
}

func TestInvalidationForBoardAndLists(t *testing.T) {
	ws := domain.Committed("w1")
	inv := DefaultPolicy(false).Invalidation(
		[]domain.Key{domain.BoardKey(board), domain.ListsKey(board)},
		Scope{WorkspaceID: ws, BoardID: board},
	)
	if !hasKey(inv.Keys, domain.BoardsKey(ws)) {
		t.Fatalf("board change must invalidate workspace boards: %v", inv.Keys)
	}
	if inv.Match != nil {
		t.Fatalf("unexpected predicate")
	}
}

func TestForEventCardMove(t *testing.T) {
	inv := DefaultPolicy(false).ForEvent(domain.ChangeEvent{
		Entity: domain.EntityCard, Type: domain.ChangeMoved, ID: "c1",
		BoardID: "b1", ListID: "B", PreviousListID: "A",
	})
	for _, want := range []domain.Key{keyA, keyB, domain.CardKey(domain.Committed("c1"))} {
		if !hasKey(inv.Keys, want) {
			t.Fatalf("missing %s in %v", want, inv.Keys)
		}
	}
}

func TestForEventCustomFieldMatchesBoardCards(t *testing.T) {
	inv := DefaultPolicy(false).ForEvent(domain.ChangeEvent{Entity: domain.EntityCustomField, Type: domain.ChangeUpdated, ID: "f1", BoardID: "b1"})
	if !hasKey(inv.Keys, domain.CustomFieldsKey(board)) {
		t.Fatalf("missing custom fields key: %v", inv.Keys)
	}
	if inv.Match == nil {
		t.Fatalf("expected predicate")
	}
	if !inv.Match(keyA) || !inv.Match(domain.CardKey(domain.Committed("c1"))) {
		t.Fatalf("predicate must match card views of the board")
	}
	if inv.Match(domain.CardsKey(listA, domain.Committed("other"))) || inv.Match(domain.ListsKey(board)) {
		t.Fatalf("predicate matched unrelated key")
	}
}

func TestForEventUnknownEntity(t *testing.T) {
	inv := DefaultPolicy(false).ForEvent(domain.ChangeEvent{Entity: "workspace"})
	if len(inv.Keys) != 0 || inv.Match != nil {
		t.Fatalf("expected empty invalidation, got %+v", inv)
	}
}

func TestErrorKinds(t *testing.T) {
	rejected := classify(MoveCard, &statusError{status: 422, msg: "bad index"})
	if rejected.Kind != KindRejected || rejected.StatusCode() != 422 {
		t.Fatalf("unexpected: %+v", rejected)
	}
	transport := classify(MoveCard, errors.New("dial tcp: refused"))
	if transport.Kind != KindTransport || transport.StatusCode() != 0 {
		t.Fatalf("unexpected: %+v", transport)
	}
	if errors.Is(rejected, ErrPrecondition) {
		t.Fatalf("rejection is not a precondition failure")
	}
	if !errors.Is(precondition(MoveCard, errors.New("x")), ErrPrecondition) {
		t.Fatalf("expected precondition match")
	}
}

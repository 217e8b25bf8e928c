package mutation

import (
	"kanban-client/domain"
)

// Intent names a mutation. It doubles as the span name suffix and the log
// field value.
type Intent string

const (
	CreateCard        Intent = "create-card"
	UpdateCard        Intent = "update-card"
	MoveCard          Intent = "move-card"
	DeleteCard        Intent = "delete-card"
	CreateList        Intent = "create-list"
	UpdateList        Intent = "update-list"
	MoveList          Intent = "move-list"
	DeleteList        Intent = "delete-list"
	CreateBoard       Intent = "create-board"
	UpdateBoard       Intent = "update-board"
	CreateCustomField Intent = "create-custom-field"
	UpdateCustomField Intent = "update-custom-field"
	MoveCustomField   Intent = "move-custom-field"
	DeleteCustomField Intent = "delete-custom-field"
)

// Strategy is what happens to the optimistic value once the server accepted
// the mutation.
type Strategy int

const (
	// RefetchAfterSettle keeps the optimistic value and invalidates, so the
	// next read (or the current observer) pulls authoritative data.
	RefetchAfterSettle Strategy = iota
	// PatchInPlace writes the entity the server returned into the touched
	// views before invalidating them. Only meaningful for updates: an
	// identity change is never patched.
	PatchInPlace
)

// Rule is the settlement policy for one intent.
type Rule struct {
	Strategy Strategy
	// IdentityChange marks intents whose optimistic entity carries a pending
	// id that the server replaces.
	IdentityChange bool
}

// Scope carries the ids a mutation was addressed with.
type Scope struct {
	WorkspaceID domain.ID
	BoardID     domain.ID
	ListIDs     []domain.ID
	CardID      domain.ID
}

// Invalidation is the set of keys to mark stale once a mutation settles:
// exact keys plus an optional predicate over every cached key.
type Invalidation struct {
	Keys  []domain.Key
	Match func(domain.Key) bool
}

// Policy decides what gets invalidated after a mutation or a remote change.
type Policy struct {
	// EmbedCardSummaries is set when lists(board) views carry card summaries,
	// so card changes must also refresh them.
	EmbedCardSummaries bool
	Rules              map[Intent]Rule
}

// DefaultPolicy refetches after every intent. Creates are identity changes.
func DefaultPolicy(embedCardSummaries bool) Policy {
	return Policy{
		EmbedCardSummaries: embedCardSummaries,
		Rules: map[Intent]Rule{
			CreateCard:        {Strategy: RefetchAfterSettle, IdentityChange: true},
			UpdateCard:        {Strategy: RefetchAfterSettle},
			MoveCard:          {Strategy: RefetchAfterSettle},
			DeleteCard:        {Strategy: RefetchAfterSettle},
			CreateList:        {Strategy: RefetchAfterSettle, IdentityChange: true},
			UpdateList:        {Strategy: RefetchAfterSettle},
			MoveList:          {Strategy: RefetchAfterSettle},
			DeleteList:        {Strategy: RefetchAfterSettle},
			CreateBoard:       {Strategy: RefetchAfterSettle, IdentityChange: true},
			UpdateBoard:       {Strategy: RefetchAfterSettle},
			CreateCustomField: {Strategy: RefetchAfterSettle, IdentityChange: true},
			UpdateCustomField: {Strategy: RefetchAfterSettle},
			MoveCustomField:   {Strategy: RefetchAfterSettle},
			DeleteCustomField: {Strategy: RefetchAfterSettle},
		},
	}
}

// Rule returns the rule for intent. Unknown intents refetch.
func (p Policy) Rule(intent Intent) Rule {
	r, ok := p.Rules[intent]
	if !ok {
		return Rule{Strategy: RefetchAfterSettle}
	}
	if r.IdentityChange {
		r.Strategy = RefetchAfterSettle
	}
	return r
}

// Invalidation expands the keys a mutation touched with every coarser key
// that embeds the same entities.
func (p Policy) Invalidation(touched []domain.Key, scope Scope) Invalidation {
	var inv Invalidation
	seen := make(map[domain.Key]struct{})
	add := func(k domain.Key) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		inv.Keys = append(inv.Keys, k)
	}

	for _, k := range touched {
		add(k)
		switch k.Kind {
		case domain.KindCards:
			if p.EmbedCardSummaries && !k.BoardID.IsZero() {
				add(domain.ListsKey(k.BoardID))
			}
		case domain.KindCard:
			if !scope.BoardID.IsZero() {
				for _, l := range scope.ListIDs {
					add(domain.CardsKey(l, scope.BoardID))
				}
			}
		case domain.KindLists:
			add(domain.BoardKey(k.BoardID))
		case domain.KindBoard:
			if !scope.WorkspaceID.IsZero() {
				add(domain.BoardsKey(scope.WorkspaceID))
			}
		case domain.KindCustomFields:
			board := k.BoardID
			inv.Match = func(c domain.Key) bool {
				// Card keys are not scoped by board, so every single-card view
				// is refreshed.
				return c.Kind == domain.KindCard || (c.Kind == domain.KindCards && c.BoardID == board)
			}
		}
	}
	return inv
}

// ForEvent maps a change published by the backend to the keys other
// sessions must invalidate.
func (p Policy) ForEvent(ev domain.ChangeEvent) Invalidation {
	board := domain.ParseID(ev.BoardID)
	scope := Scope{WorkspaceID: domain.ParseID(ev.WorkspaceID), BoardID: board}
	var touched []domain.Key

	switch ev.Entity {
	case domain.EntityCard:
		id := domain.ParseID(ev.ID)
		touched = append(touched, domain.CardKey(id))
		for _, raw := range []string{ev.ListID, ev.PreviousListID} {
			if raw == "" {
				continue
			}
			l := domain.ParseID(raw)
			scope.ListIDs = append(scope.ListIDs, l)
			touched = append(touched, domain.CardsKey(l, board))
		}
	case domain.EntityList:
		touched = append(touched, domain.ListsKey(board))
		if ev.Type == domain.ChangeDeleted {
			touched = append(touched, domain.CardsKey(domain.ParseID(ev.ID), board))
		}
	case domain.EntityBoard:
		touched = append(touched, domain.BoardKey(domain.ParseID(ev.ID)))
		if !scope.WorkspaceID.IsZero() {
			touched = append(touched, domain.BoardsKey(scope.WorkspaceID))
		}
	case domain.EntityCustomField:
		touched = append(touched, domain.CustomFieldsKey(board))
	default:
		return Invalidation{}
	}
	return p.Invalidation(touched, scope)
}

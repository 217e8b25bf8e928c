package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-client/api"
	"kanban-client/domain"
	"kanban-client/wire"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetLevel(log.PanicLevel)
	return l
}

type server struct {
	backend *api.MemoryBackend
	url     string
	board   domain.Board
	todo    domain.List
	done    domain.List
}

func newServer(t *testing.T, auth api.Authenticator, dedup api.Deduper) *server {
	t.Helper()
	ctx := context.Background()
	backend := api.NewMemoryBackend(nil, quietLogger())
	e := echo.New()
	api.Register(e, backend, auth, dedup, quietLogger())
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	board, err := backend.CreateBoard(ctx, domain.BoardDraft{WorkspaceID: domain.Committed("ws1"), Name: "Roadmap"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	todo, _ := backend.CreateList(ctx, domain.ListDraft{BoardID: board.ID, Name: "Todo"})
	done, _ := backend.CreateList(ctx, domain.ListDraft{BoardID: board.ID, Name: "Done"})
	return &server{backend: backend, url: srv.URL, board: board, todo: todo, done: done}
}

func (s *server) addCards(t *testing.T, list domain.List, names ...string) []domain.Card {
	t.Helper()
	out := make([]domain.Card, 0, len(names))
	for _, n := range names {
		c, err := s.backend.CreateCard(context.Background(), domain.CardDraft{ListID: list.ID, Name: n})
		if err != nil {
			t.Fatalf("create card: %v", err)
		}
		out = append(out, c)
	}
	return out
}

func cardNames(cards domain.Cards) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Name
	}
	return out
}

func TestFetchByKind(t *testing.T) {
	s := newServer(t, nil, nil)
	cards := s.addCards(t, s.todo, "a", "b")
	c := New(s.url, "", quietLogger())
	ctx := context.Background()

	v, err := c.Fetch(ctx, domain.BoardsKey(s.board.WorkspaceID))
	if boards, ok := v.(domain.Boards); err != nil || !ok || len(boards) != 1 || boards[0].ID != s.board.ID {
		t.Fatalf("boards: %#v %v", v, err)
	}
	v, err = c.Fetch(ctx, domain.BoardKey(s.board.ID))
	if board, ok := v.(domain.Board); err != nil || !ok || board.Name != "Roadmap" {
		t.Fatalf("board: %#v %v", v, err)
	}
	v, err = c.Fetch(ctx, domain.ListsKey(s.board.ID))
	if lists, ok := v.(domain.Lists); err != nil || !ok || len(lists) != 2 || lists[1].ID != s.done.ID {
		t.Fatalf("lists: %#v %v", v, err)
	}
	v, err = c.Fetch(ctx, domain.CardsKey(s.todo.ID, s.board.ID))
	if got, ok := v.(domain.Cards); err != nil || !ok || len(got) != 2 || got[1].ID != cards[1].ID {
		t.Fatalf("cards: %#v %v", v, err)
	}
	v, err = c.Fetch(ctx, domain.CardKey(cards[0].ID))
	if card, ok := v.(domain.Card); err != nil || !ok || card.ListID != s.todo.ID || card.BoardID != s.board.ID {
		t.Fatalf("card: %#v %v", v, err)
	}
	v, err = c.Fetch(ctx, domain.CustomFieldsKey(s.board.ID))
	if fields, ok := v.(domain.CustomFields); err != nil || !ok || fields == nil || len(fields) != 0 {
		t.Fatalf("custom fields should be an empty, non-nil collection: %#v %v", v, err)
	}
}

func TestFetchEmptyListIsNotNil(t *testing.T) {
	s := newServer(t, nil, nil)
	c := New(s.url, "", quietLogger())
	cards, err := c.Cards(context.Background(), s.done.ID, s.board.ID)
	if err != nil {
		t.Fatalf("cards: %v", err)
	}
	if cards == nil {
		t.Fatal("expected an empty collection, got nil")
	}
}

func TestFetchFollowsPagination(t *testing.T) {
	s := newServer(t, nil, nil)
	s.addCards(t, s.todo, "a", "b", "c", "d", "e")
	c := New(s.url, "", quietLogger())
	c.PerPage = 2

	cards, err := c.Cards(context.Background(), s.todo.ID, s.board.ID)
	if err != nil {
		t.Fatalf("cards: %v", err)
	}
	got := cardNames(cards)
	want := []string{"a", "b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMoveCardRoundTrip(t *testing.T) {
	s := newServer(t, nil, nil)
	cards := s.addCards(t, s.todo, "a", "b")
	c := New(s.url, "", quietLogger())
	ctx := context.Background()

	moved, err := c.MoveCard(ctx, domain.MoveRequest{
		ID:               cards[1].ID,
		PreviousListID:   s.todo.ID,
		TargetListID:     s.done.ID,
		PreviousPosition: 1,
		TargetPosition:   0,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ListID != s.done.ID {
		t.Fatalf("expected card in done, got %v", moved.ListID)
	}
	done, _ := s.backend.Cards(ctx, s.done.ID, s.board.ID)
	if len(done) != 1 || done[0].ID != cards[1].ID {
		t.Fatalf("server state not updated: %+v", done)
	}
}

func TestListAndFieldLifecycle(t *testing.T) {
	s := newServer(t, nil, nil)
	c := New(s.url, "", quietLogger())
	ctx := context.Background()

	l, err := c.CreateList(ctx, domain.ListDraft{BoardID: s.board.ID, Name: "Later"})
	if err != nil || !l.ID.IsCommitted() {
		t.Fatalf("create list: %+v %v", l, err)
	}
	name := "Someday"
	if l, err = c.UpdateList(ctx, l.ID, domain.ListPatch{Name: &name}); err != nil || l.Name != name {
		t.Fatalf("update list: %+v %v", l, err)
	}
	if err := c.MoveList(ctx, domain.MoveRequest{ID: l.ID, BoardID: s.board.ID, PreviousPosition: 2, TargetPosition: 0}); err != nil {
		t.Fatalf("move list: %v", err)
	}
	lists, _ := c.Lists(ctx, s.board.ID)
	if lists[0].ID != l.ID {
		t.Fatalf("expected moved list first, got %+v", lists)
	}
	if err := c.DeleteList(ctx, l.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}

	f, err := c.CreateCustomField(ctx, domain.CustomFieldDraft{BoardID: s.board.ID, Name: "Estimate", Type: domain.FieldNumber})
	if err != nil || f.Type != domain.FieldNumber {
		t.Fatalf("create field: %+v %v", f, err)
	}
	if err := c.DeleteCustomField(ctx, f.ID); err != nil {
		t.Fatalf("delete field: %v", err)
	}
}

func TestAPIErrorStatus(t *testing.T) {
	s := newServer(t, nil, nil)
	cards := s.addCards(t, s.todo, "a", "b")
	c := New(s.url, "", quietLogger())
	ctx := context.Background()

	_, err := c.MoveCard(ctx, domain.MoveRequest{
		ID:               cards[0].ID,
		PreviousListID:   s.todo.ID,
		TargetListID:     s.todo.ID,
		PreviousPosition: 1,
		TargetPosition:   0,
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode() != http.StatusConflict || apiErr.Message == "" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}

	if _, err := c.Card(ctx, domain.Committed("missing")); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := c.DeleteCard(ctx, cards[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

type flakyTransport struct {
	next  http.RoundTripper
	drops atomic.Int32

	mu   sync.Mutex
	keys []string
}

// RoundTrip delivers the request and then drops the first responses, the
// way a connection reset after the server committed would.
func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.keys = append(f.keys, r.Header.Get(wire.HeaderIdempotencyKey))
	f.mu.Unlock()
	resp, err := f.next.RoundTrip(r)
	if err == nil && f.drops.Add(-1) >= 0 {
		resp.Body.Close()
		return nil, errors.New("connection reset")
	}
	return resp, err
}

func (f *flakyTransport) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func TestCreateRetriesWithSameIdempotencyKey(t *testing.T) {
	m := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()
	s := newServer(t, nil, api.NewRedisDeduper(rc, time.Minute))

	tr := &flakyTransport{next: http.DefaultTransport}
	tr.drops.Store(1)
	c := New(s.url, "", quietLogger())
	c.HTTP = &http.Client{Transport: tr}

	card, err := c.CreateCard(context.Background(), domain.CardDraft{BoardID: s.board.ID, ListID: s.todo.ID, Name: "once"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	keys := tr.Keys()
	if len(keys) != 2 || keys[0] == "" || keys[0] != keys[1] {
		t.Fatalf("expected two attempts with one key, got %v", keys)
	}
	cards, _ := s.backend.Cards(context.Background(), s.todo.ID, s.board.ID)
	if len(cards) != 1 || cards[0].ID != card.ID {
		t.Fatalf("expected exactly the replayed card, got %+v", cards)
	}
}

func TestUpdateIsNotRetried(t *testing.T) {
	s := newServer(t, nil, nil)
	cards := s.addCards(t, s.todo, "a")
	tr := &flakyTransport{next: http.DefaultTransport}
	tr.drops.Store(5)
	c := New(s.url, "", quietLogger())
	c.HTTP = &http.Client{Transport: tr}

	name := "b"
	if _, err := c.UpdateCard(context.Background(), cards[0].ID, domain.CardPatch{Name: &name}); err == nil {
		t.Fatal("expected transport error")
	}
	if n := len(tr.Keys()); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestBearerToken(t *testing.T) {
	secret := []byte("secret")
	s := newServer(t, api.NewAuth(api.AuthOptions{SharedSecret: secret}), nil)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := New(s.url, signed, quietLogger()).Board(context.Background(), s.board.ID); err != nil {
		t.Fatalf("expected authorized read, got %v", err)
	}
	_, err = New(s.url, "", quietLogger()).Board(context.Background(), s.board.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

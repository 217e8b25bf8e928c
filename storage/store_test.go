package storage

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"kanban-client/domain"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   map[domain.Key]int
	fetchFn func(ctx context.Context, key domain.Key) (domain.Value, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, key domain.Key) (domain.Value, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[domain.Key]int)
	}
	s.calls[key]++
	s.mu.Unlock()
	if s.fetchFn == nil {
		return nil, errors.New("unexpected Fetch call")
	}
	return s.fetchFn(ctx, key)
}

func (s *stubFetcher) count(key domain.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

var (
	listA = domain.CardsKey(domain.Committed("A"), domain.Committed("b1"))
	listB = domain.CardsKey(domain.Committed("B"), domain.Committed("b1"))
)

func sampleCards(list string, names ...string) domain.Cards {
	out := make(domain.Cards, len(names))
	for i, n := range names {
		out[i] = domain.Card{
			ID:       domain.Committed(n),
			ListID:   domain.Committed(list),
			BoardID:  domain.Committed("b1"),
			Name:     n,
			Position: int64(i+1) * domain.PositionStep,
			Labels:   []domain.Label{{ID: domain.Committed("l"), Name: "bug"}},
		}
	}
	return out
}

func TestStoreGetReturnsPrivateCopies(t *testing.T) {
	s := New(Options{})
	in := sampleCards("A", "c1")
	s.Set(listA, in)
	in[0].Labels[0].Name = "changed by caller"

	got, ok, _ := Lookup[domain.Cards](s, listA)
	if !ok {
		t.Fatalf("expected value")
	}
	if got[0].Labels[0].Name != "bug" {
		t.Fatalf("store shares memory with writer: %q", got[0].Labels[0].Name)
	}
	got[0].Name = "changed by reader"

	again, _, _ := Lookup[domain.Cards](s, listA)
	if again[0].Name != "c1" {
		t.Fatalf("store shares memory with reader: %q", again[0].Name)
	}
}

func TestStoreBatchIsAllOrNothing(t *testing.T) {
	s := New(Options{})
	s.Set(listA, sampleCards("A", "c1"))

	boom := errors.New("boom")
	err := s.Batch(func(tx *Tx) error {
		tx.Set(listA, domain.Cards{})
		tx.Set(listB, sampleCards("B", "c1"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _, _ := Lookup[domain.Cards](s, listA)
	if len(got) != 1 {
		t.Fatalf("failed batch wrote source: %v", got)
	}
	if _, ok, _ := s.Get(listB); ok {
		t.Fatalf("failed batch wrote dest")
	}
}

func TestStoreBatchSeesOwnWrites(t *testing.T) {
	s := New(Options{})
	err := s.Batch(func(tx *Tx) error {
		tx.Set(listA, sampleCards("A", "c1", "c2"))
		cards, ok, err := TxLookup[domain.Cards](tx, listA)
		if err != nil || !ok || len(cards) != 2 {
			t.Fatalf("tx did not see its write: %v %v %v", cards, ok, err)
		}
		tx.Delete(listA)
		if _, ok := tx.Get(listA); ok {
			t.Fatalf("tx still sees deleted key")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if _, ok, _ := s.Get(listA); ok {
		t.Fatalf("expected key cleared")
	}
}

func TestUpdateAsRejectsWrongType(t *testing.T) {
	s := New(Options{})
	s.Set(listA, domain.Board{ID: domain.Committed("b1")})
	err := UpdateAs(s, listA, func(cur domain.Cards, ok bool) (domain.Cards, error) {
		return cur, nil
	})
	if err == nil {
		t.Fatalf("expected type error")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New(Options{})
	s.Set(listA, sampleCards("A", "c1", "c2"))

	snap := s.Snapshot(listA, listB, listA)
	if got := snap.Keys(); !reflect.DeepEqual(got, []domain.Key{listA, listB}) {
		t.Fatalf("unexpected snapshot keys: %v", got)
	}

	s.Set(listA, sampleCards("A", "c2"))
	s.Set(listB, sampleCards("B", "c1"))
	s.Restore(snap)

	a, ok, _ := Lookup[domain.Cards](s, listA)
	if !ok || !reflect.DeepEqual(a, sampleCards("A", "c1", "c2")) {
		t.Fatalf("source not restored: %v", a)
	}
	if _, ok, _ := s.Get(listB); ok {
		t.Fatalf("key absent at snapshot time must be cleared")
	}
}

func TestObserveFetchesMissingKey(t *testing.T) {
	f := &stubFetcher{fetchFn: func(ctx context.Context, key domain.Key) (domain.Value, error) {
		return sampleCards("A", "c1"), nil
	}}
	s := New(Options{Fetcher: f})
	t.Cleanup(s.Close)

	events := make(chan Event, 4)
	stop := s.Observe(listA, func(ev Event) { events <- ev })
	defer stop()
	s.Wait()

	select {
	case ev := <-events:
		if !ev.Present || ev.Stale {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if cards := ev.Value.(domain.Cards); len(cards) != 1 {
			t.Fatalf("unexpected value: %v", cards)
		}
	default:
		t.Fatalf("expected an event")
	}
	if !s.Observed(listA) {
		t.Fatalf("expected key observed")
	}
	stop()
	if s.Observed(listA) {
		t.Fatalf("expected observer removed")
	}
}

func TestCancelInFlightDiscardsFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	f := &stubFetcher{fetchFn: func(ctx context.Context, key domain.Key) (domain.Value, error) {
		started <- struct{}{}
		<-release
		return sampleCards("A", "server"), nil
	}}
	s := New(Options{Fetcher: f})
	t.Cleanup(s.Close)

	stop := s.Observe(listA, func(Event) {})
	defer stop()
	<-started
	if !s.Fetching(listA) {
		t.Fatalf("expected fetch in flight")
	}

	s.CancelInFlight(listA)
	s.Set(listA, sampleCards("A", "local"))
	close(release)
	s.Wait()

	got, _, _ := Lookup[domain.Cards](s, listA)
	if len(got) != 1 || got[0].Name != "local" {
		t.Fatalf("cancelled fetch overwrote local write: %v", got)
	}
}

func TestInvalidateRefetchesObservedKeysOnly(t *testing.T) {
	var mu sync.Mutex
	version := 1
	f := &stubFetcher{fetchFn: func(ctx context.Context, key domain.Key) (domain.Value, error) {
		mu.Lock()
		defer mu.Unlock()
		cards := sampleCards("A", "c1")
		cards[0].Position = int64(version) * domain.PositionStep
		return cards, nil
	}}
	s := New(Options{Fetcher: f})
	t.Cleanup(s.Close)

	stop := s.Observe(listA, func(Event) {})
	defer stop()
	s.Wait()
	s.Set(listB, sampleCards("B", "c9"))

	mu.Lock()
	version = 2
	mu.Unlock()
	s.Invalidate(listA, listB)
	s.Wait()

	a, _, stale := Lookup[domain.Cards](s, listA)
	if stale || a[0].Position != 2*domain.PositionStep {
		t.Fatalf("observed key not refetched: %v stale=%v", a, stale)
	}
	if _, ok, stale := s.Get(listB); !ok || !stale {
		t.Fatalf("unobserved key should stay cached and stale: ok=%v stale=%v", ok, stale)
	}
	if n := f.count(listB); n != 0 {
		t.Fatalf("unobserved key fetched %d times", n)
	}
}

func TestInvalidateWhere(t *testing.T) {
	s := New(Options{})
	s.Set(listA, sampleCards("A"))
	s.Set(listB, sampleCards("B"))
	board := domain.BoardKey(domain.Committed("b1"))
	s.Set(board, domain.Board{ID: domain.Committed("b1")})

	s.InvalidateWhere(func(k domain.Key) bool { return k.Kind == domain.KindCards })

	for _, k := range []domain.Key{listA, listB} {
		if _, _, stale := s.Get(k); !stale {
			t.Fatalf("%s should be stale", k)
		}
	}
	if _, _, stale := s.Get(board); stale {
		t.Fatalf("board should not be stale")
	}
}

func TestReadCachesAndHonoursStaleTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &stubFetcher{fetchFn: func(ctx context.Context, key domain.Key) (domain.Value, error) {
		return sampleCards("A", "c1"), nil
	}}
	s := New(Options{Fetcher: f, StaleTime: time.Minute, Now: func() time.Time { return now }})
	ctx := context.Background()

	if _, err := ReadAs[domain.Cards](ctx, s, listA); err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := ReadAs[domain.Cards](ctx, s, listA); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := f.count(listA); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}

	now = now.Add(2 * time.Minute)
	if _, _, stale := s.Get(listA); !stale {
		t.Fatalf("expected value to go stale")
	}
	if _, err := s.Read(ctx, listA); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := f.count(listA); n != 2 {
		t.Fatalf("expected refetch after stale time, got %d fetches", n)
	}
}

func TestReadPendingScope(t *testing.T) {
	s := New(Options{Fetcher: &stubFetcher{}})
	key := domain.CardsKey(domain.Pending("temp-1"), domain.Committed("b1"))

	if _, err := s.Read(context.Background(), key); !errors.Is(err, ErrPendingScope) {
		t.Fatalf("expected ErrPendingScope, got %v", err)
	}
	s.Set(key, domain.Cards{})
	if _, err := s.Read(context.Background(), key); err != nil {
		t.Fatalf("expected local value, got %v", err)
	}
}

func TestReadWithoutFetcher(t *testing.T) {
	s := New(Options{})
	if _, err := s.Read(context.Background(), listA); !errors.Is(err, ErrNoFetcher) {
		t.Fatalf("expected ErrNoFetcher, got %v", err)
	}
}

func TestMutateCapturesStateBeforeWrites(t *testing.T) {
	s := New(Options{})
	before := sampleCards("A", "c1", "c2")
	s.Set(listA, before)

	snap, err := s.Mutate([]domain.Key{listA, listB}, func(tx *Tx) error {
		tx.Set(listA, sampleCards("A", "c1"))
		tx.Set(listB, sampleCards("B", "c2"))
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if got := snap.Keys(); !reflect.DeepEqual(got, []domain.Key{listA, listB}) {
		t.Fatalf("unexpected keys: %v", got)
	}
	captured, ok := snap.Value(listA)
	if !ok || !reflect.DeepEqual(captured, before) {
		t.Fatalf("snapshot taken after writes: %v", captured)
	}

	s.Restore(snap)
	s.Restore(snap)
	if got, _, _ := Lookup[domain.Cards](s, listA); !reflect.DeepEqual(got, before) {
		t.Fatalf("restore failed: %v", got)
	}
	if _, ok, _ := s.Get(listB); ok {
		t.Fatalf("restore must clear keys absent at capture")
	}
}

func TestMutateFailureLeavesFetchRunning(t *testing.T) {
	release := make(chan struct{})
	f := &stubFetcher{fetchFn: func(ctx context.Context, key domain.Key) (domain.Value, error) {
		<-release
		return sampleCards("A", "server"), nil
	}}
	s := New(Options{Fetcher: f})
	t.Cleanup(s.Close)
	stop := s.Observe(listA, func(Event) {})
	defer stop()

	_, err := s.Mutate([]domain.Key{listA}, func(tx *Tx) error { return domain.ErrNotFound })
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	close(release)
	s.Wait()

	if got, ok, _ := Lookup[domain.Cards](s, listA); !ok || got[0].Name != "server" {
		t.Fatalf("failed mutate cancelled the fetch: %v", got)
	}
}

// blockingFetcher returns "server" for listA once release is closed and
// signals started when the fetch begins.
func blockingFetcher() (*stubFetcher, chan struct{}, chan struct{}) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	return &stubFetcher{fetchFn: func(ctx context.Context, key domain.Key) (domain.Value, error) {
		started <- struct{}{}
		<-release
		return sampleCards("A", "server"), nil
	}}, release, started
}

func TestInvalidateSupersedesUnobservedRead(t *testing.T) {
	f, release, started := blockingFetcher()
	s := New(Options{Fetcher: f})
	t.Cleanup(s.Close)
	s.Set(listA, sampleCards("A", "old"))
	s.Invalidate(listA)

	done := make(chan error, 1)
	go func() {
		_, err := s.Read(context.Background(), listA)
		done <- err
	}()
	<-started
	s.Invalidate(listA)
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("read: %v", err)
	}

	_, ok, stale := s.Get(listA)
	if !ok || !stale {
		t.Fatalf("data fetched before Invalidate was cached as fresh: ok=%v stale=%v", ok, stale)
	}
	if s.Fetching(listA) {
		t.Fatalf("superseded fetch still marked in flight")
	}
}

func TestReadReturnsLocalWriteOverSupersededFetch(t *testing.T) {
	f, release, started := blockingFetcher()
	s := New(Options{Fetcher: f})
	t.Cleanup(s.Close)

	type result struct {
		cards domain.Cards
		err   error
	}
	done := make(chan result, 1)
	go func() {
		cards, err := ReadAs[domain.Cards](context.Background(), s, listA)
		done <- result{cards, err}
	}()
	<-started
	if _, err := s.Mutate([]domain.Key{listA}, func(tx *Tx) error {
		tx.Set(listA, sampleCards("A", "local"))
		return nil
	}); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	close(release)

	res := <-done
	if res.err != nil {
		t.Fatalf("read: %v", res.err)
	}
	if len(res.cards) != 1 || res.cards[0].Name != "local" {
		t.Fatalf("read returned the discarded fetch: %v", res.cards)
	}
	if got, _, _ := Lookup[domain.Cards](s, listA); got[0].Name != "local" {
		t.Fatalf("discarded fetch overwrote local write: %v", got)
	}
}

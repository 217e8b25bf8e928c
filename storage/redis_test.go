package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kanban-client/domain"
)

func newMirror(t *testing.T, ttl time.Duration) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisMirror(client, "kanban:", ttl, nil), mr
}

func TestRedisMirrorSaveLoad(t *testing.T) {
	m, mr := newMirror(t, time.Minute)
	ctx := context.Background()
	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cards := sampleCards("A", "c1", "c2")
	cards[1].DueAt = &due

	m.Save(ctx, listA, cards)

	if ttl := mr.TTL("kanban:" + listA.String()); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
	got, ok := m.Load(ctx, listA)
	if !ok {
		t.Fatalf("expected mirrored value")
	}
	loaded := got.(domain.Cards)
	if !reflect.DeepEqual(loaded[0].ID, cards[0].ID) || loaded[1].DueAt == nil || !loaded[1].DueAt.Equal(due) {
		t.Fatalf("unexpected mirrored cards: %+v", loaded)
	}
	if loaded[0].ListID != domain.Committed("A") {
		t.Fatalf("list id lost: %v", loaded[0].ListID)
	}
}

func TestRedisMirrorSkipsPendingScope(t *testing.T) {
	m, mr := newMirror(t, time.Minute)
	key := domain.CardsKey(domain.Pending("temp-1"), domain.Committed("b1"))

	m.Save(context.Background(), key, domain.Cards{})
	if mr.Exists("kanban:" + key.String()) {
		t.Fatalf("pending-scoped key must not be mirrored")
	}
}

func TestRedisMirrorZeroTTLDisablesWrites(t *testing.T) {
	m, mr := newMirror(t, 0)
	m.Save(context.Background(), listA, sampleCards("A", "c1"))
	if mr.Exists("kanban:" + listA.String()) {
		t.Fatalf("expected no write with zero ttl")
	}
}

func TestRedisMirrorDropsCorruptEntries(t *testing.T) {
	m, mr := newMirror(t, time.Minute)
	name := "kanban:" + listA.String()
	if err := mr.Set(name, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := m.Load(context.Background(), listA); ok {
		t.Fatalf("expected corrupt entry to miss")
	}
	if mr.Exists(name) {
		t.Fatalf("expected corrupt entry deleted")
	}
}

func TestStoreReadsThroughMirrorAndEvictsOnInvalidate(t *testing.T) {
	m, mr := newMirror(t, time.Minute)
	ctx := context.Background()
	f := &stubFetcher{fetchFn: func(ctx context.Context, key domain.Key) (domain.Value, error) {
		return sampleCards("A", "c1"), nil
	}}

	first := New(Options{Fetcher: f, Mirror: m})
	if _, err := first.Read(ctx, listA); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !mr.Exists("kanban:" + listA.String()) {
		t.Fatalf("expected fetched value mirrored")
	}

	second := New(Options{Fetcher: f, Mirror: m})
	if _, err := second.Read(ctx, listA); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := f.count(listA); n != 1 {
		t.Fatalf("expected second session to load from mirror, fetches=%d", n)
	}

	second.Invalidate(listA)
	if mr.Exists("kanban:" + listA.String()) {
		t.Fatalf("expected mirror evicted on invalidate")
	}
}

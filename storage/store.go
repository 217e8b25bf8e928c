// Package storage holds the client-side entity store: one cached view per
// query key, snapshots for rollback, and an optional Redis mirror of
// server-confirmed values.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-client/domain"
)

var (
	// ErrNoFetcher is returned by Read for a missing key when the store was
	// built without a Fetcher.
	ErrNoFetcher = errors.New("storage: no fetcher configured")
	// ErrPendingScope is returned by Read for keys scoped by ids the server
	// has not issued yet.
	ErrPendingScope = errors.New("storage: key scoped by pending id")
)

// Fetcher loads the authoritative value for a key.
type Fetcher interface {
	Fetch(ctx context.Context, key domain.Key) (domain.Value, error)
}

// Mirror is a second-level cache of server-confirmed values.
type Mirror interface {
	Load(ctx context.Context, key domain.Key) (domain.Value, bool)
	Save(ctx context.Context, key domain.Key, value domain.Value)
	Evict(ctx context.Context, keys ...domain.Key)
}

// Options configures a Store.
type Options struct {
	Fetcher Fetcher
	Mirror  Mirror
	// StaleTime is how long a fetched value counts as fresh. Zero keeps
	// values fresh until they are invalidated.
	StaleTime time.Duration
	// FetchTimeout bounds background refetches. Defaults to 30s.
	FetchTimeout time.Duration
	Logger       *log.Logger
	Now          func() time.Time
}

// Event describes the state of a key after a change. Value is a private
// copy and is nil when the key holds nothing.
type Event struct {
	Key     domain.Key
	Value   domain.Value
	Present bool
	Stale   bool
}

type entry struct {
	value     domain.Value
	present   bool
	stale     bool
	fetching  bool
	gen       uint64
	updatedAt time.Time
	observers map[uint64]func(Event)
}

// Store maps query keys to their last known value. All reads and writes go
// through one mutex so no reader ever sees a half-applied collection, and
// values are deep-copied on the way in and out.
type Store struct {
	opts Options
	log  *log.Logger

	mu      sync.Mutex
	entries map[domain.Key]*entry
	nextObs uint64

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		opts:     opts,
		log:      opts.Logger,
		entries:  make(map[domain.Key]*entry),
		bgCtx:    ctx,
		bgCancel: cancel,
	}
}

// Get returns a copy of the value cached under key, whether it is present
// and whether it is stale.
func (s *Store) Get(key domain.Key) (domain.Value, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.present {
		return nil, false, false
	}
	return e.value.Clone(), true, s.staleLocked(e)
}

// Lookup is Get with a typed value. A value of a different type reports
// not present.
func Lookup[T domain.Value](s *Store, key domain.Key) (T, bool, bool) {
	var zero T
	v, ok, stale := s.Get(key)
	if !ok {
		return zero, false, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false, false
	}
	return t, true, stale
}

// Set replaces the value under key wholesale.
func (s *Store) Set(key domain.Key, value domain.Value) {
	_ = s.Batch(func(tx *Tx) error {
		tx.Set(key, value)
		return nil
	})
}

// Update applies fn to a private copy of the current value and writes the
// result back atomically. If fn fails nothing is written.
func (s *Store) Update(key domain.Key, fn func(cur domain.Value, present bool) (domain.Value, error)) error {
	return s.Batch(func(tx *Tx) error {
		cur, ok := tx.Get(key)
		next, err := fn(cur, ok)
		if err != nil {
			return err
		}
		tx.Set(key, next)
		return nil
	})
}

// UpdateAs is Update with a typed value.
func UpdateAs[T domain.Value](s *Store, key domain.Key, fn func(cur T, present bool) (T, error)) error {
	return s.Update(key, func(v domain.Value, ok bool) (domain.Value, error) {
		var cur T
		if ok {
			t, isT := v.(T)
			if !isT {
				return nil, fmt.Errorf("storage: %s holds %T", key, v)
			}
			cur = t
		}
		return fn(cur, ok)
	})
}

// Invalidate marks keys stale and supersedes any fetch in flight for them.
// Keys with at least one observer are refetched in the background.
func (s *Store) Invalidate(keys ...domain.Key) {
	if len(keys) == 0 {
		return
	}
	var notes []notification
	s.mu.Lock()
	for _, key := range keys {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		e.stale = true
		if e.fetching {
			e.gen++
			e.fetching = false
		}
		if len(e.observers) > 0 {
			s.scheduleFetchLocked(key, e)
		}
		notes = append(notes, s.notificationsLocked(key, e)...)
	}
	s.mu.Unlock()

	s.evictMirror(keys)
	dispatch(notes)
}

// InvalidateWhere invalidates every cached key matching pred.
func (s *Store) InvalidateWhere(pred func(domain.Key) bool) {
	s.mu.Lock()
	var keys []domain.Key
	for k := range s.entries {
		if pred(k) {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()
	s.Invalidate(keys...)
}

// CancelInFlight makes any pending fetch for keys resolve into nothing, so
// it cannot overwrite a newer local write.
func (s *Store) CancelInFlight(keys ...domain.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(keys)
}

func (s *Store) cancelLocked(keys []domain.Key) {
	for _, key := range keys {
		if e, ok := s.entries[key]; ok && e.fetching {
			e.gen++
			e.fetching = false
		}
	}
}

// Fetching reports whether a fetch for key is in flight.
func (s *Store) Fetching(key domain.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.fetching
}

// Read returns the value for key, loading it from the mirror or the fetcher
// when it is missing or stale.
func (s *Store) Read(ctx context.Context, key domain.Key) (domain.Value, error) {
	s.mu.Lock()
	e := s.entryLocked(key)
	if e.present && !s.staleLocked(e) {
		v := e.value.Clone()
		s.mu.Unlock()
		return v, nil
	}
	present := e.present
	s.mu.Unlock()

	if key.HasPendingScope() {
		if present {
			v, _, _ := s.Get(key)
			return v, nil
		}
		return nil, fmt.Errorf("%s: %w", key, ErrPendingScope)
	}

	if !present && s.opts.Mirror != nil {
		if v, ok := s.opts.Mirror.Load(ctx, key); ok {
			s.mu.Lock()
			if !e.present {
				s.fillLocked(e, v)
			}
			out := e.value.Clone()
			notes := s.notificationsLocked(key, e)
			s.mu.Unlock()
			dispatch(notes)
			return out, nil
		}
	}

	if s.opts.Fetcher == nil {
		if present {
			v, _, _ := s.Get(key)
			return v, nil
		}
		return nil, fmt.Errorf("%s: %w", key, ErrNoFetcher)
	}

	s.mu.Lock()
	gen := e.gen
	e.fetching = true
	s.mu.Unlock()

	v, err := s.opts.Fetcher.Fetch(ctx, key)

	s.mu.Lock()
	if e.gen != gen {
		s.log.WithField("key", key.String()).Debug("storage.read.superseded")
		if e.present {
			// A newer write or invalidation owns the entry.
			out := e.value.Clone()
			s.mu.Unlock()
			return out, nil
		}
		s.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", key, err)
		}
		return v.Clone(), nil
	}
	e.fetching = false
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	s.fillLocked(e, v)
	out := e.value.Clone()
	notes := s.notificationsLocked(key, e)
	s.mu.Unlock()

	s.saveMirror(key, v)
	dispatch(notes)
	return out, nil
}

// ReadAs is Read with a typed value.
func ReadAs[T domain.Value](ctx context.Context, s *Store, key domain.Key) (T, error) {
	var zero T
	v, err := s.Read(ctx, key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("storage: %s holds %T", key, v)
	}
	return t, nil
}

// Observe registers fn to be called after every change to key. Observing a
// key that is missing or stale starts a background fetch. The returned
// function removes the observer.
func (s *Store) Observe(key domain.Key, fn func(Event)) (stop func()) {
	s.mu.Lock()
	e := s.entryLocked(key)
	s.nextObs++
	id := s.nextObs
	e.observers[id] = fn
	if (!e.present || s.staleLocked(e)) && !e.fetching {
		s.scheduleFetchLocked(key, e)
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(e.observers, id)
			s.mu.Unlock()
		})
	}
}

// Observed reports whether key has at least one observer.
func (s *Store) Observed(key domain.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && len(e.observers) > 0
}

// Wait blocks until every background fetch started so far has finished.
func (s *Store) Wait() {
	s.bg.Wait()
}

// Close cancels background fetches and waits for them to return.
func (s *Store) Close() {
	s.bgCancel()
	s.bg.Wait()
}

func (s *Store) entryLocked(key domain.Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{observers: make(map[uint64]func(Event))}
		s.entries[key] = e
	}
	return e
}

func (s *Store) staleLocked(e *entry) bool {
	if e.stale {
		return true
	}
	return s.opts.StaleTime > 0 && s.opts.Now().Sub(e.updatedAt) > s.opts.StaleTime
}

func (s *Store) fillLocked(e *entry, v domain.Value) {
	e.value = v.Clone()
	e.present = true
	e.stale = false
	e.updatedAt = s.opts.Now()
}

func (s *Store) scheduleFetchLocked(key domain.Key, e *entry) {
	if s.opts.Fetcher == nil || key.HasPendingScope() {
		return
	}
	e.fetching = true
	gen := e.gen
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.backgroundFetch(key, e, gen)
	}()
}

func (s *Store) backgroundFetch(key domain.Key, e *entry, gen uint64) {
	ctx, cancel := context.WithTimeout(s.bgCtx, s.opts.FetchTimeout)
	defer cancel()
	v, err := s.opts.Fetcher.Fetch(ctx, key)

	s.mu.Lock()
	if e.gen != gen {
		s.mu.Unlock()
		s.log.WithField("key", key.String()).Debug("storage.fetch.discarded")
		return
	}
	e.fetching = false
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("key", key.String()).Warn("storage.fetch.failed")
		return
	}
	s.fillLocked(e, v)
	notes := s.notificationsLocked(key, e)
	s.mu.Unlock()

	s.saveMirror(key, v)
	dispatch(notes)
}

func (s *Store) saveMirror(key domain.Key, v domain.Value) {
	if s.opts.Mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.bgCtx, s.opts.FetchTimeout)
	defer cancel()
	s.opts.Mirror.Save(ctx, key, v)
}

func (s *Store) evictMirror(keys []domain.Key) {
	if s.opts.Mirror == nil || len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(s.bgCtx, s.opts.FetchTimeout)
	defer cancel()
	s.opts.Mirror.Evict(ctx, keys...)
}

type notification struct {
	fn func(Event)
	ev Event
}

func (s *Store) notificationsLocked(key domain.Key, e *entry) []notification {
	if len(e.observers) == 0 {
		return nil
	}
	out := make([]notification, 0, len(e.observers))
	for _, fn := range e.observers {
		ev := Event{Key: key, Present: e.present, Stale: s.staleLocked(e)}
		if e.present {
			ev.Value = e.value.Clone()
		}
		out = append(out, notification{fn: fn, ev: ev})
	}
	return out
}

func dispatch(notes []notification) {
	for _, n := range notes {
		n.fn(n.ev)
	}
}

package storage

import (
	"fmt"

	"kanban-client/domain"
)

// Tx is a set of writes staged against a Store and applied together. It is
// only valid inside the function passed to Batch and must not call back into
// the Store.
type Tx struct {
	s      *Store
	writes map[domain.Key]domain.Value
	order  []domain.Key
}

// Get returns a copy of the value under key as seen by this transaction,
// including its own staged writes.
func (tx *Tx) Get(key domain.Key) (domain.Value, bool) {
	if v, ok := tx.writes[key]; ok {
		if v == nil {
			return nil, false
		}
		return v.Clone(), true
	}
	e, ok := tx.s.entries[key]
	if !ok || !e.present {
		return nil, false
	}
	return e.value.Clone(), true
}

// Set stages value under key. A nil value clears the key.
func (tx *Tx) Set(key domain.Key, value domain.Value) {
	if _, ok := tx.writes[key]; !ok {
		tx.order = append(tx.order, key)
	}
	if value != nil {
		value = value.Clone()
	}
	tx.writes[key] = value
}

// Delete stages the removal of the value under key.
func (tx *Tx) Delete(key domain.Key) {
	tx.Set(key, nil)
}

// TxLookup is Tx.Get with a typed value. A value of another type is an error.
func TxLookup[T domain.Value](tx *Tx, key domain.Key) (T, bool, error) {
	var zero T
	v, ok := tx.Get(key)
	if !ok {
		return zero, false, nil
	}
	t, isT := v.(T)
	if !isT {
		return zero, false, fmt.Errorf("storage: %s holds %T", key, v)
	}
	return t, true, nil
}

// Batch runs fn under the store lock and applies its staged writes only if
// it returns nil. Readers observe either none or all of the writes.
func (s *Store) Batch(fn func(tx *Tx) error) error {
	s.mu.Lock()
	tx := &Tx{s: s, writes: make(map[domain.Key]domain.Value)}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}
	notes := s.commitLocked(tx)
	s.mu.Unlock()

	dispatch(notes)
	return nil
}

// Mutate is Batch for optimistic writes. In one critical section it runs fn,
// and if fn succeeds it cancels in-flight fetches for keys and every written
// key, captures their current values, then applies the writes. The returned
// snapshot restores the state fn saw. If fn fails nothing is cancelled,
// captured or written.
func (s *Store) Mutate(keys []domain.Key, fn func(tx *Tx) error) (*Snapshot, error) {
	s.mu.Lock()
	tx := &Tx{s: s, writes: make(map[domain.Key]domain.Value)}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	all := append(append(make([]domain.Key, 0, len(keys)+len(tx.order)), keys...), tx.order...)
	s.cancelLocked(all)
	snap := s.snapshotLocked(all)
	notes := s.commitLocked(tx)
	s.mu.Unlock()

	dispatch(notes)
	return snap, nil
}

func (s *Store) commitLocked(tx *Tx) []notification {
	var notes []notification
	now := s.opts.Now()
	for _, key := range tx.order {
		e := s.entryLocked(key)
		if v := tx.writes[key]; v == nil {
			e.value, e.present = nil, false
		} else {
			e.value, e.present = v, true
		}
		e.updatedAt = now
		notes = append(notes, s.notificationsLocked(key, e)...)
	}
	return notes
}

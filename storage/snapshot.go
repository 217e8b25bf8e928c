package storage

import (
	"kanban-client/domain"
)

// Snapshot is a point-in-time copy of a set of keys, including whether each
// key held a value at all.
type Snapshot struct {
	items []captured
}

type captured struct {
	key     domain.Key
	value   domain.Value
	present bool
	stale   bool
}

// Keys returns the captured keys in capture order.
func (snap *Snapshot) Keys() []domain.Key {
	if snap == nil {
		return nil
	}
	out := make([]domain.Key, len(snap.items))
	for i, it := range snap.items {
		out[i] = it.key
	}
	return out
}

// Value returns the captured value for key.
func (snap *Snapshot) Value(key domain.Key) (domain.Value, bool) {
	if snap == nil {
		return nil, false
	}
	for _, it := range snap.items {
		if it.key == key {
			if !it.present {
				return nil, false
			}
			return it.value.Clone(), true
		}
	}
	return nil, false
}

// Snapshot captures keys. Duplicate keys are captured once.
func (s *Store) Snapshot(keys ...domain.Key) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(keys)
}

func (s *Store) snapshotLocked(keys []domain.Key) *Snapshot {
	snap := &Snapshot{items: make([]captured, 0, len(keys))}
	seen := make(map[domain.Key]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c := captured{key: key}
		if e, ok := s.entries[key]; ok && e.present {
			c.value = e.value.Clone()
			c.present = true
			c.stale = e.stale
		}
		snap.items = append(snap.items, c)
	}
	return snap
}

// Restore puts every captured key back to its captured state. Keys that held
// nothing at capture time are cleared.
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil || len(snap.items) == 0 {
		return
	}
	var notes []notification
	s.mu.Lock()
	now := s.opts.Now()
	for _, it := range snap.items {
		e, ok := s.entries[it.key]
		if !ok && !it.present {
			continue
		}
		if !ok {
			e = s.entryLocked(it.key)
		}
		if it.present {
			e.value = it.value.Clone()
		} else {
			e.value = nil
		}
		e.present = it.present
		e.stale = it.stale
		e.updatedAt = now
		notes = append(notes, s.notificationsLocked(it.key, e)...)
	}
	s.mu.Unlock()

	dispatch(notes)
}

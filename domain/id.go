package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
)

// PendingPrefix marks ids generated locally for entities the server has not
// confirmed yet.
const PendingPrefix = "temp-"

// ID identifies a board, list, card or custom field. An ID is either pending
// (allocated locally at optimistic-apply time) or committed (issued by the
// server). The zero value is neither and means "no id".
type ID struct {
	raw     string
	pending bool
}

// Committed wraps a server issued id.
func Committed(raw string) ID {
	return ID{raw: raw}
}

// Pending wraps a locally generated temporary id.
func Pending(raw string) ID {
	return ID{raw: raw, pending: true}
}

// ParseID restores an ID from its textual form. Ids carrying the pending
// prefix are treated as pending.
func ParseID(raw string) ID {
	if raw == "" {
		return ID{}
	}
	if strings.HasPrefix(raw, PendingPrefix) {
		return Pending(raw)
	}
	return Committed(raw)
}

func (id ID) String() string    { return id.raw }
func (id ID) IsZero() bool      { return id.raw == "" }
func (id ID) IsPending() bool   { return id.pending }
func (id ID) IsCommitted() bool { return id.raw != "" && !id.pending }

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.raw)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ParseID(s)
	return nil
}

// IDAllocator hands out pending ids. Each session owns one so temporary ids
// never collide within a cache.
type IDAllocator struct {
	seq atomic.Int64
}

// NewIDAllocator returns an allocator whose first id is temp-1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh pending id.
func (a *IDAllocator) Next() ID {
	return Pending(PendingPrefix + strconv.FormatInt(a.seq.Add(1), 10))
}

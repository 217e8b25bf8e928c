package domain

import (
	"fmt"
	"slices"
)

// PositionStep is the gap between consecutive ordering keys after a
// renumber. Leaving gaps lets a later insert pick a key between two
// neighbours without touching the rest of the collection.
const PositionStep int64 = 10000

// Positioned is implemented by pointers to entities ordered inside a parent
// collection (lists in a board, cards in a list, custom fields in a board).
type Positioned interface {
	EntityID() ID
	OrderKey() int64
	SetOrderKey(int64)
}

type positionedPtr[T any] interface {
	*T
	Positioned
}

// CardMove relocates a card to DestIndex of the destination list. Source
// and destination may be the same list, in which case it is a reorder.
type CardMove struct {
	CardID       ID
	SourceListID ID
	DestListID   ID
	DestIndex    int
}

func (m CardMove) SameList() bool { return m.SourceListID == m.DestListID }

// MoveRequest is what the remote API needs to replay a move: the entity,
// where it was and where it went. Positions are indexes within the parent
// collection. List ids are only set for card moves.
type MoveRequest struct {
	ID               ID
	BoardID          ID
	PreviousListID   ID
	TargetListID     ID
	PreviousPosition int
	TargetPosition   int
}

// MoveResult holds the recomputed collections. For same-list moves Source
// and Dest are the same slice.
type MoveResult struct {
	Source    Cards
	Dest      Cards
	Moved     Card
	FromIndex int
	ToIndex   int
	Noop      bool
}

// MoveCard computes the collections resulting from m. The inputs are never
// modified. A card missing from source yields ErrNotFound and no result.
// Moving a card onto its own index returns the inputs untouched with Noop
// set.
func MoveCard(m CardMove, source, dest Cards) (MoveResult, error) {
	from := source.IndexOf(m.CardID)
	if from < 0 {
		return MoveResult{}, fmt.Errorf("card %s in list %s: %w", m.CardID, m.SourceListID, ErrNotFound)
	}

	if m.SameList() {
		res, err := Reorder(source, m.CardID, m.DestIndex)
		if err != nil {
			return MoveResult{}, err
		}
		out := Cards(res.Items)
		return MoveResult{
			Source:    out,
			Dest:      out,
			Moved:     out[res.To].Copy(),
			FromIndex: res.From,
			ToIndex:   res.To,
			Noop:      res.Noop,
		}, nil
	}

	src := source.Copy()
	moved := src[from]
	src = slices.Delete(src, from, from+1)

	dst := dest.Copy()
	to := clamp(m.DestIndex, 0, len(dst))
	moved.ListID = m.DestListID
	dst = slices.Insert(dst, to, moved)

	Renumber(src)
	Renumber(dst)
	return MoveResult{
		Source:    src,
		Dest:      dst,
		Moved:     dst[to].Copy(),
		FromIndex: from,
		ToIndex:   to,
	}, nil
}

// ReorderResult is the outcome of moving one element within a collection.
type ReorderResult[T any] struct {
	Items []T
	From  int
	To    int
	Noop  bool
}

// Reorder moves the element identified by id to index to (clamped to the
// collection bounds) and renumbers every element. The input slice is left
// untouched; on a no-op Items is the input itself.
func Reorder[T any, P positionedPtr[T]](items []T, id ID, to int) (ReorderResult[T], error) {
	from := -1
	for i := range items {
		if P(&items[i]).EntityID() == id {
			from = i
			break
		}
	}
	if from < 0 {
		return ReorderResult[T]{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	to = clamp(to, 0, len(items)-1)
	if to == from {
		return ReorderResult[T]{Items: items, From: from, To: to, Noop: true}, nil
	}

	out := make([]T, len(items))
	copy(out, items)
	el := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, el)
	Renumber[T, P](out)
	return ReorderResult[T]{Items: out, From: from, To: to}, nil
}

// Renumber assigns (index+1)*PositionStep to every element in place.
func Renumber[T any, P positionedPtr[T]](items []T) {
	for i := range items {
		P(&items[i]).SetOrderKey(int64(i+1) * PositionStep)
	}
}

// NextPosition returns the ordering key for an element appended after the
// current last one.
func NextPosition[T any, P positionedPtr[T]](items []T) int64 {
	var maxKey int64
	for i := range items {
		if k := P(&items[i]).OrderKey(); k > maxKey {
			maxKey = k
		}
	}
	return maxKey + PositionStep
}

// IsOrdered reports whether the ordering keys are strictly increasing
// multiples of PositionStep.
func IsOrdered[T any, P positionedPtr[T]](items []T) bool {
	var prev int64
	for i := range items {
		k := P(&items[i]).OrderKey()
		if k <= prev || k%PositionStep != 0 {
			return false
		}
		prev = k
	}
	return true
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

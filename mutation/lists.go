package mutation

import (
	"context"
	"fmt"
	"strings"

	"kanban-client/domain"
	"kanban-client/storage"
)

// ListRef addresses a list and the board whose view holds it.
type ListRef struct {
	ID      domain.ID
	BoardID domain.ID
}

// ListMoveIntent moves a list to DestIndex within its board.
type ListMoveIntent struct {
	ListID    domain.ID
	BoardID   domain.ID
	DestIndex int
}

// CreateList appends a list with a pending id to its board. The cards view
// of a pending list is never written.
func (r *Runner) CreateList(ctx context.Context, draft domain.ListDraft) (domain.ID, *Future[domain.List], error) {
	if err := requireCommitted(namedID{"board id", draft.BoardID}); err != nil {
		return domain.ID{}, nil, precondition(CreateList, err)
	}
	if strings.TrimSpace(draft.Name) == "" {
		return domain.ID{}, nil, precondition(CreateList, fmt.Errorf("list name is required"))
	}

	id := r.opts.IDs.Next()
	key := domain.ListsKey(draft.BoardID)

	fut, err := run(ctx, r, plan[domain.List]{
		intent: CreateList,
		scope:  Scope{BoardID: draft.BoardID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			lists, ok, err := storage.TxLookup[domain.Lists](tx, key)
			if err != nil || !ok {
				return err
			}
			if draft.Position == 0 {
				draft.Position = domain.NextPosition(lists)
			}
			tx.Set(key, append(lists, domain.List{
				ID:       id,
				BoardID:  draft.BoardID,
				Name:     draft.Name,
				Position: draft.Position,
			}))
			return nil
		},
		call: func(ctx context.Context) (domain.List, error) {
			return r.remote.CreateList(ctx, draft)
		},
	})
	if err != nil {
		return domain.ID{}, nil, err
	}
	return id, fut, nil
}

// UpdateList renames the list in its board's view.
func (r *Runner) UpdateList(ctx context.Context, ref ListRef, patch domain.ListPatch) (*Future[domain.List], error) {
	if err := requireCommitted(namedID{"list id", ref.ID}, namedID{"board id", ref.BoardID}); err != nil {
		return nil, precondition(UpdateList, err)
	}
	if patch.Empty() {
		return settled(domain.List{}, nil), nil
	}

	key := domain.ListsKey(ref.BoardID)
	return run(ctx, r, plan[domain.List]{
		intent: UpdateList,
		scope:  Scope{BoardID: ref.BoardID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			return patchList(tx, key, ref.ID, patch.Apply)
		},
		call: func(ctx context.Context) (domain.List, error) {
			return r.remote.UpdateList(ctx, ref.ID, patch)
		},
		patch: func(tx *storage.Tx, server domain.List) error {
			return patchList(tx, key, ref.ID, func(l *domain.List) { *l = server })
		},
	})
}

// MoveList reorders a list within its board. A list missing from the board's
// view is a precondition failure; moving onto its own index is a no-op.
func (r *Runner) MoveList(ctx context.Context, m ListMoveIntent) (*Future[struct{}], error) {
	if err := requireCommitted(namedID{"list id", m.ListID}, namedID{"board id", m.BoardID}); err != nil {
		return nil, precondition(MoveList, err)
	}

	key := domain.ListsKey(m.BoardID)
	var req domain.MoveRequest

	return run(ctx, r, plan[struct{}]{
		intent: MoveList,
		scope:  Scope{BoardID: m.BoardID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			lists, ok, err := storage.TxLookup[domain.Lists](tx, key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("lists of board %s are not loaded: %w", m.BoardID, domain.ErrNotFound)
			}
			res, err := domain.Reorder(lists, m.ListID, m.DestIndex)
			if err != nil {
				return err
			}
			if res.Noop {
				return errNoop
			}
			tx.Set(key, domain.Lists(res.Items))
			req = domain.MoveRequest{
				ID:               m.ListID,
				BoardID:          m.BoardID,
				PreviousPosition: res.From,
				TargetPosition:   res.To,
			}
			return nil
		},
		call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.remote.MoveList(ctx, req)
		},
	})
}

// DeleteList removes the list from its board and clears its cards view.
func (r *Runner) DeleteList(ctx context.Context, ref ListRef) (*Future[struct{}], error) {
	if err := requireCommitted(namedID{"list id", ref.ID}, namedID{"board id", ref.BoardID}); err != nil {
		return nil, precondition(DeleteList, err)
	}

	key := domain.ListsKey(ref.BoardID)
	cardsKey := domain.CardsKey(ref.ID, ref.BoardID)

	return run(ctx, r, plan[struct{}]{
		intent: DeleteList,
		scope:  Scope{BoardID: ref.BoardID, ListIDs: []domain.ID{ref.ID}},
		keys:   []domain.Key{key, cardsKey},
		apply: func(tx *storage.Tx) error {
			lists, ok, err := storage.TxLookup[domain.Lists](tx, key)
			if err != nil {
				return err
			}
			if ok {
				if i := lists.IndexOf(ref.ID); i >= 0 {
					tx.Set(key, append(lists[:i], lists[i+1:]...))
				}
			}
			if _, ok := tx.Get(cardsKey); ok {
				tx.Delete(cardsKey)
			}
			return nil
		},
		call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.remote.DeleteList(ctx, ref.ID)
		},
	})
}

func patchList(tx *storage.Tx, key domain.Key, id domain.ID, fn func(*domain.List)) error {
	lists, ok, err := storage.TxLookup[domain.Lists](tx, key)
	if err != nil || !ok {
		return err
	}
	if i := lists.IndexOf(id); i >= 0 {
		fn(&lists[i])
		tx.Set(key, lists)
	}
	return nil
}

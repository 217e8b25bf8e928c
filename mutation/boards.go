package mutation

import (
	"context"
	"fmt"
	"strings"

	"kanban-client/domain"
	"kanban-client/storage"
)

// BoardRef addresses a board and its workspace.
type BoardRef struct {
	ID          domain.ID
	WorkspaceID domain.ID
}

// CreateBoard appends a board with a pending id to its workspace. No
// single-board view is written for the pending id since it could never be
// fetched.
func (r *Runner) CreateBoard(ctx context.Context, draft domain.BoardDraft) (domain.ID, *Future[domain.Board], error) {
	if err := requireCommitted(namedID{"workspace id", draft.WorkspaceID}); err != nil {
		return domain.ID{}, nil, precondition(CreateBoard, err)
	}
	if strings.TrimSpace(draft.Name) == "" {
		return domain.ID{}, nil, precondition(CreateBoard, fmt.Errorf("board name is required"))
	}

	id := r.opts.IDs.Next()
	key := domain.BoardsKey(draft.WorkspaceID)

	fut, err := run(ctx, r, plan[domain.Board]{
		intent: CreateBoard,
		scope:  Scope{WorkspaceID: draft.WorkspaceID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			boards, ok, err := storage.TxLookup[domain.Boards](tx, key)
			if err != nil || !ok {
				return err
			}
			b := domain.Board{ID: id, WorkspaceID: draft.WorkspaceID, Name: draft.Name}
			if draft.Background != nil {
				bg := *draft.Background
				b.Background = &bg
			}
			tx.Set(key, append(boards, b))
			return nil
		},
		call: func(ctx context.Context) (domain.Board, error) {
			return r.remote.CreateBoard(ctx, draft)
		},
	})
	if err != nil {
		return domain.ID{}, nil, err
	}
	return id, fut, nil
}

// UpdateBoard patches the board in its workspace view and its own view.
func (r *Runner) UpdateBoard(ctx context.Context, ref BoardRef, patch domain.BoardPatch) (*Future[domain.Board], error) {
	if err := requireCommitted(namedID{"board id", ref.ID}, namedID{"workspace id", ref.WorkspaceID}); err != nil {
		return nil, precondition(UpdateBoard, err)
	}
	if patch.Empty() {
		return settled(domain.Board{}, nil), nil
	}

	listKey := domain.BoardsKey(ref.WorkspaceID)
	boardKey := domain.BoardKey(ref.ID)

	return run(ctx, r, plan[domain.Board]{
		intent: UpdateBoard,
		scope:  Scope{WorkspaceID: ref.WorkspaceID, BoardID: ref.ID},
		keys:   []domain.Key{listKey, boardKey},
		apply: func(tx *storage.Tx) error {
			return patchBoardViews(tx, listKey, boardKey, ref.ID, patch.Apply)
		},
		call: func(ctx context.Context) (domain.Board, error) {
			return r.remote.UpdateBoard(ctx, ref.ID, patch)
		},
		patch: func(tx *storage.Tx, server domain.Board) error {
			return patchBoardViews(tx, listKey, boardKey, ref.ID, func(b *domain.Board) { *b = server.Copy() })
		},
	})
}

func patchBoardViews(tx *storage.Tx, listKey, boardKey domain.Key, id domain.ID, fn func(*domain.Board)) error {
	boards, ok, err := storage.TxLookup[domain.Boards](tx, listKey)
	if err != nil {
		return err
	}
	if ok {
		if i := boards.IndexOf(id); i >= 0 {
			fn(&boards[i])
			tx.Set(listKey, boards)
		}
	}
	board, ok, err := storage.TxLookup[domain.Board](tx, boardKey)
	if err != nil {
		return err
	}
	if ok {
		fn(&board)
		tx.Set(boardKey, board)
	}
	return nil
}

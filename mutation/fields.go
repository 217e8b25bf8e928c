package mutation

import (
	"context"
	"fmt"
	"strings"

	"kanban-client/domain"
	"kanban-client/storage"
)

// FieldRef addresses a custom field on a board.
type FieldRef struct {
	ID      domain.ID
	BoardID domain.ID
}

// FieldMoveIntent moves a custom field to DestIndex within its board.
type FieldMoveIntent struct {
	FieldID   domain.ID
	BoardID   domain.ID
	DestIndex int
}

// CreateCustomField appends a field with a pending id. An empty type means
// text.
func (r *Runner) CreateCustomField(ctx context.Context, draft domain.CustomFieldDraft) (domain.ID, *Future[domain.CustomField], error) {
	if err := requireCommitted(namedID{"board id", draft.BoardID}); err != nil {
		return domain.ID{}, nil, precondition(CreateCustomField, err)
	}
	if strings.TrimSpace(draft.Name) == "" {
		return domain.ID{}, nil, precondition(CreateCustomField, fmt.Errorf("field name is required"))
	}
	if draft.Type == "" {
		draft.Type = domain.FieldText
	}

	id := r.opts.IDs.Next()
	key := domain.CustomFieldsKey(draft.BoardID)

	fut, err := run(ctx, r, plan[domain.CustomField]{
		intent: CreateCustomField,
		scope:  Scope{BoardID: draft.BoardID, WorkspaceID: draft.WorkspaceID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			fields, ok, err := storage.TxLookup[domain.CustomFields](tx, key)
			if err != nil || !ok {
				return err
			}
			if draft.Position == 0 {
				draft.Position = domain.NextPosition(fields)
			}
			tx.Set(key, append(fields, domain.CustomField{
				ID:          id,
				BoardID:     draft.BoardID,
				WorkspaceID: draft.WorkspaceID,
				Name:        draft.Name,
				Type:        draft.Type,
				Position:    draft.Position,
			}))
			return nil
		},
		call: func(ctx context.Context) (domain.CustomField, error) {
			return r.remote.CreateCustomField(ctx, draft)
		},
	})
	if err != nil {
		return domain.ID{}, nil, err
	}
	return id, fut, nil
}

// UpdateCustomField patches the field in its board's view.
func (r *Runner) UpdateCustomField(ctx context.Context, ref FieldRef, patch domain.CustomFieldPatch) (*Future[domain.CustomField], error) {
	if err := requireCommitted(namedID{"field id", ref.ID}, namedID{"board id", ref.BoardID}); err != nil {
		return nil, precondition(UpdateCustomField, err)
	}
	if patch.Empty() {
		return settled(domain.CustomField{}, nil), nil
	}

	key := domain.CustomFieldsKey(ref.BoardID)
	return run(ctx, r, plan[domain.CustomField]{
		intent: UpdateCustomField,
		scope:  Scope{BoardID: ref.BoardID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			return patchField(tx, key, ref.ID, patch.Apply)
		},
		call: func(ctx context.Context) (domain.CustomField, error) {
			return r.remote.UpdateCustomField(ctx, ref.ID, patch)
		},
		patch: func(tx *storage.Tx, server domain.CustomField) error {
			return patchField(tx, key, ref.ID, func(f *domain.CustomField) { *f = server })
		},
	})
}

// MoveCustomField reorders a field within its board.
func (r *Runner) MoveCustomField(ctx context.Context, m FieldMoveIntent) (*Future[struct{}], error) {
	if err := requireCommitted(namedID{"field id", m.FieldID}, namedID{"board id", m.BoardID}); err != nil {
		return nil, precondition(MoveCustomField, err)
	}

	key := domain.CustomFieldsKey(m.BoardID)
	var req domain.MoveRequest

	return run(ctx, r, plan[struct{}]{
		intent: MoveCustomField,
		scope:  Scope{BoardID: m.BoardID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			fields, ok, err := storage.TxLookup[domain.CustomFields](tx, key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("custom fields of board %s are not loaded: %w", m.BoardID, domain.ErrNotFound)
			}
			res, err := domain.Reorder(fields, m.FieldID, m.DestIndex)
			if err != nil {
				return err
			}
			if res.Noop {
				return errNoop
			}
			tx.Set(key, domain.CustomFields(res.Items))
			req = domain.MoveRequest{
				ID:               m.FieldID,
				BoardID:          m.BoardID,
				PreviousPosition: res.From,
				TargetPosition:   res.To,
			}
			return nil
		},
		call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.remote.MoveCustomField(ctx, req)
		},
	})
}

// DeleteCustomField removes the field from its board. Card values for the
// field are dropped by the server and picked up on refetch.
func (r *Runner) DeleteCustomField(ctx context.Context, ref FieldRef) (*Future[struct{}], error) {
	if err := requireCommitted(namedID{"field id", ref.ID}, namedID{"board id", ref.BoardID}); err != nil {
		return nil, precondition(DeleteCustomField, err)
	}

	key := domain.CustomFieldsKey(ref.BoardID)
	return run(ctx, r, plan[struct{}]{
		intent: DeleteCustomField,
		scope:  Scope{BoardID: ref.BoardID},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			fields, ok, err := storage.TxLookup[domain.CustomFields](tx, key)
			if err != nil || !ok {
				return err
			}
			if i := fields.IndexOf(ref.ID); i >= 0 {
				tx.Set(key, append(fields[:i], fields[i+1:]...))
			}
			return nil
		},
		call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.remote.DeleteCustomField(ctx, ref.ID)
		},
	})
}

func patchField(tx *storage.Tx, key domain.Key, id domain.ID, fn func(*domain.CustomField)) error {
	fields, ok, err := storage.TxLookup[domain.CustomFields](tx, key)
	if err != nil || !ok {
		return err
	}
	if i := fields.IndexOf(id); i >= 0 {
		fn(&fields[i])
		tx.Set(key, fields)
	}
	return nil
}

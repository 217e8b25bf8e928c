package mutation

import (
	"context"

	"kanban-client/domain"
)

// Remote is the server side of every intent. Implementations must not
// retain the values passed in.
type Remote interface {
	CreateBoard(ctx context.Context, draft domain.BoardDraft) (domain.Board, error)
	UpdateBoard(ctx context.Context, id domain.ID, patch domain.BoardPatch) (domain.Board, error)

	CreateList(ctx context.Context, draft domain.ListDraft) (domain.List, error)
	UpdateList(ctx context.Context, id domain.ID, patch domain.ListPatch) (domain.List, error)
	MoveList(ctx context.Context, req domain.MoveRequest) error
	DeleteList(ctx context.Context, id domain.ID) error

	CreateCard(ctx context.Context, draft domain.CardDraft) (domain.Card, error)
	UpdateCard(ctx context.Context, id domain.ID, patch domain.CardPatch) (domain.Card, error)
	MoveCard(ctx context.Context, req domain.MoveRequest) (domain.Card, error)
	DeleteCard(ctx context.Context, id domain.ID) error

	CreateCustomField(ctx context.Context, draft domain.CustomFieldDraft) (domain.CustomField, error)
	UpdateCustomField(ctx context.Context, id domain.ID, patch domain.CustomFieldPatch) (domain.CustomField, error)
	MoveCustomField(ctx context.Context, req domain.MoveRequest) error
	DeleteCustomField(ctx context.Context, id domain.ID) error
}

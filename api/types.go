package api

import (
	"context"
	"errors"

	"kanban-client/domain"
)

var (
	// ErrConflict is returned when a move names a previous position that no
	// longer matches the server's order.
	ErrConflict = errors.New("conflict")
	// ErrInvalid is returned for requests that fail validation.
	ErrInvalid = errors.New("invalid request")
)

// Backend serves the kanban resources for handlers.
type Backend interface {
	Boards(ctx context.Context, workspaceID domain.ID) (domain.Boards, error)
	Board(ctx context.Context, id domain.ID) (domain.Board, error)
	CreateBoard(ctx context.Context, draft domain.BoardDraft) (domain.Board, error)
	UpdateBoard(ctx context.Context, id domain.ID, patch domain.BoardPatch) (domain.Board, error)

	Lists(ctx context.Context, boardID domain.ID) (domain.Lists, error)
	CreateList(ctx context.Context, draft domain.ListDraft) (domain.List, error)
	UpdateList(ctx context.Context, id domain.ID, patch domain.ListPatch) (domain.List, error)
	MoveList(ctx context.Context, req domain.MoveRequest) (domain.List, error)
	DeleteList(ctx context.Context, id domain.ID) error

	Cards(ctx context.Context, listID, boardID domain.ID) (domain.Cards, error)
	Card(ctx context.Context, id domain.ID) (domain.Card, error)
	CreateCard(ctx context.Context, draft domain.CardDraft) (domain.Card, error)
	UpdateCard(ctx context.Context, id domain.ID, patch domain.CardPatch) (domain.Card, error)
	MoveCard(ctx context.Context, req domain.MoveRequest) (domain.Card, error)
	DeleteCard(ctx context.Context, id domain.ID) error

	CustomFields(ctx context.Context, boardID domain.ID) (domain.CustomFields, error)
	CreateCustomField(ctx context.Context, draft domain.CustomFieldDraft) (domain.CustomField, error)
	UpdateCustomField(ctx context.Context, id domain.ID, patch domain.CustomFieldPatch) (domain.CustomField, error)
	MoveCustomField(ctx context.Context, req domain.MoveRequest) (domain.CustomField, error)
	DeleteCustomField(ctx context.Context, id domain.ID) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper remembers create requests by idempotency key so a resent request
// gets the original response instead of a second entity.
type Deduper interface {
	// Add records the key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the create fails.
	Remove(ctx context.Context, userID, key string) error
	// Save stores the response body produced for key.
	Save(ctx context.Context, userID, key string, body []byte) error
	// Load returns the stored response, or nil while the first request is
	// still being processed.
	Load(ctx context.Context, userID, key string) ([]byte, error)
}

// Publisher fans change events out to other sessions.
type Publisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

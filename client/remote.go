package client

import (
	"context"
	"net/http"

	"kanban-client/domain"
	"kanban-client/mutation"
	"kanban-client/wire"
)

var _ mutation.Remote = (*Client)(nil)

func (c *Client) CreateBoard(ctx context.Context, draft domain.BoardDraft) (domain.Board, error) {
	b, _, err := call[wire.Board](ctx, c, request{
		method:  http.MethodPost,
		path:    "/board",
		headers: map[string]string{wire.HeaderIdempotencyKey: newIdempotencyKey()},
		body:    wire.FromBoardDraft(draft),
	})
	return b.Domain(), err
}

func (c *Client) UpdateBoard(ctx context.Context, id domain.ID, patch domain.BoardPatch) (domain.Board, error) {
	b, _, err := call[wire.Board](ctx, c, request{
		method: http.MethodPatch,
		path:   pathID("/board", id),
		body:   wire.FromBoardPatch(patch),
	})
	return b.Domain(), err
}

func (c *Client) CreateList(ctx context.Context, draft domain.ListDraft) (domain.List, error) {
	l, _, err := call[wire.List](ctx, c, request{
		method:  http.MethodPost,
		path:    "/list",
		headers: map[string]string{wire.HeaderIdempotencyKey: newIdempotencyKey()},
		body:    wire.FromListDraft(draft),
	})
	return l.Domain(), err
}

func (c *Client) UpdateList(ctx context.Context, id domain.ID, patch domain.ListPatch) (domain.List, error) {
	l, _, err := call[wire.List](ctx, c, request{
		method: http.MethodPut,
		path:   pathID("/list", id),
		body:   wire.FromListPatch(patch),
	})
	return l.Domain(), err
}

func (c *Client) MoveList(ctx context.Context, req domain.MoveRequest) error {
	_, _, err := call[wire.List](ctx, c, request{
		method: http.MethodPost,
		path:   pathID("/list", req.ID) + "/move",
		body:   wire.FromListMove(req),
	})
	return err
}

func (c *Client) DeleteList(ctx context.Context, id domain.ID) error {
	_, _, err := call[struct{}](ctx, c, request{method: http.MethodDelete, path: pathID("/list", id)})
	return err
}

func (c *Client) CreateCard(ctx context.Context, draft domain.CardDraft) (domain.Card, error) {
	card, _, err := call[wire.Card](ctx, c, request{
		method:  http.MethodPost,
		path:    "/card",
		headers: map[string]string{wire.HeaderIdempotencyKey: newIdempotencyKey()},
		body:    wire.FromCardDraft(draft),
	})
	return card.Domain(), err
}

func (c *Client) UpdateCard(ctx context.Context, id domain.ID, patch domain.CardPatch) (domain.Card, error) {
	card, _, err := call[wire.Card](ctx, c, request{
		method: http.MethodPut,
		path:   pathID("/card", id),
		body:   wire.FromCardPatch(patch),
	})
	return card.Domain(), err
}

func (c *Client) MoveCard(ctx context.Context, req domain.MoveRequest) (domain.Card, error) {
	card, _, err := call[wire.Card](ctx, c, request{
		method: http.MethodPost,
		path:   pathID("/card", req.ID) + "/move",
		body:   wire.FromCardMove(req),
	})
	return card.Domain(), err
}

func (c *Client) DeleteCard(ctx context.Context, id domain.ID) error {
	_, _, err := call[struct{}](ctx, c, request{method: http.MethodDelete, path: pathID("/card", id)})
	return err
}

func (c *Client) CreateCustomField(ctx context.Context, draft domain.CustomFieldDraft) (domain.CustomField, error) {
	f, _, err := call[wire.CustomField](ctx, c, request{
		method:  http.MethodPost,
		path:    "/custom-field",
		headers: map[string]string{wire.HeaderIdempotencyKey: newIdempotencyKey()},
		body:    wire.FromFieldDraft(draft),
	})
	return f.Domain(), err
}

func (c *Client) UpdateCustomField(ctx context.Context, id domain.ID, patch domain.CustomFieldPatch) (domain.CustomField, error) {
	f, _, err := call[wire.CustomField](ctx, c, request{
		method: http.MethodPut,
		path:   pathID("/custom-field", id),
		body:   wire.FromFieldPatch(patch),
	})
	return f.Domain(), err
}

func (c *Client) MoveCustomField(ctx context.Context, req domain.MoveRequest) error {
	_, _, err := call[wire.CustomField](ctx, c, request{
		method: http.MethodPost,
		path:   pathID("/custom-field", req.ID) + "/move",
		body:   wire.FromFieldMove(req),
	})
	return err
}

func (c *Client) DeleteCustomField(ctx context.Context, id domain.ID) error {
	_, _, err := call[struct{}](ctx, c, request{method: http.MethodDelete, path: pathID("/custom-field", id)})
	return err
}

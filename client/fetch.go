package client

import (
	"context"
	"fmt"
	"net/http"

	"kanban-client/domain"
	"kanban-client/storage"
	"kanban-client/wire"
)

var _ storage.Fetcher = (*Client)(nil)

// Fetch loads the authoritative value for a query key.
func (c *Client) Fetch(ctx context.Context, key domain.Key) (domain.Value, error) {
	switch key.Kind {
	case domain.KindBoards:
		return c.Boards(ctx, key.WorkspaceID)
	case domain.KindBoard:
		return c.Board(ctx, key.BoardID)
	case domain.KindLists:
		return c.Lists(ctx, key.BoardID)
	case domain.KindCards:
		return c.Cards(ctx, key.ListID, key.BoardID)
	case domain.KindCard:
		return c.Card(ctx, key.CardID)
	case domain.KindCustomFields:
		return c.CustomFields(ctx, key.BoardID)
	default:
		return nil, fmt.Errorf("client: cannot fetch %s", key)
	}
}

func (c *Client) Boards(ctx context.Context, workspaceID domain.ID) (domain.Boards, error) {
	items, err := callAll[wire.Board](ctx, c, request{
		method:  http.MethodGet,
		path:    "/board",
		headers: map[string]string{wire.HeaderWorkspaceID: workspaceID.String()},
	})
	if err != nil {
		return nil, err
	}
	return wire.Boards(items), nil
}

func (c *Client) Board(ctx context.Context, id domain.ID) (domain.Board, error) {
	b, _, err := call[wire.Board](ctx, c, request{method: http.MethodGet, path: pathID("/board", id)})
	if err != nil {
		return domain.Board{}, err
	}
	return b.Domain(), nil
}

func (c *Client) Lists(ctx context.Context, boardID domain.ID) (domain.Lists, error) {
	items, err := callAll[wire.List](ctx, c, request{
		method:  http.MethodGet,
		path:    "/list",
		headers: map[string]string{wire.HeaderBoardID: boardID.String()},
	})
	if err != nil {
		return nil, err
	}
	return wire.Lists(items), nil
}

func (c *Client) Cards(ctx context.Context, listID, boardID domain.ID) (domain.Cards, error) {
	items, err := callAll[wire.Card](ctx, c, request{
		method: http.MethodGet,
		path:   "/card",
		headers: map[string]string{
			wire.HeaderListID:  listID.String(),
			wire.HeaderBoardID: boardID.String(),
		},
	})
	if err != nil {
		return nil, err
	}
	return wire.Cards(items), nil
}

func (c *Client) Card(ctx context.Context, id domain.ID) (domain.Card, error) {
	card, _, err := call[wire.Card](ctx, c, request{method: http.MethodGet, path: pathID("/card", id)})
	if err != nil {
		return domain.Card{}, err
	}
	return card.Domain(), nil
}

func (c *Client) CustomFields(ctx context.Context, boardID domain.ID) (domain.CustomFields, error) {
	items, err := callAll[wire.CustomField](ctx, c, request{
		method:  http.MethodGet,
		path:    "/custom-field",
		headers: map[string]string{wire.HeaderBoardID: boardID.String()},
	})
	if err != nil {
		return nil, err
	}
	return wire.CustomFields(items), nil
}

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-client/domain"
	"kanban-client/wire"
)

const maxBodySize = 1 << 20

type handlers struct {
	backend Backend
	dedup   Deduper
	log     *log.Logger
}

// Register wires up all API routes on the provided Echo instance. auth and
// dedup may be nil.
func Register(e *echo.Echo, backend Backend, auth Authenticator, dedup Deduper, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	h := &handlers{backend: backend, dedup: dedup, log: logger}
	user := RequireUser(auth)

	e.GET("/healthz", healthz)

	e.GET("/board", h.getBoards, user)
	e.POST("/board", h.postBoard, user)
	e.GET("/board/:id", h.getBoard, user)
	e.PATCH("/board/:id", h.patchBoard, user)

	e.GET("/list", h.getLists, user)
	e.POST("/list", h.postList, user)
	e.PUT("/list/:id", h.putList, user)
	e.POST("/list/:id/move", h.moveList, user)
	e.DELETE("/list/:id", h.deleteList, user)

	e.GET("/card", h.getCards, user)
	e.POST("/card", h.postCard, user)
	e.GET("/card/:id", h.getCard, user)
	e.PUT("/card/:id", h.putCard, user)
	e.POST("/card/:id/move", h.moveCard, user)
	e.DELETE("/card/:id", h.deleteCard, user)

	e.GET("/custom-field", h.getCustomFields, user)
	e.POST("/custom-field", h.postCustomField, user)
	e.PUT("/custom-field/:id", h.putCustomField, user)
	e.POST("/custom-field/:id/move", h.moveCustomField, user)
	e.DELETE("/custom-field/:id", h.deleteCustomField, user)
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *handlers) getBoards(c echo.Context) error {
	ws, err := scope(c, wire.HeaderWorkspaceID)
	if err != nil {
		return err
	}
	boards, err := h.backend.Boards(c.Request().Context(), ws)
	if err != nil {
		return h.backendError(c, err)
	}
	return page(c, wire.FromBoards(boards))
}

func (h *handlers) getBoard(c echo.Context) error {
	b, err := h.backend.Board(c.Request().Context(), pathID(c))
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromBoard(b))
}

func (h *handlers) postBoard(c echo.Context) error {
	body, err := decode[wire.CreateBoard](c)
	if err != nil {
		return err
	}
	return h.create(c, func(ctx context.Context) (any, error) {
		b, err := h.backend.CreateBoard(ctx, body.Domain())
		return wire.FromBoard(b), err
	})
}

func (h *handlers) patchBoard(c echo.Context) error {
	body, err := decode[wire.UpdateBoard](c)
	if err != nil {
		return err
	}
	b, err := h.backend.UpdateBoard(c.Request().Context(), pathID(c), body.Domain())
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromBoard(b))
}

func (h *handlers) getLists(c echo.Context) error {
	board, err := scope(c, wire.HeaderBoardID)
	if err != nil {
		return err
	}
	lists, err := h.backend.Lists(c.Request().Context(), board)
	if err != nil {
		return h.backendError(c, err)
	}
	return page(c, wire.FromLists(lists))
}

func (h *handlers) postList(c echo.Context) error {
	body, err := decode[wire.CreateList](c)
	if err != nil {
		return err
	}
	return h.create(c, func(ctx context.Context) (any, error) {
		l, err := h.backend.CreateList(ctx, body.Domain())
		return wire.FromList(l), err
	})
}

func (h *handlers) putList(c echo.Context) error {
	body, err := decode[wire.UpdateList](c)
	if err != nil {
		return err
	}
	l, err := h.backend.UpdateList(c.Request().Context(), pathID(c), body.Domain())
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromList(l))
}

func (h *handlers) moveList(c echo.Context) error {
	body, err := decode[wire.MoveList](c)
	if err != nil {
		return err
	}
	req, err := moveRequest(c, body.Domain())
	if err != nil {
		return err
	}
	l, err := h.backend.MoveList(c.Request().Context(), req)
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromList(l))
}

func (h *handlers) deleteList(c echo.Context) error {
	if err := h.backend.DeleteList(c.Request().Context(), pathID(c)); err != nil {
		return h.backendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) getCards(c echo.Context) error {
	list, err := scope(c, wire.HeaderListID)
	if err != nil {
		return err
	}
	// board-id is optional here; when present it must own the list.
	board := domain.ParseID(strings.TrimSpace(c.Request().Header.Get(wire.HeaderBoardID)))
	cards, err := h.backend.Cards(c.Request().Context(), list, board)
	if err != nil {
		return h.backendError(c, err)
	}
	return page(c, wire.FromCards(cards))
}

func (h *handlers) getCard(c echo.Context) error {
	card, err := h.backend.Card(c.Request().Context(), pathID(c))
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromCard(card))
}

func (h *handlers) postCard(c echo.Context) error {
	body, err := decode[wire.CreateCard](c)
	if err != nil {
		return err
	}
	return h.create(c, func(ctx context.Context) (any, error) {
		card, err := h.backend.CreateCard(ctx, body.Domain())
		return wire.FromCard(card), err
	})
}

func (h *handlers) putCard(c echo.Context) error {
	body, err := decode[wire.UpdateCard](c)
	if err != nil {
		return err
	}
	card, err := h.backend.UpdateCard(c.Request().Context(), pathID(c), body.Domain())
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromCard(card))
}

func (h *handlers) moveCard(c echo.Context) error {
	body, err := decode[wire.MoveCard](c)
	if err != nil {
		return err
	}
	req, err := moveRequest(c, body.Domain())
	if err != nil {
		return err
	}
	card, err := h.backend.MoveCard(c.Request().Context(), req)
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromCard(card))
}

func (h *handlers) deleteCard(c echo.Context) error {
	if err := h.backend.DeleteCard(c.Request().Context(), pathID(c)); err != nil {
		return h.backendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) getCustomFields(c echo.Context) error {
	board, err := scope(c, wire.HeaderBoardID)
	if err != nil {
		return err
	}
	fields, err := h.backend.CustomFields(c.Request().Context(), board)
	if err != nil {
		return h.backendError(c, err)
	}
	return page(c, wire.FromCustomFields(fields))
}

func (h *handlers) postCustomField(c echo.Context) error {
	body, err := decode[wire.CreateCustomField](c)
	if err != nil {
		return err
	}
	return h.create(c, func(ctx context.Context) (any, error) {
		f, err := h.backend.CreateCustomField(ctx, body.Domain())
		return wire.FromCustomField(f), err
	})
}

func (h *handlers) putCustomField(c echo.Context) error {
	body, err := decode[wire.UpdateCustomField](c)
	if err != nil {
		return err
	}
	f, err := h.backend.UpdateCustomField(c.Request().Context(), pathID(c), body.Domain())
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromCustomField(f))
}

func (h *handlers) moveCustomField(c echo.Context) error {
	body, err := decode[wire.MoveCustomField](c)
	if err != nil {
		return err
	}
	req, err := moveRequest(c, body.Domain())
	if err != nil {
		return err
	}
	f, err := h.backend.MoveCustomField(c.Request().Context(), req)
	if err != nil {
		return h.backendError(c, err)
	}
	return respond(c, http.StatusOK, wire.FromCustomField(f))
}

func (h *handlers) deleteCustomField(c echo.Context) error {
	if err := h.backend.DeleteCustomField(c.Request().Context(), pathID(c)); err != nil {
		return h.backendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// create runs fn once per idempotency key. A repeated key gets the stored
// response of the first request.
func (h *handlers) create(c echo.Context, fn func(context.Context) (any, error)) error {
	ctx := c.Request().Context()
	key := c.Request().Header.Get(wire.HeaderIdempotencyKey)
	if key == "" || h.dedup == nil {
		v, err := fn(ctx)
		if err != nil {
			return h.backendError(c, err)
		}
		return respond(c, http.StatusCreated, v)
	}

	user := userID(c)
	added, err := h.dedup.Add(ctx, user, key)
	if err != nil {
		h.log.WithError(err).Error("api.idempotency.add_failed")
		return fail(c, http.StatusInternalServerError, "idempotency store unavailable")
	}
	if !added {
		body, err := h.dedup.Load(ctx, user, key)
		if err != nil {
			h.log.WithError(err).Error("api.idempotency.load_failed")
			return fail(c, http.StatusInternalServerError, "idempotency store unavailable")
		}
		if body == nil {
			return fail(c, http.StatusConflict, "request with this idempotency key is in progress")
		}
		h.log.WithField("key", key).Debug("api.idempotency.replay")
		return c.JSONBlob(http.StatusCreated, body)
	}

	v, err := fn(ctx)
	if err != nil {
		if rerr := h.dedup.Remove(ctx, user, key); rerr != nil {
			h.log.WithError(rerr).Warn("api.idempotency.remove_failed")
		}
		return h.backendError(c, err)
	}
	body, err := sonic.Marshal(wire.Envelope[any]{Data: v})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "encode response")
	}
	if err := h.dedup.Save(ctx, user, key, body); err != nil {
		h.log.WithError(err).Warn("api.idempotency.save_failed")
	}
	return c.JSONBlob(http.StatusCreated, body)
}

func (h *handlers) backendError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return fail(c, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("api.backend.failed")
		return fail(c, http.StatusInternalServerError, "internal error")
	}
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, wire.ErrorBody{Message: msg})
}

func respond(c echo.Context, status int, v any) error {
	data, err := sonic.Marshal(wire.Envelope[any]{Data: v})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "encode response")
	}
	return c.JSONBlob(status, data)
}

// Helpers that return an error use echo.HTTPError; the default error
// handler renders it as {"message": ...}, the same shape as wire.ErrorBody.

// page serves one page of items. Without a page query parameter the whole
// collection is returned.
func page[T any](c echo.Context, items []T) error {
	total := len(items)
	pg := wire.Paginate{Page: 1, PerPage: total, Total: total}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fail(c, http.StatusBadRequest, "invalid page")
		}
		pg.Page = n
		pg.PerPage = 100
		if raw := c.QueryParam("per_page"); raw != "" {
			pp, err := strconv.Atoi(raw)
			if err != nil || pp <= 0 {
				return fail(c, http.StatusBadRequest, "invalid per_page")
			}
			pg.PerPage = pp
		}
		start := min((pg.Page-1)*pg.PerPage, total)
		end := min(start+pg.PerPage, total)
		items = items[start:end]
	}
	data, err := sonic.Marshal(wire.Envelope[[]T]{Data: items, Paginate: &pg})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "encode response")
	}
	return c.JSONBlob(http.StatusOK, data)
}

func decode[T any](c echo.Context) (T, error) {
	var v T
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return v, nil
}

func scope(c echo.Context, header string) (domain.ID, error) {
	id := domain.ParseID(strings.TrimSpace(c.Request().Header.Get(header)))
	if id.IsZero() {
		return id, echo.NewHTTPError(http.StatusBadRequest, "missing "+header+" header")
	}
	return id, nil
}

func pathID(c echo.Context) domain.ID {
	return domain.ParseID(c.Param("id"))
}

// moveRequest binds the body to the entity in the path.
func moveRequest(c echo.Context, req domain.MoveRequest) (domain.MoveRequest, error) {
	id := pathID(c)
	if !req.ID.IsZero() && req.ID != id {
		return req, echo.NewHTTPError(http.StatusBadRequest, "body id does not match path")
	}
	req.ID = id
	return req, nil
}

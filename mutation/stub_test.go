package mutation

import (
	"context"
	"errors"
	"sync/atomic"

	"kanban-client/domain"
)

type stubRemote struct {
	calls atomic.Int32

	createBoardFn       func(ctx context.Context, draft domain.BoardDraft) (domain.Board, error)
	updateBoardFn       func(ctx context.Context, id domain.ID, patch domain.BoardPatch) (domain.Board, error)
	createListFn        func(ctx context.Context, draft domain.ListDraft) (domain.List, error)
	updateListFn        func(ctx context.Context, id domain.ID, patch domain.ListPatch) (domain.List, error)
	moveListFn          func(ctx context.Context, req domain.MoveRequest) error
	deleteListFn        func(ctx context.Context, id domain.ID) error
	createCardFn        func(ctx context.Context, draft domain.CardDraft) (domain.Card, error)
	updateCardFn        func(ctx context.Context, id domain.ID, patch domain.CardPatch) (domain.Card, error)
	moveCardFn          func(ctx context.Context, req domain.MoveRequest) (domain.Card, error)
	deleteCardFn        func(ctx context.Context, id domain.ID) error
	createCustomFieldFn func(ctx context.Context, draft domain.CustomFieldDraft) (domain.CustomField, error)
	updateCustomFieldFn func(ctx context.Context, id domain.ID, patch domain.CustomFieldPatch) (domain.CustomField, error)
	moveCustomFieldFn   func(ctx context.Context, req domain.MoveRequest) error
	deleteCustomFieldFn func(ctx context.Context, id domain.ID) error
}

func (s *stubRemote) CreateBoard(ctx context.Context, draft domain.BoardDraft) (domain.Board, error) {
	s.calls.Add(1)
	if s.createBoardFn == nil {
		return domain.Board{}, errors.New("unexpected CreateBoard call")
	}
	return s.createBoardFn(ctx, draft)
}

func (s *stubRemote) UpdateBoard(ctx context.Context, id domain.ID, patch domain.BoardPatch) (domain.Board, error) {
	s.calls.Add(1)
	if s.updateBoardFn == nil {
		return domain.Board{}, errors.New("unexpected UpdateBoard call")
	}
	return s.updateBoardFn(ctx, id, patch)
}

func (s *stubRemote) CreateList(ctx context.Context, draft domain.ListDraft) (domain.List, error) {
	s.calls.Add(1)
	if s.createListFn == nil {
		return domain.List{}, errors.New("unexpected CreateList call")
	}
	return s.createListFn(ctx, draft)
}

func (s *stubRemote) UpdateList(ctx context.Context, id domain.ID, patch domain.ListPatch) (domain.List, error) {
	s.calls.Add(1)
	if s.updateListFn == nil {
		return domain.List{}, errors.New("unexpected UpdateList call")
	}
	return s.updateListFn(ctx, id, patch)
}

func (s *stubRemote) MoveList(ctx context.Context, req domain.MoveRequest) error {
	s.calls.Add(1)
	if s.moveListFn == nil {
		return errors.New("unexpected MoveList call")
	}
	return s.moveListFn(ctx, req)
}

func (s *stubRemote) DeleteList(ctx context.Context, id domain.ID) error {
	s.calls.Add(1)
	if s.deleteListFn == nil {
		return errors.New("unexpected DeleteList call")
	}
	return s.deleteListFn(ctx, id)
}

func (s *stubRemote) CreateCard(ctx context.Context, draft domain.CardDraft) (domain.Card, error) {
	s.calls.Add(1)
	if s.createCardFn == nil {
		return domain.Card{}, errors.New("unexpected CreateCard call")
	}
	return s.createCardFn(ctx, draft)
}

func (s *stubRemote) UpdateCard(ctx context.Context, id domain.ID, patch domain.CardPatch) (domain.Card, error) {
	s.calls.Add(1)
	if s.updateCardFn == nil {
		return domain.Card{}, errors.New("unexpected UpdateCard call")
	}
	return s.updateCardFn(ctx, id, patch)
}

func (s *stubRemote) MoveCard(ctx context.Context, req domain.MoveRequest) (domain.Card, error) {
	s.calls.Add(1)
	if s.moveCardFn == nil {
		return domain.Card{}, errors.New("unexpected MoveCard call")
	}
	return s.moveCardFn(ctx, req)
}

func (s *stubRemote) DeleteCard(ctx context.Context, id domain.ID) error {
	s.calls.Add(1)
	if s.deleteCardFn == nil {
		return errors.New("unexpected DeleteCard call")
	}
	return s.deleteCardFn(ctx, id)
}

func (s *stubRemote) CreateCustomField(ctx context.Context, draft domain.CustomFieldDraft) (domain.CustomField, error) {
	s.calls.Add(1)
	if s.createCustomFieldFn == nil {
		return domain.CustomField{}, errors.New("unexpected CreateCustomField call")
	}
	return s.createCustomFieldFn(ctx, draft)
}

func (s *stubRemote) UpdateCustomField(ctx context.Context, id domain.ID, patch domain.CustomFieldPatch) (domain.CustomField, error) {
	s.calls.Add(1)
	if s.updateCustomFieldFn == nil {
		return domain.CustomField{}, errors.New("unexpected UpdateCustomField call")
	}
	return s.updateCustomFieldFn(ctx, id, patch)
}

func (s *stubRemote) MoveCustomField(ctx context.Context, req domain.MoveRequest) error {
	s.calls.Add(1)
	if s.moveCustomFieldFn == nil {
		return errors.New("unexpected MoveCustomField call")
	}
	return s.moveCustomFieldFn(ctx, req)
}

func (s *stubRemote) DeleteCustomField(ctx context.Context, id domain.ID) error {
	s.calls.Add(1)
	if s.deleteCustomFieldFn == nil {
		return errors.New("unexpected DeleteCustomField call")
	}
	return s.deleteCustomFieldFn(ctx, id)
}

// statusError mimics a remote rejection carrying an HTTP status.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.status }

type stubFetcher struct {
	fetchFn func(ctx context.Context, key domain.Key) (domain.Value, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, key domain.Key) (domain.Value, error) {
	if s.fetchFn == nil {
		return nil, errors.New("unexpected Fetch call")
	}
	return s.fetchFn(ctx, key)
}

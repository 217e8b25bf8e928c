package session

import (
	"context"

	"kanban-client/domain"
	"kanban-client/mutation"
)

// Callbacks run once a mutation settles. Either may be nil. Precondition
// failures are returned by the trigger itself and never reach OnError.
type Callbacks[T any] struct {
	OnSuccess func(T)
	OnError   func(error)
}

func track[T any](s *Session, fut *mutation.Future[T], err error, cb Callbacks[T]) (*mutation.Future[T], error) {
	if err != nil {
		return nil, err
	}
	if cb.OnSuccess == nil && cb.OnError == nil {
		return fut, nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		v, err := fut.Wait(context.Background())
		switch {
		case err != nil && cb.OnError != nil:
			cb.OnError(err)
		case err == nil && cb.OnSuccess != nil:
			cb.OnSuccess(v)
		}
	}()
	return fut, nil
}

func trackCreate[T any](s *Session, id domain.ID, fut *mutation.Future[T], err error, cb Callbacks[T]) (domain.ID, *mutation.Future[T], error) {
	fut, err = track(s, fut, err, cb)
	if err != nil {
		return domain.ID{}, nil, err
	}
	return id, fut, nil
}

// CreateBoard returns the pending id the board is shown under until the
// server confirms it.
func (s *Session) CreateBoard(ctx context.Context, draft domain.BoardDraft, cb Callbacks[domain.Board]) (domain.ID, *mutation.Future[domain.Board], error) {
	id, fut, err := s.runner.CreateBoard(ctx, draft)
	return trackCreate(s, id, fut, err, cb)
}

func (s *Session) UpdateBoard(ctx context.Context, ref mutation.BoardRef, patch domain.BoardPatch, cb Callbacks[domain.Board]) (*mutation.Future[domain.Board], error) {
	fut, err := s.runner.UpdateBoard(ctx, ref, patch)
	return track(s, fut, err, cb)
}

func (s *Session) CreateList(ctx context.Context, draft domain.ListDraft, cb Callbacks[domain.List]) (domain.ID, *mutation.Future[domain.List], error) {
	id, fut, err := s.runner.CreateList(ctx, draft)
	return trackCreate(s, id, fut, err, cb)
}

func (s *Session) UpdateList(ctx context.Context, ref mutation.ListRef, patch domain.ListPatch, cb Callbacks[domain.List]) (*mutation.Future[domain.List], error) {
	fut, err := s.runner.UpdateList(ctx, ref, patch)
	return track(s, fut, err, cb)
}

func (s *Session) MoveList(ctx context.Context, m mutation.ListMoveIntent, cb Callbacks[struct{}]) (*mutation.Future[struct{}], error) {
	fut, err := s.runner.MoveList(ctx, m)
	return track(s, fut, err, cb)
}

func (s *Session) DeleteList(ctx context.Context, ref mutation.ListRef, cb Callbacks[struct{}]) (*mutation.Future[struct{}], error) {
	fut, err := s.runner.DeleteList(ctx, ref)
	return track(s, fut, err, cb)
}

func (s *Session) CreateCard(ctx context.Context, draft domain.CardDraft, cb Callbacks[domain.Card]) (domain.ID, *mutation.Future[domain.Card], error) {
	id, fut, err := s.runner.CreateCard(ctx, draft)
	return trackCreate(s, id, fut, err, cb)
}

func (s *Session) UpdateCard(ctx context.Context, ref mutation.CardRef, patch domain.CardPatch, cb Callbacks[domain.Card]) (*mutation.Future[domain.Card], error) {
	fut, err := s.runner.UpdateCard(ctx, ref, patch)
	return track(s, fut, err, cb)
}

// MoveCard reorders a card within its list or moves it to another list of
// the same board.
func (s *Session) MoveCard(ctx context.Context, m mutation.CardMoveIntent, cb Callbacks[domain.Card]) (*mutation.Future[domain.Card], error) {
	fut, err := s.runner.MoveCard(ctx, m)
	return track(s, fut, err, cb)
}

func (s *Session) DeleteCard(ctx context.Context, ref mutation.CardRef, cb Callbacks[struct{}]) (*mutation.Future[struct{}], error) {
	fut, err := s.runner.DeleteCard(ctx, ref)
	return track(s, fut, err, cb)
}

func (s *Session) CreateCustomField(ctx context.Context, draft domain.CustomFieldDraft, cb Callbacks[domain.CustomField]) (domain.ID, *mutation.Future[domain.CustomField], error) {
	id, fut, err := s.runner.CreateCustomField(ctx, draft)
	return trackCreate(s, id, fut, err, cb)
}

func (s *Session) UpdateCustomField(ctx context.Context, ref mutation.FieldRef, patch domain.CustomFieldPatch, cb Callbacks[domain.CustomField]) (*mutation.Future[domain.CustomField], error) {
	fut, err := s.runner.UpdateCustomField(ctx, ref, patch)
	return track(s, fut, err, cb)
}

func (s *Session) MoveCustomField(ctx context.Context, m mutation.FieldMoveIntent, cb Callbacks[struct{}]) (*mutation.Future[struct{}], error) {
	fut, err := s.runner.MoveCustomField(ctx, m)
	return track(s, fut, err, cb)
}

func (s *Session) DeleteCustomField(ctx context.Context, ref mutation.FieldRef, cb Callbacks[struct{}]) (*mutation.Future[struct{}], error) {
	fut, err := s.runner.DeleteCustomField(ctx, ref)
	return track(s, fut, err, cb)
}

package mutation

import (
	"context"
	"fmt"
	"strings"

	"kanban-client/domain"
	"kanban-client/storage"
)

// CardRef addresses a card together with the views that hold it.
type CardRef struct {
	ID      domain.ID
	ListID  domain.ID
	BoardID domain.ID
}

// CardMoveIntent moves a card to DestIndex of DestListID.
type CardMoveIntent struct {
	CardID       domain.ID
	BoardID      domain.ID
	SourceListID domain.ID
	DestListID   domain.ID
	DestIndex    int
}

// CreateCard appends a card with a pending id to its list. The pending id is
// returned at once; once the server confirms, the list is refetched and the
// pending card replaced by the server's.
func (r *Runner) CreateCard(ctx context.Context, draft domain.CardDraft) (domain.ID, *Future[domain.Card], error) {
	if err := requireCommitted(namedID{"board id", draft.BoardID}, namedID{"list id", draft.ListID}); err != nil {
		return domain.ID{}, nil, precondition(CreateCard, err)
	}
	if strings.TrimSpace(draft.Name) == "" {
		return domain.ID{}, nil, precondition(CreateCard, fmt.Errorf("card name is required"))
	}

	id := r.opts.IDs.Next()
	key := domain.CardsKey(draft.ListID, draft.BoardID)
	now := r.opts.Now().UTC()

	fut, err := run(ctx, r, plan[domain.Card]{
		intent: CreateCard,
		scope:  Scope{BoardID: draft.BoardID, ListIDs: []domain.ID{draft.ListID}},
		keys:   []domain.Key{key},
		apply: func(tx *storage.Tx) error {
			cards, ok, err := storage.TxLookup[domain.Cards](tx, key)
			if err != nil || !ok {
				return err
			}
			if draft.Position == 0 {
				draft.Position = domain.NextPosition(cards)
			}
			card := domain.Card{
				ID:          id,
				ListID:      draft.ListID,
				BoardID:     draft.BoardID,
				Name:        draft.Name,
				Description: draft.Description,
				Position:    draft.Position,
				Labels:      draft.Labels,
				MemberIDs:   draft.MemberIDs,
				DueAt:       draft.DueAt,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			tx.Set(key, append(cards, card.Copy()))
			return nil
		},
		call: func(ctx context.Context) (domain.Card, error) {
			return r.remote.CreateCard(ctx, draft)
		},
	})
	if err != nil {
		return domain.ID{}, nil, err
	}
	return id, fut, nil
}

// UpdateCard patches the card in its list view and its single-card view.
func (r *Runner) UpdateCard(ctx context.Context, ref CardRef, patch domain.CardPatch) (*Future[domain.Card], error) {
	if err := requireCommitted(namedID{"card id", ref.ID}, namedID{"board id", ref.BoardID}, namedID{"list id", ref.ListID}); err != nil {
		return nil, precondition(UpdateCard, err)
	}
	if patch.Empty() {
		return settled(domain.Card{}, nil), nil
	}

	listKey := domain.CardsKey(ref.ListID, ref.BoardID)
	cardKey := domain.CardKey(ref.ID)
	now := r.opts.Now().UTC()

	return run(ctx, r, plan[domain.Card]{
		intent: UpdateCard,
		scope:  Scope{BoardID: ref.BoardID, ListIDs: []domain.ID{ref.ListID}, CardID: ref.ID},
		keys:   []domain.Key{listKey, cardKey},
		apply: func(tx *storage.Tx) error {
			return patchCardViews(tx, listKey, cardKey, ref.ID, func(c *domain.Card) {
				patch.Apply(c)
				c.UpdatedAt = now
			})
		},
		call: func(ctx context.Context) (domain.Card, error) {
			return r.remote.UpdateCard(ctx, ref.ID, patch)
		},
		patch: func(tx *storage.Tx, server domain.Card) error {
			return patchCardViews(tx, listKey, cardKey, ref.ID, func(c *domain.Card) {
				*c = server.Copy()
			})
		},
	})
}

// MoveCard relocates a card between lists, or within one. A card missing
// from the source view is a precondition failure; moving onto its own index
// is a no-op and never reaches the server.
func (r *Runner) MoveCard(ctx context.Context, m CardMoveIntent) (*Future[domain.Card], error) {
	if err := requireCommitted(
		namedID{"card id", m.CardID},
		namedID{"board id", m.BoardID},
		namedID{"source list id", m.SourceListID},
		namedID{"destination list id", m.DestListID},
	); err != nil {
		return nil, precondition(MoveCard, err)
	}

	srcKey := domain.CardsKey(m.SourceListID, m.BoardID)
	dstKey := domain.CardsKey(m.DestListID, m.BoardID)
	cardKey := domain.CardKey(m.CardID)
	var req domain.MoveRequest

	return run(ctx, r, plan[domain.Card]{
		intent: MoveCard,
		scope:  Scope{BoardID: m.BoardID, ListIDs: []domain.ID{m.SourceListID, m.DestListID}, CardID: m.CardID},
		keys:   []domain.Key{srcKey, dstKey, cardKey},
		apply: func(tx *storage.Tx) error {
			src, ok, err := storage.TxLookup[domain.Cards](tx, srcKey)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("list %s is not loaded: %w", m.SourceListID, domain.ErrNotFound)
			}
			dst := src
			dstLoaded := true
			if srcKey != dstKey {
				if dst, dstLoaded, err = storage.TxLookup[domain.Cards](tx, dstKey); err != nil {
					return err
				}
			}

			res, err := domain.MoveCard(domain.CardMove{
				CardID:       m.CardID,
				SourceListID: m.SourceListID,
				DestListID:   m.DestListID,
				DestIndex:    m.DestIndex,
			}, src, dst)
			if err != nil {
				return err
			}
			if res.Noop {
				return errNoop
			}

			tx.Set(srcKey, res.Source)
			if dstLoaded {
				tx.Set(dstKey, res.Dest)
			}
			if card, ok, err := storage.TxLookup[domain.Card](tx, cardKey); err == nil && ok {
				card.ListID = res.Moved.ListID
				card.Position = res.Moved.Position
				tx.Set(cardKey, card)
			}
			req = domain.MoveRequest{
				ID:               m.CardID,
				BoardID:          m.BoardID,
				PreviousListID:   m.SourceListID,
				TargetListID:     m.DestListID,
				PreviousPosition: res.FromIndex,
				TargetPosition:   res.ToIndex,
			}
			if !dstLoaded {
				// The index was clamped against an empty view.
				req.TargetPosition = max(m.DestIndex, 0)
			}
			return nil
		},
		call: func(ctx context.Context) (domain.Card, error) {
			return r.remote.MoveCard(ctx, req)
		},
	})
}

// DeleteCard removes the card from its list view and clears its single-card
// view.
func (r *Runner) DeleteCard(ctx context.Context, ref CardRef) (*Future[struct{}], error) {
	if err := requireCommitted(namedID{"card id", ref.ID}, namedID{"board id", ref.BoardID}, namedID{"list id", ref.ListID}); err != nil {
		return nil, precondition(DeleteCard, err)
	}

	listKey := domain.CardsKey(ref.ListID, ref.BoardID)
	cardKey := domain.CardKey(ref.ID)

	return run(ctx, r, plan[struct{}]{
		intent: DeleteCard,
		scope:  Scope{BoardID: ref.BoardID, ListIDs: []domain.ID{ref.ListID}, CardID: ref.ID},
		keys:   []domain.Key{listKey, cardKey},
		apply: func(tx *storage.Tx) error {
			cards, ok, err := storage.TxLookup[domain.Cards](tx, listKey)
			if err != nil {
				return err
			}
			if ok {
				if i := cards.IndexOf(ref.ID); i >= 0 {
					tx.Set(listKey, append(cards[:i], cards[i+1:]...))
				}
			}
			if _, ok := tx.Get(cardKey); ok {
				tx.Delete(cardKey)
			}
			return nil
		},
		call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.remote.DeleteCard(ctx, ref.ID)
		},
	})
}

// patchCardViews runs fn on the card with id in the list view and in the
// single-card view, whichever are loaded.
func patchCardViews(tx *storage.Tx, listKey, cardKey domain.Key, id domain.ID, fn func(*domain.Card)) error {
	cards, ok, err := storage.TxLookup[domain.Cards](tx, listKey)
	if err != nil {
		return err
	}
	if ok {
		if i := cards.IndexOf(id); i >= 0 {
			fn(&cards[i])
			tx.Set(listKey, cards)
		}
	}
	card, ok, err := storage.TxLookup[domain.Card](tx, cardKey)
	if err != nil {
		return err
	}
	if ok {
		fn(&card)
		tx.Set(cardKey, card)
	}
	return nil
}

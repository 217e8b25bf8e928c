package api

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-client/domain"
)

// MemoryBackend keeps every board in process memory. It is the reference
// server used by the dev binary and by client tests; ordering goes through
// the same move engine the client applies optimistically.
type MemoryBackend struct {
	mu sync.Mutex

	boards     map[domain.ID]domain.Board
	boardOrder []domain.ID
	lists      map[domain.ID]domain.Lists // by board
	listBoard  map[domain.ID]domain.ID
	cards      map[domain.ID]domain.Cards // by list
	cardList   map[domain.ID]domain.ID
	fields     map[domain.ID]domain.CustomFields // by board
	fieldBoard map[domain.ID]domain.ID

	pub   Publisher
	log   *log.Logger
	now   func() time.Time
	newID func() domain.ID

	// lastEvent is the unix-nano stamp of the last published event.
	lastEvent atomic.Int64
}

// NewMemoryBackend returns an empty backend. pub may be nil.
func NewMemoryBackend(pub Publisher, logger *log.Logger) *MemoryBackend {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &MemoryBackend{
		boards:     make(map[domain.ID]domain.Board),
		lists:      make(map[domain.ID]domain.Lists),
		listBoard:  make(map[domain.ID]domain.ID),
		cards:      make(map[domain.ID]domain.Cards),
		cardList:   make(map[domain.ID]domain.ID),
		fields:     make(map[domain.ID]domain.CustomFields),
		fieldBoard: make(map[domain.ID]domain.ID),
		pub:        pub,
		log:        logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() domain.ID { return domain.Committed(uuid.NewString()) },
	}
}

func (b *MemoryBackend) emit(ctx context.Context, ev domain.ChangeEvent) {
	if b.pub == nil {
		return
	}
	ev.Timestamp = b.eventTime()
	if err := b.pub.Publish(ctx, ev); err != nil {
		b.log.WithError(err).WithFields(log.Fields{
			"entity": ev.Entity,
			"type":   ev.Type,
			"id":     ev.ID,
		}).Warn("api.publish.failed")
	}
}

// eventTime returns a strictly increasing unix-nano stamp so two events of
// one backend never tie, even when the clock stalls or steps back.
func (b *MemoryBackend) eventTime() int64 {
	for {
		last := b.lastEvent.Load()
		next := b.now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if b.lastEvent.CompareAndSwap(last, next) {
			return next
		}
	}
}

func notFound(what string, id domain.ID) error {
	return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalid)...)
}

func (b *MemoryBackend) Boards(_ context.Context, workspaceID domain.ID) (domain.Boards, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := domain.Boards{}
	for _, id := range b.boardOrder {
		if board := b.boards[id]; board.WorkspaceID == workspaceID {
			out = append(out, board.Copy())
		}
	}
	return out, nil
}

func (b *MemoryBackend) Board(_ context.Context, id domain.ID) (domain.Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	board, ok := b.boards[id]
	if !ok {
		return domain.Board{}, notFound("board", id)
	}
	return board.Copy(), nil
}

func (b *MemoryBackend) CreateBoard(ctx context.Context, d domain.BoardDraft) (domain.Board, error) {
	if d.WorkspaceID.IsZero() || strings.TrimSpace(d.Name) == "" {
		return domain.Board{}, invalid("board needs a workspace and a name")
	}
	b.mu.Lock()
	board := domain.Board{ID: b.newID(), WorkspaceID: d.WorkspaceID, Name: d.Name}
	domain.BoardPatch{Background: d.Background}.Apply(&board)
	b.boards[board.ID] = board
	b.boardOrder = append(b.boardOrder, board.ID)
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityBoard, Type: domain.ChangeCreated,
		ID: board.ID.String(), WorkspaceID: board.WorkspaceID.String(), BoardID: board.ID.String(),
	})
	return board.Copy(), nil
}

func (b *MemoryBackend) UpdateBoard(ctx context.Context, id domain.ID, p domain.BoardPatch) (domain.Board, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return domain.Board{}, invalid("board name cannot be empty")
	}
	b.mu.Lock()
	board, ok := b.boards[id]
	if !ok {
		b.mu.Unlock()
		return domain.Board{}, notFound("board", id)
	}
	p.Apply(&board)
	b.boards[id] = board
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityBoard, Type: domain.ChangeUpdated,
		ID: id.String(), WorkspaceID: board.WorkspaceID.String(), BoardID: id.String(),
	})
	return board.Copy(), nil
}

func (b *MemoryBackend) Lists(_ context.Context, boardID domain.ID) (domain.Lists, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.boards[boardID]; !ok {
		return nil, notFound("board", boardID)
	}
	out := b.lists[boardID].Copy()
	if out == nil {
		out = domain.Lists{}
	}
	return out, nil
}

func (b *MemoryBackend) CreateList(ctx context.Context, d domain.ListDraft) (domain.List, error) {
	if strings.TrimSpace(d.Name) == "" {
		return domain.List{}, invalid("list needs a name")
	}
	b.mu.Lock()
	if _, ok := b.boards[d.BoardID]; !ok {
		b.mu.Unlock()
		return domain.List{}, notFound("board", d.BoardID)
	}
	l := domain.List{ID: b.newID(), BoardID: d.BoardID, Name: d.Name, Position: d.Position}
	if l.Position <= 0 {
		l.Position = domain.NextPosition(b.lists[d.BoardID])
	}
	b.lists[d.BoardID] = insertOrdered(b.lists[d.BoardID], l)
	b.listBoard[l.ID] = d.BoardID
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityList, Type: domain.ChangeCreated,
		ID: l.ID.String(), BoardID: l.BoardID.String(),
	})
	return l, nil
}

func (b *MemoryBackend) UpdateList(ctx context.Context, id domain.ID, p domain.ListPatch) (domain.List, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return domain.List{}, invalid("list name cannot be empty")
	}
	b.mu.Lock()
	boardID, ok := b.listBoard[id]
	if !ok {
		b.mu.Unlock()
		return domain.List{}, notFound("list", id)
	}
	lists := b.lists[boardID]
	i := lists.IndexOf(id)
	p.Apply(&lists[i])
	l := lists[i]
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityList, Type: domain.ChangeUpdated,
		ID: id.String(), BoardID: boardID.String(),
	})
	return l, nil
}

func (b *MemoryBackend) MoveList(ctx context.Context, req domain.MoveRequest) (domain.List, error) {
	b.mu.Lock()
	boardID, ok := b.listBoard[req.ID]
	if !ok {
		b.mu.Unlock()
		return domain.List{}, notFound("list", req.ID)
	}
	if !req.BoardID.IsZero() && req.BoardID != boardID {
		b.mu.Unlock()
		return domain.List{}, invalid("list %s is not on board %s", req.ID, req.BoardID)
	}
	lists := b.lists[boardID]
	if i := lists.IndexOf(req.ID); i != req.PreviousPosition {
		b.mu.Unlock()
		return domain.List{}, fmt.Errorf("list %s is at %d, not %d: %w", req.ID, i, req.PreviousPosition, ErrConflict)
	}
	res, err := domain.Reorder(lists, req.ID, req.TargetPosition)
	if err != nil {
		b.mu.Unlock()
		return domain.List{}, err
	}
	b.lists[boardID] = res.Items
	moved := res.Items[res.To]
	b.mu.Unlock()

	if !res.Noop {
		b.emit(ctx, domain.ChangeEvent{
			Entity: domain.EntityList, Type: domain.ChangeMoved,
			ID: req.ID.String(), BoardID: boardID.String(),
		})
	}
	return moved, nil
}

func (b *MemoryBackend) DeleteList(ctx context.Context, id domain.ID) error {
	b.mu.Lock()
	boardID, ok := b.listBoard[id]
	if !ok {
		b.mu.Unlock()
		return notFound("list", id)
	}
	lists := b.lists[boardID]
	i := lists.IndexOf(id)
	b.lists[boardID] = slices.Delete(lists.Copy(), i, i+1)
	delete(b.listBoard, id)
	for _, c := range b.cards[id] {
		delete(b.cardList, c.ID)
	}
	delete(b.cards, id)
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityList, Type: domain.ChangeDeleted,
		ID: id.String(), BoardID: boardID.String(),
	})
	return nil
}

func (b *MemoryBackend) Cards(_ context.Context, listID, boardID domain.ID) (domain.Cards, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	owner, ok := b.listBoard[listID]
	if !ok || (!boardID.IsZero() && owner != boardID) {
		return nil, notFound("list", listID)
	}
	out := b.cards[listID].Copy()
	if out == nil {
		out = domain.Cards{}
	}
	return out, nil
}

func (b *MemoryBackend) Card(_ context.Context, id domain.ID) (domain.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cardLocked(id)
	if !ok {
		return domain.Card{}, notFound("card", id)
	}
	return c.Copy(), nil
}

func (b *MemoryBackend) cardLocked(id domain.ID) (*domain.Card, bool) {
	listID, ok := b.cardList[id]
	if !ok {
		return nil, false
	}
	cards := b.cards[listID]
	i := cards.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return &cards[i], true
}

func (b *MemoryBackend) CreateCard(ctx context.Context, d domain.CardDraft) (domain.Card, error) {
	if strings.TrimSpace(d.Name) == "" {
		return domain.Card{}, invalid("card needs a name")
	}
	b.mu.Lock()
	boardID, ok := b.listBoard[d.ListID]
	if !ok {
		b.mu.Unlock()
		return domain.Card{}, notFound("list", d.ListID)
	}
	if !d.BoardID.IsZero() && d.BoardID != boardID {
		b.mu.Unlock()
		return domain.Card{}, invalid("list %s is not on board %s", d.ListID, d.BoardID)
	}
	now := b.now()
	c := domain.Card{
		ID:          b.newID(),
		ListID:      d.ListID,
		BoardID:     boardID,
		Name:        d.Name,
		Description: d.Description,
		Position:    d.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	domain.CardPatch{Labels: d.Labels, MemberIDs: d.MemberIDs, DueAt: d.DueAt}.Apply(&c)
	if c.Position <= 0 {
		c.Position = domain.NextPosition(b.cards[d.ListID])
	}
	b.cards[d.ListID] = insertOrdered(b.cards[d.ListID], c)
	b.cardList[c.ID] = d.ListID
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityCard, Type: domain.ChangeCreated,
		ID: c.ID.String(), BoardID: boardID.String(), ListID: d.ListID.String(),
	})
	return c.Copy(), nil
}

func (b *MemoryBackend) UpdateCard(ctx context.Context, id domain.ID, p domain.CardPatch) (domain.Card, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return domain.Card{}, invalid("card name cannot be empty")
	}
	b.mu.Lock()
	c, ok := b.cardLocked(id)
	if !ok {
		b.mu.Unlock()
		return domain.Card{}, notFound("card", id)
	}
	for _, v := range p.CustomFields {
		if b.fieldBoard[v.FieldID] != c.BoardID {
			b.mu.Unlock()
			return domain.Card{}, invalid("custom field %s is not on board %s", v.FieldID, c.BoardID)
		}
	}
	p.Apply(c)
	c.UpdatedAt = b.now()
	out := c.Copy()
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityCard, Type: domain.ChangeUpdated,
		ID: id.String(), BoardID: out.BoardID.String(), ListID: out.ListID.String(),
	})
	return out, nil
}

func (b *MemoryBackend) MoveCard(ctx context.Context, req domain.MoveRequest) (domain.Card, error) {
	b.mu.Lock()
	src, ok := b.cardList[req.ID]
	if !ok {
		b.mu.Unlock()
		return domain.Card{}, notFound("card", req.ID)
	}
	if !req.PreviousListID.IsZero() && req.PreviousListID != src {
		b.mu.Unlock()
		return domain.Card{}, fmt.Errorf("card %s is in list %s, not %s: %w", req.ID, src, req.PreviousListID, ErrConflict)
	}
	dst := req.TargetListID
	if dst.IsZero() {
		dst = src
	}
	boardID := b.listBoard[src]
	if owner, ok := b.listBoard[dst]; !ok {
		b.mu.Unlock()
		return domain.Card{}, notFound("list", dst)
	} else if owner != boardID {
		b.mu.Unlock()
		return domain.Card{}, invalid("lists %s and %s are on different boards", src, dst)
	}
	if i := b.cards[src].IndexOf(req.ID); i != req.PreviousPosition {
		b.mu.Unlock()
		return domain.Card{}, fmt.Errorf("card %s is at %d, not %d: %w", req.ID, i, req.PreviousPosition, ErrConflict)
	}

	res, err := domain.MoveCard(domain.CardMove{
		CardID:       req.ID,
		SourceListID: src,
		DestListID:   dst,
		DestIndex:    req.TargetPosition,
	}, b.cards[src], b.cards[dst])
	if err != nil {
		b.mu.Unlock()
		return domain.Card{}, err
	}
	if res.Noop {
		moved := res.Moved
		b.mu.Unlock()
		return moved, nil
	}
	res.Dest[res.ToIndex].UpdatedAt = b.now()
	b.cards[src] = res.Source
	b.cards[dst] = res.Dest
	b.cardList[req.ID] = dst
	moved := res.Dest[res.ToIndex].Copy()
	b.mu.Unlock()

	ev := domain.ChangeEvent{
		Entity: domain.EntityCard, Type: domain.ChangeMoved,
		ID: req.ID.String(), BoardID: boardID.String(), ListID: dst.String(),
	}
	if src != dst {
		ev.PreviousListID = src.String()
	}
	b.emit(ctx, ev)
	return moved, nil
}

func (b *MemoryBackend) DeleteCard(ctx context.Context, id domain.ID) error {
	b.mu.Lock()
	listID, ok := b.cardList[id]
	if !ok {
		b.mu.Unlock()
		return notFound("card", id)
	}
	cards := b.cards[listID]
	i := cards.IndexOf(id)
	b.cards[listID] = slices.Delete(cards.Copy(), i, i+1)
	delete(b.cardList, id)
	boardID := b.listBoard[listID]
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityCard, Type: domain.ChangeDeleted,
		ID: id.String(), BoardID: boardID.String(), ListID: listID.String(),
	})
	return nil
}

func (b *MemoryBackend) CustomFields(_ context.Context, boardID domain.ID) (domain.CustomFields, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.boards[boardID]; !ok {
		return nil, notFound("board", boardID)
	}
	out := b.fields[boardID].Copy()
	if out == nil {
		out = domain.CustomFields{}
	}
	return out, nil
}

func (b *MemoryBackend) CreateCustomField(ctx context.Context, d domain.CustomFieldDraft) (domain.CustomField, error) {
	if strings.TrimSpace(d.Name) == "" {
		return domain.CustomField{}, invalid("custom field needs a name")
	}
	if d.Type == "" {
		d.Type = domain.FieldText
	}
	b.mu.Lock()
	board, ok := b.boards[d.BoardID]
	if !ok {
		b.mu.Unlock()
		return domain.CustomField{}, notFound("board", d.BoardID)
	}
	f := domain.CustomField{
		ID:          b.newID(),
		BoardID:     d.BoardID,
		WorkspaceID: board.WorkspaceID,
		Name:        d.Name,
		Type:        d.Type,
		Position:    d.Position,
	}
	if f.Position <= 0 {
		f.Position = domain.NextPosition(b.fields[d.BoardID])
	}
	b.fields[d.BoardID] = insertOrdered(b.fields[d.BoardID], f)
	b.fieldBoard[f.ID] = d.BoardID
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityCustomField, Type: domain.ChangeCreated,
		ID: f.ID.String(), BoardID: f.BoardID.String(), WorkspaceID: f.WorkspaceID.String(),
	})
	return f, nil
}

func (b *MemoryBackend) UpdateCustomField(ctx context.Context, id domain.ID, p domain.CustomFieldPatch) (domain.CustomField, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return domain.CustomField{}, invalid("custom field name cannot be empty")
	}
	b.mu.Lock()
	boardID, ok := b.fieldBoard[id]
	if !ok {
		b.mu.Unlock()
		return domain.CustomField{}, notFound("custom field", id)
	}
	fields := b.fields[boardID]
	i := fields.IndexOf(id)
	p.Apply(&fields[i])
	f := fields[i]
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityCustomField, Type: domain.ChangeUpdated,
		ID: id.String(), BoardID: boardID.String(),
	})
	return f, nil
}

func (b *MemoryBackend) MoveCustomField(ctx context.Context, req domain.MoveRequest) (domain.CustomField, error) {
	b.mu.Lock()
	boardID, ok := b.fieldBoard[req.ID]
	if !ok {
		b.mu.Unlock()
		return domain.CustomField{}, notFound("custom field", req.ID)
	}
	if !req.BoardID.IsZero() && req.BoardID != boardID {
		b.mu.Unlock()
		return domain.CustomField{}, invalid("custom field %s is not on board %s", req.ID, req.BoardID)
	}
	fields := b.fields[boardID]
	if i := fields.IndexOf(req.ID); i != req.PreviousPosition {
		b.mu.Unlock()
		return domain.CustomField{}, fmt.Errorf("custom field %s is at %d, not %d: %w", req.ID, i, req.PreviousPosition, ErrConflict)
	}
	res, err := domain.Reorder(fields, req.ID, req.TargetPosition)
	if err != nil {
		b.mu.Unlock()
		return domain.CustomField{}, err
	}
	b.fields[boardID] = res.Items
	moved := res.Items[res.To]
	b.mu.Unlock()

	if !res.Noop {
		b.emit(ctx, domain.ChangeEvent{
			Entity: domain.EntityCustomField, Type: domain.ChangeMoved,
			ID: req.ID.String(), BoardID: boardID.String(),
		})
	}
	return moved, nil
}

// DeleteCustomField removes the field and every card value that refers to
// it.
func (b *MemoryBackend) DeleteCustomField(ctx context.Context, id domain.ID) error {
	b.mu.Lock()
	boardID, ok := b.fieldBoard[id]
	if !ok {
		b.mu.Unlock()
		return notFound("custom field", id)
	}
	fields := b.fields[boardID]
	i := fields.IndexOf(id)
	b.fields[boardID] = slices.Delete(fields.Copy(), i, i+1)
	delete(b.fieldBoard, id)
	for _, l := range b.lists[boardID] {
		cards := b.cards[l.ID]
		for j := range cards {
			cards[j].CustomFields = slices.DeleteFunc(cards[j].CustomFields, func(v domain.CustomFieldValue) bool {
				return v.FieldID == id
			})
		}
	}
	b.mu.Unlock()

	b.emit(ctx, domain.ChangeEvent{
		Entity: domain.EntityCustomField, Type: domain.ChangeDeleted,
		ID: id.String(), BoardID: boardID.String(),
	})
	return nil
}

type positioned[T any] interface {
	*T
	domain.Positioned
}

// insertOrdered places el before the first element with a larger ordering
// key. The input slice is not modified.
func insertOrdered[T any, P positioned[T]](items []T, el T) []T {
	at := len(items)
	for i := range items {
		if P(&items[i]).OrderKey() > P(&el).OrderKey() {
			at = i
			break
		}
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, el)
	return append(out, items[at:]...)
}

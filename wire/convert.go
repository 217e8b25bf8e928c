package wire

import (
	"kanban-client/domain"
)

func ids(in []domain.ID) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = id.String()
	}
	return out
}

func parseIDs(in []string) []domain.ID {
	if in == nil {
		return nil
	}
	out := make([]domain.ID, len(in))
	for i, s := range in {
		out[i] = domain.ParseID(s)
	}
	return out
}

func mapSlice[A, B any](in []A, fn func(A) B) []B {
	if in == nil {
		return nil
	}
	out := make([]B, len(in))
	for i := range in {
		out[i] = fn(in[i])
	}
	return out
}

func fromBackground(b *domain.Background) *Background {
	if b == nil {
		return nil
	}
	return &Background{Type: b.Type, Value: b.Value}
}

func (b *Background) Domain() *domain.Background {
	if b == nil {
		return nil
	}
	return &domain.Background{Type: b.Type, Value: b.Value}
}

func FromBoard(b domain.Board) Board {
	return Board{
		ID:          b.ID.String(),
		WorkspaceID: b.WorkspaceID.String(),
		Name:        b.Name,
		Background:  fromBackground(b.Background),
		RoleIDs:     ids(b.RoleIDs),
	}
}

func (b Board) Domain() domain.Board {
	return domain.Board{
		ID:          domain.ParseID(b.ID),
		WorkspaceID: domain.ParseID(b.WorkspaceID),
		Name:        b.Name,
		Background:  b.Background.Domain(),
		RoleIDs:     parseIDs(b.RoleIDs),
	}
}

func FromList(l domain.List) List {
	return List{ID: l.ID.String(), BoardID: l.BoardID.String(), Name: l.Name, Position: l.Position}
}

func (l List) Domain() domain.List {
	return domain.List{ID: domain.ParseID(l.ID), BoardID: domain.ParseID(l.BoardID), Name: l.Name, Position: l.Position}
}

func fromLabel(l domain.Label) Label {
	return Label{ID: l.ID.String(), Name: l.Name, Color: l.Color}
}

func (l Label) toDomain() domain.Label {
	return domain.Label{ID: domain.ParseID(l.ID), Name: l.Name, Color: l.Color}
}

func fromFieldValue(v domain.CustomFieldValue) FieldValue {
	return FieldValue{FieldID: v.FieldID.String(), Value: v.Value}
}

func (v FieldValue) toDomain() domain.CustomFieldValue {
	return domain.CustomFieldValue{FieldID: domain.ParseID(v.FieldID), Value: v.Value}
}

func fromCover(c *domain.Cover) *Cover {
	if c == nil {
		return nil
	}
	return &Cover{AttachmentID: c.AttachmentID.String(), Color: c.Color, URL: c.URL}
}

func (c *Cover) toDomain() *domain.Cover {
	if c == nil {
		return nil
	}
	return &domain.Cover{AttachmentID: domain.ParseID(c.AttachmentID), Color: c.Color, URL: c.URL}
}

func FromCard(c domain.Card) Card {
	return Card{
		ID:           c.ID.String(),
		ListID:       c.ListID.String(),
		BoardID:      c.BoardID.String(),
		Name:         c.Name,
		Description:  c.Description,
		Position:     c.Position,
		Labels:       mapSlice(c.Labels, fromLabel),
		MemberIDs:    ids(c.MemberIDs),
		CustomFields: mapSlice(c.CustomFields, fromFieldValue),
		Cover:        fromCover(c.Cover),
		DueAt:        c.DueAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (c Card) Domain() domain.Card {
	return domain.Card{
		ID:           domain.ParseID(c.ID),
		ListID:       domain.ParseID(c.ListID),
		BoardID:      domain.ParseID(c.BoardID),
		Name:         c.Name,
		Description:  c.Description,
		Position:     c.Position,
		Labels:       mapSlice(c.Labels, Label.toDomain),
		MemberIDs:    parseIDs(c.MemberIDs),
		CustomFields: mapSlice(c.CustomFields, FieldValue.toDomain),
		Cover:        c.Cover.toDomain(),
		DueAt:        c.DueAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func FromCustomField(f domain.CustomField) CustomField {
	return CustomField{
		ID:          f.ID.String(),
		BoardID:     f.BoardID.String(),
		WorkspaceID: f.WorkspaceID.String(),
		Name:        f.Name,
		Type:        string(f.Type),
		Position:    f.Position,
	}
}

func (f CustomField) Domain() domain.CustomField {
	return domain.CustomField{
		ID:          domain.ParseID(f.ID),
		BoardID:     domain.ParseID(f.BoardID),
		WorkspaceID: domain.ParseID(f.WorkspaceID),
		Name:        f.Name,
		Type:        domain.FieldType(f.Type),
		Position:    f.Position,
	}
}

func FromBoards(in domain.Boards) []Board { return mapSlice(in, FromBoard) }
func FromLists(in domain.Lists) []List    { return mapSlice(in, FromList) }
func FromCards(in domain.Cards) []Card    { return mapSlice(in, FromCard) }

func FromCustomFields(in domain.CustomFields) []CustomField {
	return mapSlice(in, FromCustomField)
}

func Boards(in []Board) domain.Boards { return orEmpty(mapSlice(in, Board.Domain)) }
func Lists(in []List) domain.Lists    { return orEmpty(mapSlice(in, List.Domain)) }
func Cards(in []Card) domain.Cards    { return orEmpty(mapSlice(in, Card.Domain)) }

func CustomFields(in []CustomField) domain.CustomFields {
	return orEmpty(mapSlice(in, CustomField.Domain))
}

// orEmpty keeps an empty server collection distinguishable from nothing
// cached.
func orEmpty[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

func FromBoardDraft(d domain.BoardDraft) CreateBoard {
	return CreateBoard{WorkspaceID: d.WorkspaceID.String(), Name: d.Name, Background: fromBackground(d.Background)}
}

func (r CreateBoard) Domain() domain.BoardDraft {
	return domain.BoardDraft{WorkspaceID: domain.ParseID(r.WorkspaceID), Name: r.Name, Background: r.Background.Domain()}
}

func FromBoardPatch(p domain.BoardPatch) UpdateBoard {
	return UpdateBoard{Name: p.Name, Background: fromBackground(p.Background), RoleIDs: ids(p.RoleIDs)}
}

func (r UpdateBoard) Domain() domain.BoardPatch {
	return domain.BoardPatch{Name: r.Name, Background: r.Background.Domain(), RoleIDs: parseIDs(r.RoleIDs)}
}

func FromListDraft(d domain.ListDraft) CreateList {
	return CreateList{BoardID: d.BoardID.String(), Name: d.Name, Position: d.Position}
}

func (r CreateList) Domain() domain.ListDraft {
	return domain.ListDraft{BoardID: domain.ParseID(r.BoardID), Name: r.Name, Position: r.Position}
}

func FromListPatch(p domain.ListPatch) UpdateList { return UpdateList{Name: p.Name} }
func (r UpdateList) Domain() domain.ListPatch     { return domain.ListPatch{Name: r.Name} }

func FromCardDraft(d domain.CardDraft) CreateCard {
	return CreateCard{
		BoardID:     d.BoardID.String(),
		ListID:      d.ListID.String(),
		Name:        d.Name,
		Description: d.Description,
		Labels:      mapSlice(d.Labels, fromLabel),
		MemberIDs:   ids(d.MemberIDs),
		DueAt:       d.DueAt,
		Position:    d.Position,
	}
}

func (r CreateCard) Domain() domain.CardDraft {
	return domain.CardDraft{
		BoardID:     domain.ParseID(r.BoardID),
		ListID:      domain.ParseID(r.ListID),
		Name:        r.Name,
		Description: r.Description,
		Labels:      mapSlice(r.Labels, Label.toDomain),
		MemberIDs:   parseIDs(r.MemberIDs),
		DueAt:       r.DueAt,
		Position:    r.Position,
	}
}

func FromCardPatch(p domain.CardPatch) UpdateCard {
	return UpdateCard{
		Name:         p.Name,
		Description:  p.Description,
		Labels:       mapSlice(p.Labels, fromLabel),
		MemberIDs:    ids(p.MemberIDs),
		CustomFields: mapSlice(p.CustomFields, fromFieldValue),
		Cover:        fromCover(p.Cover),
		ClearCover:   p.ClearCover,
		DueAt:        p.DueAt,
		ClearDueAt:   p.ClearDueAt,
	}
}

func (r UpdateCard) Domain() domain.CardPatch {
	return domain.CardPatch{
		Name:         r.Name,
		Description:  r.Description,
		Labels:       mapSlice(r.Labels, Label.toDomain),
		MemberIDs:    parseIDs(r.MemberIDs),
		CustomFields: mapSlice(r.CustomFields, FieldValue.toDomain),
		Cover:        r.Cover.toDomain(),
		ClearCover:   r.ClearCover,
		DueAt:        r.DueAt,
		ClearDueAt:   r.ClearDueAt,
	}
}

func FromFieldDraft(d domain.CustomFieldDraft) CreateCustomField {
	return CreateCustomField{
		BoardID:     d.BoardID.String(),
		WorkspaceID: d.WorkspaceID.String(),
		Name:        d.Name,
		Type:        string(d.Type),
		Position:    d.Position,
	}
}

func (r CreateCustomField) Domain() domain.CustomFieldDraft {
	return domain.CustomFieldDraft{
		BoardID:     domain.ParseID(r.BoardID),
		WorkspaceID: domain.ParseID(r.WorkspaceID),
		Name:        r.Name,
		Type:        domain.FieldType(r.Type),
		Position:    r.Position,
	}
}

func FromFieldPatch(p domain.CustomFieldPatch) UpdateCustomField {
	out := UpdateCustomField{Name: p.Name}
	if p.Type != nil {
		t := string(*p.Type)
		out.Type = &t
	}
	return out
}

func (r UpdateCustomField) Domain() domain.CustomFieldPatch {
	out := domain.CustomFieldPatch{Name: r.Name}
	if r.Type != nil {
		t := domain.FieldType(*r.Type)
		out.Type = &t
	}
	return out
}

func FromCardMove(m domain.MoveRequest) MoveCard {
	return MoveCard{
		CardID:           m.ID.String(),
		PreviousListID:   m.PreviousListID.String(),
		TargetListID:     m.TargetListID.String(),
		PreviousPosition: m.PreviousPosition,
		TargetPosition:   m.TargetPosition,
	}
}

func (r MoveCard) Domain() domain.MoveRequest {
	return domain.MoveRequest{
		ID:               domain.ParseID(r.CardID),
		PreviousListID:   domain.ParseID(r.PreviousListID),
		TargetListID:     domain.ParseID(r.TargetListID),
		PreviousPosition: r.PreviousPosition,
		TargetPosition:   r.TargetPosition,
	}
}

func FromListMove(m domain.MoveRequest) MoveList {
	return MoveList{ID: m.ID.String(), BoardID: m.BoardID.String(), PreviousPosition: m.PreviousPosition, TargetPosition: m.TargetPosition}
}

func (r MoveList) Domain() domain.MoveRequest {
	return domain.MoveRequest{ID: domain.ParseID(r.ID), BoardID: domain.ParseID(r.BoardID), PreviousPosition: r.PreviousPosition, TargetPosition: r.TargetPosition}
}

func FromFieldMove(m domain.MoveRequest) MoveCustomField {
	return MoveCustomField{ID: m.ID.String(), BoardID: m.BoardID.String(), PreviousPosition: m.PreviousPosition, TargetPosition: m.TargetPosition}
}

func (r MoveCustomField) Domain() domain.MoveRequest {
	return domain.MoveRequest{ID: domain.ParseID(r.ID), BoardID: domain.ParseID(r.BoardID), PreviousPosition: r.PreviousPosition, TargetPosition: r.TargetPosition}
}

package domain

import "time"

// BoardDraft carries the fields needed to create a board.
type BoardDraft struct {
	WorkspaceID ID
	Name        string
	Background  *Background
}

// ListDraft creates a list. A zero Position appends after the last list.
type ListDraft struct {
	BoardID  ID
	Name     string
	Position int64
}

type CardDraft struct {
	BoardID     ID
	ListID      ID
	Name        string
	Description string
	Labels      []Label
	MemberIDs   []ID
	DueAt       *time.Time
	Position    int64
}

type CustomFieldDraft struct {
	BoardID     ID
	WorkspaceID ID
	Name        string
	Type        FieldType
	Position    int64
}

// BoardPatch is a partial update; nil fields are left untouched.
type BoardPatch struct {
	Name       *string
	Background *Background
	RoleIDs    []ID
}

func (p BoardPatch) Empty() bool {
	return p.Name == nil && p.Background == nil && p.RoleIDs == nil
}

func (p BoardPatch) Apply(b *Board) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Background != nil {
		bg := *p.Background
		b.Background = &bg
	}
	if p.RoleIDs != nil {
		b.RoleIDs = cloneSlice(p.RoleIDs)
	}
}

type ListPatch struct {
	Name *string
}

func (p ListPatch) Empty() bool { return p.Name == nil }

func (p ListPatch) Apply(l *List) {
	if p.Name != nil {
		l.Name = *p.Name
	}
}

// CardPatch is a partial update of a card's content. Moving a card between
// lists goes through CardMove, never through a patch.
type CardPatch struct {
	Name         *string
	Description  *string
	Labels       []Label
	MemberIDs    []ID
	CustomFields []CustomFieldValue
	Cover        *Cover
	ClearCover   bool
	DueAt        *time.Time
	ClearDueAt   bool
}

func (p CardPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Labels == nil && p.MemberIDs == nil &&
		p.CustomFields == nil && p.Cover == nil && !p.ClearCover && p.DueAt == nil && !p.ClearDueAt
}

func (p CardPatch) Apply(c *Card) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Labels != nil {
		c.Labels = cloneSlice(p.Labels)
	}
	if p.MemberIDs != nil {
		c.MemberIDs = cloneSlice(p.MemberIDs)
	}
	if p.CustomFields != nil {
		c.CustomFields = mergeFieldValues(c.CustomFields, p.CustomFields)
	}
	switch {
	case p.ClearCover:
		c.Cover = nil
	case p.Cover != nil:
		cv := *p.Cover
		c.Cover = &cv
	}
	switch {
	case p.ClearDueAt:
		c.DueAt = nil
	case p.DueAt != nil:
		due := *p.DueAt
		c.DueAt = &due
	}
}

type CustomFieldPatch struct {
	Name *string
	Type *FieldType
}

func (p CustomFieldPatch) Empty() bool { return p.Name == nil && p.Type == nil }

func (p CustomFieldPatch) Apply(f *CustomField) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
}

// mergeFieldValues overwrites values for fields present in upd and keeps the
// rest. An empty value removes the field from the card.
func mergeFieldValues(cur, upd []CustomFieldValue) []CustomFieldValue {
	out := make([]CustomFieldValue, 0, len(cur)+len(upd))
	seen := make(map[ID]int, len(cur))
	for _, v := range cur {
		seen[v.FieldID] = len(out)
		out = append(out, v)
	}
	for _, v := range upd {
		if i, ok := seen[v.FieldID]; ok {
			out[i].Value = v.Value
			continue
		}
		seen[v.FieldID] = len(out)
		out = append(out, v)
	}
	kept := out[:0]
	for _, v := range out {
		if v.Value != "" {
			kept = append(kept, v)
		}
	}
	return kept
}

package domain

import "time"

// Value is anything the entity store can hold for a query key. Clone must
// return a deep copy that shares no mutable memory with the receiver.
type Value interface {
	Clone() Value
}

// Background describes a board's background image or color.
type Background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Board is owned by a workspace. Boards are never hard-deleted.
type Board struct {
	ID          ID          `json:"id"`
	WorkspaceID ID          `json:"workspaceId"`
	Name        string      `json:"name"`
	Background  *Background `json:"background,omitempty"`
	RoleIDs     []ID        `json:"roleIds,omitempty"`
}

// List belongs to exactly one board.
type List struct {
	ID       ID     `json:"id"`
	BoardID  ID     `json:"boardId"`
	Name     string `json:"name"`
	Position int64  `json:"position"`
}

type Label struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Cover struct {
	AttachmentID ID     `json:"attachmentId,omitempty"`
	Color        string `json:"color,omitempty"`
	URL          string `json:"url,omitempty"`
}

// CustomFieldValue is the value a card holds for one of its board's custom
// fields.
type CustomFieldValue struct {
	FieldID ID     `json:"fieldId"`
	Value   string `json:"value"`
}

// Card belongs to exactly one list at a time; ListID is the only source of
// truth for that membership.
type Card struct {
	ID           ID                 `json:"id"`
	ListID       ID                 `json:"listId"`
	BoardID      ID                 `json:"boardId"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Position     int64              `json:"position"`
	Labels       []Label            `json:"labels,omitempty"`
	MemberIDs    []ID               `json:"memberIds,omitempty"`
	CustomFields []CustomFieldValue `json:"customFields,omitempty"`
	Cover        *Cover             `json:"cover,omitempty"`
	DueAt        *time.Time         `json:"dueAt,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldCheckbox FieldType = "checkbox"
	FieldDropdown FieldType = "dropdown"
)

// CustomField is defined on a board (or inherited from its workspace) and
// ordered among the board's other fields.
type CustomField struct {
	ID          ID        `json:"id"`
	BoardID     ID        `json:"boardId"`
	WorkspaceID ID        `json:"workspaceId,omitempty"`
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Position    int64     `json:"position"`
}

type (
	Boards       []Board
	Lists        []List
	Cards        []Card
	CustomFields []CustomField
)

func (b Board) Copy() Board {
	out := b
	if b.Background != nil {
		bg := *b.Background
		out.Background = &bg
	}
	out.RoleIDs = cloneSlice(b.RoleIDs)
	return out
}

func (c Card) Copy() Card {
	out := c
	out.Labels = cloneSlice(c.Labels)
	out.MemberIDs = cloneSlice(c.MemberIDs)
	out.CustomFields = cloneSlice(c.CustomFields)
	if c.Cover != nil {
		cv := *c.Cover
		out.Cover = &cv
	}
	if c.DueAt != nil {
		due := *c.DueAt
		out.DueAt = &due
	}
	return out
}

func (b Boards) Copy() Boards {
	if b == nil {
		return nil
	}
	out := make(Boards, len(b))
	for i := range b {
		out[i] = b[i].Copy()
	}
	return out
}

func (l Lists) Copy() Lists { return cloneSlice(l) }

func (c Cards) Copy() Cards {
	if c == nil {
		return nil
	}
	out := make(Cards, len(c))
	for i := range c {
		out[i] = c[i].Copy()
	}
	return out
}

func (f CustomFields) Copy() CustomFields { return cloneSlice(f) }

func (b Board) Clone() Value        { return b.Copy() }
func (c Card) Clone() Value         { return c.Copy() }
func (b Boards) Clone() Value       { return b.Copy() }
func (l Lists) Clone() Value        { return l.Copy() }
func (c Cards) Clone() Value        { return c.Copy() }
func (f CustomFields) Clone() Value { return f.Copy() }

func (b Boards) IndexOf(id ID) int       { return indexOf(b, id) }
func (l Lists) IndexOf(id ID) int        { return indexOf(l, id) }
func (c Cards) IndexOf(id ID) int        { return indexOf(c, id) }
func (f CustomFields) IndexOf(id ID) int { return indexOf(f, id) }

func (b *Board) EntityID() ID       { return b.ID }
func (l *List) EntityID() ID        { return l.ID }
func (c *Card) EntityID() ID        { return c.ID }
func (f *CustomField) EntityID() ID { return f.ID }

func (l *List) OrderKey() int64        { return l.Position }
func (c *Card) OrderKey() int64        { return c.Position }
func (f *CustomField) OrderKey() int64 { return f.Position }

func (l *List) SetOrderKey(p int64)        { l.Position = p }
func (c *Card) SetOrderKey(p int64)        { c.Position = p }
func (f *CustomField) SetOrderKey(p int64) { f.Position = p }

type identified interface {
	EntityID() ID
}

func indexOf[T any, P interface {
	*T
	identified
}](items []T, id ID) int {
	for i := range items {
		if P(&items[i]).EntityID() == id {
			return i
		}
	}
	return -1
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

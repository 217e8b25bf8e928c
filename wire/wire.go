// Package wire holds the JSON shapes of the REST API. Field names are
// snake_case on the wire; everything else in the module uses the domain
// types, and the conversions live here.
package wire

import (
	"time"
)

// Scoping headers of collection reads, and the header that makes a create
// safe to resend.
const (
	HeaderBoardID        = "board-id"
	HeaderListID         = "list-id"
	HeaderWorkspaceID    = "workspace-id"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Envelope wraps every response body.
type Envelope[T any] struct {
	Data     T         `json:"data"`
	Message  string    `json:"message,omitempty"`
	Paginate *Paginate `json:"paginate,omitempty"`
}

type Paginate struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// ErrorBody is the envelope of a failed request.
type ErrorBody struct {
	Message string `json:"message"`
}

type Background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Board struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspace_id"`
	Name        string      `json:"name"`
	Background  *Background `json:"background,omitempty"`
	RoleIDs     []string    `json:"role_ids,omitempty"`
}

type List struct {
	ID       string `json:"id"`
	BoardID  string `json:"board_id"`
	Name     string `json:"name"`
	Position int64  `json:"position"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Cover struct {
	AttachmentID string `json:"attachment_id,omitempty"`
	Color        string `json:"color,omitempty"`
	URL          string `json:"url,omitempty"`
}

type FieldValue struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

type Card struct {
	ID           string       `json:"id"`
	ListID       string       `json:"list_id"`
	BoardID      string       `json:"board_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Position     int64        `json:"position"`
	Labels       []Label      `json:"labels,omitempty"`
	MemberIDs    []string     `json:"member_ids,omitempty"`
	CustomFields []FieldValue `json:"custom_fields,omitempty"`
	Cover        *Cover       `json:"cover,omitempty"`
	DueAt        *time.Time   `json:"due_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type CustomField struct {
	ID          string `json:"id"`
	BoardID     string `json:"board_id"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Position    int64  `json:"position"`
}

type CreateBoard struct {
	WorkspaceID string      `json:"workspace_id"`
	Name        string      `json:"name"`
	Background  *Background `json:"background,omitempty"`
}

type UpdateBoard struct {
	Name       *string     `json:"name,omitempty"`
	Background *Background `json:"background,omitempty"`
	RoleIDs    []string    `json:"role_ids,omitempty"`
}

type CreateList struct {
	BoardID  string `json:"board_id"`
	Name     string `json:"name"`
	Position int64  `json:"position,omitempty"`
}

type UpdateList struct {
	Name *string `json:"name,omitempty"`
}

// MoveList is the body of POST /list/{id}/move. Positions are indexes.
type MoveList struct {
	ID               string `json:"id"`
	BoardID          string `json:"board_id"`
	PreviousPosition int    `json:"previous_position"`
	TargetPosition   int    `json:"target_position"`
}

type CreateCard struct {
	BoardID     string     `json:"board_id"`
	ListID      string     `json:"list_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Labels      []Label    `json:"labels,omitempty"`
	MemberIDs   []string   `json:"member_ids,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Position    int64      `json:"position,omitempty"`
}

type UpdateCard struct {
	Name         *string      `json:"name,omitempty"`
	Description  *string      `json:"description,omitempty"`
	Labels       []Label      `json:"labels,omitempty"`
	MemberIDs    []string     `json:"member_ids,omitempty"`
	CustomFields []FieldValue `json:"custom_fields,omitempty"`
	Cover        *Cover       `json:"cover,omitempty"`
	ClearCover   bool         `json:"clear_cover,omitempty"`
	DueAt        *time.Time   `json:"due_at,omitempty"`
	ClearDueAt   bool         `json:"clear_due_at,omitempty"`
}

// MoveCard is the body of POST /card/{id}/move. Positions are indexes.
type MoveCard struct {
	CardID           string `json:"card_id"`
	PreviousListID   string `json:"previous_list_id"`
	TargetListID     string `json:"target_list_id"`
	PreviousPosition int    `json:"previous_position"`
	TargetPosition   int    `json:"target_position"`
}

type CreateCustomField struct {
	BoardID     string `json:"board_id"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Position    int64  `json:"position,omitempty"`
}

type UpdateCustomField struct {
	Name *string `json:"name,omitempty"`
	Type *string `json:"type,omitempty"`
}

// MoveCustomField is the body of POST /custom-field/{id}/move.
type MoveCustomField struct {
	ID               string `json:"id"`
	BoardID          string `json:"board_id"`
	PreviousPosition int    `json:"previous_position"`
	TargetPosition   int    `json:"target_position"`
}

package domain

const (
	EntityBoard       = "board"
	EntityList        = "list"
	EntityCard        = "card"
	EntityCustomField = "custom-field"
)

const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeMoved   = "moved"
	ChangeDeleted = "deleted"
)

// ChangeEvent is published by the backend whenever an entity changes so
// other sessions can invalidate the views that embed it.
type ChangeEvent struct {
	Entity      string `json:"entity"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	BoardID     string `json:"boardId,omitempty"`
	ListID      string `json:"listId,omitempty"`
	// PreviousListID is set for card moves across lists.
	PreviousListID string `json:"previousListId,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

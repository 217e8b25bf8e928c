package domain

import "strings"

// Kind names the shape of a cached view.
type Kind string

const (
	KindBoards       Kind = "boards"
	KindBoard        Kind = "board"
	KindLists        Kind = "lists"
	KindCards        Kind = "cards"
	KindCard         Kind = "card"
	KindCustomFields Kind = "custom-fields"
)

// Key is the identity of one cached view: the entity kind plus the ids that
// scope it. Unused scope fields stay zero so keys compare with ==.
type Key struct {
	Kind        Kind
	WorkspaceID ID
	BoardID     ID
	ListID      ID
	CardID      ID
}

func BoardsKey(workspaceID ID) Key { return Key{Kind: KindBoards, WorkspaceID: workspaceID} }
func BoardKey(boardID ID) Key      { return Key{Kind: KindBoard, BoardID: boardID} }
func ListsKey(boardID ID) Key      { return Key{Kind: KindLists, BoardID: boardID} }
func CardKey(cardID ID) Key        { return Key{Kind: KindCard, CardID: cardID} }

func CardsKey(listID, boardID ID) Key {
	return Key{Kind: KindCards, ListID: listID, BoardID: boardID}
}

func CustomFieldsKey(boardID ID) Key {
	return Key{Kind: KindCustomFields, BoardID: boardID}
}

// String renders the key as kind followed by its non-empty scope ids, e.g.
// "cards:board=b1:list=l1". The form is stable and used for logging and as
// the suffix of mirrored redis keys.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(string(k.Kind))
	write := func(name string, id ID) {
		if id.IsZero() {
			return
		}
		sb.WriteByte(':')
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(id.String())
	}
	write("workspace", k.WorkspaceID)
	write("board", k.BoardID)
	write("list", k.ListID)
	write("card", k.CardID)
	return sb.String()
}

// HasPendingScope reports whether the key is scoped by an id the server has
// not issued yet. Such keys can never be fetched.
func (k Key) HasPendingScope() bool {
	return k.WorkspaceID.IsPending() || k.BoardID.IsPending() || k.ListID.IsPending() || k.CardID.IsPending()
}

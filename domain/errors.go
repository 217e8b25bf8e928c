package domain

import "errors"

// ErrNotFound indicates that an entity is not present in the collection it
// was looked up in.
var ErrNotFound = errors.New("not found")

package store

import "errors"

// ErrNotFound is wrapped into lookup errors when a document does not exist.
var ErrNotFound = errors.New("not found")

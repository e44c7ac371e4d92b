package storage

import "errors"

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists indicates a unique record is already present.
var ErrAlreadyExists = errors.New("already exists")

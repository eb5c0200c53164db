package domain

import "errors"

// ErrNotFound is returned by stores when no row matched or was affected.
var ErrNotFound = errors.New("not found")

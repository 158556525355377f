package models

import "errors"

// ErrNotFound is returned by stores when a farm-scoped lookup finds nothing.
var ErrNotFound = errors.New("not found")

package store

import "errors"

var ErrInvalidMatchID = errors.New("match id must be positive")
var ErrNotConfigured = errors.New("storage is not configured")

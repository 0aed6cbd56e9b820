package storage

import "errors"

// ErrClosed is returned by stores that are used after Close.
var ErrClosed = errors.New("store is closed")

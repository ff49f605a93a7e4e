package store

import "errors"

var (
	ErrKeyNotFound = errors.New("store: key not found")
	ErrLoadFailed  = errors.New("store: load failed")
	ErrSaveFailed  = errors.New("store: save failed")
)

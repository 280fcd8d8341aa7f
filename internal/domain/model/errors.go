package model

import "errors"

var (
	// ErrEmptyQuery is returned when a search is issued without a query.
	ErrEmptyQuery = errors.New("search query cannot be empty")

	// ErrIndexOutOfRange is returned when selecting a position outside a list.
	ErrIndexOutOfRange = errors.New("index out of range")
)

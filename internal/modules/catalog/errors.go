package catalog

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidQuery = errors.New("invalid catalog query")
	ErrInvalidQuote = errors.New("invalid quote request")
)

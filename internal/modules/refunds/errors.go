package refunds

import "errors"

var (
	ErrInvalidFilter = errors.New("invalid refund filter")
	ErrNotFound      = errors.New("booking not found")
	ErrNotRefundable = errors.New("booking has no pending refund")
)

package refunds

import (
	"time"

	"staycation/internal/domain"
	"staycation/internal/refund"
)

type Filter string

const (
	FilterAll Filter = "all"
)

type Refund struct {
	BookingID           string               `json:"booking_id"`
	RoomID              int64                `json:"room_id"`
	RoomName            string               `json:"room_name"`
	BookingDate         string               `json:"booking_date"`
	StartTime           string               `json:"start_time"`
	EndTime             string               `json:"end_time"`
	Status              domain.BookingStatus `json:"status"`
	DepositAmount       int64                `json:"deposit_amount"`
	RefundAmount        int64                `json:"refund_amount"`
	PaymentStatus       domain.PaymentStatus `json:"payment_status"`
	PaymentLabel        string               `json:"payment_label"`
	Progress            int                  `json:"progress"`
	CancellationReason  string               `json:"cancellation_reason,omitempty"`
	CancelledAt         time.Time            `json:"cancelled_at"`
	EstimatedCompletion *time.Time           `json:"estimated_completion,omitempty"`
	Timeline            []refund.Step        `json:"timeline"`
}

type ListResult struct {
	Refunds     []Refund       `json:"refunds"`
	Counts      map[string]int `json:"counts"`
	TotalRefund int64          `json:"total_refund"`
}

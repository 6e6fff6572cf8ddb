package domain

import "time"

type ChangeEvent string

const (
	ChangeInsert ChangeEvent = "INSERT"
	ChangeUpdate ChangeEvent = "UPDATE"
)

// BookingChange is broadcast to realtime subscribers whenever a booking row changes.
type BookingChange struct {
	Event         ChangeEvent   `json:"event"`
	Table         string        `json:"table"`
	BookingID     string        `json:"booking_id"`
	RoomID        int64         `json:"room_id"`
	Date          string        `json:"date"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewBookingChange(event ChangeEvent, b *Booking) BookingChange {
	return BookingChange{
		Event:         event,
		Table:         "bookings",
		BookingID:     b.ID,
		RoomID:        b.RoomID,
		Date:          b.BookingDate,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		OccurredAt:    time.Now().UTC(),
	}
}

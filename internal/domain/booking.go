package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	MinBookingHours = 3
	MaxBookingHours = 24
)

var ErrInvalidBooking = errors.New("invalid booking")

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
)

// BlockingStatuses are the statuses that occupy a room slot.
var BlockingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled, BookingRefunded:
		return true
	}
	return false
}

// Blocking reports whether a booking in this status holds its slot.
func (s BookingStatus) Blocking() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) Label() string {
	switch s {
	case BookingPending:
		return "Pending"
	case BookingConfirmed:
		return "Confirmed"
	case BookingCompleted:
		return "Completed"
	case BookingCancelled:
		return "Cancelled"
	case BookingRefunded:
		return "Refunded"
	default:
		return string(s)
	}
}

type Badge struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

func (s BookingStatus) Badge() Badge {
	switch s {
	case BookingPending:
		return Badge{Label: s.Label(), Tone: "warning"}
	case BookingConfirmed:
		return Badge{Label: s.Label(), Tone: "success"}
	case BookingCompleted:
		return Badge{Label: s.Label(), Tone: "neutral"}
	case BookingCancelled:
		return Badge{Label: s.Label(), Tone: "danger"}
	case BookingRefunded:
		return Badge{Label: s.Label(), Tone: "info"}
	default:
		return Badge{Label: s.Label(), Tone: "neutral"}
	}
}

// CanTransition allows only forward moves:
// pending|confirmed -> completed, pending|confirmed -> cancelled -> refunded.
func CanTransition(from, to BookingStatus) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCompleted || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCompleted || to == BookingCancelled
	case BookingCancelled:
		return to == BookingRefunded
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentDepositPaid     PaymentStatus = "deposit_paid"
	PaymentRefundPending   PaymentStatus = "refund_pending"
	PaymentRefundProcessed PaymentStatus = "refund_processed"
	PaymentNoRefund        PaymentStatus = "no_refund"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentDepositPaid, PaymentRefundPending, PaymentRefundProcessed, PaymentNoRefund:
		return true
	}
	return false
}

func (p PaymentStatus) Label() string {
	switch p {
	case PaymentDepositPaid:
		return "Deposit Paid"
	case PaymentRefundPending:
		return "Refund Processing"
	case PaymentRefundProcessed:
		return "Refund Completed"
	case PaymentNoRefund:
		return "No Refund"
	default:
		return string(p)
	}
}

// Progress is the refund tracking completion in percent.
func (p PaymentStatus) Progress() int {
	switch p {
	case PaymentRefundPending:
		return 40
	case PaymentRefundProcessed, PaymentNoRefund:
		return 100
	default:
		return 0
	}
}

type Booking struct {
	ID                 string        `json:"id"`
	RoomID             int64         `json:"room_id"`
	UserID             int64         `json:"user_id"`
	BookingDate        string        `json:"booking_date"`
	StartTime          string        `json:"start_time"`
	EndTime            string        `json:"end_time"`
	DurationHours      int           `json:"duration_hours"`
	Guests             int           `json:"guests"`
	Subtotal           int64         `json:"subtotal"`
	Discount           int64         `json:"discount"`
	Taxes              int64         `json:"taxes"`
	ServiceFee         int64         `json:"service_fee"`
	TotalAmount        int64         `json:"total_amount"`
	DepositAmount      int64         `json:"deposit_amount"`
	PaymentOption      string        `json:"payment_option"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	GuestName          string        `json:"guest_name"`
	GuestEmail         string        `json:"guest_email"`
	GuestPhone         string        `json:"guest_phone,omitempty"`
	SpecialRequests    string        `json:"special_requests,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	RefundAmount       int64         `json:"refund_amount"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`

	Room *Room `json:"room,omitempty"`
}

// ParseHour accepts "HH:MM" or "HH:MM:SS" and returns the hour.
func ParseHour(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	for _, p := range parts[1:] {
		if p != "00" {
			return 0, fmt.Errorf("time %q must be on the hour", s)
		}
	}
	return h, nil
}

func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", ((h%24)+24)%24)
}

// EndTimeFor wraps the end of a stay on the 24 hour clock.
func EndTimeFor(startHour, hours int) string {
	return FormatHour(startHour + hours)
}

func (b *Booking) StartHour() (int, error) {
	return ParseHour(b.StartTime)
}

// StartsAt resolves the check-in instant in the hotel's time zone.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, b.BookingDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse booking date: %w", err)
	}
	h, err := b.StartHour()
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(h) * time.Hour), nil
}

func (b *Booking) EndsAt(loc *time.Location) (time.Time, error) {
	start, err := b.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(b.DurationHours) * time.Hour), nil
}

func (b *Booking) CanBeCancelled() bool {
	return b.Status.Blocking()
}

// Validate checks the stored invariants of a priced booking.
func (b *Booking) Validate() error {
	if b.DurationHours < MinBookingHours {
		return fmt.Errorf("%w: duration must be at least %d hours", ErrInvalidBooking, MinBookingHours)
	}
	if b.DurationHours > MaxBookingHours {
		return fmt.Errorf("%w: duration must be at most %d hours", ErrInvalidBooking, MaxBookingHours)
	}
	if _, err := time.Parse(DateLayout, b.BookingDate); err != nil {
		return fmt.Errorf("%w: booking date %q", ErrInvalidBooking, b.BookingDate)
	}
	h, err := b.StartHour()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}
	if b.EndTime != EndTimeFor(h, b.DurationHours) {
		return fmt.Errorf("%w: end time %s does not match %s + %dh", ErrInvalidBooking, b.EndTime, b.StartTime, b.DurationHours)
	}
	if b.TotalAmount != b.Subtotal-b.Discount+b.Taxes+b.ServiceFee {
		return fmt.Errorf("%w: total does not add up", ErrInvalidBooking)
	}
	if b.DepositAmount <= 0 || b.RefundAmount < 0 || b.RefundAmount > b.DepositAmount {
		return fmt.Errorf("%w: deposit or refund out of range", ErrInvalidBooking)
	}
	if !b.Status.Valid() || !b.PaymentStatus.Valid() {
		return fmt.Errorf("%w: unknown status", ErrInvalidBooking)
	}
	return nil
}

package booking

import (
	"staycation/internal/availability"
	"staycation/internal/domain"
	"staycation/internal/refund"
)

type CreateBookingRequest struct {
	RoomID          int64  `json:"room_id" validate:"required,gt=0"`
	BookingDate     string `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,hour"`
	DurationHours   int    `json:"duration_hours" validate:"required,gte=3,lte=24"`
	Guests          int    `json:"guests" validate:"required,gte=1"`
	PaymentOption   string `json:"payment_option" validate:"omitempty,oneof=full partial"`
	GuestName       string `json:"guest_name" validate:"required,min=2,max=100"`
	GuestEmail      string `json:"guest_email" validate:"required,guest_email"`
	GuestPhone      string `json:"guest_phone" validate:"omitempty,min=7,max=20"`
	SpecialRequests string `json:"special_requests" validate:"max=500"`
	AcceptTerms     bool   `json:"accept_terms"`
}

type AvailabilityQuery struct {
	Date      string `form:"date" binding:"required"`
	StartTime string `form:"start_time" binding:"required"`
	Hours     int    `form:"hours" binding:"required,lte=24"`
}

type RoomAvailability struct {
	Room        domain.Room         `json:"room"`
	Available   bool                `json:"available"`
	Conflicts   []availability.Slot `json:"conflicts,omitempty"`
	BookedHours []string            `json:"booked_hours"`
}

type Tab string

const (
	TabAll       Tab = "all"
	TabUpcoming  Tab = "upcoming"
	TabPast      Tab = "past"
	TabCancelled Tab = "cancelled"
)

type BookingView struct {
	domain.Booking
	StatusLabel  string       `json:"status_label"`
	StatusBadge  domain.Badge `json:"status_badge"`
	PaymentLabel string       `json:"payment_label"`
	Tab          Tab          `json:"tab"`
}

type ListResult struct {
	Bookings []BookingView `json:"bookings"`
	Counts   map[Tab]int   `json:"counts"`
}

type CancellationPreview struct {
	BookingID     string               `json:"booking_id"`
	Refund        refund.Result        `json:"refund"`
	PaymentStatus domain.PaymentStatus `json:"payment_status_after"`
	DepositAmount int64                `json:"deposit_amount"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

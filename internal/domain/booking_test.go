package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBooking() *Booking {
	return &Booking{
		ID:            "b-1",
		RoomID:        1,
		UserID:        7,
		BookingDate:   "2026-11-02",
		StartTime:     "22:00",
		EndTime:       "02:00",
		DurationHours: 4,
		Guests:        2,
		Subtotal:      2000,
		Discount:      0,
		Taxes:         360,
		ServiceFee:    99,
		TotalAmount:   2459,
		DepositAmount: 984,
		PaymentOption: "partial",
		Status:        BookingConfirmed,
		PaymentStatus: PaymentDepositPaid,
	}
}

func TestBooking_Validate(t *testing.T) {
	require.NoError(t, validBooking().Validate())

	tests := []struct {
		name   string
		mutate func(b *Booking)
	}{
		{"short stay", func(b *Booking) { b.DurationHours = 2; b.EndTime = "00:00" }},
		{"long stay", func(b *Booking) { b.DurationHours = 25 }},
		{"end time not wrapped", func(b *Booking) { b.EndTime = "26:00" }},
		{"total mismatch", func(b *Booking) { b.TotalAmount++ }},
		{"refund above deposit", func(b *Booking) { b.RefundAmount = b.DepositAmount + 1 }},
		{"bad start", func(b *Booking) { b.StartTime = "22:30" }},
		{"bad date", func(b *Booking) { b.BookingDate = "02/11/2026" }},
		{"unknown status", func(b *Booking) { b.Status = "archived" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(b)
			assert.ErrorIs(t, b.Validate(), ErrInvalidBooking)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(BookingConfirmed, BookingCancelled))
	assert.True(t, CanTransition(BookingPending, BookingCompleted))
	assert.True(t, CanTransition(BookingCancelled, BookingRefunded))

	assert.False(t, CanTransition(BookingCompleted, BookingCancelled))
	assert.False(t, CanTransition(BookingRefunded, BookingCancelled))
	assert.False(t, CanTransition(BookingConfirmed, BookingRefunded))
	assert.False(t, CanTransition(BookingCancelled, BookingConfirmed))
}

func TestBookingStatus_Presentation(t *testing.T) {
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled, BookingRefunded} {
		assert.NotEqual(t, string(s), s.Label())
		assert.NotEmpty(t, s.Badge().Tone)
	}
	_, err := ParseBookingStatus("archived")
	assert.Error(t, err)
}

func TestParseHour(t *testing.T) {
	h, err := ParseHour("09:00")
	require.NoError(t, err)
	assert.Equal(t, 9, h)

	h, err = ParseHour("23:00:00")
	require.NoError(t, err)
	assert.Equal(t, 23, h)

	for _, bad := range []string{"9:00", "24:00", "10:30", "noon", ""} {
		_, err := ParseHour(bad)
		assert.Error(t, err, bad)
	}
}

func TestEndTimeFor_Wraps(t *testing.T) {
	assert.Equal(t, "02:00", EndTimeFor(22, 4))
	assert.Equal(t, "13:00", EndTimeFor(10, 3))
	assert.Equal(t, "10:00", EndTimeFor(10, 24))
}

func TestBooking_StartsAt(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	b := validBooking()

	start, err := b.StartsAt(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 2, 22, 0, 0, 0, loc), start)

	end, err := b.EndsAt(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 3, 2, 0, 0, 0, loc), end)
}

func TestPaymentStatus_Progress(t *testing.T) {
	assert.Equal(t, 40, PaymentRefundPending.Progress())
	assert.Equal(t, 100, PaymentRefundProcessed.Progress())
	assert.Equal(t, 100, PaymentNoRefund.Progress())
}

package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycation/internal/domain"
)

func slot(id string, room int64, start, hours int, status domain.BookingStatus) Slot {
	return Slot{
		BookingID:     id,
		RoomID:        room,
		Date:          "2026-11-02",
		StartHour:     start,
		EndHour:       EndHour(start, hours),
		DurationHours: hours,
		Status:        status,
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Interval{Start: 22, End: 26}, Normalize(22, 2))
	assert.Equal(t, Interval{Start: 10, End: 13}, Normalize(10, 13))
	assert.Equal(t, Interval{Start: 10, End: 34}, Normalize(10, 10))
}

func TestOverlaps_HalfOpen(t *testing.T) {
	assert.True(t, Overlaps(Interval{10, 13}, Interval{12, 15}))
	assert.False(t, Overlaps(Interval{10, 13}, Interval{13, 16}))
	assert.False(t, Overlaps(Interval{13, 16}, Interval{10, 13}))
}

func TestCheck_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		booked    []Slot
		start     int
		hours     int
		available bool
	}{
		{"empty day", nil, 10, 3, true},
		{"back to back after", []Slot{slot("a", 1, 10, 3, domain.BookingConfirmed)}, 13, 3, true},
		{"back to back before", []Slot{slot("a", 1, 13, 3, domain.BookingConfirmed)}, 10, 3, true},
		{"overlap inside", []Slot{slot("a", 1, 10, 6, domain.BookingConfirmed)}, 12, 3, false},
		{"wrapping booking vs late candidate", []Slot{slot("a", 1, 22, 4, domain.BookingConfirmed)}, 23, 2, false},
		{"pending blocks", []Slot{slot("a", 1, 10, 4, domain.BookingPending)}, 11, 3, false},
		{"cancelled never blocks", []Slot{slot("a", 1, 10, 4, domain.BookingCancelled)}, 11, 3, true},
		{"completed never blocks", []Slot{slot("a", 1, 10, 4, domain.BookingCompleted)}, 11, 3, true},
		{"refunded never blocks", []Slot{slot("a", 1, 10, 4, domain.BookingRefunded)}, 11, 3, true},
		{"other room ignored", []Slot{slot("a", 2, 10, 4, domain.BookingConfirmed)}, 11, 3, true},
		{"full day candidate", []Slot{slot("a", 1, 12, 3, domain.BookingConfirmed)}, 9, 24, false},
		{"full day candidate after early booking", []Slot{slot("a", 1, 3, 3, domain.BookingConfirmed)}, 9, 24, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.booked, 1, tt.start, tt.hours)
			assert.Equal(t, tt.available, res.Available)
			assert.Equal(t, int64(1), res.RoomID)
			if !tt.available {
				require.NotEmpty(t, res.Conflicts)
			}
		})
	}
}

func TestCheck_IsSymmetric(t *testing.T) {
	pairs := [][4]int{{22, 4, 23, 2}, {10, 3, 13, 3}, {8, 12, 19, 5}, {1, 3, 22, 6}}
	for _, p := range pairs {
		ab := Check([]Slot{slot("x", 1, p[0], p[1], domain.BookingConfirmed)}, 1, p[2], p[3]).Available
		ba := Check([]Slot{slot("y", 1, p[2], p[3], domain.BookingConfirmed)}, 1, p[0], p[1]).Available
		assert.Equal(t, ab, ba, "pair %v", p)
	}
}

func TestCheckAll(t *testing.T) {
	booked := []Slot{slot("a", 1, 10, 4, domain.BookingConfirmed)}
	res := CheckAll(booked, []int64{1, 2, 3}, 12, 3)

	require.Len(t, res, 3)
	assert.False(t, res[1].Available)
	assert.True(t, res[2].Available)
	assert.True(t, res[3].Available)
}

func TestBookedHours(t *testing.T) {
	booked := []Slot{
		slot("a", 1, 22, 4, domain.BookingConfirmed),
		slot("b", 1, 10, 3, domain.BookingPending),
		slot("c", 1, 14, 3, domain.BookingCancelled),
		slot("d", 2, 5, 3, domain.BookingConfirmed),
	}

	assert.Equal(t,
		[]string{"00:00", "01:00", "10:00", "11:00", "12:00", "22:00", "23:00"},
		BookedHours(booked, 1),
	)
	assert.Empty(t, BookedHours(booked, 3))
}

func TestSlotFromBooking(t *testing.T) {
	s, ok := SlotFromBooking(&domain.Booking{
		ID: "b", RoomID: 4, BookingDate: "2026-11-02", StartTime: "22:00", EndTime: "02:00",
		DurationHours: 4, Status: domain.BookingConfirmed,
	})
	require.True(t, ok)
	assert.Equal(t, Interval{22, 26}, s.Interval())

	_, ok = SlotFromBooking(&domain.Booking{StartTime: "bad", EndTime: "02:00"})
	assert.False(t, ok)
}

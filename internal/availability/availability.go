// Package availability decides whether hourly stays collide on a room.
//
// Stays are placed on a 24 hour wheel: an end hour at or before the start
// hour means the stay runs past midnight, so the end is moved 24 hours on
// before comparing half-open intervals.
package availability

import (
	"slices"

	"staycation/internal/domain"
)

const HoursPerDay = 24

// Slot is the part of a booking the checker needs.
type Slot struct {
	BookingID     string               `json:"booking_id"`
	RoomID        int64                `json:"room_id"`
	Date          string               `json:"date"`
	StartHour     int                  `json:"start_hour"`
	EndHour       int                  `json:"end_hour"`
	DurationHours int                  `json:"duration_hours"`
	Status        domain.BookingStatus `json:"status"`
}

// SlotFromBooking returns false when the booking has an unparsable start or end.
func SlotFromBooking(b *domain.Booking) (Slot, bool) {
	start, err := domain.ParseHour(b.StartTime)
	if err != nil {
		return Slot{}, false
	}
	end, err := domain.ParseHour(b.EndTime)
	if err != nil {
		return Slot{}, false
	}
	return Slot{
		BookingID:     b.ID,
		RoomID:        b.RoomID,
		Date:          b.BookingDate,
		StartHour:     start,
		EndHour:       end,
		DurationHours: b.DurationHours,
		Status:        b.Status,
	}, true
}

// Interval is a half-open hour range [Start, End) with End possibly past 24.
type Interval struct {
	Start int
	End   int
}

func Normalize(start, end int) Interval {
	if end <= start {
		end += HoursPerDay
	}
	return Interval{Start: start, End: end}
}

// NewInterval places a stay of the given duration on the wheel. Durations of
// a day or more occupy the whole wheel.
func NewInterval(startHour, durationHours int) Interval {
	if durationHours >= HoursPerDay {
		return Interval{Start: startHour, End: startHour + HoursPerDay}
	}
	return Normalize(startHour, EndHour(startHour, durationHours))
}

func (s Slot) Interval() Interval {
	if s.DurationHours > 0 {
		return NewInterval(s.StartHour, s.DurationHours)
	}
	return Normalize(s.StartHour, s.EndHour)
}

func (s Slot) Blocking() bool {
	return s.Status.Blocking()
}

func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func EndHour(startHour, durationHours int) int {
	return (startHour + durationHours) % HoursPerDay
}

type Result struct {
	RoomID    int64  `json:"room_id"`
	Available bool   `json:"available"`
	Conflicts []Slot `json:"conflicts,omitempty"`
}

// Check tests a candidate stay against the bookings of a single date.
func Check(slots []Slot, roomID int64, startHour, durationHours int) Result {
	candidate := NewInterval(startHour, durationHours)
	res := Result{RoomID: roomID, Available: true}
	for _, s := range slots {
		if s.RoomID != roomID || !s.Blocking() {
			continue
		}
		if Overlaps(candidate, s.Interval()) {
			res.Available = false
			res.Conflicts = append(res.Conflicts, s)
		}
	}
	return res
}

func CheckAll(slots []Slot, roomIDs []int64, startHour, durationHours int) map[int64]Result {
	out := make(map[int64]Result, len(roomIDs))
	for _, id := range roomIDs {
		out[id] = Check(slots, id, startHour, durationHours)
	}
	return out
}

// BookedHours lists every occupied whole hour of a room as "HH:00", ascending.
func BookedHours(slots []Slot, roomID int64) []string {
	var occupied [HoursPerDay]bool
	for _, s := range slots {
		if s.RoomID != roomID || !s.Blocking() {
			continue
		}
		iv := s.Interval()
		for h := iv.Start; h < iv.End; h++ {
			occupied[h%HoursPerDay] = true
		}
	}

	hours := make([]string, 0, HoursPerDay)
	for h, taken := range occupied {
		if taken {
			hours = append(hours, domain.FormatHour(h))
		}
	}
	return slices.Clip(hours)
}

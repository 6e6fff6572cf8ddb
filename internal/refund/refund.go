// Package refund applies the tiered cancellation policy to a booking deposit.
package refund

import (
	"time"

	"staycation/internal/domain"
)

const ProcessingBusinessDays = 7

type Tier string

const (
	TierFull   Tier = "full"
	TierHalf   Tier = "half"
	TierNone   Tier = "none"
	TierPassed Tier = "passed"
)

const (
	MessageFull   = "Full refund - cancelled more than 24 hours before check-in"
	MessageHalf   = "50% refund - cancelled 12-24 hours before check-in"
	MessageNone   = "No refund - cancelled less than 12 hours before check-in"
	MessagePassed = "No refund - booking time has passed"
)

type Result struct {
	HoursUntilBooking float64 `json:"hours_until_booking"`
	RefundPercentage  int     `json:"refund_percentage"`
	RefundAmount      int64   `json:"refund_amount"`
	PolicyMessage     string  `json:"policy_message"`
	Tier              Tier    `json:"tier"`
}

// Calculate uses fractional hours between now and check-in. Exactly 24 and
// exactly 12 hours both fall in the 50% tier.
func Calculate(bookingStart, now time.Time, deposit int64) Result {
	hours := bookingStart.Sub(now).Hours()

	res := Result{HoursUntilBooking: hours}
	switch {
	case hours > 24:
		res.RefundPercentage, res.Tier, res.PolicyMessage = 100, TierFull, MessageFull
	case hours >= 12:
		res.RefundPercentage, res.Tier, res.PolicyMessage = 50, TierHalf, MessageHalf
	case hours > 0:
		res.Tier, res.PolicyMessage = TierNone, MessageNone
	default:
		res.Tier, res.PolicyMessage = TierPassed, MessagePassed
	}
	res.RefundAmount = (deposit*int64(res.RefundPercentage) + 50) / 100
	return res
}

func PaymentStatusAfterCancel(r Result) domain.PaymentStatus {
	if r.RefundAmount > 0 {
		return domain.PaymentRefundPending
	}
	return domain.PaymentNoRefund
}

// EstimatedCompletion skips Saturdays and Sundays.
func EstimatedCompletion(cancelledAt time.Time) time.Time {
	t := cancelledAt
	for added := 0; added < ProcessingBusinessDays; {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return t
}

type Step struct {
	Label string     `json:"label"`
	Date  *time.Time `json:"date,omitempty"`
	Done  bool       `json:"done"`
}

// Timeline describes refund progress for a cancelled booking.
func Timeline(status domain.PaymentStatus, cancelledAt time.Time) []Step {
	at := cancelledAt
	if status == domain.PaymentNoRefund {
		return []Step{
			{Label: "Booking Cancelled", Date: &at, Done: true},
			{Label: "No Refund Applicable", Date: &at, Done: true},
		}
	}

	processed := status == domain.PaymentRefundProcessed
	var credited *time.Time
	if processed {
		eta := EstimatedCompletion(cancelledAt)
		credited = &eta
	}
	return []Step{
		{Label: "Booking Cancelled", Date: &at, Done: true},
		{Label: "Refund Initiated", Date: &at, Done: true},
		{Label: "Processing by Bank", Done: processed},
		{Label: "Refund Credited", Date: credited, Done: processed},
	}
}

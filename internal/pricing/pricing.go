// Package pricing computes the price breakdown of an hourly room booking.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinHours = 3
	MaxHours = 24

	ServiceFee     int64 = 99
	TaxPercent     int64 = 18
	DepositPercent int64 = 40
	MinDeposit     int64 = 500
)

var (
	ErrInsufficientHours    = errors.New("pricing: at least 3 hours required")
	ErrTooManyHours         = errors.New("pricing: at most 24 hours allowed")
	ErrInvalidBaseRate      = errors.New("pricing: base rate out of range")
	ErrInvalidPaymentOption = errors.New("pricing: unknown payment option")
)

type PaymentOption string

const (
	PaymentFull    PaymentOption = "full"
	PaymentPartial PaymentOption = "partial"
)

// ParsePaymentOption defaults an empty value to partial payment.
func ParsePaymentOption(s string) (PaymentOption, error) {
	switch PaymentOption(s) {
	case "":
		return PaymentPartial, nil
	case PaymentFull, PaymentPartial:
		return PaymentOption(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentOption, s)
	}
}

// Breakdown amounts are whole currency units.
type Breakdown struct {
	Subtotal        int64         `json:"subtotal"`
	DiscountPercent int64         `json:"discount_percent"`
	Discount        int64         `json:"discount"`
	Taxes           int64         `json:"taxes"`
	ServiceFee      int64         `json:"service_fee"`
	Total           int64         `json:"total"`
	Deposit         int64         `json:"deposit"`
	PayNow          int64         `json:"pay_now"`
	PayLater        int64         `json:"pay_later"`
	PaymentOption   PaymentOption `json:"payment_option"`
	Hours           int           `json:"hours"`
	BaseRate        int64         `json:"base_rate"`
}

// DiscountPercent returns the duration discount tier.
func DiscountPercent(hours int) int64 {
	switch {
	case hours >= 24:
		return 20
	case hours >= 12:
		return 15
	case hours >= 6:
		return 10
	default:
		return 0
	}
}

// maxBaseRate keeps every percentage product within int64.
const maxBaseRate = math.MaxInt64 / 100 / MaxHours

// Calculate prices a stay. Every rounding step is applied to its own
// intermediate value, half away from zero.
func Calculate(baseRate int64, hours int, option PaymentOption) (Breakdown, error) {
	if hours < MinHours {
		return Breakdown{}, ErrInsufficientHours
	}
	if hours > MaxHours {
		return Breakdown{}, ErrTooManyHours
	}
	if baseRate <= 0 || baseRate > maxBaseRate {
		return Breakdown{}, ErrInvalidBaseRate
	}
	if option == "" {
		option = PaymentPartial
	}
	if option != PaymentFull && option != PaymentPartial {
		return Breakdown{}, fmt.Errorf("%w: %q", ErrInvalidPaymentOption, option)
	}

	subtotal := baseRate * int64(hours)
	pct := DiscountPercent(hours)
	discount := roundPercent(subtotal, pct)
	taxes := roundPercent(subtotal-discount, TaxPercent)
	total := subtotal - discount + taxes + ServiceFee

	deposit := total
	if option == PaymentPartial {
		deposit = max(MinDeposit, roundPercent(total, DepositPercent))
	}

	return Breakdown{
		Subtotal:        subtotal,
		DiscountPercent: pct,
		Discount:        discount,
		Taxes:           taxes,
		ServiceFee:      ServiceFee,
		Total:           total,
		Deposit:         deposit,
		PayNow:          deposit,
		PayLater:        total - deposit,
		PaymentOption:   option,
		Hours:           hours,
		BaseRate:        baseRate,
	}, nil
}

// DepositFor recomputes the deposit rule for an already priced total.
func DepositFor(total int64, option PaymentOption) int64 {
	if option == PaymentFull {
		return total
	}
	return max(MinDeposit, roundPercent(total, DepositPercent))
}

func roundPercent(amount, pct int64) int64 {
	n := amount * pct
	if n >= 0 {
		return (n + 50) / 100
	}
	return -((-n + 50) / 100)
}

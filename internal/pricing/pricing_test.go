package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_PartialTwelveHours(t *testing.T) {
	b, err := Calculate(500, 12, PaymentPartial)
	require.NoError(t, err)

	assert.Equal(t, int64(6000), b.Subtotal)
	assert.Equal(t, int64(15), b.DiscountPercent)
	assert.Equal(t, int64(900), b.Discount)
	assert.Equal(t, int64(918), b.Taxes)
	assert.Equal(t, int64(99), b.ServiceFee)
	assert.Equal(t, int64(6117), b.Total)
	assert.Equal(t, int64(2447), b.Deposit)
	assert.Equal(t, int64(2447), b.PayNow)
	assert.Equal(t, int64(3670), b.PayLater)
}

func TestCalculate_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		rate     int64
		hours    int
		discount int64
		taxes    int64
		total    int64
		deposit  int64
	}{
		{"no discount below six hours", 500, 3, 0, 270, 1869, 748},
		{"ten percent at six hours", 1000, 6, 600, 972, 6471, 2588},
		{"twenty percent at a full day", 1000, 24, 4800, 3456, 22755, 9102},
		{"half rounds up on taxes", 25, 3, 0, 14, 188, 500},
		{"cheap room deposit floor", 100, 3, 0, 54, 453, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Calculate(tt.rate, tt.hours, PaymentPartial)
			require.NoError(t, err)
			assert.Equal(t, tt.discount, b.Discount)
			assert.Equal(t, tt.taxes, b.Taxes)
			assert.Equal(t, tt.total, b.Total)
			assert.Equal(t, tt.deposit, b.Deposit)
			assert.Equal(t, b.Total-b.Deposit, b.PayLater)
		})
	}
}

func TestCalculate_TwentyPercentFromTwentyFourHours(t *testing.T) {
	for _, h := range []int{24, 30, 48} {
		b, err := Calculate(700, h, PaymentFull)
		require.NoError(t, err)
		assert.Equal(t, int64(20), b.DiscountPercent, "hours=%d", h)
	}
}

func TestCalculate_OptionDoesNotChangeTotal(t *testing.T) {
	for _, h := range []int{3, 5, 6, 11, 12, 23, 24, 36} {
		full, err := Calculate(850, h, PaymentFull)
		require.NoError(t, err)
		partial, err := Calculate(850, h, PaymentPartial)
		require.NoError(t, err)

		assert.Equal(t, full.Total, partial.Total)
		assert.Equal(t, full.Total, full.Deposit)
		assert.Zero(t, full.PayLater)
		assert.GreaterOrEqual(t, partial.Deposit, MinDeposit)
		assert.Equal(t, full.Subtotal-full.Discount+full.Taxes+full.ServiceFee, full.Total)
	}
}

func TestCalculate_EmptyOptionIsPartial(t *testing.T) {
	b, err := Calculate(500, 12, "")
	require.NoError(t, err)
	assert.Equal(t, PaymentPartial, b.PaymentOption)
	assert.Equal(t, int64(2447), b.Deposit)
}

func TestCalculate_Errors(t *testing.T) {
	_, err := Calculate(500, 2, PaymentFull)
	assert.ErrorIs(t, err, ErrInsufficientHours)

	_, err = Calculate(500, 25, PaymentFull)
	assert.ErrorIs(t, err, ErrTooManyHours)

	_, err = Calculate(5000, 1<<61, PaymentPartial)
	assert.ErrorIs(t, err, ErrTooManyHours)

	_, err = Calculate(0, 5, PaymentFull)
	assert.ErrorIs(t, err, ErrInvalidBaseRate)

	_, err = Calculate(math.MaxInt64/1000, 24, PaymentFull)
	assert.ErrorIs(t, err, ErrInvalidBaseRate)

	_, err = Calculate(500, 5, "crypto")
	assert.ErrorIs(t, err, ErrInvalidPaymentOption)
}

func TestCalculate_LargestAllowedInputsDoNotWrap(t *testing.T) {
	b, err := Calculate(maxBaseRate, MaxHours, PaymentPartial)
	require.NoError(t, err)
	assert.Equal(t, int64(maxBaseRate*MaxHours), b.Subtotal)
	assert.Equal(t, int64(20), b.DiscountPercent)
	assert.Positive(t, b.Discount)
	assert.Positive(t, b.Taxes)
	assert.Greater(t, b.Total, b.Subtotal-b.Discount)
	assert.GreaterOrEqual(t, b.PayLater, int64(0))
}

func TestParsePaymentOption(t *testing.T) {
	opt, err := ParsePaymentOption("")
	require.NoError(t, err)
	assert.Equal(t, PaymentPartial, opt)

	opt, err = ParsePaymentOption("full")
	require.NoError(t, err)
	assert.Equal(t, PaymentFull, opt)

	_, err = ParsePaymentOption("later")
	assert.ErrorIs(t, err, ErrInvalidPaymentOption)
}

func TestDepositFor(t *testing.T) {
	assert.Equal(t, int64(6117), DepositFor(6117, PaymentFull))
	assert.Equal(t, int64(2447), DepositFor(6117, PaymentPartial))
	assert.Equal(t, int64(500), DepositFor(453, PaymentPartial))
}

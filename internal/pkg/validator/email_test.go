package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		message string
	}{
		{"guest@gmail.com", ""},
		{"owner@acme-hotels.io", ""},
		{"someone@yahoo.co.uk", ""},
		{"not-an-email", "Please enter a valid email address"},
		{"guest@mailinator.com", "Temporary or disposable emails are not allowed. Please use a permanent email address."},
		{"guest@gmial.com", ""},
		{"guest@gmail.co", "Did you mean gmail.com?"},
		{"guest@yahoo.cm", "Did you mean yahoo.com?"},
		{"guest@hotmail.co", "Did you mean hotmail.com or outlook.com?"},
		{"guest@intranet.x1", "Please use a valid email from a trusted provider"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.message)
		})
	}
}

func TestValidate_CustomTags(t *testing.T) {
	type req struct {
		Email string `validate:"required,guest_email"`
		Start string `validate:"required,hour"`
	}

	assert.Nil(t, Validate(req{Email: "guest@gmail.com", Start: "09:00"}))

	errs := Validate(req{Email: "guest@mailinator.com", Start: "9:30"})
	assert.Equal(t, "guest_email", errs["Email"])
	assert.Equal(t, "hour", errs["Start"])
}

func TestIsDisposableEmail(t *testing.T) {
	assert.True(t, IsDisposableEmail("x@YOPMAIL.com"))
	assert.False(t, IsDisposableEmail("x@gmail.com"))
	assert.Equal(t, "guest@gmail.com", NormalizeEmail("  Guest@Gmail.com "))
}

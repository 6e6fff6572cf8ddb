package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func newTestMailer(t *testing.T, s Sender) *Mailer {
	t.Helper()
	m, err := New(s, "Staycation <test@staycation.local>", nil, zerolog.Nop())
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return m
}

func TestMailer_SendOTP(t *testing.T) {
	s := &fakeSender{}
	m := newTestMailer(t, s)

	require.NoError(t, m.SendOTP(context.Background(), "guest@gmail.com", "482913", 5*time.Minute))
	require.Len(t, s.sent, 1)

	msg := s.sent[0]
	assert.Equal(t, KindOTP, msg.Kind)
	assert.Equal(t, []string{"guest@gmail.com"}, msg.To)
	assert.Equal(t, "Your Verification Code - Staycation", msg.Subject)
	assert.Contains(t, msg.HTML, "482913")
	assert.Contains(t, msg.HTML, "5 minutes")
	assert.Contains(t, msg.HTML, "2026 Staycation")
	assert.NotEmpty(t, msg.ID)
}

func TestMailer_SendBookingConfirmation(t *testing.T) {
	s := &fakeSender{}
	m := newTestMailer(t, s)

	err := m.SendBookingConfirmation(context.Background(), BookingConfirmation{
		Email:         "guest@gmail.com",
		GuestName:     "Asha Rao",
		RoomName:      "Deluxe Suite",
		BookingID:     "3f2a9c1d-7b6e-4e0a-9d1f-2c3b4a5d6e7f",
		BookingDate:   "2026-10-20",
		StartTime:     "14:00",
		EndTime:       "02:00",
		DurationHours: 12,
		Guests:        2,
		TotalAmount:   6117,
		DepositPaid:   2447,
	})
	require.NoError(t, err)
	require.Len(t, s.sent, 1)

	msg := s.sent[0]
	assert.Equal(t, "Booking Confirmed - Deluxe Suite on Tuesday, October 20, 2026", msg.Subject)
	assert.Contains(t, msg.HTML, "Asha Rao")
	assert.Contains(t, msg.HTML, "2:00 PM - 2:00 AM")
	assert.Contains(t, msg.HTML, "₹2,447")
	assert.Contains(t, msg.HTML, "₹6,117")
	assert.Contains(t, msg.HTML, "₹3,670")
	assert.Contains(t, msg.HTML, "3F2A9C1D")
	assert.Contains(t, msg.HTML, "2 guests")
}

func TestMailer_SendCancellation(t *testing.T) {
	t.Run("with refund", func(t *testing.T) {
		s := &fakeSender{}
		m := newTestMailer(t, s)
		require.NoError(t, m.SendCancellation(context.Background(), CancellationNotice{
			Email:            "guest@gmail.com",
			GuestName:        "Asha",
			RoomName:         "Deluxe Suite",
			BookingID:        "abcdef12-0000",
			BookingDate:      "2026-10-20",
			StartTime:        "10:00",
			EndTime:          "13:00",
			DepositPaid:      2447,
			RefundAmount:     1224,
			RefundPercentage: 50,
			PolicyMessage:    "50% refund - cancelled 12-24 hours before check-in",
		}))
		msg := s.sent[0]
		assert.Equal(t, "Booking Cancelled - Deluxe Suite", msg.Subject)
		assert.Contains(t, msg.HTML, "50%")
		assert.Contains(t, msg.HTML, "5-7 business days")
		assert.Contains(t, msg.HTML, "ABCDEF12")
	})

	t.Run("without refund", func(t *testing.T) {
		s := &fakeSender{}
		m := newTestMailer(t, s)
		require.NoError(t, m.SendCancellation(context.Background(), CancellationNotice{
			Email:         "guest@gmail.com",
			RoomName:      "Cozy Single",
			BookingDate:   "2026-10-20",
			StartTime:     "10:00",
			EndTime:       "13:00",
			PolicyMessage: "No refund - booking time has passed",
		}))
		assert.Contains(t, s.sent[0].HTML, "no refund is applicable")
		assert.NotContains(t, s.sent[0].HTML, "5-7 business days")
	})
}

func TestMailer_SenderErrorIsReturned(t *testing.T) {
	s := &fakeSender{err: errors.New("smtp down")}
	m := newTestMailer(t, s)
	err := m.SendOTP(context.Background(), "guest@gmail.com", "123456", time.Minute)
	assert.EqualError(t, err, "smtp down")
}

func TestTemplateFuncs(t *testing.T) {
	assert.Equal(t, "12:00 AM", time12h("00:00"))
	assert.Equal(t, "12:00 PM", time12h("12:00"))
	assert.Equal(t, "11:00 PM", time12h("23:00"))
	assert.Equal(t, "bogus", time12h("bogus"))

	assert.Equal(t, "₹0", money(0))
	assert.Equal(t, "₹999", money(999))
	assert.Equal(t, "₹1,000", money(1000))
	assert.Equal(t, "₹1,23,456", money(123456))
	assert.Equal(t, "₹12,34,56,789", money(123456789))
	assert.Equal(t, "-₹1,500", money(-1500))

	assert.Equal(t, "ABC", reference("abc"))
	assert.Equal(t, "Monday, October 19, 2026", longDate("2026-10-19"))
}

func TestResendClient_Send(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	c := NewResendClient("re_test")
	c.endpoint = srv.URL
	err := c.Send(context.Background(), Message{
		From:    "Staycation <a@b.c>",
		To:      []string{"guest@gmail.com"},
		Subject: "Hi",
		HTML:    "<p>x</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"guest@gmail.com"}, got.To)
	assert.Equal(t, "Hi", got.Subject)
}

func TestResendClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	c := NewResendClient("re_test")
	c.endpoint = srv.URL
	err := c.Send(context.Background(), Message{To: []string{"x@y.z"}, Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "invalid from")
}

func TestWorker_Handle(t *testing.T) {
	valid, _ := json.Marshal(Message{ID: "m1", Kind: KindOTP, To: []string{"a@b.c"}, Subject: "s", HTML: "h"})

	tests := []struct {
		name     string
		body     []byte
		sendErr  error
		want     ackAction
		attempts int
	}{
		{"delivered", valid, nil, ackDone, 1},
		{"garbage dropped", []byte("{not json"), nil, ackDrop, 0},
		{"missing recipient dropped", []byte(`{"id":"x","subject":"s"}`), nil, ackDrop, 0},
		{"failure dropped without retry", valid, errors.New("boom"), ackDrop, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{err: tt.sendErr}
			w := NewWorker("amqp://unused", s, zerolog.Nop())
			assert.Equal(t, tt.want, w.handle(context.Background(), tt.body))
			assert.Len(t, s.sent, tt.attempts)
		})
	}
}

// Package mailer renders and delivers the transactional emails: sign-in
// codes, booking confirmations and cancellation notices.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"staycation/internal/domain"
	"staycation/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	KindOTP          = "otp"
	KindConfirmation = "booking_confirmation"
	KindCancellation = "booking_cancellation"
)

// Message is a fully rendered email. It is also the JSON payload carried by
// the outbound queue.
type Message struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type BookingConfirmation struct {
	Email         string
	GuestName     string
	RoomName      string
	BookingID     string
	BookingDate   string
	StartTime     string
	EndTime       string
	DurationHours int
	Guests        int
	TotalAmount   int64
	DepositPaid   int64
}

func (b BookingConfirmation) BalanceDue() int64 { return b.TotalAmount - b.DepositPaid }

type CancellationNotice struct {
	Email            string
	GuestName        string
	RoomName         string
	BookingID        string
	BookingDate      string
	StartTime        string
	EndTime          string
	DepositPaid      int64
	RefundAmount     int64
	RefundPercentage int
	PolicyMessage    string
}

type Mailer struct {
	sender  Sender
	from    string
	tmpl    *template.Template
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func New(sender Sender, from string, m *metrics.Metrics, log zerolog.Logger) (*Mailer, error) {
	tmpl, err := template.New("mail").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Mailer{
		sender:  sender,
		from:    from,
		tmpl:    tmpl,
		metrics: m,
		log:     log.With().Str("component", "mailer").Logger(),
		now:     time.Now,
	}, nil
}

func (m *Mailer) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	data := struct {
		Code      string
		Intro     string
		ExpiresIn string
		Year      int
	}{
		Code:      code,
		Intro:     "Enter this code to verify your email and continue with your booking.",
		ExpiresIn: humanDuration(ttl),
		Year:      m.now().Year(),
	}
	return m.send(ctx, KindOTP, email, "Your Verification Code - Staycation", "otp.html", data)
}

func (m *Mailer) SendBookingConfirmation(ctx context.Context, b BookingConfirmation) error {
	data := struct {
		BookingConfirmation
		Year int
	}{b, m.now().Year()}
	subject := fmt.Sprintf("Booking Confirmed - %s on %s", b.RoomName, longDate(b.BookingDate))
	return m.send(ctx, KindConfirmation, b.Email, subject, "booking_confirmation.html", data)
}

func (m *Mailer) SendCancellation(ctx context.Context, n CancellationNotice) error {
	subject := fmt.Sprintf("Booking Cancelled - %s", n.RoomName)
	return m.send(ctx, KindCancellation, n.Email, subject, "cancellation.html", n)
}

// Render builds the message without delivering it.
func (m *Mailer) Render(kind, to, subject, name string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{
		ID:      uuid.NewString(),
		Kind:    kind,
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    buf.String(),
	}, nil
}

func (m *Mailer) send(ctx context.Context, kind, to, subject, name string, data any) error {
	msg, err := m.Render(kind, to, subject, name, data)
	if err == nil {
		err = m.sender.Send(ctx, msg)
	}
	m.metrics.EmailSent(kind, err)
	if err != nil {
		m.log.Error().Err(err).Str("kind", kind).Str("to", to).Msg("email delivery failed")
		return err
	}
	m.log.Info().Str("kind", kind).Str("to", to).Str("message_id", msg.ID).Msg("email sent")
	return nil
}

var templateFuncs = template.FuncMap{
	"time12h":   time12h,
	"longDate":  longDate,
	"money":     money,
	"reference": reference,
}

// time12h turns "14:00" into "2:00 PM".
func time12h(hhmm string) string {
	hour, err := domain.ParseHour(hhmm)
	if err != nil {
		return hhmm
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:00 %s", h, suffix)
}

// longDate turns "2026-10-20" into "Tuesday, October 20, 2026".
func longDate(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}

// money formats whole rupees with Indian digit grouping: 123456 -> ₹1,23,456.
func money(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		digits = strings.Join(append(groups, tail), ",")
	}
	return sign + "₹" + digits
}

func reference(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

func humanDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// Package refunds tracks deposit refunds of cancelled bookings.
package refunds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"staycation/internal/domain"
	"staycation/internal/refund"
	"staycation/internal/repository"
)

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUserAndStatus(ctx context.Context, userID int64, statuses ...domain.BookingStatus) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, b *domain.Booking, expected ...domain.BookingStatus) error
}

type RoomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
}

type Publisher interface {
	Publish(change domain.BookingChange)
}

type Service struct {
	bookings  BookingRepository
	rooms     RoomRepository
	publisher Publisher
	log       zerolog.Logger
}

func NewService(bookings BookingRepository, rooms RoomRepository, publisher Publisher, log zerolog.Logger) *Service {
	return &Service{
		bookings:  bookings,
		rooms:     rooms,
		publisher: publisher,
		log:       log.With().Str("module", "refunds").Logger(),
	}
}

// List returns the user's cancelled bookings. Counts and the refund total
// cover every cancelled booking regardless of the filter.
func (s *Service) List(ctx context.Context, userID int64, filter string) (*ListResult, error) {
	want, err := parseFilter(filter)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListByUserAndStatus(ctx, userID, domain.BookingCancelled, domain.BookingRefunded)
	if err != nil {
		return nil, err
	}

	res := &ListResult{
		Refunds: []Refund{},
		Counts: map[string]int{
			string(FilterAll):                     len(bookings),
			string(domain.PaymentRefundPending):   0,
			string(domain.PaymentRefundProcessed): 0,
			string(domain.PaymentNoRefund):        0,
		},
	}
	names := map[int64]string{}
	for i := range bookings {
		b := &bookings[i]
		res.Counts[string(b.PaymentStatus)]++
		res.TotalRefund += b.RefundAmount
		if want != FilterAll && string(want) != string(b.PaymentStatus) {
			continue
		}
		res.Refunds = append(res.Refunds, s.toRefund(ctx, b, names))
	}
	return res, nil
}

var exportColumns = []string{
	"Booking Reference", "Room", "Date", "Check-in", "Check-out", "Deposit Paid",
	"Refund Amount", "Refund Status", "Cancelled At", "Estimated Completion", "Reason",
}

// Export writes the filtered refunds as an xlsx workbook.
func (s *Service) Export(ctx context.Context, userID int64, filter string, w io.Writer) error {
	res, err := s.List(ctx, userID, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Refunds"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	for i, r := range res.Refunds {
		eta := ""
		if r.EstimatedCompletion != nil {
			eta = r.EstimatedCompletion.Format(domain.DateLayout)
		}
		row := []any{
			reference(r.BookingID), r.RoomName, r.BookingDate, r.StartTime, r.EndTime,
			r.DepositAmount, r.RefundAmount, r.PaymentLabel,
			r.CancelledAt.Format("2006-01-02 15:04"), eta, r.CancellationReason,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	totalRow := len(res.Refunds) + 3
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), "Total refund")
	_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), res.TotalRefund)

	return f.Write(w)
}

// Process settles a pending refund: payment becomes refund_processed and
// the booking moves from cancelled to refunded.
func (s *Service) Process(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.PaymentStatus != domain.PaymentRefundPending || !domain.CanTransition(b.Status, domain.BookingRefunded) {
		return nil, ErrNotRefundable
	}

	b.Status = domain.BookingRefunded
	b.PaymentStatus = domain.PaymentRefundProcessed
	if err := s.bookings.UpdateStatus(ctx, b, domain.BookingCancelled); err != nil {
		if errors.Is(err, repository.ErrStaleBooking) {
			return nil, ErrNotRefundable
		}
		return nil, fmt.Errorf("process refund: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(domain.NewBookingChange(domain.ChangeUpdate, b))
	}
	s.log.Info().Str("booking_id", b.ID).Int64("amount", b.RefundAmount).Msg("refund processed")
	return b, nil
}

func (s *Service) toRefund(ctx context.Context, b *domain.Booking, names map[int64]string) Refund {
	name, ok := names[b.RoomID]
	if !ok {
		if room, err := s.rooms.GetByID(ctx, b.RoomID); err == nil {
			name = room.Name
		} else {
			s.log.Warn().Err(err).Int64("room_id", b.RoomID).Msg("room lookup failed")
		}
		names[b.RoomID] = name
	}

	cancelledAt := b.UpdatedAt
	if b.CancelledAt != nil {
		cancelledAt = *b.CancelledAt
	}
	r := Refund{
		BookingID:          b.ID,
		RoomID:             b.RoomID,
		RoomName:           name,
		BookingDate:        b.BookingDate,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Status:             b.Status,
		DepositAmount:      b.DepositAmount,
		RefundAmount:       b.RefundAmount,
		PaymentStatus:      b.PaymentStatus,
		PaymentLabel:       b.PaymentStatus.Label(),
		Progress:           b.PaymentStatus.Progress(),
		CancellationReason: b.CancellationReason,
		CancelledAt:        cancelledAt,
		Timeline:           refund.Timeline(b.PaymentStatus, cancelledAt),
	}
	if b.PaymentStatus != domain.PaymentNoRefund {
		eta := refund.EstimatedCompletion(cancelledAt)
		r.EstimatedCompletion = &eta
	}
	return r
}

func parseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, Filter(domain.PaymentRefundPending), Filter(domain.PaymentRefundProcessed), Filter(domain.PaymentNoRefund):
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

func reference(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

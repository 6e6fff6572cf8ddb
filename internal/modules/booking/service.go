package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"staycation/internal/availability"
	"staycation/internal/domain"
	"staycation/internal/mailer"
	"staycation/internal/metrics"
	"staycation/internal/pkg/validator"
	"staycation/internal/pricing"
	"staycation/internal/refund"
	"staycation/internal/repository"
)

const notifyTimeout = 15 * time.Second

type Service struct {
	bookings  BookingRepository
	rooms     RoomRepository
	publisher Publisher
	notifier  Notifier
	metrics   *metrics.Metrics
	log       zerolog.Logger
	loc       *time.Location

	now   func() time.Time
	async func(func())
}

// NewService builds the booking service. Dates and check-in times are
// interpreted in loc, the hotel's time zone.
func NewService(
	bookings BookingRepository,
	rooms RoomRepository,
	publisher Publisher,
	notifier Notifier,
	m *metrics.Metrics,
	log zerolog.Logger,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		bookings:  bookings,
		rooms:     rooms,
		publisher: publisher,
		notifier:  notifier,
		metrics:   m,
		log:       log.With().Str("module", "booking").Logger(),
		loc:       loc,
		now:       time.Now,
		async:     func(f func()) { go f() },
	}
}

// Availability checks a candidate stay against every room for one date.
func (s *Service) Availability(ctx context.Context, q AvailabilityQuery) ([]RoomAvailability, error) {
	if _, err := time.Parse(domain.DateLayout, q.Date); err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	hour, err := domain.ParseHour(q.StartTime)
	if err != nil {
		return nil, invalid("start_time", "must be HH:00")
	}
	if q.Hours < domain.MinBookingHours {
		return nil, invalid("hours", fmt.Sprintf("minimum stay is %d hours", domain.MinBookingHours))
	}
	if q.Hours > domain.MaxBookingHours {
		return nil, invalid("hours", fmt.Sprintf("maximum stay is %d hours", domain.MaxBookingHours))
	}

	rooms, err := s.rooms.List(ctx, repository.RoomFilter{})
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	slots, err := s.bookings.ListSlots(ctx, q.Date, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	results := availability.CheckAll(slots, ids, hour, q.Hours)

	out := make([]RoomAvailability, 0, len(rooms))
	for _, r := range rooms {
		res := results[r.ID]
		out = append(out, RoomAvailability{
			Room:        r,
			Available:   res.Available,
			Conflicts:   res.Conflicts,
			BookedHours: availability.BookedHours(slots, r.ID),
		})
	}
	return out, nil
}

// BookedSlots lists the occupied hours of a room on a date.
func (s *Service) BookedSlots(ctx context.Context, roomID int64, date string) ([]string, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	if _, err := s.room(ctx, roomID); err != nil {
		return nil, err
	}
	slots, err := s.bookings.ListSlots(ctx, date, roomID)
	if err != nil {
		return nil, err
	}
	return availability.BookedHours(slots, roomID), nil
}

// Create prices and confirms a booking. Availability is re-checked inside
// the insert transaction; the slot index catches the rest.
func (s *Service) Create(ctx context.Context, userID int64, req CreateBookingRequest) (*domain.Booking, error) {
	if fields := validator.Validate(req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	if !req.AcceptTerms {
		return nil, invalid("accept_terms", "terms and cancellation policy must be accepted")
	}

	hour, err := domain.ParseHour(req.StartTime)
	if err != nil {
		return nil, invalid("start_time", err.Error())
	}
	day, err := time.ParseInLocation(domain.DateLayout, req.BookingDate, s.loc)
	if err != nil {
		return nil, invalid("booking_date", "must be YYYY-MM-DD")
	}
	if !day.Add(time.Duration(hour) * time.Hour).After(s.now()) {
		return nil, invalid("booking_date", "check-in must be in the future")
	}

	room, err := s.room(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if req.Guests > room.Capacity {
		return nil, invalid("guests", fmt.Sprintf("room sleeps at most %d", room.Capacity))
	}

	option, err := pricing.ParsePaymentOption(req.PaymentOption)
	if err != nil {
		return nil, invalid("payment_option", err.Error())
	}
	price, err := pricing.Calculate(room.BaseHourlyRate, req.DurationHours, option)
	if err != nil {
		return nil, invalid("duration_hours", err.Error())
	}
	if price.PayLater < 0 {
		return nil, ErrPartialPaymentUnavailable
	}

	b := &domain.Booking{
		ID:              uuid.NewString(),
		RoomID:          room.ID,
		UserID:          userID,
		BookingDate:     req.BookingDate,
		StartTime:       domain.FormatHour(hour),
		EndTime:         domain.EndTimeFor(hour, req.DurationHours),
		DurationHours:   req.DurationHours,
		Guests:          req.Guests,
		Subtotal:        price.Subtotal,
		Discount:        price.Discount,
		Taxes:           price.Taxes,
		ServiceFee:      price.ServiceFee,
		TotalAmount:     price.Total,
		DepositAmount:   price.Deposit,
		PaymentOption:   string(option),
		Status:          domain.BookingConfirmed,
		PaymentStatus:   domain.PaymentDepositPaid,
		GuestName:       strings.TrimSpace(req.GuestName),
		GuestEmail:      validator.NormalizeEmail(req.GuestEmail),
		GuestPhone:      strings.TrimSpace(req.GuestPhone),
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	err = s.bookings.CreateIfAvailable(ctx, b, func(slots []availability.Slot) error {
		if !availability.Check(slots, b.RoomID, hour, b.DurationHours).Available {
			return ErrNotAvailable
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotAvailable) || errors.Is(err, repository.ErrSlotConflict) {
			return nil, ErrNotAvailable
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}
	b.Room = room

	s.metrics.BookingCreated()
	s.publish(domain.ChangeInsert, b)
	s.log.Info().Str("booking_id", b.ID).Int64("room_id", b.RoomID).Str("date", b.BookingDate).
		Str("start", b.StartTime).Int("hours", b.DurationHours).Msg("booking confirmed")

	confirmation := mailer.BookingConfirmation{
		Email:         b.GuestEmail,
		GuestName:     b.GuestName,
		RoomName:      room.Name,
		BookingID:     b.ID,
		BookingDate:   b.BookingDate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		DurationHours: b.DurationHours,
		Guests:        b.Guests,
		TotalAmount:   b.TotalAmount,
		DepositPaid:   b.DepositAmount,
	}
	s.notify(ctx, "confirmation", b.ID, func(ctx context.Context) error {
		return s.notifier.SendBookingConfirmation(ctx, confirmation)
	})
	return b, nil
}

// List returns the user's bookings, newest stay first, with per-tab counts.
// Tabs are disjoint: cancelled and refunded go to cancelled, completed or
// past-dated to past, the rest to upcoming.
func (s *Service) List(ctx context.Context, userID int64, tab Tab) (*ListResult, error) {
	switch tab {
	case "":
		tab = TabAll
	case TabAll, TabUpcoming, TabPast, TabCancelled:
	default:
		return nil, invalid("tab", "must be one of all, upcoming, past, cancelled")
	}

	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.now().In(s.loc).Format(domain.DateLayout)
	rooms := map[int64]*domain.Room{}
	res := &ListResult{
		Bookings: []BookingView{},
		Counts:   map[Tab]int{TabAll: len(bookings), TabUpcoming: 0, TabPast: 0, TabCancelled: 0},
	}
	for i := range bookings {
		b := &bookings[i]
		bt := tabFor(b, today)
		res.Counts[bt]++
		if tab != TabAll && tab != bt {
			continue
		}
		s.attachRoom(ctx, b, rooms)
		res.Bookings = append(res.Bookings, view(b, bt))
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, userID int64, id string) (*BookingView, error) {
	b, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.attachRoom(ctx, b, map[int64]*domain.Room{})
	v := view(b, tabFor(b, s.now().In(s.loc).Format(domain.DateLayout)))
	return &v, nil
}

// PreviewCancellation reports what cancelling now would refund.
func (s *Service) PreviewCancellation(ctx context.Context, userID int64, id string) (*CancellationPreview, error) {
	b, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !b.CanBeCancelled() {
		return nil, ErrInvalidStatusTransition
	}
	r, err := s.refundFor(b)
	if err != nil {
		return nil, err
	}
	return &CancellationPreview{
		BookingID:     b.ID,
		Refund:        r,
		PaymentStatus: refund.PaymentStatusAfterCancel(r),
		DepositAmount: b.DepositAmount,
	}, nil
}

func (s *Service) Cancel(ctx context.Context, userID int64, id, reason string) (*domain.Booking, *refund.Result, error) {
	b, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if !domain.CanTransition(b.Status, domain.BookingCancelled) {
		return nil, nil, ErrInvalidStatusTransition
	}
	r, err := s.refundFor(b)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	b.Status = domain.BookingCancelled
	b.PaymentStatus = refund.PaymentStatusAfterCancel(r)
	b.RefundAmount = r.RefundAmount
	b.CancellationReason = strings.TrimSpace(reason)
	b.CancelledAt = &now
	if err := s.bookings.UpdateStatus(ctx, b, domain.BlockingStatuses...); err != nil {
		if errors.Is(err, repository.ErrStaleBooking) {
			return nil, nil, ErrInvalidStatusTransition
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("cancel booking: %w", err)
	}

	s.metrics.BookingCancelled(string(r.Tier), r.RefundAmount)
	s.publish(domain.ChangeUpdate, b)
	s.log.Info().Str("booking_id", b.ID).Str("tier", string(r.Tier)).Int64("refund", r.RefundAmount).Msg("booking cancelled")

	roomName := ""
	if room, err := s.rooms.GetByID(ctx, b.RoomID); err == nil {
		b.Room = room
		roomName = room.Name
	}
	notice := mailer.CancellationNotice{
		Email:            b.GuestEmail,
		GuestName:        b.GuestName,
		RoomName:         roomName,
		BookingID:        b.ID,
		BookingDate:      b.BookingDate,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		DepositPaid:      b.DepositAmount,
		RefundAmount:     r.RefundAmount,
		RefundPercentage: r.RefundPercentage,
		PolicyMessage:    r.PolicyMessage,
	}
	s.notify(ctx, "cancellation", b.ID, func(ctx context.Context) error {
		return s.notifier.SendCancellation(ctx, notice)
	})
	return b, &r, nil
}

// CompleteFinished marks every blocking booking whose stay has ended as
// completed and returns how many were moved.
func (s *Service) CompleteFinished(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.bookings.ListDue(ctx, now.In(s.loc).Format(domain.DateLayout))
	if err != nil {
		return 0, err
	}

	done := 0
	for i := range due {
		b := &due[i]
		end, err := b.EndsAt(s.loc)
		if err != nil {
			s.log.Warn().Err(err).Str("booking_id", b.ID).Msg("skipping malformed booking")
			continue
		}
		if end.After(now) {
			continue
		}
		b.Status = domain.BookingCompleted
		if err := s.bookings.UpdateStatus(ctx, b, domain.BlockingStatuses...); err != nil {
			if errors.Is(err, repository.ErrStaleBooking) {
				continue
			}
			return done, fmt.Errorf("complete booking %s: %w", b.ID, err)
		}
		s.publish(domain.ChangeUpdate, b)
		done++
	}
	return done, nil
}

func (s *Service) owned(ctx context.Context, userID int64, id string) (*domain.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) room(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *Service) refundFor(b *domain.Booking) (refund.Result, error) {
	start, err := b.StartsAt(s.loc)
	if err != nil {
		return refund.Result{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	return refund.Calculate(start, s.now(), b.DepositAmount), nil
}

func (s *Service) attachRoom(ctx context.Context, b *domain.Booking, seen map[int64]*domain.Room) {
	room, ok := seen[b.RoomID]
	if !ok {
		var err error
		room, err = s.rooms.GetByID(ctx, b.RoomID)
		if err != nil {
			s.log.Warn().Err(err).Int64("room_id", b.RoomID).Msg("room lookup failed")
		}
		seen[b.RoomID] = room
	}
	b.Room = room
}

func (s *Service) publish(event domain.ChangeEvent, b *domain.Booking) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.NewBookingChange(event, b))
}

// notify sends an email off the request path. Failures are only logged.
func (s *Service) notify(ctx context.Context, kind, bookingID string, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.log.Warn().Err(err).Str("kind", kind).Str("booking_id", bookingID).Msg("booking email not sent")
		}
	})
}

func tabFor(b *domain.Booking, today string) Tab {
	switch {
	case b.Status == domain.BookingCancelled || b.Status == domain.BookingRefunded:
		return TabCancelled
	case b.Status == domain.BookingCompleted || b.BookingDate < today:
		return TabPast
	default:
		return TabUpcoming
	}
}

func view(b *domain.Booking, tab Tab) BookingView {
	return BookingView{
		Booking:      *b,
		StatusLabel:  b.Status.Label(),
		StatusBadge:  b.Status.Badge(),
		PaymentLabel: b.PaymentStatus.Label(),
		Tab:          tab,
	}
}

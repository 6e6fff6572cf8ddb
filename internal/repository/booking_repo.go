package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staycation/internal/availability"
	"staycation/internal/domain"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID                 string     `gorm:"column:id;primaryKey;size:36"`
	RoomID             int64      `gorm:"column:room_id;index:idx_bookings_room_date"`
	UserID             int64      `gorm:"column:user_id;index"`
	BookingDate        string     `gorm:"column:booking_date;size:10;index:idx_bookings_room_date"`
	StartTime          string     `gorm:"column:start_time;size:8"`
	EndTime            string     `gorm:"column:end_time;size:8"`
	DurationHours      int        `gorm:"column:duration_hours"`
	Guests             int        `gorm:"column:guests"`
	Subtotal           int64      `gorm:"column:subtotal"`
	Discount           int64      `gorm:"column:discount"`
	Taxes              int64      `gorm:"column:taxes"`
	ServiceFee         int64      `gorm:"column:service_fee"`
	TotalAmount        int64      `gorm:"column:total_amount"`
	DepositAmount      int64      `gorm:"column:deposit_amount"`
	PaymentOption      string     `gorm:"column:payment_option;size:16"`
	Status             string     `gorm:"column:status;size:16;index"`
	PaymentStatus      string     `gorm:"column:payment_status;size:24"`
	GuestName          string     `gorm:"column:guest_name"`
	GuestEmail         string     `gorm:"column:guest_email"`
	GuestPhone         *string    `gorm:"column:guest_phone"`
	SpecialRequests    *string    `gorm:"column:special_requests;type:text"`
	CancellationReason *string    `gorm:"column:cancellation_reason;type:text"`
	RefundAmount       int64      `gorm:"column:refund_amount"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

func toDomainBooking(m bookingModel) *domain.Booking {
	return &domain.Booking{
		ID:                 m.ID,
		RoomID:             m.RoomID,
		UserID:             m.UserID,
		BookingDate:        m.BookingDate,
		StartTime:          m.StartTime,
		EndTime:            m.EndTime,
		DurationHours:      m.DurationHours,
		Guests:             m.Guests,
		Subtotal:           m.Subtotal,
		Discount:           m.Discount,
		Taxes:              m.Taxes,
		ServiceFee:         m.ServiceFee,
		TotalAmount:        m.TotalAmount,
		DepositAmount:      m.DepositAmount,
		PaymentOption:      m.PaymentOption,
		Status:             domain.BookingStatus(m.Status),
		PaymentStatus:      domain.PaymentStatus(m.PaymentStatus),
		GuestName:          m.GuestName,
		GuestEmail:         m.GuestEmail,
		GuestPhone:         deref(m.GuestPhone),
		SpecialRequests:    deref(m.SpecialRequests),
		CancellationReason: deref(m.CancellationReason),
		RefundAmount:       m.RefundAmount,
		CancelledAt:        m.CancelledAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:                 b.ID,
		RoomID:             b.RoomID,
		UserID:             b.UserID,
		BookingDate:        b.BookingDate,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		DurationHours:      b.DurationHours,
		Guests:             b.Guests,
		Subtotal:           b.Subtotal,
		Discount:           b.Discount,
		Taxes:              b.Taxes,
		ServiceFee:         b.ServiceFee,
		TotalAmount:        b.TotalAmount,
		DepositAmount:      b.DepositAmount,
		PaymentOption:      b.PaymentOption,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		GuestName:          b.GuestName,
		GuestEmail:         b.GuestEmail,
		GuestPhone:         ptr(b.GuestPhone),
		SpecialRequests:    ptr(b.SpecialRequests),
		CancellationReason: ptr(b.CancellationReason),
		RefundAmount:       b.RefundAmount,
		CancelledAt:        b.CancelledAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrSlotConflict
		}
		return err
	}
	*b = *toDomainBooking(m)
	return nil
}

// CreateIfAvailable re-reads the room's blocking bookings for the date inside
// a transaction and lets check veto the insert.
func (r *BookingRepository) CreateIfAvailable(ctx context.Context, b *domain.Booking, check func([]availability.Slot) error) error {
	m := toBookingModel(b)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slots, err := listSlots(tx, b.BookingDate, b.RoomID)
		if err != nil {
			return err
		}
		if err := check(slots); err != nil {
			return err
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotConflict
		}
		return err
	}
	*b = *toDomainBooking(m)
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var m bookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainBooking(m), nil
}

// ListByUser returns the user's bookings, most recent stay first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return r.list(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *BookingRepository) ListByUserAndStatus(ctx context.Context, userID int64, statuses ...domain.BookingStatus) ([]domain.Booking, error) {
	return r.list(r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status IN ?", statusStrings(statuses)))
}

// ListDue returns blocking bookings dated on or before the given day.
func (r *BookingRepository) ListDue(ctx context.Context, onOrBefore string) ([]domain.Booking, error) {
	return r.list(r.db.WithContext(ctx).
		Where("booking_date <= ?", onOrBefore).
		Where("status IN ?", statusStrings(domain.BlockingStatuses)))
}

func (r *BookingRepository) list(q *gorm.DB) ([]domain.Booking, error) {
	var rows []bookingModel
	if err := q.Order("booking_date DESC").Order("start_time DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

// ListSlots returns blocking bookings for a date; roomID 0 means every room.
func (r *BookingRepository) ListSlots(ctx context.Context, date string, roomID int64) ([]availability.Slot, error) {
	return listSlots(r.db.WithContext(ctx), date, roomID)
}

func listSlots(db *gorm.DB, date string, roomID int64) ([]availability.Slot, error) {
	q := db.Model(&bookingModel{}).
		Where("booking_date = ?", date).
		Where("status IN ?", statusStrings(domain.BlockingStatuses))
	if roomID > 0 {
		q = q.Where("room_id = ?", roomID)
	}

	var rows []bookingModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	slots := make([]availability.Slot, 0, len(rows))
	for _, m := range rows {
		if s, ok := availability.SlotFromBooking(toDomainBooking(m)); ok {
			slots = append(slots, s)
		}
	}
	return slots, nil
}

// UpdateStatus moves a booking from one of the expected statuses to b's
// status and payment fields. It fails with ErrStaleBooking when the row no
// longer has an expected status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, b *domain.Booking, expected ...domain.BookingStatus) error {
	b.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ?", b.ID).
		Where("status IN ?", statusStrings(expected)).
		Updates(map[string]any{
			"status":              string(b.Status),
			"payment_status":      string(b.PaymentStatus),
			"refund_amount":       b.RefundAmount,
			"cancellation_reason": ptr(b.CancellationReason),
			"cancelled_at":        b.CancelledAt,
			"updated_at":          b.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, b.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStaleBooking
	}
	return nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package booking

import (
	"context"

	"staycation/internal/availability"
	"staycation/internal/domain"
	"staycation/internal/mailer"
	"staycation/internal/repository"
)

// BookingRepository defines the interface for booking operations
type BookingRepository interface {
	CreateIfAvailable(ctx context.Context, b *domain.Booking, check func([]availability.Slot) error) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListDue(ctx context.Context, onOrBefore string) ([]domain.Booking, error)
	ListSlots(ctx context.Context, date string, roomID int64) ([]availability.Slot, error)
	UpdateStatus(ctx context.Context, b *domain.Booking, expected ...domain.BookingStatus) error
}

// RoomRepository defines the interface for room operations
type RoomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	List(ctx context.Context, f repository.RoomFilter) ([]domain.Room, error)
}

// Publisher fans booking changes out to realtime subscribers.
type Publisher interface {
	Publish(change domain.BookingChange)
}

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, b mailer.BookingConfirmation) error
	SendCancellation(ctx context.Context, n mailer.CancellationNotice) error
}

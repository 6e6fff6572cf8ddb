package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"staycation/internal/domain"
	"staycation/internal/pricing"
	"staycation/internal/repository"
)

type RoomRepository interface {
	List(ctx context.Context, f repository.RoomFilter) ([]domain.Room, error)
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
}

// Cache is satisfied by *repository.Cache; a nil cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

type Service struct {
	rooms RoomRepository
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewService(rooms RoomRepository, cache Cache, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		rooms: rooms,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("module", "catalog").Logger(),
	}
}

// List returns one page of rooms matching q. Scalar filters run in SQL and
// the amenity filter runs here, so paging happens after both.
func (s *Service) List(ctx context.Context, q Query) (*ListResult, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	key := q.cacheKey()
	var cached ListResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	rooms, err := s.rooms.List(ctx, q.filter())
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if len(q.Amenities) > 0 {
		matched := rooms[:0]
		for _, r := range rooms {
			if r.HasAmenities(q.Amenities...) {
				matched = append(matched, r)
			}
		}
		rooms = matched
	}

	res := &ListResult{
		Total:         len(rooms),
		ActiveFilters: q.ActiveFilters(),
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	start := min(q.Offset, len(rooms))
	end := min(start+q.Limit, len(rooms))
	res.Rooms = rooms[start:end]

	s.cacheSet(ctx, key, res)
	return res, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Room, error) {
	key := "room:" + strconv.FormatInt(id, 10)
	var cached domain.Room
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	s.cacheSet(ctx, key, room)
	return room, nil
}

// Quote prices a stay in the room without reserving anything.
func (s *Service) Quote(ctx context.Context, id int64, req QuoteRequest) (*Quote, error) {
	option, err := pricing.ParsePaymentOption(req.PaymentOption)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuote, err)
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	price, err := pricing.Calculate(room.BaseHourlyRate, req.Hours, option)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuote, err)
	}
	return &Quote{RoomID: room.ID, RoomName: room.Name, Price: price}, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}

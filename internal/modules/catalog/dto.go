package catalog

import (
	"fmt"
	"slices"
	"strings"

	"staycation/internal/domain"
	"staycation/internal/pricing"
	"staycation/internal/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Query is the full set of catalog filters, including the amenity filter
// that cannot be pushed down to SQL.
type Query struct {
	MinRate     int64             `form:"min_rate" binding:"omitempty,gte=0"`
	MaxRate     int64             `form:"max_rate" binding:"omitempty,gte=0"`
	RoomTypes   []domain.RoomType `form:"room_type"`
	Amenities   []string          `form:"amenity"`
	MinRating   float64           `form:"min_rating" binding:"omitempty,gte=0,lte=5"`
	MinCapacity int               `form:"capacity" binding:"omitempty,gte=0"`
	InstantOnly bool              `form:"instant"`
	Sort        string            `form:"sort"`
	Limit       int               `form:"limit" binding:"omitempty,gte=0"`
	Offset      int               `form:"offset" binding:"omitempty,gte=0"`
}

// normalize validates enums, sorts the multi-valued filters and applies
// paging defaults so equal queries share a cache key.
func (q *Query) normalize() error {
	if q.MaxRate > 0 && q.MinRate > q.MaxRate {
		return fmt.Errorf("%w: min_rate is above max_rate", ErrInvalidQuery)
	}
	for _, rt := range q.RoomTypes {
		if _, err := domain.ParseRoomType(string(rt)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
	}
	switch repository.RoomSort(q.Sort) {
	case "":
		q.Sort = string(repository.SortRelevance)
	case repository.SortRelevance, repository.SortPriceLow, repository.SortPriceHigh, repository.SortRating:
	default:
		return fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, q.Sort)
	}

	slices.Sort(q.RoomTypes)
	q.RoomTypes = slices.Compact(q.RoomTypes)
	amenities := q.Amenities[:0]
	for _, a := range q.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	slices.Sort(amenities)
	q.Amenities = slices.Compact(amenities)

	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	q.Limit = min(q.Limit, maxLimit)
	return nil
}

// ActiveFilters counts the filters a guest has switched on.
func (q Query) ActiveFilters() int {
	n := len(q.RoomTypes) + len(q.Amenities)
	if q.MinRate > 0 || q.MaxRate > 0 {
		n++
	}
	if q.MinRating > 0 {
		n++
	}
	if q.MinCapacity > 0 {
		n++
	}
	if q.InstantOnly {
		n++
	}
	return n
}

func (q Query) cacheKey() string {
	return fmt.Sprintf("rooms:%d:%d:%v:%v:%g:%d:%t:%s:%d:%d",
		q.MinRate, q.MaxRate, q.RoomTypes, q.Amenities, q.MinRating,
		q.MinCapacity, q.InstantOnly, q.Sort, q.Limit, q.Offset)
}

func (q Query) filter() repository.RoomFilter {
	return repository.RoomFilter{
		MinRate:     q.MinRate,
		MaxRate:     q.MaxRate,
		RoomTypes:   q.RoomTypes,
		MinRating:   q.MinRating,
		MinCapacity: q.MinCapacity,
		InstantOnly: q.InstantOnly,
		Sort:        repository.RoomSort(q.Sort),
	}
}

type ListResult struct {
	Rooms         []domain.Room `json:"rooms"`
	Total         int           `json:"total"`
	ActiveFilters int           `json:"active_filters"`
	Limit         int           `json:"limit"`
	Offset        int           `json:"offset"`
}

type QuoteRequest struct {
	Hours         int    `form:"hours" binding:"required,gte=3,lte=24"`
	PaymentOption string `form:"payment_option"`
}

type Quote struct {
	RoomID   int64             `json:"room_id"`
	RoomName string            `json:"room_name"`
	Price    pricing.Breakdown `json:"price"`
}

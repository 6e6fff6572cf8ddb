package domain

import (
	"fmt"
	"slices"
	"time"
)

type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
	RoomSuite  RoomType = "suite"
	RoomCouple RoomType = "couple"
	RoomFamily RoomType = "family"
)

func ParseRoomType(s string) (RoomType, error) {
	switch rt := RoomType(s); rt {
	case RoomSingle, RoomDouble, RoomSuite, RoomCouple, RoomFamily:
		return rt, nil
	default:
		return "", fmt.Errorf("unknown room type %q", s)
	}
}

type Room struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name" yaml:"name" validate:"required"`
	Description    string    `json:"description,omitempty" yaml:"description"`
	Images         []string  `json:"images" yaml:"images"`
	Amenities      []string  `json:"amenities" yaml:"amenities"`
	BaseHourlyRate int64     `json:"base_hourly_rate" yaml:"base_hourly_rate" validate:"required,gt=0"`
	Rating         float64   `json:"rating" yaml:"rating" validate:"gte=0,lte=5"`
	ReviewsCount   int       `json:"reviews_count" yaml:"reviews_count"`
	Capacity       int       `json:"capacity" yaml:"capacity" validate:"required,gt=0"`
	RoomType       RoomType  `json:"room_type" yaml:"room_type" validate:"required"`
	Badges         []string  `json:"badges,omitempty" yaml:"badges"`
	IsInstantBook  bool      `json:"is_instant_book" yaml:"is_instant_book"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// HasAmenities reports whether the room offers every listed amenity.
func (r *Room) HasAmenities(amenities ...string) bool {
	for _, a := range amenities {
		if !slices.Contains(r.Amenities, a) {
			return false
		}
	}
	return true
}

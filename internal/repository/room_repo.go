package repository

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"staycation/internal/domain"
)

type RoomSort string

const (
	SortRelevance RoomSort = "relevance"
	SortPriceLow  RoomSort = "price_low"
	SortPriceHigh RoomSort = "price_high"
	SortRating    RoomSort = "rating"
)

// RoomFilter holds the catalog filters that can be pushed down to SQL.
type RoomFilter struct {
	MinRate     int64
	MaxRate     int64
	RoomTypes   []domain.RoomType
	MinRating   float64
	MinCapacity int
	InstantOnly bool
	Sort        RoomSort
	Limit       int
	Offset      int
}

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomModel struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	Name           string    `gorm:"column:name;uniqueIndex"`
	Description    string    `gorm:"column:description;type:text"`
	Images         []string  `gorm:"column:images;serializer:json;type:text"`
	Amenities      []string  `gorm:"column:amenities;serializer:json;type:text"`
	BaseHourlyRate int64     `gorm:"column:base_hourly_rate;index"`
	Rating         float64   `gorm:"column:rating"`
	ReviewsCount   int       `gorm:"column:reviews_count"`
	Capacity       int       `gorm:"column:capacity"`
	RoomType       string    `gorm:"column:room_type;size:16;index"`
	Badges         []string  `gorm:"column:badges;serializer:json;type:text"`
	IsInstantBook  bool      `gorm:"column:is_instant_book"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (roomModel) TableName() string { return "rooms" }

func toDomainRoom(m roomModel) *domain.Room {
	return &domain.Room{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		Images:         m.Images,
		Amenities:      m.Amenities,
		BaseHourlyRate: m.BaseHourlyRate,
		Rating:         m.Rating,
		ReviewsCount:   m.ReviewsCount,
		Capacity:       m.Capacity,
		RoomType:       domain.RoomType(m.RoomType),
		Badges:         m.Badges,
		IsInstantBook:  m.IsInstantBook,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toRoomModel(r *domain.Room) roomModel {
	return roomModel{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Images:         r.Images,
		Amenities:      r.Amenities,
		BaseHourlyRate: r.BaseHourlyRate,
		Rating:         r.Rating,
		ReviewsCount:   r.ReviewsCount,
		Capacity:       r.Capacity,
		RoomType:       string(r.RoomType),
		Badges:         r.Badges,
		IsInstantBook:  r.IsInstantBook,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	m := toRoomModel(room)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	*room = *toDomainRoom(m)
	return nil
}

// Upsert matches rooms by name so the seed can be re-run.
func (r *RoomRepository) Upsert(ctx context.Context, room *domain.Room) error {
	var existing roomModel
	err := r.db.WithContext(ctx).Where("name = ?", room.Name).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.Create(ctx, room)
		}
		return err
	}

	m := toRoomModel(room)
	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return err
	}
	*room = *toDomainRoom(m)
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	var m roomModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainRoom(m), nil
}

func (r *RoomRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&roomModel{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// List applies the scalar filters in SQL. Amenity matching happens in the
// caller because the column is a JSON blob on both drivers.
func (r *RoomRepository) List(ctx context.Context, f RoomFilter) ([]domain.Room, error) {
	where, args, err := roomConditions(f).ToSql()
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Model(&roomModel{})
	if where != "" {
		q = q.Where(where, args...)
	}
	for _, o := range roomOrder(f.Sort) {
		q = q.Order(o)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []roomModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Room, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainRoom(m))
	}
	return out, nil
}

func roomConditions(f RoomFilter) sq.And {
	conds := sq.And{}
	if f.MinRate > 0 {
		conds = append(conds, sq.GtOrEq{"base_hourly_rate": f.MinRate})
	}
	if f.MaxRate > 0 {
		conds = append(conds, sq.LtOrEq{"base_hourly_rate": f.MaxRate})
	}
	if len(f.RoomTypes) > 0 {
		types := make([]string, len(f.RoomTypes))
		for i, t := range f.RoomTypes {
			types[i] = string(t)
		}
		conds = append(conds, sq.Eq{"room_type": types})
	}
	if f.MinRating > 0 {
		conds = append(conds, sq.GtOrEq{"rating": f.MinRating})
	}
	if f.MinCapacity > 0 {
		conds = append(conds, sq.GtOrEq{"capacity": f.MinCapacity})
	}
	if f.InstantOnly {
		conds = append(conds, sq.Eq{"is_instant_book": true})
	}
	return conds
}

func roomOrder(sort RoomSort) []string {
	switch sort {
	case SortPriceLow:
		return []string{"base_hourly_rate ASC", "id ASC"}
	case SortPriceHigh:
		return []string{"base_hourly_rate DESC", "id ASC"}
	case SortRating:
		return []string{"rating DESC", "reviews_count DESC", "id ASC"}
	default:
		return []string{"id ASC"}
	}
}

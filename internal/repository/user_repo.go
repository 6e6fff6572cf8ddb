package repository

import (
	"context"
	"strings"
	"time"

	"staycation/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	Email         string    `gorm:"column:email;uniqueIndex"`
	PasswordHash  *string   `gorm:"column:password_hash"`
	Role          string    `gorm:"column:role;size:16"`
	FullName      string    `gorm:"column:full_name"`
	Phone         *string   `gorm:"column:phone"`
	EmailVerified bool      `gorm:"column:email_verified"`
	OAuthProvider *string   `gorm:"column:oauth_provider;uniqueIndex:idx_users_oauth"`
	OAuthSubject  *string   `gorm:"column:oauth_subject;uniqueIndex:idx_users_oauth"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:            m.ID,
		Email:         m.Email,
		PasswordHash:  deref(m.PasswordHash),
		Role:          domain.UserRole(m.Role),
		FullName:      m.FullName,
		Phone:         deref(m.Phone),
		EmailVerified: m.EmailVerified,
		OAuthProvider: deref(m.OAuthProvider),
		OAuthSubject:  deref(m.OAuthSubject),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	role := u.Role
	if role == "" {
		role = domain.RoleClient
	}
	return userModel{
		ID:            u.ID,
		Email:         normalizeEmail(u.Email),
		PasswordHash:  ptr(u.PasswordHash),
		Role:          string(role),
		FullName:      u.FullName,
		Phone:         ptr(u.Phone),
		EmailVerified: u.EmailVerified,
		OAuthProvider: ptr(u.OAuthProvider),
		OAuthSubject:  ptr(u.OAuthSubject),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&m)
	if tx.Error != nil {
		return nil, notFound(tx.Error)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByOAuthSubject(ctx context.Context, provider, subject string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("oauth_provider = ? AND oauth_subject = ?", provider, subject).
		First(&m)
	if tx.Error != nil {
		return nil, notFound(tx.Error)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	m.UpdatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	*u = *toDomainUser(m)
	return nil
}

package auth

import (
	"context"
	"time"

	"staycation/internal/domain"
	"staycation/internal/repository"
)

// UserRepository — only the methods auth service uses
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByOAuthSubject(ctx context.Context, provider, subject string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// ChallengeStore keeps hashed one-time codes.
type ChallengeStore interface {
	AcquireCooldown(ctx context.Context, purpose, email string, d time.Duration) (bool, error)
	Save(ctx context.Context, purpose, email, codeHash string, ttl time.Duration) error
	Verify(ctx context.Context, purpose, email, codeHash string, maxAttempts int) (repository.ChallengeResult, error)
}

// TokenStore revokes access tokens and tracks OAuth states.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)
}

type TokenIssuer interface {
	GenerateToken(userID int64, role string) (string, error)
	TTL() time.Duration
}

type Mailer interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
}

// OAuthProvider is the slice of an OAuth2 identity provider the service needs.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*OAuthProfile, error)
}

type OAuthProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"staycation/internal/domain"
	"staycation/internal/metrics"
	"staycation/internal/pkg/validator"
	"staycation/internal/repository"
)

const (
	purposeSignIn = "signin"
	purposeReset  = "reset"

	oauthStateTTL  = 10 * time.Minute
	providerGoogle = "google"
	mailTimeout    = 15 * time.Second
)

type Options struct {
	OTPPepper      string
	OTPTTL         time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
}

// Service contains all business logic for authentication
type Service struct {
	users      UserRepository
	challenges ChallengeStore
	tokens     TokenStore
	jwt        TokenIssuer
	mailer     Mailer
	google     OAuthProvider
	metrics    *metrics.Metrics
	log        zerolog.Logger
	opts       Options

	now        func() time.Time
	background func(func())
	newCode    func() (string, error)
}

func NewService(
	users UserRepository,
	challenges ChallengeStore,
	tokens TokenStore,
	jwt TokenIssuer,
	mailer Mailer,
	google OAuthProvider,
	m *metrics.Metrics,
	log zerolog.Logger,
	opts Options,
) *Service {
	return &Service{
		users:      users,
		challenges: challenges,
		tokens:     tokens,
		jwt:        jwt,
		mailer:     mailer,
		google:     google,
		metrics:    m,
		log:        log.With().Str("module", "auth").Logger(),
		opts:       opts,
		now:        time.Now,
		background: func(f func()) { go f() },
		newCode:    generateCode,
	}
}

// RequestOTP emails a fresh sign-in code. The code itself is never returned.
func (s *Service) RequestOTP(ctx context.Context, email string) (*OTPIssued, error) {
	email, err := checkEmail(email)
	if err != nil {
		return nil, err
	}
	return s.issueCode(ctx, purposeSignIn, email)
}

// VerifyOTP consumes the sign-in code and returns a session, creating the
// account on first sign-in.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = validator.NormalizeEmail(email)
	if err := s.consumeCode(ctx, purposeSignIn, email, code); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	isNew := false
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &domain.User{Email: email, Role: domain.RoleClient, EmailVerified: true}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		isNew = true
	case err != nil:
		return nil, err
	case !user.EmailVerified:
		user.EmailVerified = true
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	return s.session(user, isNew)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email, err := checkEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         domain.RoleClient,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}
	return s.session(user, true)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, validator.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user, false)
}

// Logout revokes the access token until it would have expired.
func (s *Service) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, jti, expiresAt.Sub(s.now()))
}

// RequestPasswordReset emails a reset code. Unknown addresses and
// passwordless accounts get the same answer as known ones.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = validator.NormalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err := s.issueCode(ctx, purposeReset, email)
	return err
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	email := validator.NormalizeEmail(req.Email)
	if err := s.consumeCode(ctx, purposeReset, email, req.Code); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.EmailVerified = true
	return s.users.Update(ctx, user)
}

func (s *Service) GoogleAuthURL(ctx context.Context) (string, error) {
	if s.google == nil {
		return "", ErrOAuthDisabled
	}
	state := uuid.NewString()
	if err := s.tokens.SaveOAuthState(ctx, state, oauthStateTTL); err != nil {
		return "", err
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback finishes the OAuth round trip. Accounts are matched by
// provider subject first, then linked by verified email.
func (s *Service) GoogleCallback(ctx context.Context, state, code string) (*Session, error) {
	if s.google == nil {
		return nil, ErrOAuthDisabled
	}
	ok, err := s.tokens.ConsumeOAuthState(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOAuthState
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByOAuthSubject(ctx, providerGoogle, profile.Subject)
	if err == nil {
		return s.session(user, false)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	email := validator.NormalizeEmail(profile.Email)
	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !profile.EmailVerified {
			return nil, ErrInvalidCredentials
		}
		user.OAuthProvider = providerGoogle
		user.OAuthSubject = profile.Subject
		user.EmailVerified = true
		if user.FullName == "" {
			user.FullName = profile.Name
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		return s.session(user, false)
	case errors.Is(err, repository.ErrNotFound):
		user = &domain.User{
			Email:         email,
			FullName:      profile.Name,
			Role:          domain.RoleClient,
			EmailVerified: profile.EmailVerified,
			OAuthProvider: providerGoogle,
			OAuthSubject:  profile.Subject,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		return s.session(user, true)
	default:
		return nil, err
	}
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*domain.User, error) {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) issueCode(ctx context.Context, purpose, email string) (*OTPIssued, error) {
	ok, err := s.challenges.AcquireCooldown(ctx, purpose, email, s.opts.ResendCooldown)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOTPCooldown
	}

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Save(ctx, purpose, email, s.hashCode(code), s.opts.OTPTTL); err != nil {
		return nil, err
	}
	s.metrics.OTPIssued()

	ttl := s.opts.OTPTTL
	s.background(func() {
		mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()
		if err := s.mailer.SendOTP(mailCtx, email, code, ttl); err != nil {
			s.log.Warn().Err(err).Str("purpose", purpose).Msg("otp email not sent")
		}
	})

	return &OTPIssued{Email: email, ExpiresAt: s.now().Add(ttl)}, nil
}

func (s *Service) consumeCode(ctx context.Context, purpose, email, code string) error {
	res, err := s.challenges.Verify(ctx, purpose, email, s.hashCode(strings.TrimSpace(code)), s.opts.MaxAttempts)
	if err != nil {
		return err
	}
	switch res {
	case repository.ChallengeMatched:
		return nil
	case repository.ChallengeMissing:
		return ErrCodeExpired
	case repository.ChallengeExhausted:
		return ErrTooManyAttempts
	default:
		return ErrInvalidCode
	}
}

func (s *Service) session(user *domain.User, isNew bool) (*Session, error) {
	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwt.TTL().Seconds()),
		IsNewUser:   isNew,
	}, nil
}

func (s *Service) hashCode(code string) string {
	sum := sha256.Sum256([]byte(code + s.opts.OTPPepper))
	return hex.EncodeToString(sum[:])
}

func checkEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validator.ValidateEmail(email); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidEmail, err.Error())
	}
	return validator.NormalizeEmail(email), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

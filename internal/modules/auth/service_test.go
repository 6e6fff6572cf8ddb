package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"staycation/internal/domain"
	"staycation/internal/pkg/jwt"
	"staycation/internal/repository"
)

// Mock User Repository implementing the interface
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 42
	}
	return args.Error(0)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByOAuthSubject(ctx context.Context, provider, subject string) (*domain.User, error) {
	args := m.Called(ctx, provider, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (r *recordingMailer) SendOTP(_ context.Context, email, code string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codes == nil {
		r.codes = map[string]string{}
	}
	r.codes[email] = code
	return nil
}

type fakeGoogle struct {
	profile *OAuthProfile
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (f *fakeGoogle) Exchange(context.Context, string) (*OAuthProfile, error) {
	return f.profile, nil
}

type fixture struct {
	svc    *Service
	users  *mockUserRepo
	mailer *recordingMailer
	tokens *repository.TokenStore
	redis  *miniredis.Miniredis
	jwt    *jwt.Service
}

func newFixture(t *testing.T, google OAuthProvider) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		users:  &mockUserRepo{},
		mailer: &recordingMailer{},
		tokens: repository.NewTokenStore(rdb),
		redis:  mr,
		jwt:    jwt.New("test-secret", 15*time.Minute),
	}
	f.svc = NewService(f.users, repository.NewChallengeStore(rdb), f.tokens, f.jwt, f.mailer, google, nil, zerolog.Nop(), Options{
		OTPPepper:      "pepper",
		OTPTTL:         5 * time.Minute,
		ResendCooldown: time.Minute,
		MaxAttempts:    3,
	})
	f.svc.background = func(fn func()) { fn() }
	f.svc.newCode = func() (string, error) { return "123456", nil }
	return f
}

func TestRequestOTP(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	issued, err := f.svc.RequestOTP(ctx, "  Guest@Gmail.com ")
	require.NoError(t, err)
	assert.Equal(t, "guest@gmail.com", issued.Email)
	assert.Equal(t, "123456", f.mailer.codes["guest@gmail.com"])

	_, err = f.svc.RequestOTP(ctx, "guest@gmail.com")
	assert.ErrorIs(t, err, ErrOTPCooldown)

	f.redis.FastForward(61 * time.Second)
	_, err = f.svc.RequestOTP(ctx, "guest@gmail.com")
	assert.NoError(t, err)
}

func TestRequestOTP_RejectsBadEmails(t *testing.T) {
	f := newFixture(t, nil)
	for _, email := range []string{"not-an-email", "x@mailinator.com", "x@gmail.co"} {
		_, err := f.svc.RequestOTP(context.Background(), email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	assert.Empty(t, f.mailer.codes)
}

func TestVerifyOTP_CreatesUserOnFirstSignIn(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.RequestOTP(ctx, "guest@gmail.com")
	require.NoError(t, err)

	f.users.On("GetByEmail", ctx, "guest@gmail.com").Return(nil, repository.ErrNotFound)
	f.users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "guest@gmail.com" && u.EmailVerified && u.Role == domain.RoleClient
	})).Return(nil)

	session, err := f.svc.VerifyOTP(ctx, "guest@gmail.com", "123456")
	require.NoError(t, err)
	assert.True(t, session.IsNewUser)
	assert.Equal(t, int64(42), session.User.ID)
	assert.Equal(t, int64(900), session.ExpiresIn)

	claims, err := f.jwt.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	// single use
	_, err = f.svc.VerifyOTP(ctx, "guest@gmail.com", "123456")
	assert.ErrorIs(t, err, ErrCodeExpired)
	f.users.AssertExpectations(t)
}

func TestVerifyOTP_WrongCodeThenExhausted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.RequestOTP(ctx, "guest@gmail.com")
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, "guest@gmail.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = f.svc.VerifyOTP(ctx, "guest@gmail.com", "000001")
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = f.svc.VerifyOTP(ctx, "guest@gmail.com", "000002")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// the right code no longer works once the challenge is burned
	_, err = f.svc.VerifyOTP(ctx, "guest@gmail.com", "123456")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.RequestOTP(ctx, "guest@gmail.com")
	require.NoError(t, err)

	f.redis.FastForward(6 * time.Minute)
	_, err = f.svc.VerifyOTP(ctx, "guest@gmail.com", "123456")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "new@gmail.com").Return(nil, repository.ErrNotFound).Once()
	var created *domain.User
	f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)

	session, err := f.svc.Register(ctx, RegisterRequest{Email: "New@gmail.com", Password: "supersecret", FullName: " Asha "})
	require.NoError(t, err)
	assert.True(t, session.IsNewUser)
	assert.Equal(t, "Asha", created.FullName)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("supersecret")))

	f.users.On("GetByEmail", ctx, "new@gmail.com").Return(created, nil)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "new@gmail.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err = f.svc.Login(ctx, LoginRequest{Email: "NEW@gmail.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.False(t, session.IsNewUser)

	_, err = f.svc.Register(ctx, RegisterRequest{Email: "new@gmail.com", Password: "supersecret", FullName: "Asha"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestLogin_PasswordlessAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.users.On("GetByEmail", ctx, "otp@gmail.com").Return(&domain.User{ID: 1, Email: "otp@gmail.com"}, nil)

	_, err := f.svc.Login(ctx, LoginRequest{Email: "otp@gmail.com", Password: "anything"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.Logout(ctx, "jti-1", time.Now().Add(10*time.Minute)))
	revoked, err := f.tokens.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens need no entry
	require.NoError(t, f.svc.Logout(ctx, "jti-2", time.Now().Add(-time.Minute)))
	revoked, err = f.tokens.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := &domain.User{ID: 7, Email: "guest@gmail.com"}
	f.users.On("GetByEmail", ctx, "guest@gmail.com").Return(user, nil)
	f.users.On("GetByEmail", ctx, "ghost@gmail.com").Return(nil, repository.ErrNotFound)
	f.users.On("Update", ctx, user).Return(nil)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@gmail.com"))
	assert.Empty(t, f.mailer.codes)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "guest@gmail.com"))
	assert.Equal(t, "123456", f.mailer.codes["guest@gmail.com"])

	// a reset code is not a sign-in code
	_, err := f.svc.VerifyOTP(ctx, "guest@gmail.com", "123456")
	assert.ErrorIs(t, err, ErrCodeExpired)

	err = f.svc.ConfirmPasswordReset(ctx, PasswordResetConfirm{Email: "guest@gmail.com", Code: "123456", NewPassword: "brand-new-pass"})
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("brand-new-pass")))
}

func TestGoogleSignIn(t *testing.T) {
	google := &fakeGoogle{profile: &OAuthProfile{Subject: "g-1", Email: "Guest@gmail.com", EmailVerified: true, Name: "Guest"}}
	f := newFixture(t, google)
	ctx := context.Background()

	url, err := f.svc.GoogleAuthURL(ctx)
	require.NoError(t, err)
	state := url[len("https://accounts.example/auth?state="):]

	existing := &domain.User{ID: 3, Email: "guest@gmail.com"}
	f.users.On("GetByOAuthSubject", ctx, "google", "g-1").Return(nil, repository.ErrNotFound)
	f.users.On("GetByEmail", ctx, "guest@gmail.com").Return(existing, nil)
	f.users.On("Update", ctx, existing).Return(nil)

	session, err := f.svc.GoogleCallback(ctx, state, "code")
	require.NoError(t, err)
	assert.Equal(t, int64(3), session.User.ID)
	assert.Equal(t, "google", existing.OAuthProvider)
	assert.Equal(t, "g-1", existing.OAuthSubject)
	assert.Equal(t, "Guest", existing.FullName)

	// states are single use
	_, err = f.svc.GoogleCallback(ctx, state, "code")
	assert.ErrorIs(t, err, ErrInvalidOAuthState)
}

func TestGoogleDisabled(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.GoogleAuthURL(context.Background())
	assert.ErrorIs(t, err, ErrOAuthDisabled)
}

func TestHandler_OTPFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t, nil)
	f.users.On("GetByEmail", mock.Anything, "guest@gmail.com").Return(&domain.User{ID: 9, Email: "guest@gmail.com", EmailVerified: true}, nil)

	r := gin.New()
	NewHandler(f.svc, nil).RegisterPublicRoutes(r.Group("/api/v1"))

	post := func(path string, body any) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/api/v1/auth/otp/request", gin.H{"email": "guest@gmail.co"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_EMAIL")
	assert.Contains(t, w.Body.String(), "gmail.com")

	w = post("/api/v1/auth/otp/request", gin.H{"email": "guest@gmail.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "123456")

	w = post("/api/v1/auth/otp/request", gin.H{"email": "guest@gmail.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = post("/api/v1/auth/otp/verify", gin.H{"email": "guest@gmail.com", "code": "12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post("/api/v1/auth/otp/verify", gin.H{"email": "guest@gmail.com", "code": "654321"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CODE")

	w = post("/api/v1/auth/otp/verify", gin.H{"email": "guest@gmail.com", "code": "123456"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool    `json:"success"`
		Data    Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.Equal(t, "Bearer", resp.Data.TokenType)
	assert.Equal(t, int64(9), resp.Data.User.ID)
}

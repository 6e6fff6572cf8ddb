package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"staycation/internal/middleware"
	"staycation/internal/pkg/response"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
	limiter gin.HandlerFunc
}

// NewHandler wires the auth endpoints. limiter, when set, guards the
// endpoints that send email or check secrets.
func NewHandler(service *Service, limiter gin.HandlerFunc) *Handler {
	return &Handler{service: service, limiter: limiter}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/otp/request", h.limited(h.RequestOTP)...)
		authGroup.POST("/otp/verify", h.limited(h.VerifyOTP)...)
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.limited(h.Login)...)
		authGroup.POST("/password/reset/request", h.limited(h.RequestPasswordReset)...)
		authGroup.POST("/password/reset/confirm", h.ConfirmPasswordReset)
		authGroup.GET("/oauth/google", h.GoogleRedirect)
		authGroup.GET("/oauth/google/callback", h.GoogleCallback)
	}
}

func (h *Handler) limited(handler gin.HandlerFunc) []gin.HandlerFunc {
	if h.limiter == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{h.limiter, handler}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.POST("/auth/logout", h.Logout)

	userGroup := protected.Group("/users")
	{
		userGroup.GET("/me", h.GetMe)
		userGroup.PUT("/me", h.UpdateProfile)
	}
}

func (h *Handler) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	issued, err := h.service.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message":    "Verification code sent",
		"email":      issued.Email,
		"expires_at": issued.ExpiresAt,
	})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Email and a 6-digit code are required")
		return
	}

	session, err := h.service.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, session)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

func (h *Handler) Logout(c *gin.Context) {
	jti, exp := middleware.CurrentToken(c)
	if err := h.service.Logout(c.Request.Context(), jti, exp); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Signed out"})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "If the account exists, a reset code has been sent"})
}

func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirm
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := h.service.ConfirmPasswordReset(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *Handler) GoogleRedirect(c *gin.Context) {
	url, err := h.service.GoogleAuthURL(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		response.Error(c, http.StatusUnauthorized, "OAUTH_DENIED", errParam)
		return
	}
	session, err := h.service.GoogleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, session)
}

func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}
	user, err := h.service.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		msg := strings.TrimPrefix(err.Error(), ErrInvalidEmail.Error()+": ")
		response.Error(c, http.StatusBadRequest, "INVALID_EMAIL", msg)
	case errors.Is(err, ErrOTPCooldown):
		response.Error(c, http.StatusTooManyRequests, "OTP_COOLDOWN", "Please wait before requesting another code")
	case errors.Is(err, ErrInvalidCode):
		response.Error(c, http.StatusUnauthorized, "INVALID_CODE", "The code is incorrect")
	case errors.Is(err, ErrCodeExpired):
		response.Error(c, http.StatusUnauthorized, "CODE_EXPIRED", "The code has expired, request a new one")
	case errors.Is(err, ErrTooManyAttempts):
		response.Error(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many incorrect attempts, request a new code")
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
	case errors.Is(err, ErrEmailAlreadyExists):
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
	case errors.Is(err, ErrOAuthDisabled):
		response.Error(c, http.StatusNotFound, "OAUTH_DISABLED", "Google sign-in is not available")
	case errors.Is(err, ErrInvalidOAuthState):
		response.Error(c, http.StatusBadRequest, "INVALID_OAUTH_STATE", "Sign-in session expired, try again")
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("auth request failed")
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

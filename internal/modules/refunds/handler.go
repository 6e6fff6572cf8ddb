package refunds

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"staycation/internal/middleware"
	"staycation/internal/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	refunds := protected.Group("/refunds")
	{
		refunds.GET("", h.ListRefunds)
		refunds.GET("/export", h.ExportRefunds)
	}
}

// RegisterAdminRoutes expects a group already guarded by JWTAuth.
func (h *Handler) RegisterAdminRoutes(protected *gin.RouterGroup) {
	admin := protected.Group("/admin/refunds", middleware.AdminOnly())
	admin.POST("/:id/process", h.ProcessRefund)
}

func (h *Handler) ListRefunds(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}
	res, err := h.service.List(c.Request.Context(), userID, c.Query("filter"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ExportRefunds(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), userID, c.Query("filter"), &buf); err != nil {
		h.fail(c, err)
		return
	}
	name := fmt.Sprintf("refunds_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) ProcessRefund(c *gin.Context) {
	b, err := h.service.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidFilter):
		response.Error(c, http.StatusBadRequest, "INVALID_FILTER", "filter must be all, refund_pending, refund_processed or no_refund")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "BOOKING_NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrNotRefundable):
		response.Error(c, http.StatusConflict, "NOT_REFUNDABLE", "This booking has no pending refund")
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("refund request failed")
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

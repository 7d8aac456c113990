package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ripetiamo/backoffice-api/internal/dto"
	"github.com/ripetiamo/backoffice-api/internal/middleware"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
	"github.com/ripetiamo/backoffice-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context) (*dto.DashboardOverview, bool, error)
	Month(ctx context.Context, day time.Time) (*dto.MonthView, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Overview godoc
// @Summary Back-office dashboard overview
// @Description Due follow-ups, unpaid bookings and the current month grid in one payload
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, overview, nil, meta)
}

// Month godoc
// @Summary Calendar month grid with booking counts
// @Tags Dashboard
// @Produce json
// @Param day query string false "Any day inside the wanted month (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /calendar/month [get]
func (h *DashboardHandler) Month(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	dayStr := strings.TrimSpace(c.Query("day"))
	var day time.Time
	if dayStr == "" {
		day = time.Now().UTC()
	} else {
		parsed, err := time.Parse("2006-01-02", dayStr)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid day format, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	month, err := h.service.Month(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, month, nil)
}

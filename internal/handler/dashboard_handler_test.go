package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ripetiamo/backoffice-api/internal/dto"
)

type fakeDashboardSrv struct {
	overview    *dto.DashboardOverview
	overviewErr error
	overviewHit bool
	month       *dto.MonthView
	monthErr    error
	lastDay     time.Time
}

func (f *fakeDashboardSrv) Overview(context.Context) (*dto.DashboardOverview, bool, error) {
	return f.overview, f.overviewHit, f.overviewErr
}

func (f *fakeDashboardSrv) Month(_ context.Context, day time.Time) (*dto.MonthView, error) {
	f.lastDay = day
	return f.month, f.monthErr
}

func TestDashboardHandlerOverviewSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		overview:    &dto.DashboardOverview{ReferenceDay: "2025-06-10"},
		overviewHit: true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, "2025-06-10", envelope.Data["reference_day"])
}

func TestDashboardHandlerMonthInvalidDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/calendar/month?day=99-99-9999", nil)

	handler.Month(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerMonthParsesDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{month: &dto.MonthView{Month: "2025-06"}}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/calendar/month?day=2025-06-10", nil)

	handler.Month(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2025, service.lastDay.Year())
	assert.Equal(t, time.June, service.lastDay.Month())
	assert.Equal(t, 10, service.lastDay.Day())
}

func TestDashboardHandlerMonthDefaultsToToday(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{month: &dto.MonthView{}}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/calendar/month", nil)

	handler.Month(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, service.lastDay.IsZero())
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

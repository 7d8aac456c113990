package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ripetiamo/backoffice-api/internal/dto"
	"github.com/ripetiamo/backoffice-api/internal/models"
	"github.com/ripetiamo/backoffice-api/internal/service"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
	"github.com/ripetiamo/backoffice-api/pkg/response"
)

type reportService interface {
	CreateJob(ctx context.Context, req dto.GenerateReportRequest, actorID string) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.ReportJobResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes report export endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Create godoc
// @Summary Queue a report export
// @Description Queue an async CSV or PDF export of unpaid bookings or due contacts
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportRequest true "Report parameters"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	job, err := h.service.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished report via signed token
// @Tags Reports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	result, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "report file unavailable"))
		return
	}

	contentType := "text/csv"
	if result.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, result.File, nil)
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ripetiamo/backoffice-api/internal/models"
	"github.com/ripetiamo/backoffice-api/internal/service"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
	"github.com/ripetiamo/backoffice-api/pkg/response"
)

// BookingHandler handles booking endpoints.
type BookingHandler struct {
	service *service.BookingService
}

// NewBookingHandler constructs a booking handler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// List godoc
// @Summary List bookings with payment annotations
// @Tags Bookings
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param from query string false "From instant (RFC3339)"
// @Param to query string false "To instant (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var filter models.BookingFilter
	filter.StudentID = c.Query("studentId")
	filter.Status = c.Query("status")
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &to
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortOrder = c.Query("order")

	bookings, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get booking by id
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Create godoc
// @Summary Create booking
// @Description Create a booking; rejects bookings the prepaid balance cannot cover unless confirm_unpaid is set
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	booking, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Update godoc
// @Summary Update booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body service.UpdateBookingRequest true "Booking payload"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [put]
func (h *BookingHandler) Update(c *gin.Context) {
	var req service.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	booking, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Cancel godoc
// @Summary Cancel booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete booking and consume prepaid hours
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	if err := h.service.Complete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PreviewUnpaid godoc
// @Summary Preview whether a booking would be unpaid
// @Description Dry-run of the balance check performed on create
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.PreviewUnpaidRequest true "Draft booking"
// @Success 200 {object} response.Envelope
// @Router /bookings/preview-unpaid [post]
func (h *BookingHandler) PreviewUnpaid(c *gin.Context) {
	var req service.PreviewUnpaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview payload"))
		return
	}
	preview, err := h.service.PreviewUnpaid(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Unmatched godoc
// @Summary List bookings not linked to any student
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/unmatched [get]
func (h *BookingHandler) Unmatched(c *gin.Context) {
	bookings, err := h.service.Unmatched(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

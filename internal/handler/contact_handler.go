package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ripetiamo/backoffice-api/internal/models"
	"github.com/ripetiamo/backoffice-api/internal/service"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
	"github.com/ripetiamo/backoffice-api/pkg/response"
)

// ContactHandler handles follow-up contact endpoints.
type ContactHandler struct {
	service *service.ContactService
}

// NewContactHandler constructs a contact handler.
func NewContactHandler(svc *service.ContactService) *ContactHandler {
	return &ContactHandler{service: svc}
}

// List godoc
// @Summary List contacts
// @Tags Contacts
// @Produce json
// @Param status query string false "Filter by follow-up status"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	var filter models.ContactFilter
	filter.Status = c.Query("status")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	contacts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, pagination)
}

// Buckets godoc
// @Summary Contacts partitioned into due and upcoming
// @Description Buckets relative to a reference day (defaults to today)
// @Tags Contacts
// @Produce json
// @Param day query string false "Reference day (YYYY-MM-DD)"
// @Param includeCompleted query bool false "Include completed contacts"
// @Success 200 {object} response.Envelope
// @Router /contacts/buckets [get]
func (h *ContactHandler) Buckets(c *gin.Context) {
	var day time.Time
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	includeCompleted, _ := strconv.ParseBool(c.Query("includeCompleted"))

	buckets, err := h.service.Buckets(c.Request.Context(), day, includeCompleted)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buckets, nil)
}

// Get godoc
// @Summary Get contact by id
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Router /contacts/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	contact, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Create godoc
// @Summary Create contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Param payload body service.CreateContactRequest true "Contact payload"
// @Success 201 {object} response.Envelope
// @Router /contacts [post]
func (h *ContactHandler) Create(c *gin.Context) {
	var req service.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}
	contact, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, contact)
}

// Update godoc
// @Summary Update contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body service.UpdateContactRequest true "Contact payload"
// @Success 200 {object} response.Envelope
// @Router /contacts/{id} [put]
func (h *ContactHandler) Update(c *gin.Context) {
	var req service.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}
	contact, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Delete godoc
// @Summary Delete contact
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 204
// @Router /contacts/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Advance godoc
// @Summary Mark contact as contacted and schedule next follow-up
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body service.TransitionRequest false "Optional explicit next follow-up"
// @Success 200 {object} response.Envelope
// @Router /contacts/{id}/advance [post]
func (h *ContactHandler) Advance(c *gin.Context) {
	var req service.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
			return
		}
	}
	contact, err := h.service.Advance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Pause godoc
// @Summary Pause follow-ups for a contact
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Router /contacts/{id}/pause [post]
func (h *ContactHandler) Pause(c *gin.Context) {
	contact, err := h.service.Pause(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Resume godoc
// @Summary Resume follow-ups for a paused contact
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Router /contacts/{id}/resume [post]
func (h *ContactHandler) Resume(c *gin.Context) {
	contact, err := h.service.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Complete godoc
// @Summary Close the follow-up cycle for a contact
// @Tags Contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Router /contacts/{id}/complete [post]
func (h *ContactHandler) Complete(c *gin.Context) {
	contact, err := h.service.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// RestartCycle godoc
// @Summary Restart the lead nurture cycle for a contact
// @Description Resets the contact to step zero of the lead cadence
// @Tags Contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body service.TransitionRequest false "Optional explicit next follow-up"
// @Success 200 {object} response.Envelope
// @Router /contacts/{id}/restart-cycle [post]
func (h *ContactHandler) RestartCycle(c *gin.Context) {
	var req service.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
			return
		}
	}
	result, err := h.service.RestartCycle(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ripetiamo/backoffice-api/internal/service"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
	"github.com/ripetiamo/backoffice-api/pkg/response"
)

// CallTypeHandler handles call type catalogue endpoints.
type CallTypeHandler struct {
	service *service.CallTypeService
}

// NewCallTypeHandler constructs a call type handler.
func NewCallTypeHandler(svc *service.CallTypeService) *CallTypeHandler {
	return &CallTypeHandler{service: svc}
}

// List godoc
// @Summary List call types
// @Tags CallTypes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /call-types [get]
func (h *CallTypeHandler) List(c *gin.Context) {
	callTypes, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, callTypes, nil)
}

// Get godoc
// @Summary Get call type by slug
// @Tags CallTypes
// @Produce json
// @Param slug path string true "Call type slug"
// @Success 200 {object} response.Envelope
// @Router /call-types/{slug} [get]
func (h *CallTypeHandler) Get(c *gin.Context) {
	callType, err := h.service.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, callType, nil)
}

// Create godoc
// @Summary Create call type
// @Tags CallTypes
// @Accept json
// @Produce json
// @Param payload body service.CallTypeRequest true "Call type payload"
// @Success 201 {object} response.Envelope
// @Router /call-types [post]
func (h *CallTypeHandler) Create(c *gin.Context) {
	var req service.CallTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid call type payload"))
		return
	}
	callType, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, callType)
}

// Update godoc
// @Summary Update call type
// @Tags CallTypes
// @Accept json
// @Produce json
// @Param slug path string true "Call type slug"
// @Param payload body service.CallTypeRequest true "Call type payload"
// @Success 200 {object} response.Envelope
// @Router /call-types/{slug} [put]
func (h *CallTypeHandler) Update(c *gin.Context) {
	var req service.CallTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid call type payload"))
		return
	}
	callType, err := h.service.Update(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, callType, nil)
}

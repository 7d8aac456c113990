package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ripetiamo/backoffice-api/internal/models"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
)

type callTypeRepository interface {
	ListAll(ctx context.Context) ([]models.CallType, error)
	FindBySlug(ctx context.Context, slug string) (*models.CallType, error)
	Create(ctx context.Context, callType *models.CallType) error
	Update(ctx context.Context, callType *models.CallType) error
}

// CallTypeRequest holds the payload for creating or updating call types.
type CallTypeRequest struct {
	Slug            string `json:"slug" validate:"required,lowercase"`
	Name            string `json:"name" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
	Active          bool   `json:"active"`
}

// CallTypeService handles lesson-format use-cases.
type CallTypeService struct {
	repo      callTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCallTypeService constructs the call type service.
func NewCallTypeService(repo callTypeRepository, validate *validator.Validate, logger *zap.Logger) *CallTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns every registered call type.
func (s *CallTypeService) List(ctx context.Context) ([]models.CallType, error) {
	callTypes, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list call types")
	}
	return callTypes, nil
}

// Get returns a call type by slug.
func (s *CallTypeService) Get(ctx context.Context, slug string) (*models.CallType, error) {
	callType, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "call type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load call type")
	}
	return callType, nil
}

// Create registers a new call type.
func (s *CallTypeService) Create(ctx context.Context, req CallTypeRequest) (*models.CallType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid call type payload")
	}
	if _, err := s.repo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slug already used")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
	}
	callType := &models.CallType{
		Slug:            req.Slug,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Active:          req.Active,
	}
	if err := s.repo.Create(ctx, callType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create call type")
	}
	return callType, nil
}

// Update modifies an existing call type. The slug is immutable, bookings
// reference it.
func (s *CallTypeService) Update(ctx context.Context, slug string, req CallTypeRequest) (*models.CallType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid call type payload")
	}
	callType, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	callType.Name = req.Name
	callType.DurationMinutes = req.DurationMinutes
	callType.Active = req.Active
	if err := s.repo.Update(ctx, callType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "call type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update call type")
	}
	return callType, nil
}

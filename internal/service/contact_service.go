package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ripetiamo/backoffice-api/internal/models"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
)

type contactRepository interface {
	List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, int, error)
	ListAll(ctx context.Context) ([]models.Contact, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id string) error
}

type leadCycleStore interface {
	Upsert(ctx context.Context, cycle *models.LeadCycle) error
}

// CreateContactRequest holds the payload for creating follow-up contacts.
type CreateContactRequest struct {
	Name           string     `json:"name" validate:"required"`
	Phone          string     `json:"phone"`
	Note           string     `json:"note"`
	StudentID      *string    `json:"student_id"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
}

// UpdateContactRequest holds the payload for updating contacts.
type UpdateContactRequest struct {
	Name           string     `json:"name" validate:"required"`
	Phone          string     `json:"phone"`
	Note           string     `json:"note"`
	StudentID      *string    `json:"student_id"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
}

// TransitionRequest optionally overrides the next follow-up date when
// advancing or restarting a cycle.
type TransitionRequest struct {
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
}

// RestartCycleResult returns both aggregates touched by a cycle restart.
type RestartCycleResult struct {
	Contact   models.Contact   `json:"contact"`
	LeadCycle models.LeadCycle `json:"lead_cycle"`
}

// ContactService handles follow-up contact use-cases, persisting the pure
// transitions computed by FollowUpService.
type ContactService struct {
	repo      contactRepository
	cycles    leadCycleStore
	followUps *FollowUpService
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewContactService constructs the contact service.
func NewContactService(repo contactRepository, cycles leadCycleStore, followUps *FollowUpService, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, now func() time.Time) *ContactService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ContactService{
		repo:      repo,
		cycles:    cycles,
		followUps: followUps,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       now,
	}
}

// List returns contacts and pagination metadata.
func (s *ContactService) List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, *models.Pagination, error) {
	contacts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return contacts, pagination, nil
}

// Get returns a contact by id.
func (s *ContactService) Get(ctx context.Context, id string) (*models.Contact, error) {
	contact, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact")
	}
	return contact, nil
}

// Buckets partitions the full contact set relative to the reference day.
func (s *ContactService) Buckets(ctx context.Context, referenceDay time.Time, includeCompleted bool) (*models.ContactBuckets, error) {
	contacts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contacts")
	}
	if referenceDay.IsZero() {
		referenceDay = s.now()
	}
	buckets := s.followUps.BucketContacts(contacts, referenceDay, includeCompleted)
	return &buckets, nil
}

// Create registers a new contact.
func (s *ContactService) Create(ctx context.Context, req CreateContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}
	contact := &models.Contact{
		Name:           req.Name,
		Phone:          req.Phone,
		Note:           req.Note,
		StudentID:      req.StudentID,
		Status:         models.ContactStatusActive,
		NextFollowUpAt: req.NextFollowUpAt,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contact")
	}
	s.invalidate(ctx)
	return contact, nil
}

// Update modifies contact details without touching its status.
func (s *ContactService) Update(ctx context.Context, id string, req UpdateContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	contact.Name = req.Name
	contact.Phone = req.Phone
	contact.Note = req.Note
	contact.StudentID = req.StudentID
	contact.NextFollowUpAt = req.NextFollowUpAt
	if err := s.repo.Update(ctx, contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact")
	}
	s.invalidate(ctx)
	return contact, nil
}

// Delete removes a contact.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "contact id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contact")
	}
	s.invalidate(ctx)
	return nil
}

// Advance records a manual follow-up interaction.
func (s *ContactService) Advance(ctx context.Context, id string, req TransitionRequest) (*models.Contact, error) {
	return s.apply(ctx, id, "advance", func(c models.Contact, now time.Time) models.Contact {
		return s.followUps.Advance(c, req.NextFollowUpAt, now)
	})
}

// Pause drops a contact out of the follow-up buckets.
func (s *ContactService) Pause(ctx context.Context, id string) (*models.Contact, error) {
	return s.apply(ctx, id, "pause", func(c models.Contact, _ time.Time) models.Contact {
		return s.followUps.Pause(c)
	})
}

// Resume reactivates a paused contact.
func (s *ContactService) Resume(ctx context.Context, id string) (*models.Contact, error) {
	return s.apply(ctx, id, "resume", func(c models.Contact, _ time.Time) models.Contact {
		return s.followUps.Resume(c)
	})
}

// Complete closes a contact for good.
func (s *ContactService) Complete(ctx context.Context, id string) (*models.Contact, error) {
	return s.apply(ctx, id, "complete", func(c models.Contact, _ time.Time) models.Contact {
		return s.followUps.Complete(c)
	})
}

// RestartCycle re-enters the contact's lead into the automated nurture
// sequence and bumps the contact's own schedule. Both writes happen in the
// same call so the two cadences never observe a half-applied restart.
func (s *ContactService) RestartCycle(ctx context.Context, id string, req TransitionRequest) (*RestartCycleResult, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, cycle, err := s.followUps.RestartLeadCycle(*contact, req.NextFollowUpAt, now)
	if err != nil {
		return nil, err
	}
	if err := s.cycles.Upsert(ctx, &cycle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert lead cycle")
	}
	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact")
	}
	s.metrics.RecordTransition("restart_cycle")
	s.invalidate(ctx)
	return &RestartCycleResult{Contact: next, LeadCycle: cycle}, nil
}

func (s *ContactService) apply(ctx context.Context, id, kind string, fn func(models.Contact, time.Time) models.Contact) (*models.Contact, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := fn(*contact, s.now())
	if err := s.repo.Update(ctx, &next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact")
	}
	s.metrics.RecordTransition(kind)
	s.invalidate(ctx)
	return &next, nil
}

func (s *ContactService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "contacts:*"); err != nil {
		s.logger.Warn("contact cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

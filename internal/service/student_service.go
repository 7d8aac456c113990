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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	TopUpHours(ctx context.Context, id string, hours float64, ts time.Time) error
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	FullName   string  `json:"full_name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      string  `json:"phone"`
	HoursPaid  float64 `json:"hours_paid" validate:"gte=0"`
	HourlyRate float64 `json:"hourly_rate" validate:"gte=0"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	FullName   string  `json:"full_name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      string  `json:"phone"`
	HourlyRate float64 `json:"hourly_rate" validate:"gte=0"`
	Active     bool    `json:"active"`
}

// TopUpRequest adds prepaid hours to a student's balance.
type TopUpRequest struct {
	Hours float64 `json:"hours" validate:"required,gt=0"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	ledger    *LedgerService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, ledger *LedgerService, cache *CacheService, validate *validator.Validate, logger *zap.Logger, now func() time.Time) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &StudentService{repo: repo, ledger: ledger, cache: cache, validator: validate, logger: logger, now: now}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Balance returns the student's prepaid balance with the remaining value
// resolved on read, the same way the ledger resolves it.
func (s *StudentService) Balance(ctx context.Context, id string) (*models.StudentBalance, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	minutes := s.ledger.RemainingMinutes(*student)
	return &models.StudentBalance{
		StudentID:        student.ID,
		HoursPaid:        student.HoursPaid,
		HoursConsumed:    student.HoursConsumed,
		RemainingHours:   float64(minutes) / 60,
		RemainingMinutes: minutes,
		HourlyRate:       student.HourlyRate,
	}, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	remaining := req.HoursPaid
	student := &models.Student{
		FullName:           req.FullName,
		Email:              req.Email,
		Phone:              req.Phone,
		HoursPaid:          req.HoursPaid,
		RemainingPaidHours: &remaining,
		HourlyRate:         req.HourlyRate,
		Active:             true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidate(ctx)
	return student, nil
}

// Update modifies an existing student. Balance fields are not writable here;
// top-ups and lesson completion maintain them.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student.FullName = req.FullName
	student.Email = req.Email
	student.Phone = req.Phone
	student.HourlyRate = req.HourlyRate
	student.Active = req.Active
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.invalidate(ctx)
	return student, nil
}

// TopUp adds prepaid hours and returns the refreshed balance.
func (s *StudentService) TopUp(ctx context.Context, id string, req TopUpRequest) (*models.StudentBalance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid top-up payload")
	}
	if err := s.repo.TopUpHours(ctx, id, req.Hours, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to top up hours")
	}
	s.invalidate(ctx)
	return s.Balance(ctx, id)
}

func (s *StudentService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "bookings:*"); err != nil {
		s.logger.Warn("booking cache invalidation failed", zap.Error(err))
	}
}

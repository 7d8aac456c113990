package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ripetiamo/backoffice-api/internal/models"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
)

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	ListActiveFrom(ctx context.Context, from time.Time) ([]models.Booking, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus, ts time.Time) error
}

type bookingStudentReader interface {
	ListAll(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ConsumeHours(ctx context.Context, id string, hours float64, ts time.Time) error
}

type bookingCallTypeReader interface {
	ListAll(ctx context.Context) ([]models.CallType, error)
}

// CreateBookingRequest holds the payload for creating bookings. Either a
// student id or an email is expected; with neither the booking is stored
// unmatched and flagged for manual attribution.
type CreateBookingRequest struct {
	SlotID          string    `json:"slot_id"`
	StudentID       *string   `json:"student_id"`
	StudentEmail    string    `json:"student_email" validate:"omitempty,email"`
	CallTypeSlug    string    `json:"call_type_slug" validate:"required"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,gt=0"`
	Note            string    `json:"note"`
	ConfirmUnpaid   bool      `json:"confirm_unpaid"`
}

// UpdateBookingRequest holds the payload for updating bookings.
type UpdateBookingRequest struct {
	StudentID       *string   `json:"student_id"`
	StudentEmail    string    `json:"student_email" validate:"omitempty,email"`
	CallTypeSlug    string    `json:"call_type_slug" validate:"required"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,gt=0"`
	Note            string    `json:"note"`
}

// PreviewUnpaidRequest asks whether a draft booking would exceed the
// student's prepaid balance, without persisting anything.
type PreviewUnpaidRequest struct {
	StudentID       *string   `json:"student_id"`
	StudentEmail    string    `json:"student_email" validate:"omitempty,email"`
	CallTypeSlug    string    `json:"call_type_slug" validate:"required"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,gt=0"`
}

// UnpaidPreview is the answer to a preview request.
type UnpaidPreview struct {
	WouldBeUnpaid    bool `json:"would_be_unpaid"`
	RemainingMinutes int  `json:"remaining_minutes"`
	DurationMinutes  int  `json:"duration_minutes"`
}

// BookingService handles booking use-cases and keeps the prepaid ledger in
// the loop on every write.
type BookingService struct {
	repo      bookingRepository
	students  bookingStudentReader
	callTypes bookingCallTypeReader
	ledger    *LedgerService
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs the booking service.
func NewBookingService(repo bookingRepository, students bookingStudentReader, callTypes bookingCallTypeReader, ledger *LedgerService, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, now func() time.Time) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BookingService{
		repo:      repo,
		students:  students,
		callTypes: callTypes,
		ledger:    ledger,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       now,
	}
}

// List returns bookings with pagination, each annotated with its ledger
// state. The unpaid set is replayed over the full active window so the flags
// stay consistent regardless of which page is requested.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingView, *models.Pagination, error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	now := s.now()
	students, callTypes, active, err := s.ledgerSnapshot(ctx, now)
	if err != nil {
		return nil, nil, err
	}
	unpaid := s.ledger.ComputeUnpaidSet(students, callTypes, active, now)
	unmatched := make(map[string]struct{})
	for _, b := range s.ledger.UnmatchedBookings(students, active, now) {
		unmatched[s.ledger.BookingKey(b)] = struct{}{}
	}
	s.metrics.RecordLedgerReplay()

	views := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		key := s.ledger.BookingKey(b)
		_, isUnpaid := unpaid[key]
		_, isUnmatched := unmatched[key]
		views = append(views, models.BookingView{Booking: b, IsUnpaid: isUnpaid, Unmatched: isUnmatched})
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
	return views, pagination, nil
}

// Get returns a single booking with its ledger annotation.
func (s *BookingService) Get(ctx context.Context, id string) (*models.BookingView, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "booking id is required")
	}
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	now := s.now()
	students, callTypes, active, err := s.ledgerSnapshot(ctx, now)
	if err != nil {
		return nil, err
	}
	unpaid := s.ledger.ComputeUnpaidSet(students, callTypes, active, now)
	s.metrics.RecordLedgerReplay()

	key := s.ledger.BookingKey(*booking)
	_, isUnpaid := unpaid[key]
	return &models.BookingView{Booking: *booking, IsUnpaid: isUnpaid}, nil
}

// PreviewUnpaid answers whether a draft would land unpaid. The draft is not
// persisted; the answer matches what Create would decide for the same input.
func (s *BookingService) PreviewUnpaid(ctx context.Context, req PreviewUnpaidRequest) (*UnpaidPreview, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview payload")
	}

	draft := models.Booking{
		StudentID:       req.StudentID,
		StudentEmail:    req.StudentEmail,
		CallTypeSlug:    req.CallTypeSlug,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Status:          models.BookingStatusConfirmed,
	}

	now := s.now()
	student, err := s.resolveStudent(ctx, req.StudentID, req.StudentEmail)
	if err != nil {
		return nil, err
	}

	callTypes, err := s.callTypes.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load call types")
	}
	duration := s.ledger.ResolveDuration(draft, indexCallTypes(callTypes))

	preview := &UnpaidPreview{DurationMinutes: duration}
	if student == nil {
		// Unmatched drafts never count against any ledger.
		return preview, nil
	}

	existing, err := s.repo.ListActiveFrom(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active bookings")
	}
	preview.RemainingMinutes = s.ledger.RemainingMinutes(*student)
	preview.WouldBeUnpaid = s.ledger.WouldBeUnpaid(*student, callTypes, existing, draft, now)
	s.metrics.RecordLedgerReplay()
	return preview, nil
}

// Create persists a new booking. When the draft would exceed the student's
// prepaid balance the call is rejected with an unpaid-booking conflict unless
// the admin explicitly confirmed; the stored booking then carries the flag.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.BookingView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	now := s.now()
	student, err := s.resolveStudent(ctx, req.StudentID, req.StudentEmail)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		SlotID:          req.SlotID,
		StudentEmail:    req.StudentEmail,
		CallTypeSlug:    req.CallTypeSlug,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Status:          models.BookingStatusConfirmed,
		Note:            req.Note,
	}
	if student != nil {
		booking.StudentID = &student.ID
	} else if req.StudentID != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	wouldBeUnpaid := false
	if student != nil {
		callTypes, err := s.callTypes.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load call types")
		}
		existing, err := s.repo.ListActiveFrom(ctx, now)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active bookings")
		}
		wouldBeUnpaid = s.ledger.WouldBeUnpaid(*student, callTypes, existing, *booking, now)
		s.metrics.RecordLedgerReplay()
		if wouldBeUnpaid && !req.ConfirmUnpaid {
			return nil, appErrors.Clone(appErrors.ErrUnpaidBooking, "booking exceeds the student's prepaid balance")
		}
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	s.invalidate(ctx)

	return &models.BookingView{Booking: *booking, IsUnpaid: wouldBeUnpaid, Unmatched: student == nil}, nil
}

// Update modifies an existing booking.
func (s *BookingService) Update(ctx context.Context, id string, req UpdateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	booking.StudentID = req.StudentID
	booking.StudentEmail = req.StudentEmail
	booking.CallTypeSlug = req.CallTypeSlug
	booking.StartsAt = req.StartsAt
	booking.DurationMinutes = req.DurationMinutes
	booking.Note = req.Note

	if err := s.repo.Update(ctx, booking); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}
	s.invalidate(ctx)
	return booking, nil
}

// Cancel marks a booking cancelled. Cancelled bookings leave the ledger
// replay immediately, so any later booking they displaced becomes paid again.
func (s *BookingService) Cancel(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.BookingStatusCancelled)
}

// Complete marks a booking completed and consumes the lesson's hours from the
// student's balance in the same flow.
func (s *BookingService) Complete(ctx context.Context, id string) error {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.Status == models.BookingStatusCompleted {
		return nil
	}
	if booking.Status == models.BookingStatusCancelled {
		return appErrors.Clone(appErrors.ErrConflict, "cancelled bookings cannot be completed")
	}

	now := s.now()
	if err := s.repo.UpdateStatus(ctx, id, models.BookingStatusCompleted, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete booking")
	}

	if booking.StudentID != nil && *booking.StudentID != "" {
		callTypes, err := s.callTypes.ListAll(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load call types")
		}
		minutes := s.ledger.ResolveDuration(*booking, indexCallTypes(callTypes))
		if err := s.students.ConsumeHours(ctx, *booking.StudentID, float64(minutes)/60, now); err != nil {
			s.logger.Error("failed to consume hours after completion",
				zap.String("booking_id", id), zap.String("student_id", *booking.StudentID), zap.Error(err))
		}
	}
	s.invalidate(ctx)
	return nil
}

// Unmatched lists future active bookings that could not be attributed to any
// registered student.
func (s *BookingService) Unmatched(ctx context.Context) ([]models.Booking, error) {
	now := s.now()
	students, _, active, err := s.ledgerSnapshot(ctx, now)
	if err != nil {
		return nil, err
	}
	return s.ledger.UnmatchedBookings(students, active, now), nil
}

// UnpaidKeys exposes the current unpaid set; the dashboard and reports reuse
// the exact same replay the listing endpoints use.
func (s *BookingService) UnpaidKeys(ctx context.Context) (map[string]struct{}, []models.Booking, error) {
	now := s.now()
	students, callTypes, active, err := s.ledgerSnapshot(ctx, now)
	if err != nil {
		return nil, nil, err
	}
	unpaid := s.ledger.ComputeUnpaidSet(students, callTypes, active, now)
	s.metrics.RecordLedgerReplay()

	flagged := make([]models.Booking, 0, len(unpaid))
	for _, b := range active {
		if _, ok := unpaid[s.ledger.BookingKey(b)]; ok {
			flagged = append(flagged, b)
		}
	}
	return unpaid, flagged, nil
}

func (s *BookingService) transition(ctx context.Context, id string, status models.BookingStatus) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "booking id is required")
	}
	if err := s.repo.UpdateStatus(ctx, id, status, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}
	s.invalidate(ctx)
	return nil
}

func (s *BookingService) ledgerSnapshot(ctx context.Context, now time.Time) ([]models.Student, []models.CallType, []models.Booking, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	callTypes, err := s.callTypes.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load call types")
	}
	active, err := s.repo.ListActiveFrom(ctx, now)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active bookings")
	}
	return students, callTypes, active, nil
}

func (s *BookingService) resolveStudent(ctx context.Context, id *string, email string) (*models.Student, error) {
	if id != nil && *id != "" {
		student, err := s.students.FindByID(ctx, *id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		return student, nil
	}
	needle := strings.ToLower(strings.TrimSpace(email))
	if needle == "" {
		return nil, nil
	}
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	for i := range students {
		if strings.ToLower(strings.TrimSpace(students[i].Email)) == needle {
			return &students[i], nil
		}
	}
	return nil, nil
}

func (s *BookingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "bookings:*"); err != nil {
		s.logger.Warn("booking cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ripetiamo/backoffice-api/internal/dates"
	"github.com/ripetiamo/backoffice-api/internal/dto"
	"github.com/ripetiamo/backoffice-api/internal/models"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
)

type dashboardContactLister interface {
	ListAll(ctx context.Context) ([]models.Contact, error)
}

type dashboardBookingProvider interface {
	UnpaidKeys(ctx context.Context) (map[string]struct{}, []models.Booking, error)
	Unmatched(ctx context.Context) ([]models.Booking, error)
}

type dashboardBookingLister interface {
	ListActiveFrom(ctx context.Context, from time.Time) ([]models.Booking, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	DueHeadSize      int
	UpcomingLimit    int
	MonthGridWeeks   int
	IncludeCompleted bool
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Contacts  dashboardContactLister
	Bookings  dashboardBookingProvider
	Calendar  dashboardBookingLister
	FollowUps *FollowUpService
	Ledger    *LedgerService
	Cache     *CacheService
	Logger    *zap.Logger
	Now       func() time.Time
	Config    DashboardServiceConfig
}

// DashboardService composes the admin home screen: due follow-ups, the
// unpaid booking set, the month grid and the upcoming lessons, cached as one
// payload per reference day.
type DashboardService struct {
	contacts  dashboardContactLister
	bookings  dashboardBookingProvider
	calendar  dashboardBookingLister
	followUps *FollowUpService
	ledger    *LedgerService
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.DueHeadSize <= 0 {
		cfg.DueHeadSize = 5
	}
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 10
	}
	if cfg.MonthGridWeeks <= 0 {
		cfg.MonthGridWeeks = 6
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DashboardService{
		contacts:  params.Contacts,
		bookings:  params.Bookings,
		calendar:  params.Calendar,
		followUps: params.FollowUps,
		ledger:    params.Ledger,
		cache:     params.Cache,
		logger:    logger,
		now:       now,
		cfg:       cfg,
	}
}

// Overview returns the composed dashboard payload and whether it came from
// cache.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardOverview, bool, error) {
	now := s.now()
	cacheKey := fmt.Sprintf("dashboard:overview:%s", dates.DayKey(now))

	var cached dto.DashboardOverview
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	contacts, err := s.contacts.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contacts")
	}
	buckets := s.followUps.BucketContacts(contacts, now, s.cfg.IncludeCompleted)

	head := buckets.Due
	if len(head) > s.cfg.DueHeadSize {
		head = head[:s.cfg.DueHeadSize]
	}

	unpaidKeys, unpaidBookings, err := s.bookings.UnpaidKeys(ctx)
	if err != nil {
		return nil, false, err
	}
	unmatched, err := s.bookings.Unmatched(ctx)
	if err != nil {
		return nil, false, err
	}

	keys := make([]string, 0, len(unpaidKeys))
	views := make([]models.BookingView, 0, len(unpaidBookings))
	for _, b := range unpaidBookings {
		keys = append(keys, s.ledger.BookingKey(b))
		views = append(views, models.BookingView{Booking: b, IsUnpaid: true})
	}

	upcoming, err := s.calendar.ListActiveFrom(ctx, now)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upcoming bookings")
	}
	month := s.monthView(now, upcoming)
	if len(upcoming) > s.cfg.UpcomingLimit {
		upcoming = upcoming[:s.cfg.UpcomingLimit]
	}

	overview := &dto.DashboardOverview{
		ReferenceDay: dates.DayKey(now),
		DueContacts: dto.DueContactsSummary{
			Total: len(buckets.Due),
			Head:  head,
		},
		UnpaidBookings: dto.UnpaidSummary{
			Total:     len(unpaidKeys),
			Keys:      keys,
			Bookings:  views,
			Unmatched: len(unmatched),
		},
		UpcomingBookings: upcoming,
		Month:            month,
		GeneratedAt:      now,
	}

	if err := s.cache.Set(ctx, cacheKey, overview, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard overview", zap.Error(err))
	}
	return overview, false, nil
}

// Month returns the calendar grid for the month containing the given day,
// with per-day booking counts.
func (s *DashboardService) Month(ctx context.Context, day time.Time) (*dto.MonthView, error) {
	if day.IsZero() {
		day = s.now()
	}
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	bookings, err := s.calendar.ListActiveFrom(ctx, monthStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	view := s.monthView(day, bookings)
	return &view, nil
}

func (s *DashboardService) monthView(day time.Time, bookings []models.Booking) dto.MonthView {
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	cells := dates.MonthGrid(monthStart, s.cfg.MonthGridWeeks)

	perDay := make(map[string]int)
	for _, b := range bookings {
		if key := dates.DayKey(b.StartsAt); key != "" {
			perDay[key]++
		}
	}
	return dto.MonthView{
		Month:    monthStart.Format("2006-01"),
		Cells:    cells,
		Bookings: perDay,
	}
}

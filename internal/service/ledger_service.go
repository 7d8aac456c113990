package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ripetiamo/backoffice-api/internal/models"
)

// DefaultLessonMinutes is used when neither the booking nor its call type
// declares a duration.
const DefaultLessonMinutes = 60

// LedgerConfig tunes ledger behaviour.
type LedgerConfig struct {
	DefaultDurationMinutes int
}

// LedgerService decides which bookings are covered by a student's prepaid
// hours. Consumption is first-scheduled-first-paid: the earliest bookings
// drain the balance, so a shortfall always lands on the latest bookings of a
// student's sequence. All methods are pure; the current instant is passed in
// by the caller.
type LedgerService struct {
	defaultDuration int
	logger          *zap.Logger
}

// NewLedgerService constructs the service.
func NewLedgerService(cfg LedgerConfig, logger *zap.Logger) *LedgerService {
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = DefaultLessonMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{defaultDuration: cfg.DefaultDurationMinutes, logger: logger}
}

// BookingKey returns a stable identity for a booking: id, falling back to
// slot id, falling back to the RFC3339 start instant. Participating bookings
// always have a parseable start, so the chain never ends empty for them.
func (s *LedgerService) BookingKey(b models.Booking) string {
	if b.ID != "" {
		return b.ID
	}
	if b.SlotID != "" {
		return b.SlotID
	}
	if !b.StartsAt.IsZero() {
		return b.StartsAt.Format(time.RFC3339)
	}
	return ""
}

// ResolveDuration returns the booking duration in minutes: the explicit
// positive value, else the registered call-type duration, else the default.
func (s *LedgerService) ResolveDuration(b models.Booking, callTypes map[string]models.CallType) int {
	if b.DurationMinutes > 0 {
		return b.DurationMinutes
	}
	if ct, ok := callTypes[b.CallTypeSlug]; ok && ct.DurationMinutes > 0 {
		return ct.DurationMinutes
	}
	return s.defaultDuration
}

// RemainingMinutes converts a student's balance to integer minutes. The
// derived hours_paid - hours_consumed value is canonical; the stored
// remaining_paid_hours column is used when present as a projection of the
// same quantity. Negative and non-finite balances clamp to zero.
func (s *LedgerService) RemainingMinutes(student models.Student) int {
	hours := student.HoursPaid - student.HoursConsumed
	if student.RemainingPaidHours != nil {
		hours = *student.RemainingPaidHours
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return 0
	}
	return int(math.Round(hours * 60))
}

// ComputeUnpaidSet replays every student's future active bookings against
// their prepaid balance and returns the keys of the bookings that are not
// covered. Bookings that cannot be attributed to any student are excluded;
// use UnmatchedBookings to surface them.
func (s *LedgerService) ComputeUnpaidSet(students []models.Student, callTypes []models.CallType, bookings []models.Booking, now time.Time) map[string]struct{} {
	byID, byEmail := indexStudents(students)
	ctBySlug := indexCallTypes(callTypes)

	groups := make(map[string][]models.Booking)
	for _, b := range bookings {
		if !participates(b, now) {
			continue
		}
		sid := attributeBooking(b, byEmail)
		if sid == "" {
			continue
		}
		groups[sid] = append(groups[sid], b)
	}

	unpaid := make(map[string]struct{})
	for sid, group := range groups {
		student, ok := byID[sid]
		if !ok {
			continue
		}
		sortByStart(group)
		remaining := s.RemainingMinutes(student)
		for _, b := range group {
			duration := s.ResolveDuration(b, ctBySlug)
			if remaining >= duration {
				remaining -= duration
				continue
			}
			// Once the balance is exhausted no later booking in this
			// student's sequence may slip through, even a shorter one.
			remaining = 0
			unpaid[s.BookingKey(b)] = struct{}{}
		}
	}
	return unpaid
}

// WouldBeUnpaid previews whether a draft booking would land in the unpaid
// region once persisted. The draft is inserted at its chronological position
// among the student's future active bookings, so the answer matches what
// ComputeUnpaidSet reports after the draft is actually saved.
func (s *LedgerService) WouldBeUnpaid(student models.Student, callTypes []models.CallType, existing []models.Booking, draft models.Booking, now time.Time) bool {
	if draft.StartsAt.IsZero() || draft.StartsAt.Before(now) {
		return false
	}
	ctBySlug := indexCallTypes(callTypes)
	email := strings.ToLower(strings.TrimSpace(student.Email))

	type entry struct {
		booking models.Booking
		isDraft bool
	}
	seq := make([]entry, 0, len(existing)+1)
	for _, b := range existing {
		if !participates(b, now) {
			continue
		}
		if !bookingBelongsTo(b, student.ID, email) {
			continue
		}
		seq = append(seq, entry{booking: b})
	}
	seq = append(seq, entry{booking: draft, isDraft: true})
	sort.SliceStable(seq, func(i, j int) bool {
		return seq[i].booking.StartsAt.Before(seq[j].booking.StartsAt)
	})

	remaining := s.RemainingMinutes(student)
	for _, e := range seq {
		duration := s.ResolveDuration(e.booking, ctBySlug)
		if remaining >= duration {
			remaining -= duration
			continue
		}
		remaining = 0
		if e.isDraft {
			return true
		}
	}
	return false
}

// UnmatchedBookings returns the future active bookings that could not be
// attributed to any registered student. They never count against a ledger and
// must be shown to the admin as requiring manual matching.
func (s *LedgerService) UnmatchedBookings(students []models.Student, bookings []models.Booking, now time.Time) []models.Booking {
	_, byEmail := indexStudents(students)
	unmatched := make([]models.Booking, 0)
	for _, b := range bookings {
		if !participates(b, now) {
			continue
		}
		if attributeBooking(b, byEmail) == "" {
			unmatched = append(unmatched, b)
		}
	}
	sortByStart(unmatched)
	return unmatched
}

// participates reports whether a booking takes part in unpaid detection:
// not completed or cancelled, a parseable start, and scheduled at or after
// the reference instant.
func participates(b models.Booking, now time.Time) bool {
	if b.Status == models.BookingStatusCompleted || b.Status == models.BookingStatusCancelled {
		return false
	}
	if b.StartsAt.IsZero() {
		return false
	}
	return !b.StartsAt.Before(now)
}

func attributeBooking(b models.Booking, byEmail map[string]string) string {
	if b.StudentID != nil && *b.StudentID != "" {
		return *b.StudentID
	}
	if email := strings.ToLower(strings.TrimSpace(b.StudentEmail)); email != "" {
		return byEmail[email]
	}
	return ""
}

func bookingBelongsTo(b models.Booking, studentID, email string) bool {
	if b.StudentID != nil && *b.StudentID != "" {
		return *b.StudentID == studentID
	}
	bEmail := strings.ToLower(strings.TrimSpace(b.StudentEmail))
	return email != "" && bEmail == email
}

func indexStudents(students []models.Student) (map[string]models.Student, map[string]string) {
	byID := make(map[string]models.Student, len(students))
	byEmail := make(map[string]string, len(students))
	for _, st := range students {
		byID[st.ID] = st
		if email := strings.ToLower(strings.TrimSpace(st.Email)); email != "" {
			byEmail[email] = st.ID
		}
	}
	return byID, byEmail
}

func indexCallTypes(callTypes []models.CallType) map[string]models.CallType {
	bySlug := make(map[string]models.CallType, len(callTypes))
	for _, ct := range callTypes {
		bySlug[ct.Slug] = ct
	}
	return bySlug
}

func sortByStart(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].StartsAt.Before(bookings[j].StartsAt)
	})
}

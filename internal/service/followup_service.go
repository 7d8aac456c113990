package service

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/ripetiamo/backoffice-api/internal/dates"
	"github.com/ripetiamo/backoffice-api/internal/models"
	appErrors "github.com/ripetiamo/backoffice-api/pkg/errors"
)

// DefaultFollowUpOffsetDays is the fallback gap between an admin interaction
// and the next manual follow-up.
const DefaultFollowUpOffsetDays = 3

// LeadCycleOffsets are the day gaps of the automated nurture sequence,
// indexed by step. Restarting a cycle always re-enters at step 0.
var LeadCycleOffsets = []int{1, 2, 7, 30}

// FollowUpConfig tunes bucketing and transition behaviour.
type FollowUpConfig struct {
	DefaultOffsetDays int
	UpcomingPageSize  int
}

// FollowUpService classifies contacts into due/upcoming/completed buckets and
// applies status transitions. Every method is a pure function over its
// inputs; the current instant is injected by the caller and mutations are
// returned as proposed next-states for the caller to persist.
type FollowUpService struct {
	defaultOffsetDays int
	upcomingPageSize  int
	logger            *zap.Logger
}

// NewFollowUpService constructs the service.
func NewFollowUpService(cfg FollowUpConfig, logger *zap.Logger) *FollowUpService {
	if cfg.DefaultOffsetDays <= 0 {
		cfg.DefaultOffsetDays = DefaultFollowUpOffsetDays
	}
	if cfg.UpcomingPageSize <= 0 {
		cfg.UpcomingPageSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowUpService{
		defaultOffsetDays: cfg.DefaultOffsetDays,
		upcomingPageSize:  cfg.UpcomingPageSize,
		logger:            logger,
	}
}

// BucketContacts partitions contacts relative to referenceDay. Due holds the
// active contacts scheduled for that day or any earlier one, plus active
// contacts that were never scheduled; upcoming holds the rest of the active
// set, capped for display with the full count reported alongside. Dropped
// contacts never bucket; completed ones appear only when requested.
func (s *FollowUpService) BucketContacts(contacts []models.Contact, referenceDay time.Time, includeCompleted bool) models.ContactBuckets {
	dayEnd := dates.AddDays(dates.StartOfDay(referenceDay), 1)

	buckets := models.ContactBuckets{
		Due:      make([]models.Contact, 0),
		Upcoming: make([]models.Contact, 0),
	}
	upcoming := make([]models.Contact, 0)

	for _, c := range contacts {
		switch c.Status {
		case models.ContactStatusActive:
			// Unscheduled contacts surface immediately rather than
			// disappearing from both buckets.
			if c.NextFollowUpAt == nil || !c.NextFollowUpAt.After(dayEnd) {
				buckets.Due = append(buckets.Due, c)
			} else {
				upcoming = append(upcoming, c)
			}
		case models.ContactStatusCompleted:
			if includeCompleted {
				buckets.Completed = append(buckets.Completed, c)
			}
		}
	}

	sortByNextFollowUp(buckets.Due)
	sortByNextFollowUp(upcoming)
	sort.SliceStable(buckets.Completed, func(i, j int) bool {
		return buckets.Completed[i].UpdatedAt.After(buckets.Completed[j].UpdatedAt)
	})

	buckets.UpcomingTotal = len(upcoming)
	if len(upcoming) > s.upcomingPageSize {
		upcoming = upcoming[:s.upcomingPageSize]
	}
	buckets.Upcoming = upcoming
	return buckets
}

// Advance records a manual follow-up: the contact was just contacted and the
// next check lands on the explicit date when given, or the default offset
// from now otherwise. Past explicit dates are accepted, the admin may be
// backfilling.
func (s *FollowUpService) Advance(contact models.Contact, explicitNext *time.Time, now time.Time) models.Contact {
	next := dates.AddDays(now, s.defaultOffsetDays)
	if explicitNext != nil {
		next = *explicitNext
	}
	contact.Status = models.ContactStatusActive
	contact.LastContactedAt = &now
	contact.NextFollowUpAt = &next
	return contact
}

// Pause drops a contact out of the buckets without touching its schedule, so
// a later Resume puts it back where it was.
func (s *FollowUpService) Pause(contact models.Contact) models.Contact {
	contact.Status = models.ContactStatusDropped
	return contact
}

// Resume reactivates a dropped contact. No other field changes; the contact
// reappears in whichever bucket its existing schedule places it.
func (s *FollowUpService) Resume(contact models.Contact) models.Contact {
	contact.Status = models.ContactStatusActive
	return contact
}

// Complete marks a contact as successfully closed. Completed is terminal.
func (s *FollowUpService) Complete(contact models.Contact) models.Contact {
	contact.Status = models.ContactStatusCompleted
	return contact
}

// RestartLeadCycle handles "the contact responded": it re-enters the lead
// into the automated nurture sequence at step 0 and independently bumps the
// contact's own manual schedule. The two cadences stay separate on purpose;
// collapsing them would reset one when the admin only meant to touch the
// other. The unconditional reset to step 0 mirrors the product's full
// re-nurture policy.
func (s *FollowUpService) RestartLeadCycle(contact models.Contact, explicitNext *time.Time, now time.Time) (models.Contact, models.LeadCycle, error) {
	phone := NormalizePhone(contact.Phone)
	if phone == "" {
		return contact, models.LeadCycle{}, appErrors.Clone(appErrors.ErrInvalidArgument, "contact has no usable phone number")
	}

	cycle := models.LeadCycle{
		Phone:           phone,
		Status:          models.LeadCycleStatusActive,
		CurrentStep:     0,
		LastContactedAt: now,
		NextFollowUpAt:  dates.AddDays(now, LeadCycleOffsets[0]),
	}

	contact = s.Advance(contact, explicitNext, now)
	return contact, cycle, nil
}

// NormalizePhone canonicalises a phone number into +<digits> form: existing
// country-code prefixes are kept, a 00 prefix becomes +, bare digits get a +
// prepended. It is the join key between contacts, lead cycles and the
// messaging channel, so every caller must use it identically or cycles fork.
func NormalizePhone(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "00"):
		return "+" + cleaned[2:]
	default:
		return "+" + cleaned
	}
}

func sortByNextFollowUp(contacts []models.Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i].NextFollowUpAt, contacts[j].NextFollowUpAt
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
}

package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/varsla/varsla/pkg/recurrence"
)

var (
	ErrInvalidTimeRange = errors.New("event end must not be before start")
	ErrInvalidSeriesEnd = errors.New("series end must not be before event start")
	ErrNegativeReminder = errors.New("reminder minutes must not be negative")
	ErrEventNotFound    = errors.New("event not found")
	ErrMissingTitle     = errors.New("event title is required")
)

type Event struct {
	Uid             uuid.UUID
	TenantId        int
	Title           string
	Description     string
	Location        string
	StartTime       time.Time
	EndTime         time.Time
	AllDay          bool
	RecurrenceRule  string     // RFC 5545 RRULE body; empty for one-time events
	RecurrenceEnd   *time.Time // exclusive series bound; occurrences at or after it do not exist
	ReminderMinutes int        // 0 disables reminders
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Members    []Member
	Exceptions []Exception
}

// Schedule is the tagged one-time/recurring variant of an event's timing.
// Switching on it keeps both reminder evaluation branches exhaustive instead
// of re-checking the rule field for emptiness everywhere.
type Schedule interface {
	isSchedule()
}

type OneTime struct {
	Start time.Time
	End   time.Time
}

type Series struct {
	Start time.Time
	End   time.Time
	Rule  string
	Until *time.Time
}

func (OneTime) isSchedule() {}
func (Series) isSchedule()  {}

func (e Event) Schedule() Schedule {
	if e.RecurrenceRule == "" {
		return OneTime{Start: e.StartTime, End: e.EndTime}
	}
	return Series{Start: e.StartTime, End: e.EndTime, Rule: e.RecurrenceRule, Until: e.RecurrenceEnd}
}

// Duration returns the length of a single occurrence.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// InvolvedUserIds returns the users that receive reminders for this event.
func (e Event) InvolvedUserIds() []int {
	ids := make([]int, 0, len(e.Members))
	for _, m := range e.Members {
		if m.Participation == ParticipationInvolved {
			ids = append(ids, m.UserId)
		}
	}
	return ids
}

// Validate checks the model invariants, including that a present recurrence
// rule parses.
func (e Event) Validate() error {
	if e.Title == "" {
		return ErrMissingTitle
	}
	if e.EndTime.Before(e.StartTime) {
		return ErrInvalidTimeRange
	}
	if e.ReminderMinutes < 0 {
		return ErrNegativeReminder
	}
	if e.RecurrenceRule != "" {
		if err := recurrence.Validate(e.RecurrenceRule); err != nil {
			return err
		}
		if e.RecurrenceEnd != nil && e.RecurrenceEnd.Before(e.StartTime) {
			return ErrInvalidSeriesEnd
		}
	}
	return nil
}

type Participation string

const (
	ParticipationInvolved Participation = "involved"
	ParticipationInformed Participation = "informed"
)

type Member struct {
	EventUid      uuid.UUID
	UserId        int
	Participation Participation
}

package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"
	"github.com/varsla/varsla/pkg/event"
	"github.com/varsla/varsla/pkg/recurrence"
)

const (
	prodId = "-//Varsla//Calendar Feed//EN"
	// icsTimeLayout is the RFC 5545 UTC date-time form used for UNTIL and EXDATE.
	icsTimeLayout = "20060102T150405Z"
)

// Renderer serializes a user's visible events into an iCalendar document that
// external clients can subscribe to. The feed is read-only and one-directional.
type Renderer struct {
	events event.Repository
}

func NewRenderer(events event.Repository) *Renderer {
	return &Renderer{events: events}
}

// Render produces the document for all events where the user is a member of
// any kind and whose occurrences can intersect [from, to). Output is
// deterministic for identical input so clients can cache on content hashes.
func (r *Renderer) Render(ctx context.Context, tenantId int, userId int, from, to time.Time) (string, error) {
	events, err := r.events.FindVisible(ctx, tenantId, userId, from, to)
	if err != nil {
		return "", fmt.Errorf("failed to load visible events: %w", err)
	}

	// Repo orders by start time; break ties on UID for stable output.
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			if events[i].StartTime.Equal(events[j].StartTime) &&
				events[i].Uid.String() > events[j].Uid.String() {
				events[i], events[j] = events[j], events[i]
			}
		}
	}

	cal := ics.NewCalendar()
	cal.SetProductId(prodId)
	cal.SetMethod(ics.MethodPublish)

	for _, e := range events {
		renderEvent(cal, e)
	}
	return cal.Serialize(), nil
}

func renderEvent(cal *ics.Calendar, e event.Event) {
	ve := cal.AddEvent(e.Uid.String())
	ve.SetSummary(e.Title)
	if e.Description != "" {
		ve.SetDescription(e.Description)
	}
	if e.Location != "" {
		ve.SetLocation(e.Location)
	}

	if e.AllDay {
		ve.SetAllDayStartAt(e.StartTime.UTC())
		ve.SetAllDayEndAt(e.EndTime.UTC())
	} else {
		ve.SetStartAt(e.StartTime.UTC())
		ve.SetEndAt(e.EndTime.UTC())
	}

	ve.SetDtStampTime(e.UpdatedAt.UTC())
	ve.SetCreatedTime(e.CreatedAt.UTC())
	ve.SetModifiedAt(e.UpdatedAt.UTC())

	if e.RecurrenceRule != "" {
		if err := recurrence.Validate(e.RecurrenceRule); err != nil {
			// Degrade to a non-recurring rendering of the base occurrence
			// rather than dropping the event or the whole document.
			log.Warnf("feed: omitting rule of event %s: %v", e.Uid, err)
		} else {
			ve.AddRrule(ruleWithBound(e.RecurrenceRule, e.RecurrenceEnd))
			for _, deleted := range event.DeletedOccurrences(e.Exceptions) {
				ve.AddExdate(deleted.UTC().Format(icsTimeLayout))
			}
		}
	}

	// Override exceptions (changed time/title of one occurrence) are not
	// embedded as RECURRENCE-ID components; the feed carries the base series
	// plus deletions only.
	if e.ReminderMinutes > 0 {
		alarm := ve.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetProperty(ics.ComponentProperty("TRIGGER"), fmt.Sprintf("-PT%dM", e.ReminderMinutes))
	}
}

// ruleWithBound appends an UNTIL clause for the series end unless the rule
// already bounds itself with UNTIL or COUNT.
func ruleWithBound(rule string, seriesEnd *time.Time) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if seriesEnd == nil {
		return trimmed
	}
	upper := strings.ToUpper(trimmed)
	if strings.Contains(upper, "UNTIL=") || strings.Contains(upper, "COUNT=") {
		return trimmed
	}
	return trimmed + ";UNTIL=" + recurrence.Normalize(*seriesEnd).Format(icsTimeLayout)
}

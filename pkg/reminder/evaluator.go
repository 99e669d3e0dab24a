package reminder

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/varsla/varsla/pkg/event"
	"github.com/varsla/varsla/pkg/recurrence"
)

// Evaluator decides which reminders are due "now" for one tenant. It is
// stateless: every call is a pure function of the stored data and the given
// instant, so concurrent calls across tenants are safe.
type Evaluator struct {
	events        event.Repository
	notifications NotificationRepo

	// slack widens the recurring lookahead window past the reminder offset.
	// It must cover the scheduler's polling interval or occurrences right at
	// the window edge can be missed between two cycles.
	slack time.Duration

	// lookback bounds the dedupe query; reminders older than this no longer
	// suppress re-notification.
	lookback time.Duration
}

func NewEvaluator(events event.Repository, notifications NotificationRepo, slack, lookback time.Duration) *Evaluator {
	return &Evaluator{events: events, notifications: notifications, slack: slack, lookback: lookback}
}

// Evaluate returns one notification per involved member per due occurrence,
// minus the pairs already recorded within the lookback window. The result is
// never nil. A malformed recurrence rule skips that event with a warning and
// never aborts the batch.
func (e *Evaluator) Evaluate(ctx context.Context, tenantId int, now time.Time) ([]Notification, error) {
	now = recurrence.Normalize(now)

	events, err := e.events.FindWithReminders(ctx, tenantId, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder events: %w", err)
	}

	sent, err := e.notifications.RecentKeys(ctx, tenantId, KindEventReminder, now.Add(-e.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to load recent notifications: %w", err)
	}

	items := make([]Notification, 0)
	for _, ev := range events {
		for _, occ := range e.dueOccurrences(ev, now) {
			for _, userId := range ev.InvolvedUserIds() {
				key := Key{UserId: userId, Link: occ.link}
				if _, already := sent[key]; already {
					continue
				}
				sent[key] = struct{}{}
				items = append(items, buildNotification(userId, occ))
			}
		}
	}
	return items, nil
}

// dueOccurrence is one occurrence inside its reminder window.
type dueOccurrence struct {
	title string
	start time.Time
	link  string
}

func (e *Evaluator) dueOccurrences(ev event.Event, now time.Time) []dueOccurrence {
	offset := time.Duration(ev.ReminderMinutes) * time.Minute
	due := make([]dueOccurrence, 0, 1)

	switch sched := ev.Schedule().(type) {
	case event.OneTime:
		start := recurrence.Normalize(sched.Start)
		if inWindow(now, start, offset) {
			due = append(due, dueOccurrence{title: ev.Title, start: start, link: EventLink(ev.Uid)})
		}

	case event.Series:
		windowStart := now.Add(-offset)
		windowEnd := now.Add(offset + e.slack)
		occurrences, err := recurrence.Expand(sched.Start, sched.Rule, windowStart, windowEnd)
		if err != nil {
			var malformed *recurrence.MalformedRuleError
			if errors.As(err, &malformed) {
				log.Warnf("skipping event %s: %v", ev.Uid, malformed)
				return due
			}
			log.Errorf("failed to expand event %s: %v", ev.Uid, err)
			return due
		}

		for _, occ := range occurrences {
			// Rule-generated occurrences are monotonic, so the series end is
			// a short-circuit, not a filter.
			if sched.Until != nil && !occ.Before(*sched.Until) {
				break
			}
			res := event.Resolve(occ, ev.Exceptions)
			if res.Kind == event.ResolutionDeleted {
				continue
			}
			title := ev.Title
			if res.Title != nil {
				title = *res.Title
			}
			if inWindow(now, res.Start, offset) {
				due = append(due, dueOccurrence{title: title, start: res.Start, link: OccurrenceLink(ev.Uid, occ)})
			}
		}
	}
	return due
}

// inWindow reports whether now falls inside [start - offset, start).
func inWindow(now, start time.Time, offset time.Duration) bool {
	reminderTime := start.Add(-offset)
	return !now.Before(reminderTime) && now.Before(start)
}

func buildNotification(userId int, occ dueOccurrence) Notification {
	startText := occ.start.Format("Mon, 02 Jan 2006 15:04 MST")
	message := fmt.Sprintf("%s starts at %s", occ.title, startText)
	return Notification{
		UserId:       userId,
		Kind:         KindEventReminder,
		Title:        occ.title,
		Message:      message,
		Link:         occ.link,
		EmailSubject: fmt.Sprintf("Reminder: %s", occ.title),
		EmailHTML: fmt.Sprintf("<p><strong>%s</strong> starts at %s.</p><p><a href=\"%s\">Open event</a></p>",
			html.EscapeString(occ.title), html.EscapeString(startText), html.EscapeString(occ.link)),
		EmailText: message,
	}
}

package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsla/varsla/pkg/event"
)

const (
	feedTenant = 1
	feedUser   = 1
)

var feedWindowStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
var feedWindowEnd = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func rendererForTest() (*Renderer, *event.RepositoryStub) {
	events := event.NewRepositoryStub()
	return NewRenderer(events), events
}

func storeFeedEvent(t *testing.T, repo *event.RepositoryStub, ev event.Event) event.Event {
	t.Helper()
	if ev.Uid == uuid.Nil {
		ev.Uid = uuid.New()
	}
	ev.TenantId = feedTenant
	if ev.Members == nil {
		ev.Members = []event.Member{{UserId: feedUser, Participation: event.ParticipationInvolved}}
	}
	_, err := repo.StoreEvent(context.Background(), ev)
	require.NoError(t, err)
	return ev
}

func baseFeedEvent() event.Event {
	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	return event.Event{
		Title:     "Standup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		CreatedAt: start.AddDate(0, -1, 0),
		UpdatedAt: start.AddDate(0, -1, 0),
	}
}

func TestRender_EmptyFeed(t *testing.T) {
	renderer, _ := rendererForTest()

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "PRODID:-//Varsla//Calendar Feed//EN")
	assert.Contains(t, doc, "METHOD:PUBLISH")
	assert.NotContains(t, doc, "BEGIN:VEVENT")
}

func TestRender_OneTimeEvent(t *testing.T) {
	renderer, events := rendererForTest()
	ev := baseFeedEvent()
	ev.Description = "Daily sync"
	ev.Location = "Room 2"
	stored := storeFeedEvent(t, events, ev)

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "UID:"+stored.Uid.String())
	assert.Contains(t, doc, "SUMMARY:Standup")
	assert.Contains(t, doc, "DESCRIPTION:Daily sync")
	assert.Contains(t, doc, "LOCATION:Room 2")
	assert.Contains(t, doc, "DTSTART:20250106T080000Z")
	assert.Contains(t, doc, "DTEND:20250106T083000Z")
	assert.NotContains(t, doc, "RRULE")
	assert.NotContains(t, doc, "BEGIN:VALARM")
}

func TestRender_RecurringEventWithSeriesEnd(t *testing.T) {
	renderer, events := rendererForTest()
	ev := baseFeedEvent()
	ev.RecurrenceRule = "FREQ=WEEKLY;BYDAY=MO"
	until := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	ev.RecurrenceEnd = &until
	storeFeedEvent(t, events, ev)

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "RRULE:FREQ=WEEKLY;BYDAY=MO;UNTIL=20250203T080000Z")
}

func TestRender_DeletedOccurrencesBecomeExdates(t *testing.T) {
	renderer, events := rendererForTest()
	ev := baseFeedEvent()
	ev.RecurrenceRule = "FREQ=WEEKLY;BYDAY=MO"
	moved := ev.StartTime.AddDate(0, 0, 21).Add(time.Hour)
	ev.Exceptions = []event.Exception{
		{OriginalStart: ev.StartTime.AddDate(0, 0, 7), Deleted: true},
		{OriginalStart: ev.StartTime.AddDate(0, 0, 21), NewStart: &moved},
	}
	storeFeedEvent(t, events, ev)

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "EXDATE:20250113T080000Z")
	// Override exceptions are not rendered, only deletions.
	assert.Equal(t, 1, strings.Count(doc, "EXDATE"))
}

func TestRender_ReminderBecomesAlarm(t *testing.T) {
	renderer, events := rendererForTest()
	ev := baseFeedEvent()
	ev.ReminderMinutes = 45
	storeFeedEvent(t, events, ev)

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "BEGIN:VALARM")
	assert.Contains(t, doc, "ACTION:DISPLAY")
	assert.Contains(t, doc, "TRIGGER:-PT45M")
	assert.Contains(t, doc, "END:VALARM")
}

func TestRender_MalformedRuleDegradesToSingleOccurrence(t *testing.T) {
	renderer, events := rendererForTest()
	ev := baseFeedEvent()
	ev.RecurrenceRule = "FREQ=OCCASIONALLY"
	stored := storeFeedEvent(t, events, ev)

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "UID:"+stored.Uid.String())
	assert.NotContains(t, doc, "RRULE")
}

func TestRender_AllDayEvent(t *testing.T) {
	renderer, events := rendererForTest()
	ev := baseFeedEvent()
	ev.AllDay = true
	ev.StartTime = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	ev.EndTime = time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	storeFeedEvent(t, events, ev)

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "DTSTART;VALUE=DATE:20250106")
	assert.Contains(t, doc, "DTEND;VALUE=DATE:20250107")
}

func TestRender_IsDeterministic(t *testing.T) {
	renderer, events := rendererForTest()
	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ev := baseFeedEvent()
		ev.StartTime = start
		ev.EndTime = start.Add(time.Hour)
		storeFeedEvent(t, events, ev)
	}

	first, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)
	second, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRender_OnlyMemberEvents(t *testing.T) {
	renderer, events := rendererForTest()
	storeFeedEvent(t, events, baseFeedEvent())

	foreign := baseFeedEvent()
	foreign.Title = "Private"
	foreign.Members = []event.Member{{UserId: 99, Participation: event.ParticipationInvolved}}
	storeFeedEvent(t, events, foreign)

	doc, err := renderer.Render(context.Background(), feedTenant, feedUser, feedWindowStart, feedWindowEnd)
	require.NoError(t, err)

	assert.Contains(t, doc, "SUMMARY:Standup")
	assert.NotContains(t, doc, "SUMMARY:Private")
}

func TestRuleWithBound(t *testing.T) {
	until := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)

	t.Run("appends until", func(t *testing.T) {
		assert.Equal(t, "FREQ=DAILY;UNTIL=20250203T080000Z", ruleWithBound("FREQ=DAILY", &until))
	})

	t.Run("no series end", func(t *testing.T) {
		assert.Equal(t, "FREQ=DAILY", ruleWithBound("FREQ=DAILY", nil))
	})

	t.Run("keeps existing count", func(t *testing.T) {
		assert.Equal(t, "FREQ=DAILY;COUNT=10", ruleWithBound("FREQ=DAILY;COUNT=10", &until))
	})

	t.Run("keeps existing until", func(t *testing.T) {
		assert.Equal(t, "FREQ=DAILY;UNTIL=20250101T000000Z", ruleWithBound("FREQ=DAILY;UNTIL=20250101T000000Z", &until))
	})

	t.Run("strips rrule prefix", func(t *testing.T) {
		assert.Equal(t, "FREQ=DAILY", ruleWithBound("RRULE:FREQ=DAILY", nil))
	})
}

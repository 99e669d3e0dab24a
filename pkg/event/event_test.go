package event

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsla/varsla/pkg/recurrence"
)

func validEvent() Event {
	start := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	return Event{
		Uid:             uuid.New(),
		TenantId:        1,
		Title:           "Standup",
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		ReminderMinutes: 15,
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid one-time event", func(t *testing.T) {
		assert.NoError(t, validEvent().Validate())
	})

	t.Run("missing title", func(t *testing.T) {
		ev := validEvent()
		ev.Title = ""
		assert.ErrorIs(t, ev.Validate(), ErrMissingTitle)
	})

	t.Run("end before start", func(t *testing.T) {
		ev := validEvent()
		ev.EndTime = ev.StartTime.Add(-time.Minute)
		assert.ErrorIs(t, ev.Validate(), ErrInvalidTimeRange)
	})

	t.Run("zero-length event is allowed", func(t *testing.T) {
		ev := validEvent()
		ev.EndTime = ev.StartTime
		assert.NoError(t, ev.Validate())
	})

	t.Run("negative reminder", func(t *testing.T) {
		ev := validEvent()
		ev.ReminderMinutes = -5
		assert.ErrorIs(t, ev.Validate(), ErrNegativeReminder)
	})

	t.Run("malformed recurrence rule", func(t *testing.T) {
		ev := validEvent()
		ev.RecurrenceRule = "FREQ=NEVERMIND"
		err := ev.Validate()
		require.Error(t, err)
		var malformed *recurrence.MalformedRuleError
		assert.True(t, errors.As(err, &malformed))
	})

	t.Run("series end before start", func(t *testing.T) {
		ev := validEvent()
		ev.RecurrenceRule = "FREQ=DAILY"
		end := ev.StartTime.Add(-time.Hour)
		ev.RecurrenceEnd = &end
		assert.ErrorIs(t, ev.Validate(), ErrInvalidSeriesEnd)
	})

	t.Run("series end ignored without rule", func(t *testing.T) {
		ev := validEvent()
		end := ev.StartTime.Add(-time.Hour)
		ev.RecurrenceEnd = &end
		assert.NoError(t, ev.Validate())
	})
}

func TestSchedule(t *testing.T) {
	ev := validEvent()

	oneTime, ok := ev.Schedule().(OneTime)
	require.True(t, ok)
	assert.Equal(t, ev.StartTime, oneTime.Start)

	ev.RecurrenceRule = "FREQ=WEEKLY;BYDAY=MO"
	series, ok := ev.Schedule().(Series)
	require.True(t, ok)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", series.Rule)
	assert.Nil(t, series.Until)
}

func TestInvolvedUserIds(t *testing.T) {
	ev := validEvent()
	ev.Members = []Member{
		{UserId: 1, Participation: ParticipationInvolved},
		{UserId: 2, Participation: ParticipationInformed},
		{UserId: 3, Participation: ParticipationInvolved},
	}

	assert.Equal(t, []int{1, 3}, ev.InvolvedUserIds())
}

func TestResolve(t *testing.T) {
	occ := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	t.Run("no exceptions", func(t *testing.T) {
		res := Resolve(occ, nil)
		assert.Equal(t, ResolutionUnchanged, res.Kind)
		assert.Equal(t, occ, res.Start)
	})

	t.Run("deleted occurrence", func(t *testing.T) {
		res := Resolve(occ, []Exception{{OriginalStart: occ, Deleted: true}})
		assert.Equal(t, ResolutionDeleted, res.Kind)
	})

	t.Run("deleted wins over override fields", func(t *testing.T) {
		moved := occ.Add(time.Hour)
		res := Resolve(occ, []Exception{{OriginalStart: occ, Deleted: true, NewStart: &moved}})
		assert.Equal(t, ResolutionDeleted, res.Kind)
	})

	t.Run("start override", func(t *testing.T) {
		moved := occ.Add(2 * time.Hour)
		res := Resolve(occ, []Exception{{OriginalStart: occ, NewStart: &moved}})
		assert.Equal(t, ResolutionOverridden, res.Kind)
		assert.Equal(t, moved, res.Start)
		assert.Nil(t, res.Title)
	})

	t.Run("title override keeps start", func(t *testing.T) {
		title := "Moved standup"
		res := Resolve(occ, []Exception{{OriginalStart: occ, NewTitle: &title}})
		assert.Equal(t, ResolutionOverridden, res.Kind)
		assert.Equal(t, occ, res.Start)
		require.NotNil(t, res.Title)
		assert.Equal(t, title, *res.Title)
	})

	t.Run("exception without payload changes nothing", func(t *testing.T) {
		res := Resolve(occ, []Exception{{OriginalStart: occ}})
		assert.Equal(t, ResolutionUnchanged, res.Kind)
	})

	t.Run("matching is exact, not by range", func(t *testing.T) {
		nearMiss := occ.Add(time.Second)
		res := Resolve(occ, []Exception{{OriginalStart: nearMiss, Deleted: true}})
		assert.Equal(t, ResolutionUnchanged, res.Kind)
	})

	t.Run("matching normalizes zones and sub-second precision", func(t *testing.T) {
		loc := time.FixedZone("CET", 3600)
		sameInstant := occ.In(loc).Add(500 * time.Millisecond)
		res := Resolve(occ, []Exception{{OriginalStart: sameInstant, Deleted: true}})
		assert.Equal(t, ResolutionDeleted, res.Kind)
	})
}

func TestDeletedOccurrences(t *testing.T) {
	first := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 7)
	moved := first.Add(time.Hour)

	exceptions := []Exception{
		{OriginalStart: second, Deleted: true},
		{OriginalStart: first.AddDate(0, 0, 14), NewStart: &moved},
		{OriginalStart: first, Deleted: true},
	}

	deleted := DeletedOccurrences(exceptions)

	require.Len(t, deleted, 2)
	assert.Equal(t, first, deleted[0])
	assert.Equal(t, second, deleted[1])
}

package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seriesStart = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func TestExpand_DailyWindowSlice(t *testing.T) {
	// Ten daily occurrences starting Jan 1; window covering occurrences 3-7
	// (half-open) must yield exactly occurrences 3, 4, 5 and 6.
	windowStart := seriesStart.AddDate(0, 0, 2) // occurrence 3
	windowEnd := seriesStart.AddDate(0, 0, 6)   // occurrence 7 (excluded)

	occurrences, err := Expand(seriesStart, "FREQ=DAILY;COUNT=10", windowStart, windowEnd)
	require.NoError(t, err)

	require.Len(t, occurrences, 4)
	for i, occ := range occurrences {
		assert.Equal(t, seriesStart.AddDate(0, 0, 2+i), occ)
	}
}

func TestExpand_IsAscendingAndDuplicateFree(t *testing.T) {
	occurrences, err := Expand(seriesStart, "FREQ=DAILY;COUNT=10", seriesStart, seriesStart.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, occurrences, 10)

	for i := 1; i < len(occurrences); i++ {
		assert.True(t, occurrences[i].After(occurrences[i-1]))
	}
}

func TestExpand_IsRestartable(t *testing.T) {
	windowStart := seriesStart.AddDate(0, 0, 1)
	windowEnd := seriesStart.AddDate(0, 0, 5)

	first, err := Expand(seriesStart, "FREQ=DAILY;COUNT=10", windowStart, windowEnd)
	require.NoError(t, err)
	second, err := Expand(seriesStart, "FREQ=DAILY;COUNT=10", windowStart, windowEnd)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExpand_HalfOpenWindow(t *testing.T) {
	// An occurrence exactly at windowEnd must not be produced; one exactly at
	// windowStart must be.
	occurrences, err := Expand(seriesStart, "FREQ=DAILY;COUNT=10", seriesStart, seriesStart.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, occurrences, 1)
	assert.Equal(t, seriesStart, occurrences[0])
}

func TestExpand_WindowBeforeSeries(t *testing.T) {
	occurrences, err := Expand(seriesStart, "FREQ=DAILY;COUNT=10", seriesStart.AddDate(0, 0, -10), seriesStart.AddDate(0, 0, -5))
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestExpand_WeeklyByDay(t *testing.T) {
	// Mondays only. Jan 6 2025 is a Monday.
	monday := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	occurrences, err := Expand(monday, "FREQ=WEEKLY;BYDAY=MO", monday, monday.AddDate(0, 0, 21))
	require.NoError(t, err)

	require.Len(t, occurrences, 3)
	for _, occ := range occurrences {
		assert.Equal(t, time.Monday, occ.Weekday())
	}
}

func TestExpand_MalformedRule(t *testing.T) {
	_, err := Expand(seriesStart, "FREQ=SOMETIMES", seriesStart, seriesStart.AddDate(0, 0, 1))
	require.Error(t, err)

	var malformed *MalformedRuleError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "FREQ=SOMETIMES", malformed.Rule)
}

func TestExpand_EmptyRule(t *testing.T) {
	_, err := Expand(seriesStart, "", seriesStart, seriesStart.AddDate(0, 0, 1))
	var malformed *MalformedRuleError
	require.True(t, errors.As(err, &malformed))
}

func TestExpand_AcceptsRRulePrefix(t *testing.T) {
	occurrences, err := Expand(seriesStart, "RRULE:FREQ=DAILY;COUNT=2", seriesStart, seriesStart.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Len(t, occurrences, 2)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("FREQ=DAILY"))
	assert.Error(t, Validate("not a rule"))
}

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	instant := time.Date(2025, 3, 1, 10, 30, 15, 999999999, loc)

	normalized := Normalize(instant)

	assert.Equal(t, time.UTC, normalized.Location())
	assert.Equal(t, time.Date(2025, 3, 1, 9, 30, 15, 0, time.UTC), normalized)
}

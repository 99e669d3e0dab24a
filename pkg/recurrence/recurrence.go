package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// maxOccurrencesPerWindow is a safety cap against pathological rules
// (e.g. FREQ=SECONDLY over a wide window).
const maxOccurrencesPerWindow = 5000

// MalformedRuleError reports an unparseable recurrence rule. The offending
// rule text is carried so callers can log it and skip the event without
// aborting the batch.
type MalformedRuleError struct {
	Rule string
	Err  error
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("malformed recurrence rule %q: %v", e.Rule, e.Err)
}

func (e *MalformedRuleError) Unwrap() error {
	return e.Err
}

// Normalize canonicalizes an instant to UTC at second precision.
//
// Exception records are matched against generated occurrence starts by exact
// equality, so every instant that participates in that comparison (expander
// output, stored exception keys, feed EXDATE values) must go through this one
// routine.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Expand generates the occurrence start instants of the given rule that fall
// inside the half-open window [windowStart, windowEnd).
//
// start is the series DTSTART and always yields the first occurrence of the
// rule. The result is ascending, duplicate-free, and restartable: expanding
// the same window twice yields identical instants. A series-end bound is the
// caller's concern; the rule alone decides what is generated here.
func Expand(start time.Time, rule string, windowStart, windowEnd time.Time) ([]time.Time, error) {
	r, err := parse(start, rule)
	if err != nil {
		return nil, err
	}

	ws := Normalize(windowStart)
	we := Normalize(windowEnd)
	if !we.After(ws) {
		return []time.Time{}, nil
	}

	// Between is inclusive on both ends; trim the upper bound afterwards to
	// keep the window half-open.
	candidates := r.Between(ws, we, true)

	occurrences := make([]time.Time, 0, len(candidates))
	var prev time.Time
	for _, c := range candidates {
		occ := Normalize(c)
		if !occ.Before(we) {
			continue
		}
		if len(occurrences) > 0 && occ.Equal(prev) {
			continue
		}
		occurrences = append(occurrences, occ)
		prev = occ
		if len(occurrences) >= maxOccurrencesPerWindow {
			break
		}
	}
	return occurrences, nil
}

// Validate checks that the rule text parses, without expanding it.
func Validate(rule string) error {
	_, err := parse(time.Unix(0, 0).UTC(), rule)
	return err
}

func parse(start time.Time, rule string) (*rrule.RRule, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if trimmed == "" {
		return nil, &MalformedRuleError{Rule: rule, Err: fmt.Errorf("empty rule")}
	}

	opt, err := rrule.StrToROption(trimmed)
	if err != nil {
		return nil, &MalformedRuleError{Rule: rule, Err: err}
	}
	opt.Dtstart = Normalize(start)

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, &MalformedRuleError{Rule: rule, Err: err}
	}
	return r, nil
}

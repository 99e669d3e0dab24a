package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/varsla/varsla/pkg/recurrence"
)

// Exception modifies one occurrence of a recurring event, keyed by the start
// instant the unmodified rule would have produced.
type Exception struct {
	EventUid      uuid.UUID
	OriginalStart time.Time
	Deleted       bool
	NewStart      *time.Time
	NewTitle      *string
}

type ResolutionKind int

const (
	ResolutionUnchanged ResolutionKind = iota
	ResolutionOverridden
	ResolutionDeleted
)

// Resolution is the effective state of one occurrence after exceptions are
// applied. Start is always usable; Title is non-nil only when overridden.
type Resolution struct {
	Kind  ResolutionKind
	Start time.Time
	Title *string
}

// Resolve maps an occurrence start to its effective state. Matching is by
// exact equality of the canonical instant, not by range: an exception whose
// original start does not hit a generated occurrence is inert. A deleted flag
// wins over any override fields on the same record.
func Resolve(occurrenceStart time.Time, exceptions []Exception) Resolution {
	key := recurrence.Normalize(occurrenceStart)
	for _, ex := range exceptions {
		if !recurrence.Normalize(ex.OriginalStart).Equal(key) {
			continue
		}
		if ex.Deleted {
			return Resolution{Kind: ResolutionDeleted, Start: key}
		}
		res := Resolution{Kind: ResolutionOverridden, Start: key, Title: ex.NewTitle}
		if ex.NewStart != nil {
			res.Start = recurrence.Normalize(*ex.NewStart)
		}
		if ex.NewStart == nil && ex.NewTitle == nil {
			// An exception with no payload changes nothing.
			return Resolution{Kind: ResolutionUnchanged, Start: key}
		}
		return res
	}
	return Resolution{Kind: ResolutionUnchanged, Start: key}
}

// DeletedOccurrences lists the original starts of all deleted exceptions, in
// ascending order. The feed renders these as EXDATE entries.
func DeletedOccurrences(exceptions []Exception) []time.Time {
	out := make([]time.Time, 0, len(exceptions))
	for _, ex := range exceptions {
		if ex.Deleted {
			out = append(out, recurrence.Normalize(ex.OriginalStart))
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[i].After(out[j]) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

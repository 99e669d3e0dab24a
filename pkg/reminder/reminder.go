package reminder

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/varsla/varsla/pkg/recurrence"
)

type Kind string

const KindEventReminder Kind = "event_reminder"

// Notification is an ephemeral reminder item handed to the dispatcher. It
// carries everything each channel needs; nothing here is persisted beyond the
// dedupe record.
type Notification struct {
	UserId       int
	Kind         Kind
	Title        string
	Message      string
	Link         string
	EmailSubject string
	EmailHTML    string
	EmailText    string
}

// Key identifies an already-sent reminder for dedupe purposes.
type Key struct {
	UserId int
	Link   string
}

// EventLink is the deep link for a one-time event reminder.
func EventLink(eventUid uuid.UUID) string {
	return fmt.Sprintf("/calendar/events/%s", eventUid)
}

// OccurrenceLink is the deep link for one occurrence of a recurring event.
// It embeds the original rule-generated start, not the effective one, so the
// link stays stable when the occurrence is later overridden.
func OccurrenceLink(eventUid uuid.UUID, originalStart time.Time) string {
	return fmt.Sprintf("/calendar/events/%s?occurrence=%s",
		eventUid, url.QueryEscape(recurrence.Normalize(originalStart).Format(time.RFC3339)))
}

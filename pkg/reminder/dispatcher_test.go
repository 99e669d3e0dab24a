package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varsla/varsla/pkg/user"
)

type sentMail struct {
	to      string
	subject string
}

type mailerStub struct {
	sent []sentMail
	err  error
}

func (m *mailerStub) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

type pushStub struct {
	sent []int
}

func (p *pushStub) Send(ctx context.Context, userId int, title, message, link string) error {
	p.sent = append(p.sent, userId)
	return nil
}

func dispatcherForTest(mailer *mailerStub) (*Dispatcher, *user.StubUserRepository, *pushStub, *NotificationRepoStub) {
	users := user.NewStubUserRepository()
	push := &pushStub{}
	notifications := NewNotificationRepoStub()
	return NewDispatcher(users, mailer, push, notifications), users, push, notifications
}

func reminderItem(userId int) Notification {
	return Notification{
		UserId:       userId,
		Kind:         KindEventReminder,
		Title:        "Standup",
		Message:      "Standup starts at Mon, 02 Jun 2025 09:00 UTC",
		Link:         "/calendar/events/abc",
		EmailSubject: "Reminder: Standup",
		EmailHTML:    "<p>Standup</p>",
		EmailText:    "Standup starts soon",
	}
}

func TestDispatch_HonoursChannelPreferences(t *testing.T) {
	mailer := &mailerStub{}
	dispatcher, users, push, notifications := dispatcherForTest(mailer)

	users.Add(user.User{Id: 1, TenantId: 1, Email: "a@example.com",
		Settings: user.Settings{Channels: user.Channels{Email: true, InApp: true}}})
	users.Add(user.User{Id: 2, TenantId: 1, Email: "b@example.com",
		Settings: user.Settings{Channels: user.Channels{Push: true}}})

	now := time.Now()
	err := dispatcher.Dispatch(context.Background(), 1, []Notification{reminderItem(1), reminderItem(2)}, now)
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@example.com", mailer.sent[0].to)
	assert.Equal(t, "Reminder: Standup", mailer.sent[0].subject)
	assert.Equal(t, []int{2}, push.sent)

	// Both are recorded regardless of channel mix.
	assert.Len(t, notifications.Recorded(), 2)
}

func TestDispatch_SkipsEmailWithoutAddress(t *testing.T) {
	mailer := &mailerStub{}
	dispatcher, users, _, notifications := dispatcherForTest(mailer)

	users.Add(user.User{Id: 1, TenantId: 1,
		Settings: user.Settings{Channels: user.Channels{Email: true}}})

	err := dispatcher.Dispatch(context.Background(), 1, []Notification{reminderItem(1)}, time.Now())
	require.NoError(t, err)

	assert.Empty(t, mailer.sent)
	assert.Len(t, notifications.Recorded(), 1)
}

func TestDispatch_MailerFailureStillRecords(t *testing.T) {
	mailer := &mailerStub{err: errors.New("smtp down")}
	dispatcher, users, _, notifications := dispatcherForTest(mailer)

	users.Add(user.User{Id: 1, TenantId: 1, Email: "a@example.com",
		Settings: user.Settings{Channels: user.Channels{Email: true}}})

	err := dispatcher.Dispatch(context.Background(), 1, []Notification{reminderItem(1)}, time.Now())
	require.NoError(t, err)

	// The dedupe record is written even when the channel fails, so the next
	// cycle will not resend.
	assert.Len(t, notifications.Recorded(), 1)
}

func TestDispatch_UnknownUserIsSkipped(t *testing.T) {
	mailer := &mailerStub{}
	dispatcher, _, _, notifications := dispatcherForTest(mailer)

	err := dispatcher.Dispatch(context.Background(), 1, []Notification{reminderItem(42)}, time.Now())
	require.NoError(t, err)

	assert.Empty(t, mailer.sent)
	assert.Empty(t, notifications.Recorded())
}

func TestDispatch_EmptyBatchIsNoop(t *testing.T) {
	mailer := &mailerStub{}
	dispatcher, _, _, notifications := dispatcherForTest(mailer)

	require.NoError(t, dispatcher.Dispatch(context.Background(), 1, nil, time.Now()))
	assert.Empty(t, notifications.Recorded())
}

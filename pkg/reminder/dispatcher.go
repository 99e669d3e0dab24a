package reminder

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/varsla/varsla/pkg/user"
)

// Mailer delivers the email channel. Implemented by internal/mailer.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// PushSender delivers the push channel. The concrete transport lives outside
// this service; the default wiring only logs.
type PushSender interface {
	Send(ctx context.Context, userId int, title, message, link string) error
}

type LogPushSender struct{}

func (LogPushSender) Send(ctx context.Context, userId int, title, message, link string) error {
	log.Infof("push notification for user %d: %s (%s)", userId, title, link)
	return nil
}

// Dispatcher fans a notification out to the channels enabled in the user's
// preferences and records it for dedupe. Channel failures are logged and do
// not block other channels or other items; the record is written as long as
// at least one channel was attempted, so a flaky channel cannot cause a
// notification storm on the next cycle.
type Dispatcher struct {
	users         user.Repo
	mailer        Mailer
	push          PushSender
	notifications NotificationRepo
}

func NewDispatcher(users user.Repo, mailer Mailer, push PushSender, notifications NotificationRepo) *Dispatcher {
	return &Dispatcher{users: users, mailer: mailer, push: push, notifications: notifications}
}

func (d *Dispatcher) Dispatch(ctx context.Context, tenantId int, items []Notification, now time.Time) error {
	if len(items) == 0 {
		return nil
	}

	userIds := make([]int, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.UserId]; !ok {
			seen[item.UserId] = struct{}{}
			userIds = append(userIds, item.UserId)
		}
	}

	users, err := d.users.GetUsersByIds(ctx, tenantId, userIds)
	if err != nil {
		return fmt.Errorf("failed to load notification recipients: %w", err)
	}
	byId := make(map[int]user.User, len(users))
	for _, u := range users {
		byId[u.Id] = u
	}

	for _, item := range items {
		recipient, ok := byId[item.UserId]
		if !ok {
			log.Warnf("skipping notification for unknown user %d", item.UserId)
			continue
		}

		channels := recipient.Settings.Channels
		if channels.Email && recipient.Email != "" {
			if err := d.mailer.Send(ctx, recipient.Email, item.EmailSubject, item.EmailHTML, item.EmailText); err != nil {
				log.Errorf("failed to send reminder email to user %d: %v", item.UserId, err)
			}
		}
		if channels.Push {
			if err := d.push.Send(ctx, item.UserId, item.Title, item.Message, item.Link); err != nil {
				log.Errorf("failed to send push reminder to user %d: %v", item.UserId, err)
			}
		}
		// The record is both the in-app inbox entry and the dedupe key, so it
		// is written even when only out-of-app channels are enabled.
		if err := d.notifications.Record(ctx, tenantId, item, now); err != nil {
			log.Errorf("failed to record notification for user %d: %v", item.UserId, err)
		}
	}
	return nil
}

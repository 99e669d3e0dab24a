package reminder

import (
	"context"
	"sync"
	"time"
)

type recordedNotification struct {
	tenantId     int
	notification Notification
	at           time.Time
}

type NotificationRepoStub struct {
	mu      sync.RWMutex
	records []recordedNotification
}

func NewNotificationRepoStub() *NotificationRepoStub {
	return &NotificationRepoStub{}
}

func (r *NotificationRepoStub) RecentKeys(ctx context.Context, tenantId int, kind Kind, since time.Time) (map[Key]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make(map[Key]struct{})
	for _, rec := range r.records {
		if rec.tenantId == tenantId && rec.notification.Kind == kind && !rec.at.Before(since) {
			keys[Key{UserId: rec.notification.UserId, Link: rec.notification.Link}] = struct{}{}
		}
	}
	return keys, nil
}

func (r *NotificationRepoStub) Record(ctx context.Context, tenantId int, notification Notification, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordedNotification{tenantId: tenantId, notification: notification, at: at})
	return nil
}

// Recorded returns all stored notifications, for test assertions.
func (r *NotificationRepoStub) Recorded() []Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Notification, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.notification)
	}
	return out
}

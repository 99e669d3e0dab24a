package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/varsla/varsla/pkg/recurrence"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	events map[uuid.UUID]Event
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{events: make(map[uuid.UUID]Event)}
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, event Event) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Uid == uuid.Nil {
		event.Uid = uuid.New()
	}
	if event.Members == nil {
		event.Members = []Member{}
	}
	if event.Exceptions == nil {
		event.Exceptions = []Exception{}
	}
	r.events[event.Uid] = event
	return event.Uid, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, tenantId int, uid uuid.UUID) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[uid]
	if !ok || e.TenantId != tenantId {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.events[event.Uid]
	if !ok || existing.TenantId != event.TenantId {
		return ErrEventNotFound
	}
	event.Members = existing.Members
	event.Exceptions = existing.Exceptions
	r.events[event.Uid] = event
	return nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, tenantId int, uid uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[uid]
	if !ok || e.TenantId != tenantId {
		return ErrEventNotFound
	}
	delete(r.events, uid)
	return nil
}

func (r *RepositoryStub) SetMembers(ctx context.Context, tenantId int, uid uuid.UUID, members []Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[uid]
	if !ok || e.TenantId != tenantId {
		return ErrEventNotFound
	}
	e.Members = append([]Member{}, members...)
	r.events[uid] = e
	return nil
}

func (r *RepositoryStub) UpsertException(ctx context.Context, tenantId int, exception Exception) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[exception.EventUid]
	if !ok || e.TenantId != tenantId {
		return ErrEventNotFound
	}
	key := recurrence.Normalize(exception.OriginalStart)
	for i, ex := range e.Exceptions {
		if recurrence.Normalize(ex.OriginalStart).Equal(key) {
			e.Exceptions[i] = exception
			r.events[exception.EventUid] = e
			return nil
		}
	}
	e.Exceptions = append(e.Exceptions, exception)
	r.events[exception.EventUid] = e
	return nil
}

func (r *RepositoryStub) DeleteException(ctx context.Context, tenantId int, uid uuid.UUID, originalStart time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[uid]
	if !ok || e.TenantId != tenantId {
		return ErrEventNotFound
	}
	key := recurrence.Normalize(originalStart)
	kept := e.Exceptions[:0]
	for _, ex := range e.Exceptions {
		if !recurrence.Normalize(ex.OriginalStart).Equal(key) {
			kept = append(kept, ex)
		}
	}
	e.Exceptions = kept
	r.events[uid] = e
	return nil
}

func (r *RepositoryStub) FindWithReminders(ctx context.Context, tenantId int, now time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Event, 0)
	for _, e := range r.events {
		if e.TenantId != tenantId || e.ReminderMinutes <= 0 || len(e.InvolvedUserIds()) == 0 {
			continue
		}
		if e.RecurrenceRule == "" {
			if e.EndTime.Before(now) {
				continue
			}
		} else if e.RecurrenceEnd != nil && e.RecurrenceEnd.Before(now) {
			continue
		}
		result = append(result, e)
	}
	sortByStart(result)
	return result, nil
}

func (r *RepositoryStub) FindVisible(ctx context.Context, tenantId int, userId int, from, to time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Event, 0)
	for _, e := range r.events {
		if e.TenantId != tenantId {
			continue
		}
		member := false
		for _, m := range e.Members {
			if m.UserId == userId {
				member = true
				break
			}
		}
		if !member || !e.StartTime.Before(to) {
			continue
		}
		if e.RecurrenceRule == "" {
			if e.EndTime.Before(from) {
				continue
			}
		} else if e.RecurrenceEnd != nil && !e.RecurrenceEnd.After(from) {
			continue
		}
		result = append(result, e)
	}
	sortByStart(result)
	return result, nil
}

// Simple bubble sort for small slices.
func sortByStart(events []Event) {
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			if events[i].StartTime.After(events[j].StartTime) {
				events[i], events[j] = events[j], events[i]
			}
		}
	}
}

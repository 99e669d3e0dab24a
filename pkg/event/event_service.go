package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/varsla/varsla/internal/utils"
	"github.com/varsla/varsla/pkg/recurrence"
	"github.com/varsla/varsla/pkg/user"
)

// EventService is the CRUD surface around the stored event model. The reminder
// evaluator and the feed renderer read through Repository directly with an
// explicit tenant id; this service exists for the HTTP API, where tenant
// identity comes from the authenticated user in the context.
type EventService interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, uid uuid.UUID) (*Event, error)
	GetVisibleEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, uid uuid.UUID) error
	SetMembers(ctx context.Context, uid uuid.UUID, members []Member) error
	AddException(ctx context.Context, exception Exception) error
	RemoveException(ctx context.Context, uid uuid.UUID, originalStart time.Time) error
}

type EventServiceImpl struct {
	repo  Repository
	clock utils.Clock
}

func NewEventService(repo Repository) *EventServiceImpl {
	return &EventServiceImpl{repo: repo, clock: utils.SystemClock{}}
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, event Event) (Event, error) {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	event.TenantId = tenantId
	event.StartTime = recurrence.Normalize(event.StartTime)
	event.EndTime = recurrence.Normalize(event.EndTime)
	if event.RecurrenceEnd != nil {
		t := recurrence.Normalize(*event.RecurrenceEnd)
		event.RecurrenceEnd = &t
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}

	now := s.clock.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	uid, err := s.repo.StoreEvent(ctx, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	event.Uid = uid

	if len(event.Members) > 0 {
		if err := s.repo.SetMembers(ctx, tenantId, uid, event.Members); err != nil {
			return Event{}, fmt.Errorf("failed to store event members: %w", err)
		}
	}
	return event, nil
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, uid uuid.UUID) (*Event, error) {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.GetEvent(ctx, tenantId, uid)
}

func (s *EventServiceImpl) GetVisibleEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tenant: %w", err)
	}
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.FindVisible(ctx, tenantId, userId, from, to)
}

func (s *EventServiceImpl) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current tenant: %w", err)
	}
	event.TenantId = tenantId
	event.StartTime = recurrence.Normalize(event.StartTime)
	event.EndTime = recurrence.Normalize(event.EndTime)
	if event.RecurrenceEnd != nil {
		t := recurrence.Normalize(*event.RecurrenceEnd)
		event.RecurrenceEnd = &t
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	event.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

func (s *EventServiceImpl) DeleteEvent(ctx context.Context, uid uuid.UUID) error {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.DeleteEvent(ctx, tenantId, uid)
}

func (s *EventServiceImpl) SetMembers(ctx context.Context, uid uuid.UUID, members []Member) error {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.SetMembers(ctx, tenantId, uid, members)
}

func (s *EventServiceImpl) AddException(ctx context.Context, exception Exception) error {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current tenant: %w", err)
	}
	exception.OriginalStart = recurrence.Normalize(exception.OriginalStart)
	if exception.NewStart != nil {
		t := recurrence.Normalize(*exception.NewStart)
		exception.NewStart = &t
	}
	return s.repo.UpsertException(ctx, tenantId, exception)
}

func (s *EventServiceImpl) RemoveException(ctx context.Context, uid uuid.UUID, originalStart time.Time) error {
	tenantId, err := user.CurrentTenantId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current tenant: %w", err)
	}
	return s.repo.DeleteException(ctx, tenantId, uid, recurrence.Normalize(originalStart))
}

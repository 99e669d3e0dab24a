package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	StoreEvent(ctx context.Context, event Event) (uuid.UUID, error)
	GetEvent(ctx context.Context, tenantId int, uid uuid.UUID) (*Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, tenantId int, uid uuid.UUID) error

	SetMembers(ctx context.Context, tenantId int, uid uuid.UUID, members []Member) error
	UpsertException(ctx context.Context, tenantId int, exception Exception) error
	DeleteException(ctx context.Context, tenantId int, uid uuid.UUID, originalStart time.Time) error

	// FindWithReminders returns the tenant's events that can still produce a
	// reminder: positive reminder offset, at least one involved member, and
	// not fully in the past at the given instant.
	FindWithReminders(ctx context.Context, tenantId int, now time.Time) ([]Event, error)

	// FindVisible returns the events where the user is a member of any kind
	// and whose occurrences could intersect [from, to).
	FindVisible(ctx context.Context, tenantId int, userId int, from, to time.Time) ([]Event, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const eventColumns = `uid, tenant_id, title, description, location, start_time, end_time, all_day,
		recurrence_rule, recurrence_end, reminder_minutes, created_at, updated_at`

func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) (uuid.UUID, error) {
	query := `INSERT INTO calendar_event (` + eventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	uid := event.Uid
	if uid == uuid.Nil {
		uid = uuid.New()
	}

	var recurrenceEnd sql.NullInt64
	if event.RecurrenceEnd != nil {
		recurrenceEnd = sql.NullInt64{Int64: event.RecurrenceEnd.UnixMilli(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		uid.String(),
		event.TenantId,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime.UnixMilli(),
		event.EndTime.UnixMilli(),
		event.AllDay,
		event.RecurrenceRule,
		recurrenceEnd,
		event.ReminderMinutes,
		event.CreatedAt.UnixMilli(),
		event.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not store event: %w", err)
		log.Error(err)
		return uuid.Nil, err
	}
	return uid, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, tenantId int, uid uuid.UUID) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_event WHERE tenant_id = $1 AND uid = $2`

	e, err := scanEvent(r.db.QueryRowContext(ctx, query, tenantId, uid.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		err := fmt.Errorf("could not query event %s: %w", uid, err)
		log.Error(err)
		return nil, err
	}

	events := []Event{e}
	if err := r.attachRelations(ctx, events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, event Event) error {
	query := `UPDATE calendar_event
			  SET title = $1, description = $2, location = $3, start_time = $4, end_time = $5,
			      all_day = $6, recurrence_rule = $7, recurrence_end = $8, reminder_minutes = $9,
			      updated_at = $10
			  WHERE tenant_id = $11 AND uid = $12`

	var recurrenceEnd sql.NullInt64
	if event.RecurrenceEnd != nil {
		recurrenceEnd = sql.NullInt64{Int64: event.RecurrenceEnd.UnixMilli(), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime.UnixMilli(),
		event.EndTime.UnixMilli(),
		event.AllDay,
		event.RecurrenceRule,
		recurrenceEnd,
		event.ReminderMinutes,
		event.UpdatedAt.UnixMilli(),
		event.TenantId,
		event.Uid.String(),
	)
	if err != nil {
		err := fmt.Errorf("could not update event: %w", err)
		log.Error(err)
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, tenantId int, uid uuid.UUID) error {
	query := `DELETE FROM calendar_event WHERE tenant_id = $1 AND uid = $2`
	result, err := r.db.ExecContext(ctx, query, tenantId, uid.String())
	if err != nil {
		err := fmt.Errorf("could not delete event: %w", err)
		log.Error(err)
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) SetMembers(ctx context.Context, tenantId int, uid uuid.UUID, members []Member) error {
	deleteQuery := `DELETE FROM calendar_event_member
					WHERE event_uid = $1
					  AND EXISTS (SELECT 1 FROM calendar_event e WHERE e.uid = $1 AND e.tenant_id = $2)`
	if _, err := r.db.ExecContext(ctx, deleteQuery, uid.String(), tenantId); err != nil {
		err := fmt.Errorf("could not clear event members: %w", err)
		log.Error(err)
		return err
	}

	insertQuery := `INSERT INTO calendar_event_member (event_uid, user_id, participation) VALUES ($1, $2, $3)`
	for _, m := range members {
		if _, err := r.db.ExecContext(ctx, insertQuery, uid.String(), m.UserId, string(m.Participation)); err != nil {
			err := fmt.Errorf("could not store event member: %w", err)
			log.Error(err)
			return err
		}
	}
	return nil
}

func (r *RepositoryImpl) UpsertException(ctx context.Context, tenantId int, exception Exception) error {
	query := `INSERT INTO calendar_event_exception (event_uid, original_start, is_deleted, new_start, new_title)
			  SELECT $1, $2, $3, $4, $5
			  WHERE EXISTS (SELECT 1 FROM calendar_event e WHERE e.uid = $1 AND e.tenant_id = $6)
			  ON CONFLICT (event_uid, original_start)
			  DO UPDATE SET is_deleted = $3, new_start = $4, new_title = $5`

	var newStart sql.NullInt64
	if exception.NewStart != nil {
		newStart = sql.NullInt64{Int64: exception.NewStart.UnixMilli(), Valid: true}
	}
	var newTitle sql.NullString
	if exception.NewTitle != nil {
		newTitle = sql.NullString{String: *exception.NewTitle, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		exception.EventUid.String(),
		exception.OriginalStart.UnixMilli(),
		exception.Deleted,
		newStart,
		newTitle,
		tenantId,
	)
	if err != nil {
		err := fmt.Errorf("could not store event exception: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteException(ctx context.Context, tenantId int, uid uuid.UUID, originalStart time.Time) error {
	query := `DELETE FROM calendar_event_exception
			  WHERE event_uid = $1 AND original_start = $2
			    AND EXISTS (SELECT 1 FROM calendar_event e WHERE e.uid = $1 AND e.tenant_id = $3)`
	_, err := r.db.ExecContext(ctx, query, uid.String(), originalStart.UnixMilli(), tenantId)
	if err != nil {
		err := fmt.Errorf("could not delete event exception: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) FindWithReminders(ctx context.Context, tenantId int, now time.Time) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
			  FROM calendar_event e
			  WHERE e.tenant_id = $1
			    AND e.reminder_minutes > 0
			    AND EXISTS (SELECT 1 FROM calendar_event_member m
			                WHERE m.event_uid = e.uid AND m.participation = $2)
			    AND ((e.recurrence_rule = '' AND e.end_time >= $3)
			      OR (e.recurrence_rule <> '' AND (e.recurrence_end IS NULL OR e.recurrence_end >= $3)))
			  ORDER BY e.start_time`

	return r.queryEvents(ctx, query, tenantId, string(ParticipationInvolved), now.UnixMilli())
}

func (r *RepositoryImpl) FindVisible(ctx context.Context, tenantId int, userId int, from, to time.Time) ([]Event, error) {
	// Non-recurring events must overlap [from, to); for recurring events the
	// series just has to be able to reach the range, the renderer's rule does
	// the per-occurrence work.
	query := `SELECT ` + eventColumns + `
			  FROM calendar_event e
			  WHERE e.tenant_id = $1
			    AND EXISTS (SELECT 1 FROM calendar_event_member m
			                WHERE m.event_uid = e.uid AND m.user_id = $2)
			    AND e.start_time < $3
			    AND ((e.recurrence_rule = '' AND e.end_time >= $4)
			      OR (e.recurrence_rule <> '' AND (e.recurrence_end IS NULL OR e.recurrence_end > $4)))
			  ORDER BY e.start_time`

	return r.queryEvents(ctx, query, tenantId, userId, to.UnixMilli(), from.UnixMilli())
}

func (r *RepositoryImpl) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachRelations(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func scanEvent(row interface{ Scan(dest ...any) error }) (Event, error) {
	var e Event
	var uidString string
	var startMillis, endMillis, createdMillis, updatedMillis int64
	var recurrenceEnd sql.NullInt64

	err := row.Scan(
		&uidString,
		&e.TenantId,
		&e.Title,
		&e.Description,
		&e.Location,
		&startMillis,
		&endMillis,
		&e.AllDay,
		&e.RecurrenceRule,
		&recurrenceEnd,
		&e.ReminderMinutes,
		&createdMillis,
		&updatedMillis,
	)
	if err != nil {
		return Event{}, err
	}

	uid, err := uuid.Parse(uidString)
	if err != nil {
		return Event{}, fmt.Errorf("invalid event uid %q: %w", uidString, err)
	}
	e.Uid = uid
	e.StartTime = time.UnixMilli(startMillis).UTC()
	e.EndTime = time.UnixMilli(endMillis).UTC()
	e.CreatedAt = time.UnixMilli(createdMillis).UTC()
	e.UpdatedAt = time.UnixMilli(updatedMillis).UTC()
	if recurrenceEnd.Valid {
		t := time.UnixMilli(recurrenceEnd.Int64).UTC()
		e.RecurrenceEnd = &t
	}
	return e, nil
}

// attachRelations loads members and exceptions for the given events in two
// batched queries.
func (r *RepositoryImpl) attachRelations(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	index := make(map[uuid.UUID]*Event, len(events))
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events))
	for i := range events {
		events[i].Members = []Member{}
		events[i].Exceptions = []Exception{}
		index[events[i].Uid] = &events[i]
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, events[i].Uid.String())
	}
	in := strings.Join(placeholders, ", ")

	memberQuery := `SELECT event_uid, user_id, participation FROM calendar_event_member
					WHERE event_uid IN (` + in + `) ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, memberQuery, args...)
	if err != nil {
		err := fmt.Errorf("could not query event members: %w", err)
		log.Error(err)
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var uidString, participation string
		var m Member
		if err := rows.Scan(&uidString, &m.UserId, &participation); err != nil {
			return fmt.Errorf("could not scan member row: %w", err)
		}
		uid, err := uuid.Parse(uidString)
		if err != nil {
			return fmt.Errorf("invalid event uid %q: %w", uidString, err)
		}
		m.EventUid = uid
		m.Participation = Participation(participation)
		if e, ok := index[uid]; ok {
			e.Members = append(e.Members, m)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	exceptionQuery := `SELECT event_uid, original_start, is_deleted, new_start, new_title
					   FROM calendar_event_exception
					   WHERE event_uid IN (` + in + `) ORDER BY original_start`
	exRows, err := r.db.QueryContext(ctx, exceptionQuery, args...)
	if err != nil {
		err := fmt.Errorf("could not query event exceptions: %w", err)
		log.Error(err)
		return err
	}
	defer exRows.Close()
	for exRows.Next() {
		var uidString string
		var originalMillis int64
		var newStart sql.NullInt64
		var newTitle sql.NullString
		var ex Exception
		if err := exRows.Scan(&uidString, &originalMillis, &ex.Deleted, &newStart, &newTitle); err != nil {
			return fmt.Errorf("could not scan exception row: %w", err)
		}
		uid, err := uuid.Parse(uidString)
		if err != nil {
			return fmt.Errorf("invalid event uid %q: %w", uidString, err)
		}
		ex.EventUid = uid
		ex.OriginalStart = time.UnixMilli(originalMillis).UTC()
		if newStart.Valid {
			t := time.UnixMilli(newStart.Int64).UTC()
			ex.NewStart = &t
		}
		if newTitle.Valid {
			s := newTitle.String
			ex.NewTitle = &s
		}
		if e, ok := index[uid]; ok {
			e.Exceptions = append(e.Exceptions, ex)
		}
	}
	return exRows.Err()
}

package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrNotAcquired means another process instance currently holds the lock.
// It is a normal skip signal for the scheduler, not a failure.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker is a cooperative, time-bounded lock shared across process instances.
// A held lock expires after its TTL, so a crashed holder cannot block the
// reminder cycle forever.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) error
	Release(ctx context.Context, name string) error
}

type DBLocker struct {
	db    *sql.DB
	owner string
}

func NewDBLocker(db *sql.DB) *DBLocker {
	return &DBLocker{db: db, owner: uuid.NewString()}
}

func (l *DBLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) error {
	now := time.Now()
	query := `INSERT INTO scheduler_lock (name, owner, expires_at) VALUES ($1, $2, $3)
			  ON CONFLICT (name)
			  DO UPDATE SET owner = $2, expires_at = $3
			  WHERE scheduler_lock.expires_at < $4`

	result, err := l.db.ExecContext(ctx, query, name, l.owner, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not acquire lock %q: %w", name, err)
		log.Error(err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read lock result: %w", err)
	}
	if affected == 0 {
		return ErrNotAcquired
	}
	return nil
}

func (l *DBLocker) Release(ctx context.Context, name string) error {
	query := `DELETE FROM scheduler_lock WHERE name = $1 AND owner = $2`
	if _, err := l.db.ExecContext(ctx, query, name, l.owner); err != nil {
		err := fmt.Errorf("could not release lock %q: %w", name, err)
		log.Error(err)
		return err
	}
	return nil
}

// StubLocker is an in-process Locker for tests and single-instance setups.
type StubLocker struct {
	held map[string]time.Time
}

func NewStubLocker() *StubLocker {
	return &StubLocker{held: make(map[string]time.Time)}
}

func (l *StubLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) error {
	if expiry, ok := l.held[name]; ok && expiry.After(time.Now()) {
		return ErrNotAcquired
	}
	l.held[name] = time.Now().Add(ttl)
	return nil
}

func (l *StubLocker) Release(ctx context.Context, name string) error {
	delete(l.held, name)
	return nil
}

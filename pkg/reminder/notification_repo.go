package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// NotificationRepo stores sent notifications. The evaluator only reads it, as
// a set membership test; records are written by the dispatcher after delivery.
type NotificationRepo interface {
	// RecentKeys returns the (user, link) pairs of notifications of the given
	// kind recorded since the given instant.
	RecentKeys(ctx context.Context, tenantId int, kind Kind, since time.Time) (map[Key]struct{}, error)
	Record(ctx context.Context, tenantId int, notification Notification, at time.Time) error
}

type NotificationRepoImpl struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepoImpl {
	return &NotificationRepoImpl{db: db}
}

func (r *NotificationRepoImpl) RecentKeys(ctx context.Context, tenantId int, kind Kind, since time.Time) (map[Key]struct{}, error) {
	query := `SELECT user_id, link FROM notification
			  WHERE tenant_id = $1 AND kind = $2 AND created_at >= $3`

	rows, err := r.db.QueryContext(ctx, query, tenantId, string(kind), since.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not query recent notifications: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	keys := make(map[Key]struct{})
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.UserId, &k.Link); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func (r *NotificationRepoImpl) Record(ctx context.Context, tenantId int, notification Notification, at time.Time) error {
	query := `INSERT INTO notification (tenant_id, user_id, kind, title, message, link, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		tenantId,
		notification.UserId,
		string(notification.Kind),
		notification.Title,
		notification.Message,
		notification.Link,
		at.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not record notification: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

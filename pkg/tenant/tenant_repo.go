package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Repository interface {
	ListIds(ctx context.Context) ([]int, error)
	GetTenant(ctx context.Context, tenantId int) (*Tenant, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// ListIds returns the identifiers of all tenants. The reminder cycle iterates
// over this list, so ordering is kept stable.
func (r *RepositoryImpl) ListIds(ctx context.Context) ([]int, error) {
	query := `SELECT id FROM tenant ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query tenants: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0, 10)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *RepositoryImpl) GetTenant(ctx context.Context, tenantId int) (*Tenant, error) {
	query := `SELECT id, name, created_at FROM tenant WHERE id = $1`

	var t Tenant
	var createdAtMillis int64
	err := r.db.QueryRowContext(ctx, query, tenantId).Scan(&t.Id, &t.Name, &createdAtMillis)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		err := fmt.Errorf("could not query tenant %d: %w", tenantId, err)
		log.Error(err)
		return nil, err
	}
	t.CreatedAt = time.UnixMilli(createdAtMillis).UTC()
	return &t, nil
}

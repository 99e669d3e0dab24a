package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetUsersByIds(ctx context.Context, tenantId int, ids []int) ([]User, error)
}

type UserRepoImpl struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const userColumns = `id, uid, tenant_id, display_name, email, timezone, channel_email, channel_push, channel_in_app`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Uid,
		&u.TenantId,
		&u.DisplayName,
		&u.Email,
		&u.Settings.Timezone,
		&u.Settings.Channels.Email,
		&u.Settings.Channels.Push,
		&u.Settings.Channels.InApp,
	)
	return u, err
}

func (r *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		log.Errorf("failed to get user %d: %v", id, err)
		return User{}, err
	}
	return u, nil
}

func (r *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		log.Errorf("failed to get user by uid %s: %v", uid, err)
		return User{}, err
	}
	return u, nil
}

// GetUsersByIds loads the given users of one tenant. Unknown ids are silently
// skipped; membership rows can outlive deleted users.
func (r *UserRepoImpl) GetUsersByIds(ctx context.Context, tenantId int, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantId)
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, id)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND id IN (` +
		strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query users: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

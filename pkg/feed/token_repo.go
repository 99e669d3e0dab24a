package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrFeedNotFound covers both unknown and revoked tokens; callers must not be
// able to tell the two apart.
var ErrFeedNotFound = errors.New("feed not found")

// TokenRepo maps opaque bearer tokens to feed owners. Tokens are random, not
// signed, so revocation is a plain delete.
type TokenRepo interface {
	CreateToken(ctx context.Context, tenantId int, userId int) (string, error)
	ResolveToken(ctx context.Context, token string) (tenantId int, userId int, err error)
	RevokeTokens(ctx context.Context, tenantId int, userId int) error
}

type TokenRepoImpl struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepoImpl {
	return &TokenRepoImpl{db: db}
}

func (r *TokenRepoImpl) CreateToken(ctx context.Context, tenantId int, userId int) (string, error) {
	token := uuid.NewString()
	query := `INSERT INTO feed_token (token, tenant_id, user_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, token, tenantId, userId, time.Now().UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not store feed token: %w", err)
		log.Error(err)
		return "", err
	}
	return token, nil
}

func (r *TokenRepoImpl) ResolveToken(ctx context.Context, token string) (int, int, error) {
	query := `SELECT tenant_id, user_id FROM feed_token WHERE token = $1`
	var tenantId, userId int
	err := r.db.QueryRowContext(ctx, query, token).Scan(&tenantId, &userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrFeedNotFound
		}
		err := fmt.Errorf("could not resolve feed token: %w", err)
		log.Error(err)
		return 0, 0, err
	}
	return tenantId, userId, nil
}

func (r *TokenRepoImpl) RevokeTokens(ctx context.Context, tenantId int, userId int) error {
	query := `DELETE FROM feed_token WHERE tenant_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, tenantId, userId)
	if err != nil {
		err := fmt.Errorf("could not revoke feed tokens: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

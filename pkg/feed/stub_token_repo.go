package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type tokenOwner struct {
	tenantId int
	userId   int
}

type TokenRepoStub struct {
	mu     sync.RWMutex
	tokens map[string]tokenOwner
}

func NewTokenRepoStub() *TokenRepoStub {
	return &TokenRepoStub{tokens: make(map[string]tokenOwner)}
}

func (r *TokenRepoStub) CreateToken(ctx context.Context, tenantId int, userId int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := uuid.NewString()
	r.tokens[token] = tokenOwner{tenantId: tenantId, userId: userId}
	return token, nil
}

func (r *TokenRepoStub) ResolveToken(ctx context.Context, token string) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.tokens[token]
	if !ok {
		return 0, 0, ErrFeedNotFound
	}
	return owner.tenantId, owner.userId, nil
}

func (r *TokenRepoStub) RevokeTokens(ctx context.Context, tenantId int, userId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, owner := range r.tokens {
		if owner.tenantId == tenantId && owner.userId == userId {
			delete(r.tokens, token)
		}
	}
	return nil
}

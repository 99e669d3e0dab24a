package tenant

import (
	"context"
	"sort"
	"sync"
)

type RepositoryStub struct {
	mu      sync.RWMutex
	tenants map[int]Tenant
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{tenants: make(map[int]Tenant)}
}

func (r *RepositoryStub) Add(t Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.Id] = t
}

func (r *RepositoryStub) ListIds(ctx context.Context) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *RepositoryStub) GetTenant(ctx context.Context, tenantId int) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantId]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

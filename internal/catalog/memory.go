package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps resources in process memory. It backs STORE_DRIVER=memory
// and the tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{resources: make(map[string]Resource)}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Resource
	for _, res := range r.resources {
		if f.Type != "" && res.Type != f.Type {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, res *Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resources[res.ID] = *res
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, res *Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.resources[res.ID]
	if !ok {
		return ErrNotFound
	}
	res.CreatedAt = cur.CreatedAt
	r.resources[res.ID] = *res
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[id]; !ok {
		return ErrNotFound
	}
	delete(r.resources, id)
	return nil
}

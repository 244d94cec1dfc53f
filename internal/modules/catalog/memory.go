package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu    sync.RWMutex
	order []string
	m     map[string]*Product
}

// NewMemoryRepository returns a process-local Repository. Data is lost on exit.
func NewMemoryRepository() Repository {
	return &memoryRepo{m: make(map[string]*Product)}
}

func (r *memoryRepo) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.NewString()
	r.m[p.ID] = p.Clone()
	r.order = append(r.order, p.ID)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.m[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p.Clone(), nil
}

func (r *memoryRepo) List(_ context.Context) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	products := make([]*Product, 0, len(r.order))
	for _, id := range r.order {
		products = append(products, r.m[id].Clone())
	}
	return products, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[p.ID]; !ok {
		return ErrProductNotFound
	}
	r.m[p.ID] = p.Clone()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return nil
	}
	delete(r.m, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.m)), nil
}

func (r *memoryRepo) Ping(context.Context) error  { return nil }
func (r *memoryRepo) Close(context.Context) error { return nil }

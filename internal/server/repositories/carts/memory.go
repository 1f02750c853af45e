package carts

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

// MemoryRepository keys carts by user id.
type MemoryRepository struct {
	mu     sync.Mutex
	byUser map[string]models.Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byUser: make(map[string]models.Cart)}
}

func (r *MemoryRepository) Create(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUser[cart.UserID]; ok {
		return common.ErrorAlreadyExists
	}
	r.byUser[cart.UserID] = *cart
	return nil
}

func (r *MemoryRepository) GetByUser(_ context.Context, userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byUser[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &v, nil
}

func (r *MemoryRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUser[userID]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byUser, userID)
	return nil
}

func (r *MemoryRepository) EnsureIndexes(context.Context) error { return nil }

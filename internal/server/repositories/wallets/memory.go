package wallets

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

// MemoryRepository keys wallets by user id.
type MemoryRepository struct {
	mu     sync.Mutex
	byUser map[string]models.Wallet
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byUser: make(map[string]models.Wallet)}
}

func (r *MemoryRepository) Create(_ context.Context, wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUser[wallet.UserID]; ok {
		return common.ErrorAlreadyExists
	}
	r.byUser[wallet.UserID] = *wallet
	return nil
}

func (r *MemoryRepository) GetByUser(_ context.Context, userID string) (*models.Wallet, error) {
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

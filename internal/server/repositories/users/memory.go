package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

// MemoryRepository keeps users in process memory. It enforces the same
// uniqueness rules as the Mongo indexes.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]models.User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; ok {
		return common.ErrorAlreadyExists
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryRepository) Update(_ context.Context, id string, p Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.apply(&u)
	if err := r.checkUnique(&u); err != nil {
		return err
	}
	r.byID[id] = u
	return nil
}

func (r *MemoryRepository) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LastActive = at
	r.byID[id] = u
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) EnsureIndexes(context.Context) error { return nil }

// checkUnique must be called with the write lock held.
func (r *MemoryRepository) checkUnique(user *models.User) error {
	for id, other := range r.byID {
		if id == user.ID {
			continue
		}
		if other.Email == user.Email {
			return ErrDuplicateEmail
		}
		if other.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	return nil
}

func (r *MemoryRepository) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}

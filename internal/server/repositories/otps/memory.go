package otps

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

// MemoryRepository mirrors the Mongo indexes, including the single
// unverified code per owner.
type MemoryRepository struct {
	mu   sync.Mutex
	otps map[string]models.Otp
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{otps: make(map[string]models.Otp)}
}

func (r *MemoryRepository) Create(_ context.Context, otp *models.Otp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.otps[otp.ID]; ok {
		return common.ErrorAlreadyExists
	}
	if !otp.Verified && r.hasUnverified(otp.OwnerID, otp.ID) {
		return common.ErrorAlreadyExists
	}
	r.otps[otp.ID] = *otp
	return nil
}

func (r *MemoryRepository) GetLatestByOwner(_ context.Context, ownerID string) (*models.Otp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.Otp
	for _, o := range r.otps {
		if o.OwnerID != ownerID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			found := o
			latest = &found
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	return latest, nil
}

func (r *MemoryRepository) GetUnverifiedByOwner(_ context.Context, ownerID string) (*models.Otp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.otps {
		if o.OwnerID == ownerID && !o.Verified {
			found := o
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Otp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.otps[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &o, nil
}

func (r *MemoryRepository) Update(_ context.Context, otp *models.Otp) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.otps[otp.ID]; !ok {
		return common.ErrorNotFound
	}
	if !otp.Verified && r.hasUnverified(otp.OwnerID, otp.ID) {
		return common.ErrorAlreadyExists
	}
	r.otps[otp.ID] = *otp
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.otps[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.otps, id)
	return nil
}

func (r *MemoryRepository) DeleteAllByOwner(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, o := range r.otps {
		if o.OwnerID == ownerID {
			delete(r.otps, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) EnsureIndexes(context.Context) error { return nil }

// Len reports the number of stored codes.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.otps)
}

func (r *MemoryRepository) hasUnverified(ownerID, exceptID string) bool {
	for id, o := range r.otps {
		if id != exceptID && o.OwnerID == ownerID && !o.Verified {
			return true
		}
	}
	return false
}

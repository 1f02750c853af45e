package repomanager

import (
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/carts"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/otps"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/users"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/wallets"
)

// NewMemoryRepositoryManager returns fresh in-memory repositories. Used by
// tests and by the server when no MongoDB URI is configured.
func NewMemoryRepositoryManager() RepositoryManager {
	return &manager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		otps:          otps.NewMemoryRepository(),
		carts:         carts.NewMemoryRepository(),
		wallets:       wallets.NewMemoryRepository(),
	}
}

// Package repomanager vends the repositories the server runs on, so services
// can be built against either MongoDB or the in-memory stores.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/quickmart/internal/server/repositories/carts"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/otps"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/users"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/wallets"
)

type RepositoryManager interface {
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	Otps() otps.Repository
	Carts() carts.Repository
	Wallets() wallets.Repository
	// EnsureIndexes creates every collection index the repositories rely on.
	EnsureIndexes(ctx context.Context) error
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

type manager struct {
	users         users.Repository
	refreshTokens refreshtokens.Repository
	otps          otps.Repository
	carts         carts.Repository
	wallets       wallets.Repository
}

func (m *manager) Users() users.Repository                 { return m.users }
func (m *manager) RefreshTokens() refreshtokens.Repository { return m.refreshTokens }
func (m *manager) Otps() otps.Repository                   { return m.otps }
func (m *manager) Carts() carts.Repository                 { return m.carts }
func (m *manager) Wallets() wallets.Repository             { return m.wallets }

func (m *manager) EnsureIndexes(ctx context.Context) error {
	for _, ix := range []indexer{m.users, m.refreshTokens, m.otps, m.carts, m.wallets} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

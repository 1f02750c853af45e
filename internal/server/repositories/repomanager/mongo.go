package repomanager

import (
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/carts"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/otps"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/users"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/wallets"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewMongoRepositoryManager binds every repository to db.
func NewMongoRepositoryManager(db *mongo.Database) RepositoryManager {
	return &manager{
		users:         users.NewMongoRepository(db),
		refreshTokens: refreshtokens.NewMongoRepository(db),
		otps:          otps.NewMongoRepository(db),
		carts:         carts.NewMongoRepository(db),
		wallets:       wallets.NewMongoRepository(db),
	}
}

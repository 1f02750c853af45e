package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/events"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/carts"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/wallets"
	"github.com/google/uuid"
)

// CartInitializer gives every new user an empty cart.
type CartInitializer struct {
	carts carts.Repository
	now   func() time.Time
	newID func() string
}

func NewCartInitializer(r carts.Repository) *CartInitializer {
	return &CartInitializer{carts: r, now: time.Now, newID: uuid.NewString}
}

func (i *CartInitializer) Name() string { return "cart" }

// HandleUserRegistered is idempotent: an existing cart counts as done.
func (i *CartInitializer) HandleUserRegistered(ctx context.Context, ev events.UserRegistered) error {
	now := i.now()
	err := i.carts.Create(ctx, &models.Cart{
		ID:        i.newID(),
		UserID:    ev.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !errors.Is(err, common.ErrorAlreadyExists) {
		return err
	}
	return nil
}

// WalletInitializer gives every new user an empty wallet in the default
// currency.
type WalletInitializer struct {
	wallets wallets.Repository
	now     func() time.Time
	newID   func() string
}

func NewWalletInitializer(r wallets.Repository) *WalletInitializer {
	return &WalletInitializer{wallets: r, now: time.Now, newID: uuid.NewString}
}

func (i *WalletInitializer) Name() string { return "wallet" }

func (i *WalletInitializer) HandleUserRegistered(ctx context.Context, ev events.UserRegistered) error {
	now := i.now()
	err := i.wallets.Create(ctx, &models.Wallet{
		ID:        i.newID(),
		UserID:    ev.UserID,
		Balance:   0,
		Currency:  models.DefaultCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !errors.Is(err, common.ErrorAlreadyExists) {
		return err
	}
	return nil
}

// Package ctl implements the quickmartctl operator commands: index
// bootstrap and account provisioning against the user store.
package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/server/config"
	"github.com/dmitrijs2005/quickmart/internal/server/events"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quickmart/internal/server/services"
	"github.com/google/uuid"
)

const (
	CmdEnsureIndexes = "ensure-indexes"
	CmdSeedUsers     = "seed-users"
	CmdCreateUser    = "create-user"
)

var Commands = []string{CmdEnsureIndexes, CmdSeedUsers, CmdCreateUser}

var ErrUnknownCommand = errors.New("unknown command")

type Hasher interface {
	Hash(plaintext string) (string, error)
}

// App runs one operator command. Provisioned accounts are handed to the
// same initializers the server runs on registration, synchronously.
type App struct {
	repos        repomanager.RepositoryManager
	hasher       Hasher
	initializers []events.UserRegisteredHandler
	prompter     *Prompter
	out          io.Writer
	logger       logging.Logger

	now   func() time.Time
	newID func() string
}

func NewApp(repos repomanager.RepositoryManager, hasher Hasher, prompter *Prompter, out io.Writer,
	logger logging.Logger, initializers ...events.UserRegisteredHandler) *App {
	return &App{
		repos:        repos,
		hasher:       hasher,
		initializers: initializers,
		prompter:     prompter,
		out:          out,
		logger:       logger.With("module", "ctl"),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// FindCommand returns the first argument naming a known command.
func FindCommand(args []string) (string, bool) {
	for _, a := range args {
		for _, c := range Commands {
			if a == c {
				return c, true
			}
		}
	}
	return "", false
}

func (a *App) Run(ctx context.Context, cmd string, users config.InitialUsers) error {
	switch cmd {
	case CmdEnsureIndexes:
		return a.EnsureIndexes(ctx)
	case CmdSeedUsers:
		return a.SeedUsers(ctx, users)
	case CmdCreateUser:
		return a.CreateUser(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
}

func (a *App) EnsureIndexes(ctx context.Context) error {
	if err := a.repos.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	fmt.Fprintln(a.out, "indexes are up to date")
	return nil
}

type seed struct {
	role     models.Role
	username string
	password string
}

// SeedUsers creates the configured customer, seller and admin accounts.
// Pairs with an empty username or password are skipped, and so are
// usernames that already exist.
func (a *App) SeedUsers(ctx context.Context, iu config.InitialUsers) error {
	seeds := []seed{
		{models.RoleCustomer, iu.CustomerUsername, iu.CustomerPassword},
		{models.RoleSeller, iu.SellerUsername, iu.SellerPassword},
		{models.RoleAdmin, iu.AdminUsername, iu.AdminPassword},
	}

	created := 0
	for _, s := range seeds {
		if s.username == "" || s.password == "" {
			a.logger.Warn(ctx, "initial user not configured", "role", s.role)
			continue
		}

		_, err := a.repos.Users().GetByUsername(ctx, s.username)
		if err == nil {
			a.logger.Warn(ctx, "initial user already exists", "role", s.role, "username", s.username)
			continue
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("lookup %s: %w", s.username, err)
		}

		email := s.username + "@gmail.com"
		if _, err := a.provision(ctx, s.role, seedFullname(s.username), s.username, email, s.password); err != nil {
			return err
		}
		created++
	}

	fmt.Fprintf(a.out, "seeded %d user(s)\n", created)
	return nil
}

// seedFullname turns "john_doe" into "John Doe".
func seedFullname(username string) string {
	words := strings.Fields(strings.ReplaceAll(username, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// CreateUser asks for the account details interactively.
func (a *App) CreateUser(ctx context.Context) error {
	username, err := a.prompter.Text("Username")
	if err != nil {
		return err
	}
	email, err := a.prompter.Text("Email")
	if err != nil {
		return err
	}
	fullname, err := a.prompter.Text("Full name (optional)")
	if err != nil {
		return err
	}
	roleText, err := a.prompter.Text("Role (customer, seller, admin)")
	if err != nil {
		return err
	}
	role := models.Role(strings.ToLower(roleText))
	if roleText == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", roleText)
	}

	password, err := a.prompter.Password("Password")
	if err != nil {
		return err
	}
	confirm, err := a.prompter.Password("Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		return services.ErrPasswordMismatch
	}

	if fullname == "" {
		fullname = seedFullname(username)
	}

	user, err := a.provision(ctx, role, fullname, username, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created %s %s (%s)\n", user.Role, user.Username, user.ID)
	return nil
}

// provision stores a verified account and runs the initializers.
func (a *App) provision(ctx context.Context, role models.Role, fullname, username, email, password string) (*models.User, error) {
	if err := services.ValidateAccount(username, email, password); err != nil {
		return nil, err
	}

	digest, err := a.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := a.now()
	user := &models.User{
		ID:             a.newID(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Role:           role,
		Fullname:       fullname,
		Username:       username,
		Email:          email,
		EmailVerified:  true,
		Language:       models.DefaultLanguage,
		Currency:       models.DefaultCurrency,
		PasswordDigest: digest,
	}
	if err := a.repos.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create %s: %w", username, err)
	}
	a.logger.Info(ctx, "user provisioned", "user_id", user.ID, "username", username, "role", role)

	for _, h := range a.initializers {
		if err := h.HandleUserRegistered(ctx, events.UserRegistered{UserID: user.ID}); err != nil {
			return nil, fmt.Errorf("%s initializer for %s: %w", h.Name(), username, err)
		}
	}
	return user, nil
}

// Package server wires the quickmart HTTP API: storage, token codec,
// notifier, object store, rate limiter and the registration event bus.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/cryptox"
	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/mongox"
	"github.com/dmitrijs2005/quickmart/internal/server/auth"
	"github.com/dmitrijs2005/quickmart/internal/server/blobstore"
	"github.com/dmitrijs2005/quickmart/internal/server/config"
	"github.com/dmitrijs2005/quickmart/internal/server/events"
	"github.com/dmitrijs2005/quickmart/internal/server/notify"
	"github.com/dmitrijs2005/quickmart/internal/server/ratelimit"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quickmart/internal/server/rest"
	"github.com/dmitrijs2005/quickmart/internal/server/services"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	server *rest.Server
	bus    *events.Bus

	mongo *mongo.Client
	redis *redis.Client
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.Debug)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	client, db, err := mongox.Connect(ctx, c.MongoURI, c.MongoDatabase, mongox.DefaultOptions, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, mongo: client}

	if err := app.build(ctx, repomanager.NewMongoRepositoryManager(db)); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) build(ctx context.Context, repos repomanager.RepositoryManager) error {
	c := app.config

	if err := repos.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	notifier, err := app.newNotifier()
	if err != nil {
		return err
	}

	store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		Endpoint:  c.S3BaseEndpoint,
	})
	if err != nil {
		return fmt.Errorf("object store init error: %w", err)
	}

	limiter, err := app.newLimiter(ctx)
	if err != nil {
		return err
	}

	app.bus = events.NewBus(app.logger, 0)
	app.bus.SubscribeUserRegistered(services.NewCartInitializer(repos.Carts()))
	app.bus.SubscribeUserRegistered(services.NewWalletInitializer(repos.Wallets()))

	hasher := cryptox.NewPasswordHasher(cryptox.DefaultArgon2Params)
	codec := auth.NewTokenCodec([]byte(c.SecretKey))

	as := services.NewAuthService(repos, hasher, codec, notifier, app.bus, services.AuthConfig{
		AccessTokenTTL:  c.AccessTokenValidityDuration,
		RefreshTokenTTL: c.RefreshTokenValidityDuration,
		OtpTTL:          c.OtpValidityDuration,
	}, app.logger)
	us := services.NewUserService(repos, hasher, store, app.logger)

	app.server = rest.NewServer(c.HTTPAddr, app.logger, as, us, rest.Options{
		Limiter: limiter,
		Health:  app.health,
	})
	return nil
}

// newNotifier falls back to logging OTP mails when no SMTP account is set.
func (app *App) newNotifier() (notify.Notifier, error) {
	c := app.config
	if c.SMTPUsername == "" || c.SMTPPassword == "" {
		app.logger.Warn(context.Background(), "smtp credentials not set, emails will be logged")
		return notify.NewLogNotifier(app.logger), nil
	}

	n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		Retries:  uint64(max(c.SMTPRetries, 0)),
	}, app.logger)
	if err != nil {
		return nil, fmt.Errorf("notifier init error: %w", err)
	}
	return n, nil
}

func (app *App) newLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	c := app.config
	if c.RateLimitRequests == 0 {
		return ratelimit.NopLimiter{}, nil
	}
	if c.RedisURL == "" {
		return ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow), nil
	}

	client, err := ratelimit.Connect(ctx, c.RedisURL, 3, app.logger)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.redis = client
	return ratelimit.NewRedisLimiter(client, c.RateLimitRequests, c.RateLimitWindow, app.logger), nil
}

func (app *App) health(ctx context.Context) error {
	if app.mongo == nil {
		return nil
	}
	return app.mongo.Ping(ctx, readpref.Primary())
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal or a server failure, then drains
// the event bus and closes connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if app.bus != nil {
		if err := app.bus.Close(ctx); err != nil {
			app.logger.Error(ctx, "event bus did not drain", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close failed", "error", err)
		}
	}
	if app.mongo != nil {
		if err := mongox.Disconnect(app.mongo, shutdownTimeout); err != nil {
			app.logger.Error(ctx, "mongo disconnect failed", "error", err)
		}
	}
}

// Package mongox opens MongoDB connections for repositories and tools.
package mongox

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Options tune connection bootstrap.
type Options struct {
	ConnectTimeout  time.Duration
	PingRetries     uint64
	PingBackoffBase time.Duration
}

var DefaultOptions = Options{
	ConnectTimeout:  10 * time.Second,
	PingRetries:     5,
	PingBackoffBase: 500 * time.Millisecond,
}

// pingPrimary is a test seam for the readiness ping.
var pingPrimary = func(ctx context.Context, c *mongo.Client) error {
	return c.Ping(ctx, readpref.Primary())
}

// Connect dials uri, waits for the primary with exponential backoff and
// returns the client and the named database. The caller owns the client
// and must Disconnect it.
func Connect(ctx context.Context, uri, database string, opts Options, logger logging.Logger) (*mongo.Client, *mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(opts.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	backoff := retry.WithMaxRetries(opts.PingRetries, retry.NewExponential(opts.PingBackoffBase))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
		if err := pingPrimary(pingCtx, client); err != nil {
			logger.Warn(ctx, "mongo not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info(ctx, "connected to mongo", "database", database)
	return client, client.Database(database), nil
}

// Disconnect closes the client, bounded by timeout.
func Disconnect(client *mongo.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// Command quickmartctl runs operator tasks against the quickmart database:
//
//	quickmartctl [flags] ensure-indexes
//	quickmartctl [flags] seed-users
//	quickmartctl [flags] create-user
//
// It reads the same configuration as the server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/cryptox"
	"github.com/dmitrijs2005/quickmart/internal/ctl"
	"github.com/dmitrijs2005/quickmart/internal/logging"
	"github.com/dmitrijs2005/quickmart/internal/mongox"
	"github.com/dmitrijs2005/quickmart/internal/server/config"
	"github.com/dmitrijs2005/quickmart/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quickmart/internal/server/services"
)

func main() {

	cmd, ok := ctl.FindCommand(os.Args[1:])
	if !ok {
		fmt.Fprintf(os.Stderr, "usage: quickmartctl [flags] <%s>\n", strings.Join(ctl.Commands, "|"))
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSONLogger(os.Stderr, cfg.Debug)

	client, db, err := mongox.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, mongox.DefaultOptions, logger)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer mongox.Disconnect(client, 5*time.Second)

	repos := repomanager.NewMongoRepositoryManager(db)
	app := ctl.NewApp(repos,
		cryptox.NewPasswordHasher(cryptox.DefaultArgon2Params),
		ctl.NewPrompter(os.Stdin, os.Stdout, int(os.Stdin.Fd())),
		os.Stdout,
		logger,
		services.NewCartInitializer(repos.Carts()),
		services.NewWalletInitializer(repos.Wallets()),
	)

	if err := app.Run(ctx, cmd, cfg.InitialUsers); err != nil {
		logger.Error(ctx, "command failed", "command", cmd, "error", err)
		stop()
		mongox.Disconnect(client, 5*time.Second)
		os.Exit(1)
	}

}

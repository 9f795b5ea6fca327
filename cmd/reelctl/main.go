// Command reelctl is the operator CLI for reelprompt: schema migrations,
// catalog seeding, signup bonus overrides, manual credit grants and account
// inspection through the public API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reelprompt/reelprompt/internal/cache"
	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
	"github.com/reelprompt/reelprompt/internal/service"
	"github.com/reelprompt/reelprompt/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(connect, os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// adminOps is the subset of the admin service the CLI drives.
type adminOps interface {
	SetEmailBonus(ctx context.Context, email string, credits *model.Credits, note string) (*model.EmailBonus, error)
	DeleteEmailBonus(ctx context.Context, email string) error
	GrantCredits(ctx context.Context, userID string, amount model.Credits, reason string) (model.Credits, error)
}

// catalogOps writes catalog prompts.
type catalogOps interface {
	Upsert(ctx context.Context, p *model.Prompt) (*model.Prompt, error)
}

// backend is what a command needs from the deployment.
type backend struct {
	admin   adminOps
	catalog catalogOps
	migrate func(ctx context.Context) ([]string, error)
	close   func()
}

// connectFunc opens a backend. Tests replace it with fakes.
type connectFunc func(ctx context.Context) (*backend, error)

// connect opens Postgres from DATABASE_URL. When REDIS_URL is also set the
// catalog cache is invalidated on import and grants reach live credit streams.
func connect(ctx context.Context) (*backend, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	repo, err := repository.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closers := []func(){repo.Close}

	var (
		catalogCache service.CatalogCache
		publisher    events.Publisher
	)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c, err := cache.New(ctx, redisURL)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		closers = append(closers, func() { _ = c.Close() })
		catalogCache = c
		// Publish-only: the CLI never starts the receive loop.
		publisher = events.NewRedisBridge(c.Client(), events.NewBus(), logger)
	}

	recorder := metrics.NewNoop()
	return &backend{
		admin:   service.NewAdminService(repo, repo, publisher, logger, recorder),
		catalog: service.NewCatalogService(repo, catalogCache, logger, recorder),
		migrate: func(ctx context.Context) ([]string, error) {
			return repo.Migrate(ctx, migrations.FS)
		},
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// newRootCmd builds the command tree.
func newRootCmd(connect connectFunc, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "reelctl",
		Short:        "Operate a reelprompt deployment",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	// withBackend opens a backend for the duration of one command.
	var withBackend backendRunner = func(run func(cmd *cobra.Command, args []string, b *backend) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()
			return run(cmd, args, b)
		}
	}

	root.AddCommand(
		newMigrateCmd(withBackend),
		newPromptsCmd(withBackend),
		newBonusCmd(withBackend),
		newCreditsCmd(withBackend),
		newAccountCmd(),
	)
	return root
}

// backendRunner adapts a command body that needs a backend into a RunE.
type backendRunner func(run func(cmd *cobra.Command, args []string, b *backend) error) func(*cobra.Command, []string) error

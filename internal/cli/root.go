// Package cli implements the routewarden command line client. Every
// invocation owns one session: it loads the signed in user's records, edits
// the draft from flags, sends through the relay and prints the outcome.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/igorsal/routewarden/internal/config"
	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/internal/repository"
	"github.com/igorsal/routewarden/internal/services"
	"github.com/igorsal/routewarden/internal/store"
	"github.com/igorsal/routewarden/io/relay"
	"github.com/igorsal/routewarden/pkg/breaker"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
	"github.com/igorsal/routewarden/pkg/logger"
	"github.com/igorsal/routewarden/pkg/metrics"
)

// MemoryDatabase keeps records in process instead of a SQLite file
const MemoryDatabase = ":memory:"

// Options controls how the root command builds its session
type Options struct {
	// LoadConfig defaults to config.LoadClient
	LoadConfig func() (*config.ClientConfig, error)
	Version    string
}

type globalFlags struct {
	relayURL    string
	database    string
	userID      string
	environment string
	output      string
	noColor     bool
}

// app is the per-invocation wiring shared by all subcommands
type app struct {
	cfg     *config.ClientConfig
	logger  interfaces.Logger
	session *services.Session
	flags   *globalFlags
	out     io.Writer
	closers []func() error
}

// Execute runs the command line and releases the session afterwards, also
// when the command failed
func Execute(ctx context.Context, opts Options) error {
	root, a := newRootCommand(opts)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func newRootCommand(opts Options) (*cobra.Command, *app) {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.LoadClient
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	flags := &globalFlags{}
	a := &app{flags: flags}

	root := &cobra.Command{
		Use:     "routewarden",
		Short:   "Send HTTP requests through a routewarden relay",
		Version: opts.Version,
		Long: `routewarden builds HTTP requests with {{variable}} templates, sends them
through a relay and keeps history, collections and environments per user.

Examples:
  routewarden send https://dummyjson.com/products -q limit=5
  routewarden send -X POST '{{base}}/products/add' -d '{"title":"foo"}' --env dev
  routewarden history list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return a.init(cmd, cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.relayURL, "relay", "", "relay base URL (overrides ROUTEWARDEN_RELAY_URL)")
	pf.StringVar(&flags.database, "db", "", "SQLite database path, or :memory: (overrides ROUTEWARDEN_DB)")
	pf.StringVar(&flags.userID, "user", "", "user id owning the records (overrides ROUTEWARDEN_USER_ID)")
	pf.StringVarP(&flags.environment, "env", "e", "", "environment name used for {{variable}} substitution")
	pf.StringVarP(&flags.output, "output", "o", "text", "output format: text or json")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newSendCommand(a))
	root.AddCommand(newHistoryCommand(a))
	root.AddCommand(newEnvCommand(a))
	root.AddCommand(newCollectionsCommand(a))

	return root, a
}

func (a *app) init(cmd *cobra.Command, cfg *config.ClientConfig) error {
	if a.flags.relayURL != "" {
		cfg.RelayURL = a.flags.relayURL
	}
	if a.flags.database != "" {
		cfg.DatabasePath = a.flags.database
	}
	if a.flags.userID != "" {
		cfg.UserID = a.flags.userID
	}
	if a.flags.output != "text" && a.flags.output != "json" {
		return pkgerrors.NewValidationError(fmt.Sprintf("unknown output format %q", a.flags.output))
	}
	setColor(!a.flags.noColor)

	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.logger = logger.NewWriterAdapter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	collector := metrics.Noop{}

	records, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	guarded := store.NewGuardedStore(records, breaker.New("store", breaker.Settings(cfg.Breaker), a.logger, collector))

	a.session = services.NewSession(
		relay.NewClient(*cfg, a.logger, collector),
		repository.NewHistoryRepository(guarded),
		repository.NewCollectionRepository(guarded),
		repository.NewEnvironmentRepository(guarded),
		a.logger,
		collector,
	)
	if cfg.UserID != "" {
		a.session.SetUser(&models.User{ID: cfg.UserID, Email: cfg.UserEmail})
	}

	a.logger.Debug("Session ready",
		"relay_url", cfg.RelayURL,
		"database", cfg.DatabasePath,
		"user_id", cfg.UserID,
	)
	return nil
}

func (a *app) openStore(ctx context.Context) (interfaces.RecordStore, error) {
	if a.cfg.DatabasePath == MemoryDatabase {
		return store.NewMemoryStore(), nil
	}

	db, err := store.OpenSQLite(ctx, a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// close waits for background history writes before releasing the store
func (a *app) close() error {
	if a.session != nil {
		a.session.Wait()
	}

	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// useEnvironment activates the environment named by --env, if any
func (a *app) useEnvironment(ctx context.Context) error {
	if a.flags.environment == "" {
		return nil
	}
	env, err := a.findEnvironment(ctx, a.flags.environment)
	if err != nil {
		return err
	}
	a.session.SetActiveEnvironment(env.ID)
	return nil
}

func (a *app) findEnvironment(ctx context.Context, name string) (*models.Environment, error) {
	if a.session.User() == nil {
		return nil, pkgerrors.NewUnauthorizedError("environments need a user; set ROUTEWARDEN_USER_ID or --user")
	}
	for _, env := range a.session.FetchEnvironments(ctx) {
		if env.Name == name || env.ID == name {
			e := env
			return &e, nil
		}
	}
	return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("environment %q not found", name))
}

func (a *app) findCollection(ctx context.Context, name string) (*models.Collection, error) {
	if a.session.User() == nil {
		return nil, pkgerrors.NewUnauthorizedError("collections need a user; set ROUTEWARDEN_USER_ID or --user")
	}
	for _, c := range a.session.FetchCollections(ctx) {
		if c.Name == name || c.ID == name {
			found := c
			return &found, nil
		}
	}
	return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("collection %q not found", name))
}

func (a *app) jsonOutput() bool {
	return a.flags.output == "json"
}

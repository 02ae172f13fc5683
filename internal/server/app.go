// Package server wires configuration, logging, storage and services together
// and runs the gRPC endpoint until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophrecipes/internal/logging"
	"github.com/dmitrijs2005/gophrecipes/internal/server/auth"
	"github.com/dmitrijs2005/gophrecipes/internal/server/config"
	"github.com/dmitrijs2005/gophrecipes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophrecipes/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophrecipes/internal/server/grpc"
)

// Services is the library surface offered to request-handling layers.
type Services struct {
	Auth    *services.AuthService
	Follows *services.FollowService
	Reviews *services.ReviewService
	Ratings *services.RatingAggregator
	Recipes *services.RecipeService
	Users   *services.UserService
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	sync        func() error
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	services    Services
}

func NewApp(c *config.Config) (*App, error) {

	logger, sync, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}

	a := services.NewAuthService(db, rm, auth.NewBcryptHasher(c.BcryptCost), c, logger.With("service", "auth"))
	ratings := services.NewRatingAggregator(db, rm, c, logger.With("service", "ratings"))

	return &App{
		config:      c,
		logger:      logger,
		sync:        sync,
		db:          db,
		repomanager: rm,
		services: Services{
			Auth:    a,
			Follows: services.NewFollowService(db, rm, a, c, logger.With("service", "follows")),
			Reviews: services.NewReviewService(db, rm, a, ratings, c, logger.With("service", "reviews")),
			Ratings: ratings,
			Recipes: services.NewRecipeService(db, rm, a, c, logger.With("service", "recipes")),
			Users:   services.NewUserService(db, rm, a, c, logger.With("service", "users")),
		},
	}, nil
}

// newLogger builds the configured backend and its flush function.
func newLogger(c *config.Config) (logging.Logger, func() error, error) {
	switch c.LogBackend {
	case "zap":
		z, err := logging.NewProductionZapLogger(c.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return z, z.Sync, nil
	default:
		return logging.NewJSONSlogLogger(os.Stdout, c.LogLevel), func() error { return nil }, nil
	}
}

// Services returns the wired domain services.
func (app *App) Services() Services {
	return app.services
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema and serves gRPC until ctx is cancelled or a
// termination signal arrives. The database is closed on return.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migrations failed", "error", err)
		return fmt.Errorf("migrations: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db)
		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			return err
		}
		return nil
	})

	return g.Wait()
}

func (app *App) close(ctx context.Context) {
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	_ = app.sync()
}

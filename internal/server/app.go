// Package server wires the Gatherer backend together: configuration,
// PostgreSQL, object storage signing and the REST endpoint, plus graceful
// shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/logging"
	"github.com/dmitrijs2005/gatherer/internal/server/config"
	"github.com/dmitrijs2005/gatherer/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatherer/internal/server/rest"
	"github.com/dmitrijs2005/gatherer/internal/server/services"
	"github.com/dmitrijs2005/gatherer/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

// tokenPurgeInterval is how often expired refresh tokens are deleted.
const tokenPurgeInterval = time.Hour

type App struct {
	config           *config.Config
	logger           logging.Logger
	db               *sql.DB
	userService      *services.UserService
	directoryService *services.DirectoryService
	storageService   *services.StorageService
}

var openDB = repomanager.OpenDB

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	presigner, err := storage.NewPresigner(ctx, storage.Options{
		Region:    c.S3Region,
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Endpoint:  c.S3BaseEndpoint,
		Bucket:    c.S3Bucket,
		Expiry:    c.PresignExpiry,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	return &App{
		config:           c,
		logger:           logger,
		db:               db,
		userService:      services.NewUserService(db, rm, c),
		directoryService: services.NewDirectoryService(db, rm),
		storageService:   services.NewStorageService(presigner),
	}, nil
}

func (app *App) Close() error {
	return app.db.Close()
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

// purgeExpiredTokens deletes expired refresh tokens every interval until ctx
// is done.
func (app *App) purgeExpiredTokens(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := app.userService.PurgeExpiredTokens(ctx, now)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err.Error())
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	srv := rest.NewServer(app.config.ListenAddr, app.config.ShutdownTimeout, app.logger,
		app.userService, app.directoryService, app.storageService)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		app.purgeExpiredTokens(gctx, tokenPurgeInterval)
		return nil
	})

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

// AddUser creates a field staff account.
func (app *App) AddUser(ctx context.Context, username string, password []byte) error {
	u, err := app.userService.Register(ctx, username, password)
	if err != nil {
		return err
	}
	app.logger.Info(ctx, "Registered", "username", u.UserName, "id", u.ID)
	return nil
}

// ImportLocations loads level,code,name,parent_code CSV rows into the
// location directory.
func (app *App) ImportLocations(ctx context.Context, r io.Reader) error {
	n, err := app.directoryService.Import(ctx, r)
	if err != nil {
		return err
	}
	app.logger.Info(ctx, "Imported locations", "count", n)
	return nil
}

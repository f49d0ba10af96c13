package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/client/assets"
	"github.com/dmitrijs2005/gatherer/internal/client/client"
	"github.com/dmitrijs2005/gatherer/internal/client/config"
	"github.com/dmitrijs2005/gatherer/internal/client/filters"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/client/repositories/cacheindex"
	"github.com/dmitrijs2005/gatherer/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gatherer/internal/client/services"
	"github.com/dmitrijs2005/gatherer/internal/filex"
	"github.com/dmitrijs2005/gatherer/internal/hashx"
	"github.com/dmitrijs2005/gatherer/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const onlineCheckInterval = 5 * time.Second

// assetCache is the part of *assets.Cache the REPL drives.
type assetCache interface {
	Resolve(ctx context.Context, asset models.RemoteAsset) (string, error)
	Upload(ctx context.Context, files map[string]*models.LocalFile) (map[string]models.UploadedAsset, error)
	Remove(ctx context.Context, id int64) error
	Entries(ctx context.Context) ([]models.CacheEntry, error)
}

type App struct {
	config        *config.Config
	log           logging.Logger
	db            *sql.DB
	authService   services.AuthService
	filterService services.FilterService
	cache         assetCache
	hasher        hashx.Hasher
	editor        *filters.Resolver
	userName      string
	Mode          Mode
	reader        *bufio.Reader
	out           io.Writer
}

// NewApp opens the local database under the configured data directory and
// wires the REST client, asset cache and services around it.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	hasher, err := c.Hasher()
	if err != nil {
		return nil, err
	}

	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, filepath.Join(dir, "gatherer.db"))
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	meta := metadata.NewSQLiteRepository(db)

	apiClient, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout,
		client.WithTokenListener(services.TokenSaver(meta, log)))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cache, err := assets.New(apiClient, cacheindex.NewSQLiteRepository(db), filepath.Join(dir, "assets"), log,
		assets.WithHasher(hasher),
		assets.WithUploadConcurrency(c.UploadConcurrency),
		assets.WithVerifyOnHit(c.VerifyOnHit),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:        c,
		log:           log,
		db:            db,
		authService:   services.NewAuthService(apiClient, db, log),
		filterService: services.NewFilterService(apiClient, meta, log),
		cache:         cache,
		hasher:        hasher,
		reader:        bufio.NewReader(os.Stdin),
		out:           os.Stdout,
	}, nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(ctx, fmt.Sprintf("switched to %s mode", mode))
	}
}

// Run blocks in the REPL until the user exits, then releases resources.
func (a *App) Run(ctx context.Context) {
	defer func() {
		_ = a.authService.Close(ctx)
		if a.db != nil {
			_ = a.db.Close()
		}
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(pingCtx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
	} else {
		a.setMode(ctx, ModeOnline)
	}
}

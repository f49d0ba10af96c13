// Package rest exposes the backend over HTTP with echo: authentication,
// storage signing and the location directory, all under /api/v1.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/logging"
	"github.com/dmitrijs2005/gatherer/internal/server/models"
	"github.com/dmitrijs2005/gatherer/internal/server/services"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const apiPrefix = "/api/v1"

type UserService interface {
	Login(ctx context.Context, userName string, password []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	UserIDFromAccessToken(token string) (string, error)
}

type DirectoryService interface {
	States(ctx context.Context) ([]models.Location, error)
	Children(ctx context.Context, level models.Level, parentCode int64) ([]models.Location, error)
}

type StorageService interface {
	SignUpload(ctx context.Context, fileName, contentType, hash string) (*models.UploadTarget, error)
	SignDownload(ctx context.Context, locator string) (string, error)
}

type Server struct {
	address         string
	shutdownTimeout time.Duration
	users           UserService
	directory       DirectoryService
	storage         StorageService
	logger          logging.Logger
	echo            *echo.Echo
}

func NewServer(address string, shutdownTimeout time.Duration, l logging.Logger,
	us UserService, ds DirectoryService, ss StorageService) *Server {
	s := &Server{
		address:         address,
		shutdownTimeout: shutdownTimeout,
		users:           us,
		directory:       ds,
		storage:         ss,
		logger:          l.With("module", "rest_server"),
	}
	s.echo = s.routes()
	return s
}

// Handler returns the routed echo instance.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			s.logger.Debug(c.Request().Context(), "request",
				"method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	api := e.Group(apiPrefix)
	api.GET("/ping", s.ping)

	a := api.Group("/auth")
	a.POST("/login", s.login)
	a.POST("/refresh", s.refresh)
	a.POST("/logout", s.logout)

	st := api.Group("/storage", s.accessTokenMiddleware)
	st.POST("/upload-url", s.uploadURL)
	st.POST("/download-url", s.downloadURL)

	loc := api.Group("/locations", s.accessTokenMiddleware)
	loc.GET("/states", s.states)
	loc.GET("/districts", s.children(models.LevelDistrict, "state"))
	loc.GET("/blocks", s.children(models.LevelBlock, "district"))
	loc.GET("/villages", s.children(models.LevelVillage, "block"))

	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting REST server", "address", s.address)
		if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping REST server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

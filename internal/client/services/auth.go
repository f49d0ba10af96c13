// Package services contains application services for the Gatherer field
// client. This file defines the authentication service: login against the
// backend, resuming a saved session, logout, and persistence of the bearer
// tokens in local metadata.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
	"github.com/dmitrijs2005/gatherer/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/dbx"
	"github.com/dmitrijs2005/gatherer/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist username and tokens.
//   - Resume: load tokens saved by an earlier Login into the client.
//   - Logout: revoke the refresh token and forget local auth data.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Resume(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// authService is the concrete AuthService backed by a remote Client and
// the local SQL database.
type authService struct {
	client client.Client
	db     *sql.DB
	log    logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB, log logging.Logger) AuthService {
	return &authService{client: client, db: db, log: log}
}

// Login sends the credentials and, on success, saves username and tokens in
// one transaction. The password buffer is wiped before returning.
func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	defer common.WipeByteArray(password)

	tokens, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Put(ctx, metadata.KeyUsername, []byte(username)); err != nil {
			return err
		}
		return metadata.SaveJSON(ctx, repo, metadata.KeyTokens, tokens)
	})
	if err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}

	a.log.Info(ctx, "logged in", "user", username)
	return nil
}

// Resume restores a saved session and returns its username. It returns
// client.ErrLocalDataNotAvailable when nobody has logged in on this device.
func (a *authService) Resume(ctx context.Context) (string, error) {
	repo := metadata.NewSQLiteRepository(a.db)

	var tokens client.Tokens
	found, err := metadata.LoadJSON(ctx, repo, metadata.KeyTokens, &tokens)
	if err != nil {
		return "", err
	}
	if !found || tokens.RefreshToken == "" {
		return "", client.ErrLocalDataNotAvailable
	}

	username, err := repo.Get(ctx, metadata.KeyUsername)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	a.client.SetTokens(tokens)
	return string(username), nil
}

// Logout revokes the session server-side when possible and always clears
// the local copy. A server error is returned after the local data is gone.
func (a *authService) Logout(ctx context.Context) error {
	remoteErr := a.client.Logout(ctx)

	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := metadata.NewSQLiteRepository(tx).DeleteNamespace(ctx, metadata.AuthNamespace)
		return err
	})
	if err != nil {
		return fmt.Errorf("session clearing error: %w", err)
	}

	if remoteErr != nil {
		a.log.Warn(ctx, "server logout failed", "error", remoteErr)
		return fmt.Errorf("logout error: %w", remoteErr)
	}
	return nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// TokenSaver returns a client.WithTokenListener callback that persists
// renewed tokens. Failures are logged; the in-memory tokens stay valid.
func TokenSaver(repo metadata.Repository, log logging.Logger) func(client.Tokens) {
	return func(t client.Tokens) {
		ctx := context.Background()
		if err := metadata.SaveJSON(ctx, repo, metadata.KeyTokens, t); err != nil {
			log.Warn(ctx, "could not persist refreshed tokens", "error", err)
		}
	}
}

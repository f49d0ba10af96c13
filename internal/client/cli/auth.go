package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
)

// Prompt seams, replaced in tests.
var (
	readUsername = ReadUsername
	readPassword = ReadPassword
)

// Login prompts for credentials and authenticates against the server. The
// password is wiped by the auth service once sent.
//
// When the server cannot be reached the App switches to ModeOffline; cached
// assets stay available through resolve and cache.
func (a *App) Login(ctx context.Context) error {
	userName, err := readUsername(a.reader, a.out)
	if err != nil {
		return err
	}

	password, err := readPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.authService.Login(ctx, userName, password); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ctx, ModeOffline)
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return errors.New(apiErr.Payload.Display("login failed"))
		}
		return err
	}

	a.userName = userName
	a.setMode(ctx, ModeOnline)
	fmt.Fprintln(a.out, "Logged in as", userName)
	return nil
}

// Logout revokes the session and forgets local auth data. The local state is
// cleared even when the server could not be reached.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.userName = ""
	a.editor = nil
	return err
}

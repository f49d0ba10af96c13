package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root resumes a saved session (or asks for credentials), starts the
// connectivity watcher and runs the REPL.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to Gatherer CLI (type 'help' for commands)")

	user, err := a.authService.Resume(ctx)
	switch {
	case err == nil:
		a.userName = user
		a.log.Info(ctx, "session resumed", "user", user)
	case errors.Is(err, client.ErrLocalDataNotAvailable):
		_ = a.Login(ctx)
	default:
		a.log.Warn(ctx, "could not resume session", "error", err)
	}

	a.checkOnline(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

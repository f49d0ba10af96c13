package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/gatherer/internal/buildinfo"
	"github.com/dmitrijs2005/gatherer/internal/logging"
	"github.com/dmitrijs2005/gatherer/internal/server"
	"github.com/dmitrijs2005/gatherer/internal/server/config"
	"golang.org/x/term"
)

const usage = `usage:
  server [flags]                         serve the REST API
  server useradd <username> [flags]      create an account (password read from stdin)
  server import-locations <file> [flags] load level,code,name,parent_code CSV rows`

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	if err := dispatch(ctx, app, os.Args[1:]); err != nil {
		logger.Error(ctx, err.Error())
		app.Close()
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, app *server.App, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return app.Run(ctx)
	}

	switch args[0] {
	case "useradd":
		if len(args) < 2 || strings.HasPrefix(args[1], "-") {
			return fmt.Errorf("%s", usage)
		}
		password, err := readPassword()
		if err != nil {
			return err
		}
		return app.AddUser(ctx, args[1], password)

	case "import-locations":
		if len(args) < 2 || strings.HasPrefix(args[1], "-") {
			return fmt.Errorf("%s", usage)
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		return app.ImportLocations(ctx, f)
	}

	return fmt.Errorf("unknown command %q\n%s", args[0], usage)
}

func readPassword() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		p, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return p, err
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

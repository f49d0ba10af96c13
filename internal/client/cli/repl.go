package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Resolve(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Filter(ctx context.Context, args []string) error
	Cache(ctx context.Context, args []string) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help, login, cache, exit | quit
//
//	Logged in:
//	  - resolve <id> <url> <hash>   materialize an asset locally
//	  - upload [field=path ...]     upload captured files
//	  - filter [show|edit|options|set|apply|cancel|clear]
//	  - cache [list|rm <id>]        inspect the local asset cache
//	  - logout
//
// Errors returned by command handlers are reported and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gatherer %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: resolve, upload, filter, cache, logout, exit")
			} else {
				printlnFn("Available commands: login, cache, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "resolve":
			cmdErr = a.Resolve(ctx, args)

		case "upload":
			cmdErr = a.Upload(ctx, args)

		case "filter":
			cmdErr = a.Filter(ctx, args)

		case "cache":
			cmdErr = a.Cache(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}

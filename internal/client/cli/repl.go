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
	CreateUser(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Send(ctx context.Context, path string) error
	Get(ctx context.Context, name string) error
	List(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the gophdrop CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Command errors are printed and the loop
// continues. The loop exits on EOF or when the user types "exit" or "quit".
//
// The reader is shared with the credential prompts so no input is lost to
// read-ahead buffering.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gophdrop %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
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
				printlnFn("Available commands: send <file>, get <file>, list, logout, exit")
			} else {
				printlnFn("Available commands: create_user, login, exit")
			}

		case "create_user":
			cmdErr = a.CreateUser(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "send":
			if len(args) != 1 {
				printlnFn("Usage: send <file>")
				continue
			}
			cmdErr = a.Send(ctx, args[0])

		case "get":
			if len(args) != 1 {
				printlnFn("Usage: get <file>")
				continue
			}
			cmdErr = a.Get(ctx, args[0])

		case "l", "list":
			cmdErr = a.List(ctx)

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

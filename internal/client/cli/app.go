package cli

import (
	"bufio"
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/dmitrijs2005/gophdrop/internal/client/client"
	"github.com/dmitrijs2005/gophdrop/internal/client/config"
	"github.com/dmitrijs2005/gophdrop/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
)

// Driver is the command surface the App needs; *client.Client satisfies it.
type Driver interface {
	CreateUser(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) (string, error)
	Upload(ctx context.Context, token, path string) (int64, error)
	Download(ctx context.Context, token, name string) (string, int64, error)
	List(ctx context.Context, token string) ([]string, error)
}

type App struct {
	config   *config.Config
	driver   Driver
	metadata metadata.Repository
	db       *sql.DB
	logger   logging.Logger
	reader   *bufio.Reader
	out      io.Writer
	token    string
}

// NewApp opens the local database, restores a saved session token and
// prepares the command driver.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	opts := []client.Option{
		client.WithDownloadDir(c.DownloadDir),
		client.WithLogger(logger),
	}
	if c.UseTLS {
		opts = append(opts, client.WithTLS(clientTLSConfig(ctx, c, logger)))
	}

	app := &App{
		config:   c,
		driver:   client.New(c.ServerEndpointAddr, opts...),
		metadata: client.NewRepositories(db).Metadata,
		db:       db,
		logger:   logger,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}

	if err := app.loadToken(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func clientTLSConfig(ctx context.Context, c *config.Config, logger logging.Logger) *tls.Config {
	serverName := c.ServerName
	if serverName == "" {
		if host, _, err := net.SplitHostPort(c.ServerEndpointAddr); err == nil {
			serverName = host
		}
	}
	return transport.ClientTLSConfig(ctx, c.VerifyPeer, serverName, logger)
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to gophdrop CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(logged in)"
	}
	return ""
}

func (a *App) loadToken(ctx context.Context) error {
	v, _, err := a.metadata.Get(ctx, metadata.KeyToken)
	if err != nil {
		return err
	}
	a.token = v
	return nil
}

func (a *App) saveToken(ctx context.Context, token string) error {
	if err := a.metadata.Put(ctx, metadata.KeyToken, token); err != nil {
		return err
	}
	a.token = token
	return nil
}

func (a *App) clearToken(ctx context.Context) error {
	a.token = ""
	return a.metadata.Delete(ctx, metadata.KeyToken)
}

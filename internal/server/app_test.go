package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/server/config"
	"github.com/dmitrijs2005/gophdrop/internal/server/listener"
	"github.com/dmitrijs2005/gophdrop/internal/server/storage"
	"github.com/dmitrijs2005/gophdrop/internal/transport"
	"github.com/dmitrijs2005/gophdrop/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.LoadDefaults()
	c.ListenAddr = "127.0.0.1:0"
	c.DatabaseDSN = filepath.Join(dir, "server.db")
	c.StorageRoot = filepath.Join(dir, "files")
	return c
}

func TestNewApp_LocalBackend(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	assert.IsType(t, &storage.LocalStorage{}, app.store)
	assert.Nil(t, app.tlsConfig)
	assert.DirExists(t, app.config.StorageRoot)
}

func TestNewApp_UnknownBackend(t *testing.T) {
	c := testConfig(t)
	c.StorageBackend = "ftp"

	_, err := NewApp(context.Background(), c, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestNewApp_BadTLSFiles(t *testing.T) {
	c := testConfig(t)
	c.TLSCertFile = filepath.Join(t.TempDir(), "missing.pem")
	c.TLSKeyFile = filepath.Join(t.TempDir(), "missing.key")

	_, err := NewApp(context.Background(), c, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls init error")
}

func TestNewApp_BadDatabase(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = filepath.Join(t.TempDir(), "no", "such", "dir", "server.db")

	_, err := NewApp(context.Background(), c, logging.Discard())
	require.Error(t, err)
}

func TestServe_HandlesConnectionsAndShutsDown(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.serve(ctx, func(l *listener.Server) error { return l.Serve(ctx, ln) })
	}()

	ch, err := transport.Dial(context.Background(), ln.Addr().String(), nil)
	require.NoError(t, err)
	require.NoError(t, wire.WriteTag(ch, wire.TagCreateUser))
	require.NoError(t, wire.WriteString(ch, "alice"))
	require.NoError(t, wire.WriteString(ch, "secret"))
	msg, err := wire.ReadString(ch, wire.MaxCredentialSize)
	require.NoError(t, err)
	assert.Equal(t, "User Created", msg)
	_ = ch.Close()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	assert.Error(t, app.db.Ping())
}

package client_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gophdrop/internal/client/client"
	"github.com/dmitrijs2005/gophdrop/internal/cryptox"
	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"github.com/dmitrijs2005/gophdrop/internal/server/auth"
	"github.com/dmitrijs2005/gophdrop/internal/server/dispatch"
	"github.com/dmitrijs2005/gophdrop/internal/server/listener"
	"github.com/dmitrijs2005/gophdrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrop/internal/server/storage"
	"github.com/dmitrijs2005/gophdrop/internal/telemetry"
	"github.com/dmitrijs2005/gophdrop/internal/wire"
	"github.com/dmitrijs2005/gophdrop/internal/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// startServer runs the full server stack on a loopback port and returns the
// address and the storage root.
func startServer(t *testing.T) (string, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	dir := t.TempDir()

	db, rm, err := repomanager.Open(ctx, filepath.Join(dir, "server.db"))
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))

	svc, err := auth.NewService(db, rm,
		auth.WithHasher(cryptox.NewHasher(cryptox.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32})))
	require.NoError(t, err)

	root := filepath.Join(dir, "server")
	store, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	metrics := telemetry.NewMetrics(noop.NewMeterProvider())
	pool := workerpool.New(2, logging.Discard())
	d := dispatch.New(svc, store, logging.Discard(), metrics)
	srv := listener.New("unused", pool, d, logging.Discard(), listener.WithMetrics(metrics))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		pool.Shutdown()
		_ = db.Close()
	})
	return ln.Addr().String(), root
}

func TestEndToEnd_SessionAndTransfers(t *testing.T) {
	ctx := context.Background()
	addr, root := startServer(t)
	c := client.New(addr, client.WithDownloadDir(t.TempDir()))

	fb, err := c.CreateUser(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, wire.FeedbackUserCreated, fb)

	fb, err = c.CreateUser(ctx, "alice", "other")
	require.NoError(t, err)
	assert.Equal(t, wire.FeedbackCreateUserFailed, fb)

	_, err = c.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, client.ErrLoginFailed)

	token, err := c.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	payload := make([]byte, 3*client.ChunkSize+17)
	_, err = rand.Read(payload)
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(src, payload, 0o600))

	n, err := c.Upload(ctx, token, src)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	// the server has committed by the time it closes the connection
	fi, err := os.Stat(filepath.Join(root, "blob.bin"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), fi.Size())

	names, err := c.List(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"blob.bin"}, names)

	path, got, err := c.Download(ctx, token, "blob.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), got)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, data))

	_, _, err = c.Download(ctx, token, "missing.bin")
	require.ErrorIs(t, err, client.ErrRejected)

	fb, err = c.Logout(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, wire.FeedbackLoggedOut, fb)

	_, err = c.List(ctx, token)
	require.ErrorIs(t, err, client.ErrRejected)
}

func TestEndToEnd_Unavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := client.New(addr)
	_, err = c.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, client.ErrUnavailable)
}

func TestEndToEnd_UploadWithUnknownTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	addr, root := startServer(t)
	c := client.New(addr)

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello world"), 0o600))

	_, err := c.Upload(ctx, "not-a-valid-token", src)
	require.ErrorIs(t, err, client.ErrRejected)

	_, err = os.Stat(filepath.Join(root, "notes.txt"))
	assert.True(t, os.IsNotExist(err), "rejected upload must not create a file")
}

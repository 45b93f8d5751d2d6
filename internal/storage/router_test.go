package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// mockBackend — mock реализация Backend с func-полями.
type mockBackend struct {
	kind      model.StorageKind
	putFn     func(ctx context.Context, r io.Reader, size int64, name, contentType string) (*PutResult, error)
	openFn    func(ctx context.Context, h model.StorageHandle, rangeHeader string) (*Object, error)
	deleteFn  func(ctx context.Context, h model.StorageHandle) error
	statFn    func(ctx context.Context, h model.StorageHandle) (int64, error)
	presignFn func(ctx context.Context, h model.StorageHandle, filename string, ttl time.Duration) (string, error)
}

func (m *mockBackend) Kind() model.StorageKind { return m.kind }

func (m *mockBackend) Put(ctx context.Context, r io.Reader, size int64, name, contentType string) (*PutResult, error) {
	return m.putFn(ctx, r, size, name, contentType)
}

func (m *mockBackend) Open(ctx context.Context, h model.StorageHandle, rangeHeader string) (*Object, error) {
	return m.openFn(ctx, h, rangeHeader)
}

func (m *mockBackend) Delete(ctx context.Context, h model.StorageHandle) error {
	return m.deleteFn(ctx, h)
}

func (m *mockBackend) Stat(ctx context.Context, h model.StorageHandle) (int64, error) {
	return m.statFn(ctx, h)
}

// presigningBackend добавляет PresignGet к mockBackend.
type presigningBackend struct{ *mockBackend }

func (p presigningBackend) PresignGet(ctx context.Context, h model.StorageHandle, filename string, ttl time.Duration) (string, error) {
	return p.presignFn(ctx, h, filename, ttl)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func failingRemote(err error) *mockBackend {
	return &mockBackend{
		kind: model.StorageRemote,
		putFn: func(_ context.Context, r io.Reader, _ int64, _, _ string) (*PutResult, error) {
			_, _ = io.Copy(io.Discard, r)
			return nil, err
		},
	}
}

func TestRouter_FallbackToLocal(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(local, failingRemote(ErrUnavailable), model.StorageRemote, true, discardLogger())
	require.NoError(t, err)

	res, err := router.Put(context.Background(), bytes.NewReader([]byte("payload")), 7, "a.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, model.StorageLocal, res.Handle.Kind)
	assert.Equal(t, int64(7), res.Size)

	// Чтение диспетчеризуется по handle
	obj, err := router.Open(context.Background(), res.Handle, "")
	require.NoError(t, err)
	defer obj.Body.Close()
	data, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "payload", string(data))
}

func TestRouter_NoFallbackWhenDisabled(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(local, failingRemote(ErrUnavailable), model.StorageRemote, false, discardLogger())
	require.NoError(t, err)

	_, err = router.Put(context.Background(), bytes.NewReader([]byte("x")), 1, "a.txt", "")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestRouter_NoFallbackForPermanentError(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	permanent := errors.New("AccessDenied")
	router, err := NewRouter(local, failingRemote(permanent), model.StorageRemote, true, discardLogger())
	require.NoError(t, err)

	_, err = router.Put(context.Background(), bytes.NewReader([]byte("x")), 1, "a.txt", "")
	assert.True(t, errors.Is(err, permanent))
}

func TestRouter_NoFallbackForNonSeekableBody(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(local, failingRemote(ErrUnavailable), model.StorageRemote, true, discardLogger())
	require.NoError(t, err)

	_, err = router.Put(context.Background(), io.NopCloser(strings.NewReader("x")), 1, "a.txt", "")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestRouter_PresignDispatch(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	remote := presigningBackend{&mockBackend{
		kind: model.StorageRemote,
		presignFn: func(_ context.Context, h model.StorageHandle, filename string, ttl time.Duration) (string, error) {
			return "https://signed/" + h.Key + "?ttl=" + ttl.String() + "&fn=" + filename, nil
		},
	}}

	router, err := NewRouter(local, remote, model.StorageLocal, false, discardLogger())
	require.NoError(t, err)

	url, err := router.PresignGet(context.Background(), model.RemoteHandle("b", "k"), "a.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/k?ttl=15m0s&fn=a.pdf", url)

	_, err = router.PresignGet(context.Background(), model.LocalHandle("x"), "a.pdf", time.Minute)
	assert.True(t, errors.Is(err, ErrPresignUnsupported))
}

func TestRouter_RemoteNotConfigured(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewRouter(local, nil, model.StorageRemote, false, discardLogger())
	require.Error(t, err)

	router, err := NewRouter(local, nil, model.StorageLocal, false, discardLogger())
	require.NoError(t, err)

	_, err = router.Open(context.Background(), model.RemoteHandle("b", "k"), "")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

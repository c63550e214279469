package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "bucket"})
	require.ErrorContains(t, err, "storage client is required")

	_, err = New(&storage.Client{}, Config{})
	require.ErrorContains(t, err, "bucket name is required")

	store, err := New(&storage.Client{}, Config{Bucket: "bucket"})
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store, err := New(&storage.Client{}, Config{Bucket: "bucket"})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "  ", "application/pdf", strings.NewReader("x"))
	require.ErrorContains(t, err, "path is required")
}

// uploadRecorder stands in for the GCS JSON API and keeps every request body.
type uploadRecorder struct {
	hits   atomic.Int32
	mu     sync.Mutex
	bodies []string
}

func (u *uploadRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body) //nolint:errcheck // best effort in test server
	u.mu.Lock()
	u.bodies = append(u.bodies, string(body))
	u.mu.Unlock()
	u.hits.Add(1)
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"bucket":"bucket","name":"cf1400/2025-01_CF1400.pdf","size":"8"}`) //nolint:errcheck // test server
}

func newTestStore(t *testing.T, rec *uploadRecorder) *BlobStore {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
	)
	require.NoError(t, err)

	store, err := New(client, Config{Bucket: "bucket"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() }) //nolint:errcheck // test cleanup
	return store
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	rec := &uploadRecorder{}
	store := newTestStore(t, rec)

	uri, err := store.PutObject(context.Background(), "cf1400/2025-01_CF1400.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/cf1400/2025-01_CF1400.pdf", uri)
	require.EqualValues(t, 1, rec.hits.Load())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Contains(t, rec.bodies[0], "%PDF-1.7")
}

// failingReader yields one chunk of data and then fails.
type failingReader struct {
	sent bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.sent {
		f.sent = true
		return copy(p, "%PDF-partial"), nil
	}
	return 0, errors.New("source connection reset")
}

func TestPutObjectReadErrorDoesNotCommit(t *testing.T) {
	t.Parallel()

	rec := &uploadRecorder{}
	store := newTestStore(t, rec)

	_, err := store.PutObject(context.Background(), "cf1400/2025-01_CF1400.pdf", "application/pdf", &failingReader{})
	require.ErrorContains(t, err, "copy object")
	require.ErrorContains(t, err, "source connection reset")

	assert.Never(t, func() bool { return rec.hits.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

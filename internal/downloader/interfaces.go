package downloader

import (
	"context"
	"io"
	"time"
)

// RecordStore persists download records.
type RecordStore interface {
	Insert(ctx context.Context, record DownloadRecord) error
	// Latest returns the record with the highest (year, month, quarter).
	// The boolean is false when no record exists.
	Latest(ctx context.Context) (DownloadRecord, bool, error)
}

// Fetcher performs a single GET for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Limiter paces requests. Wait blocks until url may be fetched.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// FileStore is the local download destination.
type FileStore interface {
	Exists(name string) (bool, error)
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(name string) (io.ReadCloser, error)
}

// Mirror copies downloaded files to object storage and returns a URI.
type Mirror interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes download events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

package downloader

import (
	"io"
	"time"
)

// DownloadRecord is the persisted proof that a period's document was retrieved.
type DownloadRecord struct {
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Quarter      int       `json:"quarter"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Period returns the year/month the record belongs to.
func (r DownloadRecord) Period() Period {
	return Period{Year: r.Year, Month: r.Month}
}

// Candidate is one guessed document location for a period.
type Candidate struct {
	RelativePath string
	URL          string
	Filename     string
}

// FetchResponse is the status and body returned by a Fetcher.
type FetchResponse struct {
	StatusCode int
	Body       io.ReadCloser
}

// Outcome labels how a probe pass ended.
type Outcome string

// Outcomes reported by the prober.
const (
	OutcomeDownloaded Outcome = "downloaded"
	OutcomeExisting   Outcome = "existing"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeAborted    Outcome = "aborted"
)

// Result describes a finished probe pass.
type Result struct {
	Period   Period
	Outcome  Outcome
	Filename string
	URL      string
	Bytes    int64
	Checksum string
	Attempts int
	Err      error
}

// Success reports whether the period's document is now on disk.
func (r Result) Success() bool {
	return r.Outcome == OutcomeDownloaded || r.Outcome == OutcomeExisting
}

// Message is the human-readable explanation for an unsuccessful result.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeDownloaded, OutcomeExisting:
		return ""
	case OutcomeAborted:
		return "Download aborted: could not write CF1400 file"
	default:
		return "No CF1400 file found"
	}
}

// DownloadedEvent is published after a fresh download.
type DownloadedEvent struct {
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Quarter      int       `json:"quarter"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	Bytes        int64     `json:"bytes"`
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at"`
	MirrorURI    string    `json:"mirror_uri,omitempty"`
}

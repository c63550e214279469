package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rstiegler/cf1400-downloader/internal/hash/sha256"
	"github.com/rstiegler/cf1400-downloader/internal/metrics"
)

// DefaultProbeTimeout bounds a single candidate fetch.
const DefaultProbeTimeout = 10 * time.Second

// ProbeConfig holds the naming heuristics and limits for a probe pass.
type ProbeConfig struct {
	BaseURLs     []string
	FilenameBase string
	Suffixes     []string
	Timeout      time.Duration
	// Limiter, when set, is waited on before each fetch. The wait is not
	// counted against Timeout.
	Limiter Limiter
}

// Prober walks the candidates for a period and downloads the first hit.
type Prober struct {
	cfg     ProbeConfig
	fetcher Fetcher
	files   FileStore
	records RecordStore
	clock   Clock
	logger  *zap.Logger
}

// NewProber wires a Prober. records may be nil, in which case downloads are
// not recorded.
func NewProber(
	cfg ProbeConfig,
	fetcher Fetcher,
	files FileStore,
	records RecordStore,
	clock Clock,
	logger *zap.Logger,
) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProbeTimeout
	}
	if len(cfg.Suffixes) == 0 {
		cfg.Suffixes = DefaultSuffixes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		cfg:     cfg,
		fetcher: fetcher,
		files:   files,
		records: records,
		clock:   clock,
		logger:  logger,
	}
}

// Candidates returns the ordered candidate list for p.
func (pr *Prober) Candidates(p Period) []Candidate {
	return Candidates(p, pr.cfg.BaseURLs, pr.cfg.FilenameBase, pr.cfg.Suffixes)
}

// ProbeAndDownload tries each candidate for p in order. Transport failures
// move on to the next candidate; a local write failure ends the pass.
func (pr *Prober) ProbeAndDownload(ctx context.Context, p Period) Result {
	result := Result{Period: p, Outcome: OutcomeNotFound, Err: ErrNotFound}
	for _, cand := range pr.Candidates(p) {
		logger := pr.logger.With(zap.String("url", cand.URL), zap.String("filename", cand.Filename))

		exists, err := pr.files.Exists(cand.Filename)
		if err != nil {
			logger.Warn("existence check failed", zap.Error(err))
		}
		if exists {
			logger.Info("file already exists; skipping download")
			metrics.ObserveProbe(string(OutcomeExisting))
			return Result{
				Period:   p,
				Outcome:  OutcomeExisting,
				Filename: cand.Filename,
				URL:      cand.URL,
				Attempts: result.Attempts,
			}
		}

		if pr.cfg.Limiter != nil {
			// Bounded by the run's context, not the per-candidate timeout.
			if err := pr.cfg.Limiter.Wait(ctx, cand.URL); err != nil {
				logger.Warn("rate limit wait failed; stopping probe", zap.Error(err))
				result.Err = fmt.Errorf("probe stopped: %w", err)
				return result
			}
		}

		result.Attempts++
		logger.Info("trying candidate")
		downloaded, err := pr.attempt(ctx, p, cand)
		if err == nil {
			downloaded.Attempts = result.Attempts
			return downloaded
		}
		switch KindOf(err) {
		case KindHard, KindFatal:
			logger.Error("aborting probe", zap.Error(err))
			return Result{
				Period:   p,
				Outcome:  OutcomeAborted,
				Filename: cand.Filename,
				URL:      cand.URL,
				Attempts: result.Attempts,
				Err:      err,
			}
		default:
			if ctx.Err() != nil {
				logger.Warn("probe canceled", zap.Error(ctx.Err()))
				result.Err = fmt.Errorf("probe canceled: %w", ctx.Err())
				return result
			}
		}
	}
	pr.logger.Warn("all download attempts failed", zap.Stringer("period", p), zap.Int("attempts", result.Attempts))
	return result
}

func (pr *Prober) attempt(ctx context.Context, p Period, cand Candidate) (Result, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, pr.cfg.Timeout)
	defer cancel()

	resp, err := pr.fetcher.Fetch(fetchCtx, cand.URL)
	if err != nil {
		pr.logger.Warn("network error", zap.String("url", cand.URL), zap.Error(err))
		metrics.ObserveProbe("network_error")
		return Result{}, softError("fetch", cand.URL, err)
	}
	defer closeBody(resp.Body, pr.logger)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		pr.logger.Info("404 not found", zap.String("url", cand.URL))
		metrics.ObserveProbe("not_found")
		return Result{}, softError("fetch", cand.URL, ErrCandidateMissing)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		pr.logger.Warn("http error", zap.String("url", cand.URL), zap.Int("status", resp.StatusCode))
		metrics.ObserveProbe("http_error")
		return Result{}, softError("fetch", cand.URL, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	var body io.Reader = http.NoBody
	if resp.Body != nil {
		body = resp.Body
	}
	digest := sha256.NewDigest()
	written, err := pr.files.Save(ctx, cand.Filename, io.TeeReader(body, digest))
	if err != nil {
		metrics.ObserveProbe("write_error")
		return Result{}, hardError("save", cand.URL, err)
	}
	pr.logger.Info("file saved", zap.String("filename", cand.Filename), zap.Int64("bytes", written))
	metrics.ObserveProbe(string(OutcomeDownloaded))
	metrics.ObserveDownloadBytes(written)

	pr.record(ctx, DownloadRecord{
		Year:         p.Year,
		Month:        p.Month,
		Quarter:      p.Quarter(),
		Filename:     cand.Filename,
		URL:          cand.URL,
		DownloadedAt: pr.now(),
	})

	return Result{
		Period:   p,
		Outcome:  OutcomeDownloaded,
		Filename: cand.Filename,
		URL:      cand.URL,
		Bytes:    written,
		Checksum: digest.Hex(),
	}, nil
}

// record is best-effort: the file on disk stays the source of truth.
func (pr *Prober) record(ctx context.Context, rec DownloadRecord) {
	if pr.records == nil {
		return
	}
	if err := pr.records.Insert(ctx, rec); err != nil {
		metrics.ObserveRecordError()
		pr.logger.Error("failed to record download", zap.String("filename", rec.Filename), zap.Error(err))
		return
	}
	pr.logger.Info("recorded download", zap.String("filename", rec.Filename))
}

func (pr *Prober) now() time.Time {
	if pr.clock == nil {
		return time.Now().UTC()
	}
	return pr.clock.Now()
}

func closeBody(body io.Closer, logger *zap.Logger) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil {
		logger.Debug("close response body", zap.Error(err))
	}
}

package downloader

import (
	"context"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rstiegler/cf1400-downloader/internal/metrics"
)

const pdfContentType = "application/pdf"

// Service runs the "download next file" operation end to end.
type Service struct {
	resolver     *Resolver
	prober       *Prober
	files        FileStore
	mirror       Mirror
	mirrorPrefix string
	publisher    Publisher
	topic        string
	clock        Clock
	logger       *zap.Logger
}

// ServiceOption customizes optional post-download hooks.
type ServiceOption func(*Service)

// WithMirror uploads fresh downloads to object storage under prefix.
func WithMirror(m Mirror, prefix string) ServiceOption {
	return func(s *Service) {
		s.mirror = m
		s.mirrorPrefix = strings.Trim(prefix, "/")
	}
}

// WithPublisher announces fresh downloads on topic.
func WithPublisher(p Publisher, topic string) ServiceOption {
	return func(s *Service) {
		s.publisher = p
		s.topic = topic
	}
}

// NewService composes a resolver and a prober.
func NewService(
	resolver *Resolver,
	prober *Prober,
	files FileStore,
	clock Clock,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		resolver: resolver,
		prober:   prober,
		files:    files,
		clock:    clock,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextPeriod reports the period the next run will attempt.
func (s *Service) NextPeriod(ctx context.Context) Period {
	return s.resolver.Resolve(ctx)
}

// DownloadNext resolves the next period and probes it. Mirror and publish
// failures are logged and never change the result.
func (s *Service) DownloadNext(ctx context.Context) Result {
	period := s.resolver.Resolve(ctx)
	s.logger.Info("probing period", zap.Stringer("period", period), zap.Int("quarter", period.Quarter()))

	result := s.prober.ProbeAndDownload(ctx, period)
	metrics.ObserveRun(string(result.Outcome))

	switch result.Outcome {
	case OutcomeDownloaded:
		s.logger.Info("downloaded", zap.String("filename", result.Filename), zap.String("url", result.URL))
		uri := s.mirrorFile(ctx, result)
		s.publish(ctx, result, uri)
	case OutcomeExisting:
		s.logger.Info("already downloaded", zap.String("filename", result.Filename))
	case OutcomeAborted:
		s.logger.Error("download aborted", zap.Stringer("period", period), zap.Error(result.Err))
	default:
		s.logger.Warn("CF1400 file not found", zap.Stringer("period", period))
	}
	return result
}

func (s *Service) mirrorFile(ctx context.Context, result Result) string {
	if s.mirror == nil || s.files == nil {
		return ""
	}
	f, err := s.files.Open(result.Filename)
	if err != nil {
		s.logger.Warn("open file for mirror failed", zap.String("filename", result.Filename), zap.Error(err))
		return ""
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Debug("close mirrored file", zap.Error(cerr))
		}
	}()
	objectPath := result.Filename
	if s.mirrorPrefix != "" {
		objectPath = path.Join(s.mirrorPrefix, result.Filename)
	}
	uri, err := s.mirror.PutObject(ctx, objectPath, pdfContentType, f)
	if err != nil {
		s.logger.Warn("mirror upload failed", zap.String("path", objectPath), zap.Error(err))
		return ""
	}
	s.logger.Info("mirrored download", zap.String("uri", uri))
	return uri
}

func (s *Service) publish(ctx context.Context, result Result, mirrorURI string) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	event := DownloadedEvent{
		Year:         result.Period.Year,
		Month:        result.Period.Month,
		Quarter:      result.Period.Quarter(),
		Filename:     result.Filename,
		URL:          result.URL,
		Bytes:        result.Bytes,
		SHA256:       result.Checksum,
		DownloadedAt: s.now(),
		MirrorURI:    mirrorURI,
	}
	id, err := s.publisher.Publish(ctx, s.topic, event)
	if err != nil {
		s.logger.Warn("publish download event failed", zap.String("topic", s.topic), zap.Error(err))
		return
	}
	s.logger.Info("published download event", zap.String("topic", s.topic), zap.String("message_id", id))
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

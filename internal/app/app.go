// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/rstiegler/cf1400-downloader/internal/api"
	"github.com/rstiegler/cf1400-downloader/internal/clock/system"
	"github.com/rstiegler/cf1400-downloader/internal/config"
	"github.com/rstiegler/cf1400-downloader/internal/downloader"
	collyfetcher "github.com/rstiegler/cf1400-downloader/internal/fetcher/colly"
	"github.com/rstiegler/cf1400-downloader/internal/id/uuid"
	"github.com/rstiegler/cf1400-downloader/internal/policy/ratelimit"
	"github.com/rstiegler/cf1400-downloader/internal/publisher/pubsub"
	"github.com/rstiegler/cf1400-downloader/internal/storage/gcs"
	"github.com/rstiegler/cf1400-downloader/internal/storage/local"
	"github.com/rstiegler/cf1400-downloader/internal/storage/memory"
	"github.com/rstiegler/cf1400-downloader/internal/storage/postgres"
)

// App holds the shared services built from one Config.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	records downloader.RecordStore
	files   *local.FileStore
	service *downloader.Service
	server  *api.Server
	closers []func()
}

// New builds every service the configuration asks for. It fails fast when a
// required dependency cannot be initialized; anything already opened is
// closed before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	logger.Info("initializing application services",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("download_dir", cfg.CF1400.DownloadDir),
	)

	if err := a.initRecords(ctx); err != nil {
		return nil, err
	}

	files, err := local.New(local.Config{BaseDir: cfg.CF1400.DownloadDir})
	if err != nil {
		return nil, fmt.Errorf("init download dir: %w", err)
	}
	a.files = files

	opts, err := a.initHooks(ctx)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.CF1400.UserAgent,
		Timeout:   cfg.ProbeTimeout(),
	})
	probeCfg := cfg.ProbeConfig()
	if cfg.CF1400.RequestsPerSecond > 0 {
		probeCfg.Limiter = ratelimit.New(ratelimit.Config{RPS: cfg.CF1400.RequestsPerSecond, Burst: cfg.CF1400.Burst})
	}
	resolver := downloader.NewResolver(a.records, cfg.StartState(), logger.Named("resolver"))
	prober := downloader.NewProber(probeCfg, fetcher, files, a.records, clock, logger.Named("prober"))
	a.service = downloader.NewService(resolver, prober, files, clock, logger.Named("service"), opts...)

	var ready api.Pinger
	if p, ok := a.records.(api.Pinger); ok {
		ready = p
	}
	a.server = api.NewServer(a.service, ready, uuid.New(), cfg, logger.Named("api"))

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) initRecords(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case config.DriverMemory:
		a.logger.Warn("using in-memory record store; download history is lost on exit")
		a.records = memory.NewRecordStore()
		return nil
	case config.DriverPostgres:
		store, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:             a.cfg.Database.ConnString(),
			Table:           a.cfg.Database.Table,
			MaxConns:        a.cfg.Database.MaxConns,
			MinConns:        a.cfg.Database.MinConns,
			MaxConnLifetime: a.cfg.Database.MaxConnLifetime(),
		})
		if err != nil {
			return fmt.Errorf("init record store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.records = store
		if a.cfg.Database.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
}

func (a *App) initHooks(ctx context.Context) ([]downloader.ServiceOption, error) {
	var opts []downloader.ServiceOption
	if bucket := a.cfg.Mirror.GCSBucket; bucket != "" {
		mirror, err := gcs.NewFromEnvironment(ctx, gcs.Config{Bucket: bucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs mirror: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := mirror.Close(); err != nil {
				a.logger.Warn("error closing gcs client", zap.Error(err))
			}
		})
		a.logger.Info("mirroring downloads to GCS", zap.String("bucket", bucket))
		opts = append(opts, downloader.WithMirror(mirror, a.cfg.Mirror.Prefix))
	}
	if topic := a.cfg.PubSub.TopicName; topic != "" {
		pub, err := pubsub.New(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				a.logger.Warn("error closing pubsub client", zap.Error(err))
			}
		})
		a.logger.Info("publishing download events", zap.String("topic", topic))
		opts = append(opts, downloader.WithPublisher(pub, topic))
	}
	return opts, nil
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the configuration the App was built from.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetService exposes the download service.
func (a *App) GetService() *downloader.Service {
	return a.service
}

// GetRecords exposes the record store.
func (a *App) GetRecords() downloader.RecordStore {
	return a.records
}

// GetHandler returns the HTTP handler for the serve command.
func (a *App) GetHandler() http.Handler {
	return a.server.Handler()
}

// DownloadNext runs one download operation.
func (a *App) DownloadNext(ctx context.Context) downloader.Result {
	return a.service.DownloadNext(ctx)
}

// Close releases every opened client in reverse order. It is safe to call
// more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

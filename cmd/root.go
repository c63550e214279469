// Package cmd defines and implements the CLI commands for the cf1400 executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rstiegler/cf1400-downloader/internal/app"
	"github.com/rstiegler/cf1400-downloader/internal/config"
	"github.com/rstiegler/cf1400-downloader/internal/downloader"
	"github.com/rstiegler/cf1400-downloader/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use, so tests can
// inject a mock.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetHandler() http.Handler
	DownloadNext(ctx context.Context) downloader.Result
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // app.New already wraps
	}
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "cf1400",
		Short: "Downloads the monthly CF1400 PDF.",
		Long: `cf1400 works out which month's CF1400 document is due next, probes the
known publication URLs for it, and saves the first hit to the download
directory. Run "download" from a scheduler or "serve" to trigger it over HTTP.`,
		SilenceUsage: true,

		// Config, logger, and services are built once here and handed to the
		// subcommand through the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars with the CF1400_ prefix override it")

	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// withApp runs fn with the App from the command context and shuts the App
// down afterwards, including when fn fails.
func withApp(cmd *cobra.Command, fn func(App) error) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		appInstance.Close()
		_ = appInstance.GetLogger().Sync() //nolint:errcheck // stderr sync fails on some platforms
	}()
	return fn(appInstance)
}

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rstiegler/cf1400-downloader/internal/config"
	"github.com/rstiegler/cf1400-downloader/internal/downloader"
)

// MockApp mocks the App interface.
type MockApp struct {
	mock.Mock
	logger *zap.Logger
}

func (m *MockApp) Close() { m.Called() }

func (m *MockApp) GetLogger() *zap.Logger {
	if m.logger != nil {
		return m.logger
	}
	return zap.NewNop()
}

func (m *MockApp) GetConfig() config.Config {
	args := m.Called()
	return args.Get(0).(config.Config) //nolint:forcetypeassert // test double
}

func (m *MockApp) GetHandler() http.Handler {
	return http.NotFoundHandler()
}

func (m *MockApp) DownloadNext(ctx context.Context) downloader.Result {
	args := m.Called(ctx)
	return args.Get(0).(downloader.Result) //nolint:forcetypeassert // test double
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "database:\n  driver: memory\nstart:\n  year: 2025\n  month: 1\ncf1400:\n  download_dir: " +
		filepath.Join(dir, "downloads") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func withMockApp(t *testing.T, m App, err error) {
	t.Helper()
	orig := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(new(nopWriter))
	root.SetErr(new(nopWriter))
	return root.ExecuteContext(context.Background())
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDownloadCommandOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome downloader.Outcome
		wantErr bool
	}{
		{"downloaded", downloader.OutcomeDownloaded, false},
		{"existing", downloader.OutcomeExisting, false},
		{"not found", downloader.OutcomeNotFound, false},
		{"aborted", downloader.OutcomeAborted, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockApp)
			m.On("DownloadNext", mock.Anything).Return(downloader.Result{
				Period:   downloader.Period{Year: 2025, Month: 1},
				Outcome:  tt.outcome,
				Filename: "2025-01_CF1400.pdf",
			}).Once()
			m.On("Close").Once()
			withMockApp(t, m, nil)

			err := runRoot(t, "download", "--config", writeTestConfig(t))
			if tt.wantErr {
				require.ErrorIs(t, err, errDownloadAborted)
			} else {
				require.NoError(t, err)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestDownloadCommandWarnsWhenExistingFileIsUnrecorded(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := &MockApp{logger: zap.New(core)}
	m.On("DownloadNext", mock.Anything).Return(downloader.Result{
		Period:   downloader.Period{Year: 2025, Month: 3},
		Outcome:  downloader.OutcomeExisting,
		Filename: "2025-03_CF1400.pdf",
	}).Once()
	m.On("Close").Once()
	withMockApp(t, m, nil)

	require.NoError(t, runRoot(t, "download", "--config", writeTestConfig(t)))

	entries := logs.FilterMessageSnippet("not recorded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "2025-03_CF1400.pdf", fields["filename"])
	assert.Equal(t, "2025-03", fields["period"])
	m.AssertExpectations(t)
}

func TestRootFailsWhenAppInitFails(t *testing.T) {
	withMockApp(t, nil, errors.New("db unreachable"))

	err := runRoot(t, "download", "--config", writeTestConfig(t))
	require.ErrorContains(t, err, "failed to initialize application services")
}

func TestRootFailsOnInvalidConfig(t *testing.T) {
	m := new(MockApp)
	withMockApp(t, m, nil)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: memory\n"), 0o600))

	err := runRoot(t, "download", "--config", path)
	require.ErrorContains(t, err, "load config")
	m.AssertNotCalled(t, "DownloadNext", mock.Anything)
}

func TestResolveAppMissing(t *testing.T) {
	t.Parallel()

	_, err := resolveApp(context.Background())
	assert.EqualError(t, err, "application services not initialized")
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	m := new(MockApp)
	m.On("GetConfig").Return(config.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, serve(ctx, m))
}

package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rstiegler/cf1400-downloader/internal/downloader"
)

var errDownloadAborted = errors.New("download aborted")

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Try once to download the next CF1400 file",
		Long: `Resolves the next period from the download history, probes every
candidate URL in order, and saves the first document found. A month that is
not published yet is not an error; the next scheduled run simply tries again.`,
		Args: cobra.NoArgs,
		RunE: runDownloadCommand,
	}
}

func runDownloadCommand(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a App) error {
		res := a.DownloadNext(cmd.Context())
		logger := a.GetLogger().With(
			zap.Stringer("period", res.Period),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("attempts", res.Attempts),
		)
		switch res.Outcome {
		case downloader.OutcomeDownloaded:
			logger.Info("download finished",
				zap.String("filename", res.Filename),
				zap.String("url", res.URL),
				zap.Int64("bytes", res.Bytes),
				zap.String("sha256", res.Checksum),
			)
		case downloader.OutcomeExisting:
			// The resolver only picks periods with no recorded download, so the
			// file is on disk without a history entry.
			logger.Warn("file already present but not recorded; the next run will pick the same period",
				zap.String("filename", res.Filename),
			)
		case downloader.OutcomeAborted:
			logger.Error(res.Message(), zap.String("filename", res.Filename), zap.Error(res.Err))
			return errDownloadAborted
		default:
			logger.Warn(res.Message(), zap.Error(res.Err))
		}
		return nil
	})
}

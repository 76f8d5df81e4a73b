package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"media-classify/lib/classify"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rename pictures and videos after their capture time and re-encode oversized videos",
	Long: `Scan a directory for pictures and videos and rename each one after the time it
was captured. Videos that do not use the configured codec, exceed the bitrate
limit or are not named yet are re-encoded with ffmpeg; the encode replaces the
original only when it is meaningfully smaller.

Running it again on the same directory changes nothing.`,
	RunE: runRun,
}

func init() {
	addSettingsFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	settings, cleanup, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("Starting media classification",
		"directory", settings.Directory,
		"output", settings.Output,
		"dry_run", settings.DryRun)

	ctx, cancel := signalContext()
	defer cancel()

	app := &classify.App{Settings: settings}
	if w := progressOutput(settings); w != nil {
		app.Progress = w
	}

	if _, err := app.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("Classification was cancelled by user")
			return nil
		}
		return fmt.Errorf("classification failed: %w", err)
	}

	slog.Info("Classification completed successfully")
	return nil
}

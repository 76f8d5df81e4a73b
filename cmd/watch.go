package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"media-classify/lib/classify"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Classify a directory, then keep classifying new media as it arrives",
	Long: `Run a batch like 'run' does, then watch the directory tree and start another
batch once new pictures or videos stop changing for the debounce interval.
Batches never overlap.`,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	addSettingsFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", classify.DefaultDebounce, "Quiet period before a new batch starts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	settings, cleanup, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("Starting media watch",
		"directory", settings.Directory,
		"output", settings.Output,
		"debounce", watchDebounce)

	ctx, cancel := signalContext()
	defer cancel()

	app := &classify.App{Settings: settings}
	if w := progressOutput(settings); w != nil {
		app.Progress = w
	}

	if err := classify.NewWatcher(app, watchDebounce).Run(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

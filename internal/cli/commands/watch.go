package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// defaultDebounce is how long the raw directory must stay quiet before a run starts.
const defaultDebounce = 2 * time.Second

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline whenever raw files arrive (local storage)",
		Long: `Watch the raw prefix of a local object store and run the full pipeline
once new or changed .csv files have settled. Only available with
storage.type local; S3 deployments trigger runs with schedule or an
external event source.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if !strings.EqualFold(cc.Cfg.Storage.Type, "local") {
				return fmt.Errorf("watch requires storage.type local, got %q", cc.Cfg.Storage.Type)
			}
			dir := filepath.Join(cc.Cfg.Storage.Root, cc.Cfg.Pipeline.RawBucket, filepath.FromSlash(cc.Cfg.Pipeline.RawPrefix))
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create raw directory: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", dir)
			return watchRaw(ctx, dir, debounce, cc.Logger, pipelineJob(cc))
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Quiet period before a run starts")
	return cmd
}

// watchRaw calls trigger after .csv files in dir are created or written and
// no further change has been seen for debounce.
func watchRaw(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, trigger func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".csv") {
				continue
			}
			logger.Debug("raw file changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			fire = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-fire:
			fire = nil
			trigger(ctx)
		}
	}
}

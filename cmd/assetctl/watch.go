package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rfd62794/rpgCore-sub007/internal/logger"
	"github.com/rfd62794/rpgCore-sub007/pkg/assets"
)

func init() {
	rootCmd.AddCommand(newWatchCmd())
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <container>",
		Short: "Reload a container whenever it changes on disk",
		Long: `The watch command loads a container and reloads it every time the
file is written or replaced, reporting whether each reload succeeded.
Stop it with Ctrl-C.

Example:
  assetctl watch world.dgt
  DGT_WATCH_DEBOUNCE=1s assetctl watch world.dgt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, args)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, args []string) error {
	path := args[0]

	l, err := openContainer(ctx, path)
	if err != nil {
		return err
	}
	defer l.Cleanup()
	f := newFactory(l)
	defer f.Close()

	w, err := assets.NewWatcher(f, path, assets.WatcherOptions{
		Debounce: cfg.WatchDebounce,
		Logger:   logger.L,
		OnReload: func(err error) {
			if err != nil {
				printError("reload %s: %v\n", path, err)
				return
			}
			meta, _ := l.Metadata()
			printInfo("reloaded %s: %d assets\n", path, meta.CountedAssets)
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	meta, _ := l.Metadata()
	printInfo("watching %s (%d assets)\n", path, meta.CountedAssets)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

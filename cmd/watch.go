package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/kiln/pipeline/core"
	"github.com/spaghettifunk/kiln/pipeline/importer"
	"github.com/spaghettifunk/kiln/pipeline/platform"
	"github.com/spaghettifunk/kiln/pipeline/watch"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Cook the source tree and re-cook whenever it changes",
	Long: `Watch performs a full cook of the source tree, then keeps running and
re-cooks changed files as they are saved. Rapid saves are debounced into a
single batch. The build lock on the output root is held for the whole
session, so no other cook can interleave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runWatch(ctx)
	},
}

func runWatch(ctx context.Context) error {
	registry := importer.NewRegistry(cfg.TextureOptions())

	lock, err := platform.AcquireBuildLock(ctx, cfg.Output.Root)
	if err != nil {
		return err
	}
	defer lock.Release()

	sources, err := collectSources(ctx, cfg, registry, nil)
	if err != nil {
		return err
	}
	if len(sources) > 0 {
		if err := cookBatch(ctx, registry, sources); err != nil {
			core.LogError("initial cook: %v", err)
		}
	}

	watcher, err := watch.New(cfg.Source.Root, cfg.DebounceInterval(), func(path string) bool {
		return registry.For(path) != nil
	})
	if err != nil {
		return err
	}
	defer watcher.Close()
	core.LogInfo("watching %s", cfg.Source.Root)

	for {
		select {
		case <-ctx.Done():
			core.LogInfo("stopping watch")
			return nil
		case batch, ok := <-watcher.Batches():
			if !ok {
				return nil
			}
			cookChangedFiles(ctx, registry, batch)
		}
	}
}

// cookChangedFiles cooks one debounced batch of changed paths. Failures
// are reported and swallowed so the watch session survives bad saves.
func cookChangedFiles(ctx context.Context, registry *importer.Registry, paths []string) {
	sources := make([]importer.Source, 0, len(paths))
	for _, path := range paths {
		src, err := sourceForPath(cfg, path)
		if err != nil {
			core.LogWarn("%v", err)
			continue
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return
	}
	core.LogInfo("re-cooking %d changed file(s)", len(sources))
	if err := cookBatch(ctx, registry, sources); err != nil {
		core.LogError("cook failed: %v", err)
	}
}

func init() {
	RootCmd.AddCommand(watchCmd)
}

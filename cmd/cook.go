package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/kiln/pipeline/cooker"
	"github.com/spaghettifunk/kiln/pipeline/core"
	"github.com/spaghettifunk/kiln/pipeline/importer"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

var freshFlag bool

// cookCmd represents the cook command
var cookCmd = &cobra.Command{
	Use:   "cook [path...]",
	Short: "Import source assets and cook them into the output containers",
	Long: `Cook imports the given source files or directories and merges the
results into the cooked containers under the output root. With no arguments
the whole source tree is cooked. Previously cooked content is preserved:
unchanged assets keep their descriptors and resource slots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runCook(ctx, args)
	},
}

func runCook(ctx context.Context, args []string) error {
	registry := importer.NewRegistry(cfg.TextureOptions())
	sources, err := collectSources(ctx, cfg, registry, args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		core.LogWarn("no cookable sources under %s", cfg.Source.Root)
		return nil
	}

	lock, err := platform.AcquireBuildLock(ctx, cfg.Output.Root)
	if err != nil {
		return err
	}
	defer lock.Release()

	if freshFlag {
		if err := wipeOutputRoot(cfg.Output.Root); err != nil {
			return err
		}
		core.LogInfo("cleared cooked output under %s", cfg.Output.Root)
	}

	return cookBatch(ctx, registry, sources)
}

// cookBatch imports the sources, pulls referenced textures into the batch
// and hands everything to the cooker. The caller holds the build lock.
func cookBatch(ctx context.Context, registry *importer.Registry, sources []importer.Source) error {
	fsys := platform.New()
	assets, errs := importAll(ctx, fsys, registry, sources)
	extra, err := expandTextureRefs(ctx, fsys, registry, cfg, assets)
	if err != nil {
		errs = append(errs, err)
	}
	assets = append(assets, extra...)

	if len(assets) > 0 {
		if err := cooker.New(fsys, cfg.Output.Root, uint16(cfg.Output.ContentVersion)).Cook(ctx, assets); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// wipeOutputRoot removes the cooked mount directories but keeps the lock
// file, which the current process still holds.
func wipeOutputRoot(outputRoot string) error {
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".kiln") {
			continue
		}
		if err := os.RemoveAll(filepath.Join(outputRoot, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	cookCmd.Flags().BoolVar(&freshFlag, "fresh", false,
		"discard previously cooked output before cooking")
	RootCmd.AddCommand(cookCmd)
}

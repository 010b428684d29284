package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/kiln/pipeline/config"
	"github.com/spaghettifunk/kiln/pipeline/core"
	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/importer"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

/**
 * @brief Resolves one on-disk path into an importer source. The virtual
 * path is the slash separated path relative to the source root, so the
 * file must live inside the source tree.
 */
func sourceForPath(cfg *config.Config, path string) (importer.Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return importer.Source{}, err
	}
	rel, err := filepath.Rel(cfg.Source.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return importer.Source{}, fmt.Errorf("%s is outside the source root %s", path, cfg.Source.Root)
	}
	return importer.Source{Path: abs, VirtualPath: filepath.ToSlash(rel)}, nil
}

/**
 * @brief Collects the source files a cook run should import. With no
 * arguments the whole source tree is scanned; otherwise each argument
 * names a file or a directory inside the source tree. Files no importer
 * claims are skipped during directory scans but rejected when named
 * explicitly.
 */
func collectSources(ctx context.Context, cfg *config.Config, registry *importer.Registry, args []string) ([]importer.Source, error) {
	if len(args) == 0 {
		return scanSourceTree(cfg, registry, cfg.Source.Root)
	}
	var sources []importer.Source
	for _, arg := range args {
		info, err := platform.New().GetMetadata(ctx, arg)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", arg, err)
		}
		if info.IsDir {
			found, err := scanSourceTree(cfg, registry, arg)
			if err != nil {
				return nil, err
			}
			sources = append(sources, found...)
			continue
		}
		if registry.For(arg) == nil {
			return nil, fmt.Errorf("source %s: no importer for this file type", arg)
		}
		src, err := sourceForPath(cfg, arg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// scanSourceTree walks a directory and keeps every file some importer
// claims. Font page images are picked up by their own importer runs too,
// which is harmless: the cooker deduplicates assets by key.
func scanSourceTree(cfg *config.Config, registry *importer.Registry, root string) ([]importer.Source, error) {
	var sources []importer.Source
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || registry.For(path) == nil {
			return nil
		}
		src, serr := sourceForPath(cfg, path)
		if serr != nil {
			return serr
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return sources, nil
}

/**
 * @brief Imports every source, logging and collecting per file failures
 * so one broken source does not block the rest of the batch.
 */
func importAll(ctx context.Context, fsys platform.FileSystem, registry *importer.Registry, sources []importer.Source) ([]*metadata.ImportedAsset, []error) {
	var (
		assets []*metadata.ImportedAsset
		errs   []error
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return assets, errs
		}
		imp := registry.For(src.Path)
		if imp == nil {
			continue
		}
		imported, err := imp.Import(ctx, fsys, src)
		if err != nil {
			core.LogError("import %s: %v", src.VirtualPath, err)
			errs = append(errs, fmt.Errorf("import %s: %w", src.VirtualPath, err))
			continue
		}
		assets = append(assets, imported...)
	}
	return assets, errs
}

/**
 * @brief Pulls in the texture sources that materials in the batch
 * reference but the batch does not carry. Texture slots in the material
 * descriptor bind against textures cooked in the same run, so a material
 * recook must bring its textures along or lose the bindings.
 */
func expandTextureRefs(ctx context.Context, fsys platform.FileSystem, registry *importer.Registry, cfg *config.Config, assets []*metadata.ImportedAsset) ([]*metadata.ImportedAsset, error) {
	needed := map[metadata.AssetKey]bool{}
	for _, asset := range assets {
		if asset.Type != metadata.AssetTypeMaterial {
			continue
		}
		for _, key := range asset.Material.Textures {
			if !key.IsZero() {
				needed[key] = true
			}
		}
	}
	for _, asset := range assets {
		if asset.Type == metadata.AssetTypeTexture {
			delete(needed, asset.Key)
		}
	}
	if len(needed) == 0 {
		return nil, nil
	}

	var extra []*metadata.ImportedAsset
	err := filepath.WalkDir(cfg.Source.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if entry.IsDir() || len(needed) == 0 {
			return nil
		}
		imp, ok := registry.For(path).(*importer.TextureImporter)
		if !ok {
			return nil
		}
		src, serr := sourceForPath(cfg, path)
		if serr != nil {
			return serr
		}
		key := identity.KeyForPath(src.VirtualPath)
		if !needed[key] {
			return nil
		}
		imported, ierr := imp.Import(ctx, fsys, src)
		if ierr != nil {
			return fmt.Errorf("import referenced texture %s: %w", src.VirtualPath, ierr)
		}
		core.LogDebug("pulled referenced texture %s into the batch", src.VirtualPath)
		extra = append(extra, imported...)
		delete(needed, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return extra, nil
}

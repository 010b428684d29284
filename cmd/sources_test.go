package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/kiln/pipeline/config"
	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/imagecodec"
	"github.com/spaghettifunk/kiln/pipeline/importer"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.Default()
	c.Source.Root = t.TempDir()
	c.Output.Root = t.TempDir()
	return &c
}

func writeSourceFile(t *testing.T, cfg *config.Config, rel, content string) string {
	t.Helper()
	path := filepath.Join(cfg.Source.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeSourcePNG(t *testing.T, cfg *config.Config, rel string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xFF, A: 0xFF})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(cfg.Source.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestSourceForPath(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	path := writeSourceFile(t, cfg, "world/props/rock.kmt", "name=rock\n")

	src, err := sourceForPath(cfg, path)
	require.NoError(t, err)
	assert.Equal(t, path, src.Path)
	assert.Equal(t, "world/props/rock.kmt", src.VirtualPath)

	_, err = sourceForPath(cfg, filepath.Join(t.TempDir(), "outside.kmt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the source root")
}

func TestCollectSourcesScansTree(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	registry := importer.NewRegistry(imagecodec.Options{})
	writeSourceFile(t, cfg, "world/rock.kmt", "name=rock\n")
	writeSourceFile(t, cfg, "world/props/crate.obj", "v 0 0 0\n")
	writeSourcePNG(t, cfg, "world/rock_albedo.png")
	writeSourceFile(t, cfg, "world/notes.txt", "not an asset\n")

	sources, err := collectSources(context.Background(), cfg, registry, nil)
	require.NoError(t, err)

	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		paths = append(paths, src.VirtualPath)
	}
	assert.ElementsMatch(t, []string{
		"world/rock.kmt",
		"world/props/crate.obj",
		"world/rock_albedo.png",
	}, paths)
}

func TestCollectSourcesDirectoryArgument(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	registry := importer.NewRegistry(imagecodec.Options{})
	writeSourceFile(t, cfg, "world/rock.kmt", "name=rock\n")
	writeSourceFile(t, cfg, "ui/cursor.kmt", "name=cursor\n")

	sources, err := collectSources(context.Background(), cfg, registry, []string{filepath.Join(cfg.Source.Root, "ui")})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "ui/cursor.kmt", sources[0].VirtualPath)
}

func TestCollectSourcesExplicitFileNeedsImporter(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	registry := importer.NewRegistry(imagecodec.Options{})
	path := writeSourceFile(t, cfg, "world/notes.txt", "not an asset\n")

	_, err := collectSources(context.Background(), cfg, registry, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no importer")
}

func TestImportAllCollectsFailures(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	registry := importer.NewRegistry(imagecodec.Options{})
	good := writeSourceFile(t, cfg, "world/rock.kmt", "name=rock\n")
	bad := writeSourceFile(t, cfg, "world/broken.kmt", "this is not a material\n")

	goodSrc, err := sourceForPath(cfg, good)
	require.NoError(t, err)
	badSrc, err := sourceForPath(cfg, bad)
	require.NoError(t, err)

	assets, errs := importAll(context.Background(), platform.New(), registry,
		[]importer.Source{badSrc, goodSrc})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "world/broken.kmt")
	require.Len(t, assets, 1)
	assert.Equal(t, metadata.AssetTypeMaterial, assets[0].Type)
	assert.Equal(t, "world/rock.kmt", assets[0].VirtualPath)
}

func TestExpandTextureRefsPullsReferencedTexture(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	registry := importer.NewRegistry(imagecodec.Options{})
	material := writeSourceFile(t, cfg, "world/rock.kmt",
		"name=rock\nbase_colour_map=rock_albedo.png\n")
	writeSourcePNG(t, cfg, "world/rock_albedo.png")

	src, err := sourceForPath(cfg, material)
	require.NoError(t, err)
	assets, errs := importAll(context.Background(), platform.New(), registry,
		[]importer.Source{src})
	require.Empty(t, errs)
	require.Len(t, assets, 1)

	extra, err := expandTextureRefs(context.Background(), platform.New(), registry, cfg, assets)
	require.NoError(t, err)
	require.Len(t, extra, 1)
	assert.Equal(t, metadata.AssetTypeTexture, extra[0].Type)
	assert.Equal(t, "world/rock_albedo.png", extra[0].VirtualPath)
	assert.Equal(t, identity.KeyForPath("world/rock_albedo.png"), extra[0].Key)
}

func TestExpandTextureRefsSkipsSatisfiedAndUnresolved(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	registry := importer.NewRegistry(imagecodec.Options{})
	material := writeSourceFile(t, cfg, "world/rock.kmt",
		"name=rock\nbase_colour_map=rock_albedo.png\nnormal_map=rock_normal.png\n")
	writeSourcePNG(t, cfg, "world/rock_albedo.png")
	// rock_normal.png does not exist anywhere in the source tree.

	src, err := sourceForPath(cfg, material)
	require.NoError(t, err)
	assets, errs := importAll(context.Background(), platform.New(), registry,
		[]importer.Source{src})
	require.Empty(t, errs)

	texSrc, err := sourceForPath(cfg, filepath.Join(cfg.Source.Root, "world", "rock_albedo.png"))
	require.NoError(t, err)
	texAssets, errs := importAll(context.Background(), platform.New(), registry,
		[]importer.Source{texSrc})
	require.Empty(t, errs)
	assets = append(assets, texAssets...)

	extra, err := expandTextureRefs(context.Background(), platform.New(), registry, cfg, assets)
	require.NoError(t, err)
	assert.Empty(t, extra)
}

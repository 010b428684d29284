/*
Package importer turns source interchange files into the payloads the
pipeline cooks: wavefront OBJ models into geometry, kiln material text
files into material sources, images and bitmap font pages into texture
payloads. Importers mint asset keys through the identity policy; the core
pipeline packages never depend on this one.
*/
package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/kiln/pipeline/imagecodec"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

var (
	// ErrMalformedModel reports a model source this importer cannot make
	// sense of.
	ErrMalformedModel = errors.New("model source is malformed")
	// ErrMalformedMaterial reports a material source with missing or out
	// of range fields.
	ErrMalformedMaterial = errors.New("material source is malformed")
)

/**
 * @brief One source file handed to an importer.
 */
type Source struct {
	/** @brief Absolute path of the file on disk. */
	Path string
	/** @brief Virtual path of the asset inside the source tree. */
	VirtualPath string
}

/**
 * @brief Turns one source file into importer payloads. A single source may
 * produce several assets, as bitmap fonts do with their page images.
 */
type Importer interface {
	/** @brief The lowercase file extensions this importer claims. */
	Extensions() []string
	Import(ctx context.Context, fs platform.FileSystem, src Source) ([]*metadata.ImportedAsset, error)
}

/**
 * @brief Dispatches source files to importers by extension.
 */
type Registry struct {
	byExtension map[string]Importer
}

/**
 * @brief Creates a registry with every built in importer. Texture options
 * apply to standalone images and to font page images alike.
 */
func NewRegistry(textureOpts imagecodec.Options) *Registry {
	r := &Registry{byExtension: map[string]Importer{}}
	r.register(&GeometryImporter{})
	r.register(&MaterialImporter{})
	r.register(&TextureImporter{opts: textureOpts})
	r.register(&FontImporter{opts: textureOpts})
	return r
}

func (r *Registry) register(imp Importer) {
	for _, ext := range imp.Extensions() {
		r.byExtension[ext] = imp
	}
}

/**
 * @brief Finds the importer claiming the file's extension, or nil.
 */
func (r *Registry) For(path string) Importer {
	return r.byExtension[strings.ToLower(filepath.Ext(path))]
}

// stem returns the file name without directory or extension, the default
// name for assets cooked from that file.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

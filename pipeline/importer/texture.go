package importer

import (
	"bytes"
	"context"

	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/imagecodec"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

/**
 * @brief Imports standalone images as cooked texture payloads.
 */
type TextureImporter struct {
	opts imagecodec.Options
}

func (ti *TextureImporter) Extensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}
}

func (ti *TextureImporter) Import(ctx context.Context, fs platform.FileSystem, src Source) ([]*metadata.ImportedAsset, error) {
	data, err := fs.ReadAllBytes(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	img, _, err := imagecodec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	payload, err := imagecodec.Encode(img, stem(src.Path), ti.opts)
	if err != nil {
		return nil, err
	}
	return []*metadata.ImportedAsset{{
		Type:        metadata.AssetTypeTexture,
		Key:         identity.KeyForPath(src.VirtualPath),
		VirtualPath: src.VirtualPath,
		Texture:     payload,
	}}, nil
}

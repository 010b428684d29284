package importer

import (
	"bytes"
	"context"
	"path"
	"path/filepath"
	"sort"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/imagecodec"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

/**
 * @brief Imports bitmap font descriptors (.fnt): every page image the
 * font references is cooked as a texture, so the runtime atlas is
 * available without shipping the source images. The glyph metrics
 * themselves stay in the .fnt file and are not cooked here.
 */
type FontImporter struct {
	opts imagecodec.Options
}

func (fi *FontImporter) Extensions() []string {
	return []string{".fnt"}
}

func (fi *FontImporter) Import(ctx context.Context, fs platform.FileSystem, src Source) ([]*metadata.ImportedAsset, error) {
	desc, err := bmfont.LoadDescriptor(src.Path)
	if err != nil {
		return nil, err
	}

	// Pages live in a map; cook them in id order.
	pages := make([]bmfont.Page, 0, len(desc.Pages))
	for _, p := range desc.Pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })

	assets := make([]*metadata.ImportedAsset, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pagePath := filepath.Join(filepath.Dir(src.Path), page.File)
		pageVirtualPath := path.Join(path.Dir(src.VirtualPath), page.File)

		data, err := fs.ReadAllBytes(ctx, pagePath)
		if err != nil {
			return nil, err
		}
		img, _, err := imagecodec.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		payload, err := imagecodec.Encode(img, stem(page.File), fi.opts)
		if err != nil {
			return nil, err
		}
		assets = append(assets, &metadata.ImportedAsset{
			Type:        metadata.AssetTypeTexture,
			Key:         identity.KeyForPath(pageVirtualPath),
			VirtualPath: pageVirtualPath,
			Texture:     payload,
		})
	}
	return assets, nil
}

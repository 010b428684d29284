package importer

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

const runicFNT = `info face="Runic" size=32 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=36 base=29 scaleW=8 scaleH=8 pages=2 packed=0 alphaChnl=1 redChnl=0 greenChnl=0 blueChnl=0
page id=0 file="runic_0.png"
page id=1 file="runic_1.png"
chars count=2
char id=65 x=0 y=0 width=8 height=8 xoffset=0 yoffset=0 xadvance=9 page=0 chnl=15
char id=66 x=0 y=0 width=8 height=8 xoffset=0 yoffset=0 xadvance=9 page=1 chnl=15
`

func TestFontImporterImport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fntPath := filepath.Join(dir, "runic32.fnt")
	require.NoError(t, os.WriteFile(fntPath, []byte(runicFNT), 0o644))
	writeTestPNG(t, filepath.Join(dir, "runic_0.png"), 8, 8, color.NRGBA{R: 255, A: 255})
	writeTestPNG(t, filepath.Join(dir, "runic_1.png"), 8, 8, color.NRGBA{G: 255, A: 255})

	assets, err := (&FontImporter{}).Import(context.Background(), platform.New(), Source{
		Path:        fntPath,
		VirtualPath: "fonts/runic32.fnt",
	})
	require.NoError(t, err)
	require.Len(t, assets, 2)

	// Pages come out in id order regardless of map iteration.
	assert.Equal(t, "fonts/runic_0.png", assets[0].VirtualPath)
	assert.Equal(t, "fonts/runic_1.png", assets[1].VirtualPath)

	for i, asset := range assets {
		assert.Equal(t, metadata.AssetTypeTexture, asset.Type, "page %d", i)
		assert.Equal(t, identity.KeyForPath(asset.VirtualPath), asset.Key, "page %d", i)
		require.NotNil(t, asset.Texture, "page %d", i)
		assert.Equal(t, uint32(8), asset.Texture.Width, "page %d", i)
		assert.Equal(t, uint32(8), asset.Texture.Height, "page %d", i)
	}
	assert.Equal(t, "runic_0", assets[0].Texture.Name)
	assert.Equal(t, "runic_1", assets[1].Texture.Name)
}

func TestFontImporterMissingPage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fntPath := filepath.Join(dir, "runic32.fnt")
	require.NoError(t, os.WriteFile(fntPath, []byte(runicFNT), 0o644))
	writeTestPNG(t, filepath.Join(dir, "runic_0.png"), 8, 8, color.NRGBA{R: 255, A: 255})
	// runic_1.png deliberately absent.

	_, err := (&FontImporter{}).Import(context.Background(), platform.New(), Source{
		Path:        fntPath,
		VirtualPath: "fonts/runic32.fnt",
	})
	require.Error(t, err)
	assert.True(t, platform.IsNotFound(err))
}

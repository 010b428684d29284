/*
Package imagecodec turns source images into cooked texture payloads:
decode, conversion to tightly packed RGBA8, optional downscaling and mip
chain generation, optional zstd compression of the payload bytes. The
output is deterministic for identical input and options.
*/
package imagecodec

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"

	// Decoders registered for image.Decode.
	_ "image/jpeg"
	_ "image/png"

	"github.com/klauspost/compress/zstd"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

// ErrEmptyImage reports a source image with a zero dimension.
var ErrEmptyImage = errors.New("image has a zero dimension")

/**
 * @brief Cooking options for one texture.
 */
type Options struct {
	/** @brief Generate a full mip chain down to 1x1. */
	GenerateMips bool
	/** @brief Payload compression to apply. */
	Compression metadata.TextureCompression
	/** @brief Downscale so no side exceeds this. Zero disables. */
	MaxDimension uint32
	/** @brief Mark the payload as sRGB encoded. */
	SRGB bool
}

var zstdEncoder, _ = zstd.NewWriter(nil)

/**
 * @brief Decodes a source image in any registered format.
 * @param r The image file bytes.
 * @returns The decoded image and its format name, or an error.
 */
func Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}

/**
 * @brief Converts an image into a cooked texture payload according to the
 * options.
 * @param img The decoded source image.
 * @param name The texture's name for the descriptor header.
 * @param opts Cooking options.
 * @returns The payload, or an error.
 */
func Encode(img image.Image, name string, opts Options) (*metadata.TexturePayload, error) {
	base := toNRGBA(img)
	w, h := base.Rect.Dx(), base.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("texture %q: %w", name, ErrEmptyImage)
	}

	if opts.MaxDimension > 0 {
		nw, nh := fitDimensions(w, h, int(opts.MaxDimension))
		if nw != w || nh != h {
			base = scaleTo(base, nw, nh)
			w, h = nw, nh
		}
	}

	levels := [][]byte{base.Pix}
	mipCount := 1
	if opts.GenerateMips {
		src := base
		lw, lh := w, h
		for lw > 1 || lh > 1 {
			lw = halve(lw)
			lh = halve(lh)
			src = scaleTo(src, lw, lh)
			levels = append(levels, src.Pix)
			mipCount++
		}
	}

	size := 0
	for _, level := range levels {
		size += len(level)
	}
	data := make([]byte, 0, size)
	for _, level := range levels {
		data = append(data, level...)
	}

	payload := &metadata.TexturePayload{
		Name:        name,
		Width:       uint32(w),
		Height:      uint32(h),
		MipLevels:   uint16(mipCount),
		ArrayLayers: 1,
		Format:      metadata.TextureFormatRGBA8,
		Compression: metadata.TextureCompressionNone,
		RowPitch:    uint32(w) * 4,
		Data:        data,
	}
	if hasTransparency(base) {
		payload.Flags |= metadata.TextureFlagHasTransparency
	}
	if opts.SRGB {
		payload.Flags |= metadata.TextureFlagSRGB
	}
	if opts.Compression == metadata.TextureCompressionZstd {
		payload.Data = zstdEncoder.EncodeAll(data, nil)
		payload.Compression = metadata.TextureCompressionZstd
	}
	return payload, nil
}

// toNRGBA returns img as a zero-origin, tightly packed NRGBA image.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		if n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
			return n
		}
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func scaleTo(src *image.NRGBA, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// fitDimensions shrinks w x h so the longer side equals limit, keeping the
// aspect ratio and never dropping below one pixel.
func fitDimensions(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}

func halve(v int) int {
	if v <= 1 {
		return 1
	}
	return v / 2
}

func hasTransparency(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xFF {
			return true
		}
	}
	return false
}

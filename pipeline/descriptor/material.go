package descriptor

import (
	"bytes"
	"fmt"

	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

/** @brief Material domain written into the descriptor body. */
const (
	materialDomainOpaque uint8 = 1
	materialDomainBlend  uint8 = 2
	materialDomainMask   uint8 = 3
)

/** @brief Material behaviour flags. */
const (
	materialFlagDoubleSided       uint32 = 0x1
	materialFlagAlphaTest         uint32 = 0x2
	materialFlagNoTextureSampling uint32 = 0x4
)

/**
 * @brief Body of a material descriptor. Together with the common header it
 * fills the 256 byte leading block.
 */
type materialBody struct {
	Domain           uint8
	Flags            uint32
	StageMask        uint32
	BaseColour       [4]float32
	NormalScale      float32
	Metalness        uint16
	Roughness        uint16
	AmbientOcclusion uint16
	AlphaCutoff      uint16
	/** @brief Resource table slots, ordered as metadata.TextureSlot. Zero means unbound. */
	TextureSlots   [metadata.TextureSlotCount]uint32
	ShaderRefCount uint16
	_              [102]byte
}

/**
 * @brief One shader reference record, appended after the leading block.
 */
type shaderRefRecord struct {
	StageMask uint32
	Name      [nameFieldSize]byte
	_         [4]byte
}

/**
 * @brief Encodes a material source into the bytes of its .omat file.
 * Texture slots are resolved through textureSlots; keys absent from the
 * map encode as the unbound fallback slot.
 * @param mat The imported material to encode.
 * @param textureSlots Resource table slot per texture asset key.
 * @returns The descriptor file bytes, or an error for payloads that do
 * not fit the wire format.
 */
func EncodeMaterial(mat *metadata.MaterialSource, textureSlots map[metadata.AssetKey]uint32) ([]byte, error) {
	var domain uint8
	switch mat.AlphaMode {
	case metadata.AlphaModeOpaque:
		domain = materialDomainOpaque
	case metadata.AlphaModeBlend:
		domain = materialDomainBlend
	case metadata.AlphaModeMask:
		domain = materialDomainMask
	default:
		return nil, fmt.Errorf("material %q: alpha mode %d: %w", mat.Name, mat.AlphaMode, ErrUnknownEnum)
	}
	if len(mat.Shaders) > 0xFFFF {
		return nil, fmt.Errorf("material %q: %d shader references: %w", mat.Name, len(mat.Shaders), ErrRange)
	}

	body := materialBody{
		Domain:           domain,
		StageMask:        uint32(mat.ShaderStages),
		BaseColour:       [4]float32{mat.BaseColour.X, mat.BaseColour.Y, mat.BaseColour.Z, mat.BaseColour.W},
		NormalScale:      mat.NormalScale,
		Metalness:        packUnorm16(mat.Metalness),
		Roughness:        packUnorm16(mat.Roughness),
		AmbientOcclusion: packUnorm16(mat.AmbientOcclusion),
		AlphaCutoff:      packUnorm16(mat.AlphaCutoff),
		ShaderRefCount:   uint16(len(mat.Shaders)),
	}
	if mat.DoubleSided {
		body.Flags |= materialFlagDoubleSided
	}
	if mat.AlphaMode == metadata.AlphaModeMask {
		body.Flags |= materialFlagAlphaTest
	}
	bound := false
	for slot, key := range mat.Textures {
		if key.IsZero() {
			continue
		}
		idx := textureSlots[key]
		body.TextureSlots[slot] = idx
		if idx != 0 {
			bound = true
		}
	}
	if !bound {
		body.Flags |= materialFlagNoTextureSampling
	}

	header := fileHeader{
		AssetType:      uint8(metadata.AssetTypeMaterial),
		Name:           encodeName(mat.Name),
		FormatVersion:  formatVersion,
		StreamPriority: mat.StreamPriority,
	}

	buf := bytes.NewBuffer(make([]byte, 0, BlockSize+len(mat.Shaders)*ShaderRefSize))
	writeRecord(buf, &header)
	writeRecord(buf, &body)
	for _, ref := range mat.Shaders {
		writeRecord(buf, &shaderRefRecord{
			StageMask: uint32(ref.Stages),
			Name:      encodeName(ref.Name),
		})
	}
	return buf.Bytes(), nil
}

package restable

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

const (
	/** @brief Size in bytes of one texture table entry. */
	TextureEntrySize int = 40
	/** @brief Alignment of texture payloads inside the texture data file. */
	TexturePayloadAlignment int = 256
)

type textureEntry struct {
	DataOffset  uint64
	Size        uint32
	Width       uint16
	Height      uint16
	MipLevels   uint16
	ArrayLayers uint16
	Format      uint8
	Compression uint8
	Flags       uint16
	RowPitch    uint32
	_           [12]byte
}

/**
 * @brief Accumulates texture payloads for one cook run and emits the
 * textures table and data bytes. Slot 0 is reserved; the first added
 * payload gets slot 1. Not safe for concurrent use.
 */
type TextureBuilder struct {
	table bytes.Buffer
	data  bytes.Buffer
	count uint32
}

/**
 * @brief Creates a builder holding only the reserved slot.
 */
func NewTextureBuilder() *TextureBuilder {
	b := &TextureBuilder{}
	b.table.Write(make([]byte, TextureEntrySize))
	b.count = 1
	return b
}

/**
 * @brief Appends one texture payload, aligned to 256 bytes.
 * @param payload The already encoded texture to cook.
 * @returns The payload's table slot, local to this build.
 */
func (b *TextureBuilder) AddTexture(payload *metadata.TexturePayload) (uint32, error) {
	if uint64(len(payload.Data)) > 0xFFFFFFFF {
		return 0, fmt.Errorf("texture %q payload of %d bytes: %w", payload.Name, len(payload.Data), ErrBlobTooLarge)
	}
	if payload.Width > 0xFFFF || payload.Height > 0xFFFF {
		return 0, fmt.Errorf("texture %q is %dx%d: %w", payload.Name, payload.Width, payload.Height, ErrBlobTooLarge)
	}
	aligned := alignUp(b.data.Len(), TexturePayloadAlignment)
	b.data.Write(make([]byte, aligned-b.data.Len()))
	b.data.Write(payload.Data)

	entry := textureEntry{
		DataOffset:  uint64(aligned),
		Size:        uint32(len(payload.Data)),
		Width:       uint16(payload.Width),
		Height:      uint16(payload.Height),
		MipLevels:   payload.MipLevels,
		ArrayLayers: payload.ArrayLayers,
		Format:      uint8(payload.Format),
		Compression: uint8(payload.Compression),
		Flags:       uint16(payload.Flags),
		RowPitch:    payload.RowPitch,
	}
	if err := binary.Write(&b.table, binary.LittleEndian, &entry); err != nil {
		panic(fmt.Sprintf("restable: serialize texture entry: %v", err))
	}
	slot := b.count
	b.count++
	return slot, nil
}

/**
 * @brief Returns the table and data bytes accumulated so far.
 */
func (b *TextureBuilder) Build() TablePair {
	return TablePair{Table: b.table.Bytes(), Data: b.data.Bytes()}
}

/**
 * @brief Merges a fresh texture build into the bytes of a prior one,
 * keeping every previously assigned slot and payload offset stable. Fresh
 * payloads start at the prior data length rounded up to 256.
 * @param prior The table and data read from the previous cook, empty on a
 * first build.
 * @param fresh The output of this build's TextureBuilder.
 * @returns The merged pair plus the slot remap base.
 */
func MergeTextureTables(prior, fresh TablePair) (*MergeResult, error) {
	return mergeTables(prior, fresh, TextureEntrySize, TexturePayloadAlignment)
}

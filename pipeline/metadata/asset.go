package metadata

import (
	"encoding/binary"
	"encoding/hex"
)

/**
 * @brief A 128-bit opaque asset identifier, stable across reimports of the
 * same authoring virtual path. Keys are minted by the identity policy and
 * only ever carried through by the rest of the pipeline. On the wire the key
 * is written as two unsigned 64-bit little-endian parts, low part first.
 */
type AssetKey struct {
	/** @brief The low 64 bits of the key. */
	Lo uint64
	/** @brief The high 64 bits of the key. */
	Hi uint64
}

// NewAssetKeyFromBytes builds a key from 16 raw bytes in wire order.
func NewAssetKeyFromBytes(b [16]byte) AssetKey {
	return AssetKey{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// Bytes returns the key in wire order (low part first, little-endian).
func (k AssetKey) Bytes() [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], k.Lo)
	binary.LittleEndian.PutUint64(b[8:16], k.Hi)
	return b
}

// IsZero reports whether the key is the all-zero "none" key.
func (k AssetKey) IsZero() bool {
	return k.Lo == 0 && k.Hi == 0
}

func (k AssetKey) String() string {
	b := k.Bytes()
	return hex.EncodeToString(b[:])
}

// Less imposes a stable ordering on keys, used when a deterministic
// iteration order over keyed maps is required.
func (k AssetKey) Less(other AssetKey) bool {
	if k.Hi != other.Hi {
		return k.Hi < other.Hi
	}
	return k.Lo < other.Lo
}

/** @brief Identifies what a cooked descriptor describes. */
type AssetType uint8

const (
	/** @brief An unknown asset. Never valid in cooked output. */
	AssetTypeUnknown AssetType = 0
	/** @brief A geometry asset (.ogeo descriptor). */
	AssetTypeGeometry AssetType = 1
	/** @brief A material asset (.omat descriptor). */
	AssetTypeMaterial AssetType = 2
	/** @brief A texture asset. Textures cook into the texture resource table
	and carry no standalone descriptor file; the tag is reserved for them. */
	AssetTypeTexture AssetType = 3
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeGeometry:
		return "geometry"
	case AssetTypeMaterial:
		return "material"
	case AssetTypeTexture:
		return "texture"
	default:
		return "unknown"
	}
}

/**
 * @brief A single asset produced by an importer, ready to cook. This is a
 * closed tagged variant: exactly one of the payload pointers matching Type
 * is set, and the orchestrator matches on Type exhaustively.
 */
type ImportedAsset struct {
	/** @brief The variant tag. */
	Type AssetType
	/** @brief The stable identity of the asset. */
	Key AssetKey
	/** @brief The editor-facing virtual path, e.g. "world/props/crate". */
	VirtualPath string
	/** @brief Set when Type == AssetTypeGeometry. */
	Geometry *ImportedGeometry
	/** @brief Set when Type == AssetTypeMaterial. */
	Material *MaterialSource
	/** @brief Set when Type == AssetTypeTexture. */
	Texture *TexturePayload
}

/*
Package index reads and writes container.index.bin, the per mount point
catalogue of every cooked descriptor and resource table file. The codec is
strict on read and canonical on write: serializing the same document twice
yields identical bytes, and a document that round-trips through Write and
Read is unchanged.
*/
package index

import (
	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

/** @brief Identifies what a catalogued container file holds. */
type FileKind uint16

const (
	/** @brief Not a valid kind in cooked output. */
	FileKindUnknown FileKind = 0
	/** @brief The buffer resource table. */
	FileKindBufferTable FileKind = 1
	/** @brief The buffer payload data file. */
	FileKindBufferData FileKind = 2
	/** @brief The texture resource table. */
	FileKindTextureTable FileKind = 3
	/** @brief The texture payload data file. */
	FileKindTextureData FileKind = 4
)

func (k FileKind) String() string {
	switch k {
	case FileKindBufferTable:
		return "buffers.table"
	case FileKindBufferData:
		return "buffers.data"
	case FileKindTextureTable:
		return "textures.table"
	case FileKindTextureData:
		return "textures.data"
	}
	return "unknown"
}

/**
 * @brief One cooked descriptor catalogued by the index.
 */
type AssetEntry struct {
	/** @brief The asset's stable 128 bit key. */
	Key metadata.AssetKey
	/** @brief Descriptor file path relative to the mount root. */
	Path string
	/** @brief Source virtual path the asset was cooked from. Empty means unrecorded. */
	VirtualPath string
	/** @brief The descriptor's asset type. */
	Type metadata.AssetType
	/** @brief Size in bytes of the descriptor file. */
	Size uint64
	/** @brief SHA-256 of the descriptor file bytes. */
	Hash [32]byte
}

/**
 * @brief One resource table or payload file catalogued by the index.
 */
type FileRecord struct {
	/** @brief What the file holds. */
	Kind FileKind
	/** @brief File path relative to the mount root. */
	Path string
	/** @brief Size in bytes. */
	Size uint64
	/** @brief SHA-256 of the file bytes. */
	Hash [32]byte
}

/**
 * @brief In-memory form of one mount point's container.index.bin.
 */
type Document struct {
	/** @brief Caller defined content version, opaque to the codec. */
	ContentVersion uint16
	/** @brief Catalogued descriptors. */
	Assets []AssetEntry
	/** @brief Catalogued resource table and payload files. */
	Files []FileRecord
}

/**
 * @brief Finds the entry for a key, or nil.
 */
func (d *Document) AssetByKey(key metadata.AssetKey) *AssetEntry {
	for i := range d.Assets {
		if d.Assets[i].Key == key {
			return &d.Assets[i]
		}
	}
	return nil
}

/**
 * @brief Finds the record for a file kind, or nil.
 */
func (d *Document) FileByKind(kind FileKind) *FileRecord {
	for i := range d.Files {
		if d.Files[i].Kind == kind {
			return &d.Files[i]
		}
	}
	return nil
}

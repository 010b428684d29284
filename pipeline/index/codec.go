package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

/** @brief Name of the index file inside a cooked mount point. */
const FileName string = "container.index.bin"

/** @brief Size in bytes of the index file header. */
const HeaderSize int = 80

const (
	/** @brief Size in bytes of one asset entry record. */
	AssetRecordSize int = 76
	/** @brief Size in bytes of one file record. */
	FileRecordSize int = 64
)

const currentFormatVersion uint16 = 1

const (
	flagFileRecords   uint32 = 0x1
	flagTextureTables uint32 = 0x2

	knownFlags uint32 = flagFileRecords | flagTextureTables
)

var indexMagic = [8]byte{'K', 'I', 'L', 'N', 'I', 'D', 'X', 0}

var (
	// ErrBadMagic reports bytes that are not an index file at all.
	ErrBadMagic = errors.New("index magic mismatch")
	// ErrBadVersion reports an index format version this codec does not read.
	ErrBadVersion = errors.New("unsupported index format version")
	// ErrUnknownFlags reports feature flags this codec does not know.
	ErrUnknownFlags = errors.New("unknown index feature flags")
	// ErrCorrupt reports an index whose sections or strings are inconsistent.
	ErrCorrupt = errors.New("index file is corrupt")
	// ErrTooLarge reports a document that exceeds the wire format's limits.
	ErrTooLarge = errors.New("document exceeds index format limits")
)

type indexHeader struct {
	Magic          [8]byte
	FormatVersion  uint16
	ContentVersion uint16
	Flags          uint32
	StringsOffset  uint64
	StringsSize    uint64
	AssetsOffset   uint64
	AssetCount     uint32
	AssetRecSize   uint32
	FilesOffset    uint64
	FileCount      uint32
	FileRecSize    uint32
	_              [16]byte
}

type assetRecord struct {
	KeyLo             uint64
	KeyHi             uint64
	PathOffset        uint32
	VirtualPathOffset uint32
	AssetType         uint8
	Size              uint64
	Hash              [32]byte
	_                 [11]byte
}

type fileRecord struct {
	Kind       uint16
	_          uint16
	PathOffset uint32
	Size       uint64
	Hash       [32]byte
	_          [16]byte
}

func alignUp(n uint64, alignment uint64) uint64 {
	rem := n % alignment
	if rem == 0 {
		return n
	}
	return n + alignment - rem
}

/**
 * @brief Serializes a document into canonical index file bytes. Entries
 * and records are sorted by path, the string table is deduplicated and
 * rebuilt from scratch, and sections start on 8 byte boundaries. The
 * document itself is not modified.
 * @param doc The document to serialize.
 * @returns The file bytes, or an error.
 */
func Write(doc *Document) ([]byte, error) {
	assets := make([]AssetEntry, len(doc.Assets))
	copy(assets, doc.Assets)
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	files := make([]FileRecord, len(doc.Files))
	copy(files, doc.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	table, offsets, err := buildStringTable(assets, files)
	if err != nil {
		return nil, err
	}

	stringsOffset := uint64(HeaderSize)
	assetsOffset := alignUp(stringsOffset+uint64(len(table)), 8)
	filesOffset := alignUp(assetsOffset+uint64(len(assets)*AssetRecordSize), 8)
	total := filesOffset + uint64(len(files)*FileRecordSize)

	header := indexHeader{
		Magic:          indexMagic,
		FormatVersion:  currentFormatVersion,
		ContentVersion: doc.ContentVersion,
		StringsOffset:  stringsOffset,
		StringsSize:    uint64(len(table)),
		AssetsOffset:   assetsOffset,
		AssetCount:     uint32(len(assets)),
		AssetRecSize:   uint32(AssetRecordSize),
		FilesOffset:    filesOffset,
		FileCount:      uint32(len(files)),
		FileRecSize:    uint32(FileRecordSize),
	}
	if len(files) > 0 {
		header.Flags |= flagFileRecords
	}
	for _, f := range files {
		if f.Kind == FileKindTextureTable || f.Kind == FileKindTextureData {
			header.Flags |= flagTextureTables
			break
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, total))
	mustWrite(buf, &header)
	buf.Write(table)
	buf.Write(make([]byte, int(assetsOffset)-buf.Len()))
	for i := range assets {
		a := &assets[i]
		mustWrite(buf, &assetRecord{
			KeyLo:             a.Key.Lo,
			KeyHi:             a.Key.Hi,
			PathOffset:        offsets[a.Path],
			VirtualPathOffset: offsets[a.VirtualPath],
			AssetType:         uint8(a.Type),
			Size:              a.Size,
			Hash:              a.Hash,
		})
	}
	buf.Write(make([]byte, int(filesOffset)-buf.Len()))
	for i := range files {
		f := &files[i]
		mustWrite(buf, &fileRecord{
			Kind:       uint16(f.Kind),
			PathOffset: offsets[f.Path],
			Size:       f.Size,
			Hash:       f.Hash,
		})
	}
	return buf.Bytes(), nil
}

// buildStringTable deduplicates every referenced string into a table that
// starts with a single NUL, so offset zero always resolves to the empty
// string and can mean "absent".
func buildStringTable(assets []AssetEntry, files []FileRecord) ([]byte, map[string]uint32, error) {
	seen := map[string]struct{}{}
	add := func(s string) {
		if s != "" {
			seen[s] = struct{}{}
		}
	}
	for i := range assets {
		add(assets[i].Path)
		add(assets[i].VirtualPath)
	}
	for i := range files {
		add(files[i].Path)
	}
	ordered := make([]string, 0, len(seen))
	for s := range seen {
		ordered = append(ordered, s)
	}
	sort.Strings(ordered)

	table := []byte{0}
	offsets := map[string]uint32{"": 0}
	for _, s := range ordered {
		if uint64(len(table)) > 0xFFFFFFFF {
			return nil, nil, fmt.Errorf("string table: %w", ErrTooLarge)
		}
		offsets[s] = uint32(len(table))
		table = append(table, s...)
		table = append(table, 0)
	}
	return table, offsets, nil
}

func mustWrite(buf *bytes.Buffer, record any) {
	if err := binary.Write(buf, binary.LittleEndian, record); err != nil {
		panic(fmt.Sprintf("index: encode record: %v", err))
	}
}

/**
 * @brief Parses index file bytes into a document, validating the header,
 * section bounds and string references. Records larger than this codec
 * knows are tolerated; their trailing bytes are skipped.
 * @param data The complete file bytes.
 * @returns The parsed document, or an error identifying how the bytes are
 * unacceptable.
 */
func Read(data []byte) (*Document, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%d bytes is shorter than the header: %w", len(data), ErrCorrupt)
	}
	var header indexHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header.Magic != indexMagic {
		return nil, ErrBadMagic
	}
	if header.FormatVersion != currentFormatVersion {
		return nil, fmt.Errorf("version %d: %w", header.FormatVersion, ErrBadVersion)
	}
	if unknown := header.Flags &^ knownFlags; unknown != 0 {
		return nil, fmt.Errorf("flags 0x%X: %w", unknown, ErrUnknownFlags)
	}
	if err := checkSection(len(data), header.StringsOffset, header.StringsSize, "string table"); err != nil {
		return nil, err
	}
	if header.AssetRecSize < uint32(AssetRecordSize) {
		return nil, fmt.Errorf("asset record size %d below %d: %w", header.AssetRecSize, AssetRecordSize, ErrCorrupt)
	}
	if header.FileRecSize < uint32(FileRecordSize) {
		return nil, fmt.Errorf("file record size %d below %d: %w", header.FileRecSize, FileRecordSize, ErrCorrupt)
	}
	if err := checkSection(len(data), header.AssetsOffset, uint64(header.AssetCount)*uint64(header.AssetRecSize), "asset section"); err != nil {
		return nil, err
	}
	if err := checkSection(len(data), header.FilesOffset, uint64(header.FileCount)*uint64(header.FileRecSize), "file section"); err != nil {
		return nil, err
	}

	table := data[header.StringsOffset : header.StringsOffset+header.StringsSize]
	doc := &Document{ContentVersion: header.ContentVersion}

	doc.Assets = make([]AssetEntry, 0, header.AssetCount)
	for i := uint32(0); i < header.AssetCount; i++ {
		base := header.AssetsOffset + uint64(i)*uint64(header.AssetRecSize)
		var rec assetRecord
		if err := binary.Read(bytes.NewReader(data[base:base+uint64(AssetRecordSize)]), binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("read asset record %d: %w", i, err)
		}
		path, err := resolveString(table, rec.PathOffset)
		if err != nil {
			return nil, fmt.Errorf("asset record %d path: %w", i, err)
		}
		vpath, err := resolveString(table, rec.VirtualPathOffset)
		if err != nil {
			return nil, fmt.Errorf("asset record %d virtual path: %w", i, err)
		}
		doc.Assets = append(doc.Assets, AssetEntry{
			Key:         metadata.AssetKey{Lo: rec.KeyLo, Hi: rec.KeyHi},
			Path:        path,
			VirtualPath: vpath,
			Type:        metadata.AssetType(rec.AssetType),
			Size:        rec.Size,
			Hash:        rec.Hash,
		})
	}

	doc.Files = make([]FileRecord, 0, header.FileCount)
	for i := uint32(0); i < header.FileCount; i++ {
		base := header.FilesOffset + uint64(i)*uint64(header.FileRecSize)
		var rec fileRecord
		if err := binary.Read(bytes.NewReader(data[base:base+uint64(FileRecordSize)]), binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("read file record %d: %w", i, err)
		}
		path, err := resolveString(table, rec.PathOffset)
		if err != nil {
			return nil, fmt.Errorf("file record %d path: %w", i, err)
		}
		doc.Files = append(doc.Files, FileRecord{
			Kind: FileKind(rec.Kind),
			Path: path,
			Size: rec.Size,
			Hash: rec.Hash,
		})
	}
	return doc, nil
}

func checkSection(streamLen int, offset, size uint64, what string) error {
	if offset > uint64(streamLen) || size > uint64(streamLen)-offset {
		return fmt.Errorf("%s [%d..%d) outside %d byte stream: %w", what, offset, offset+size, streamLen, ErrCorrupt)
	}
	return nil
}

func resolveString(table []byte, offset uint32) (string, error) {
	if uint64(offset) >= uint64(len(table)) {
		return "", fmt.Errorf("string offset %d outside %d byte table: %w", offset, len(table), ErrCorrupt)
	}
	end := bytes.IndexByte(table[offset:], 0)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at offset %d: %w", offset, ErrCorrupt)
	}
	return string(table[offset : int(offset)+end]), nil
}

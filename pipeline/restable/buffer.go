package restable

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/kiln/pipeline/math"
)

const (
	/** @brief Size in bytes of one buffer table entry. */
	BufferEntrySize int = 32
	/** @brief Byte stride of one cooked vertex. */
	VertexStride int = 72
	/** @brief Alignment of index blobs inside the buffer data file. */
	IndexAlignment int = 4
)

/** @brief Buffer usage bits recorded per entry. */
const (
	BufferUsageVertex uint32 = 0x1
	BufferUsageIndex  uint32 = 0x2
)

type bufferEntry struct {
	DataOffset uint64
	Size       uint32
	Usage      uint32
	Stride     uint32
	Format     uint8
	_          [11]byte
}

// Cooked vertex wire layout. The field order is the cooked order, which
// is not the in-memory order of math.Vertex3D.
type vertexWire struct {
	Position  [3]float32
	Normal    [3]float32
	Texcoord  [2]float32
	Tangent   [3]float32
	Bitangent [3]float32
	Colour    [4]float32
}

/**
 * @brief Accumulates vertex and index blobs for one cook run and emits the
 * buffers table and data bytes. Slot 0 is reserved; the first added blob
 * gets slot 1. Not safe for concurrent use.
 */
type BufferBuilder struct {
	table bytes.Buffer
	data  bytes.Buffer
	count uint32
}

/**
 * @brief Creates a builder holding only the reserved slot.
 */
func NewBufferBuilder() *BufferBuilder {
	b := &BufferBuilder{}
	b.table.Write(make([]byte, BufferEntrySize))
	b.count = 1
	return b
}

/**
 * @brief Serializes vertices at the cooked stride and appends them as one
 * vertex buffer blob, aligned to the stride.
 * @param vertices The vertices to cook.
 * @returns The blob's table slot, local to this build.
 */
func (b *BufferBuilder) AddVertices(vertices []math.Vertex3D) (uint32, error) {
	size := len(vertices) * VertexStride
	if uint64(size) > 0xFFFFFFFF {
		return 0, fmt.Errorf("vertex blob of %d bytes: %w", size, ErrBlobTooLarge)
	}
	wire := make([]vertexWire, len(vertices))
	for i, v := range vertices {
		wire[i] = vertexWire{
			Position:  [3]float32{v.Position.X, v.Position.Y, v.Position.Z},
			Normal:    [3]float32{v.Normal.X, v.Normal.Y, v.Normal.Z},
			Texcoord:  [2]float32{v.Texcoord.X, v.Texcoord.Y},
			Tangent:   [3]float32{v.Tangent.X, v.Tangent.Y, v.Tangent.Z},
			Bitangent: [3]float32{v.Bitangent.X, v.Bitangent.Y, v.Bitangent.Z},
			Colour:    [4]float32{v.Colour.X, v.Colour.Y, v.Colour.Z, v.Colour.W},
		}
	}
	offset := b.pad(VertexStride)
	if err := binary.Write(&b.data, binary.LittleEndian, wire); err != nil {
		panic(fmt.Sprintf("restable: serialize vertices: %v", err))
	}
	return b.appendEntry(bufferEntry{
		DataOffset: offset,
		Size:       uint32(size),
		Usage:      BufferUsageVertex,
		Stride:     uint32(VertexStride),
	}), nil
}

/**
 * @brief Appends indices as one index buffer blob, aligned to 4 bytes.
 * @param indices The 32 bit indices to cook.
 * @returns The blob's table slot, local to this build.
 */
func (b *BufferBuilder) AddIndices(indices []uint32) (uint32, error) {
	size := len(indices) * 4
	if uint64(size) > 0xFFFFFFFF {
		return 0, fmt.Errorf("index blob of %d bytes: %w", size, ErrBlobTooLarge)
	}
	offset := b.pad(IndexAlignment)
	if err := binary.Write(&b.data, binary.LittleEndian, indices); err != nil {
		panic(fmt.Sprintf("restable: serialize indices: %v", err))
	}
	return b.appendEntry(bufferEntry{
		DataOffset: offset,
		Size:       uint32(size),
		Usage:      BufferUsageIndex,
		Stride:     4,
	}), nil
}

/**
 * @brief Returns the table and data bytes accumulated so far.
 */
func (b *BufferBuilder) Build() TablePair {
	return TablePair{Table: b.table.Bytes(), Data: b.data.Bytes()}
}

// pad advances the data cursor to the requested alignment and returns the
// aligned offset.
func (b *BufferBuilder) pad(alignment int) uint64 {
	aligned := alignUp(b.data.Len(), alignment)
	b.data.Write(make([]byte, aligned-b.data.Len()))
	return uint64(aligned)
}

func (b *BufferBuilder) appendEntry(entry bufferEntry) uint32 {
	if err := binary.Write(&b.table, binary.LittleEndian, &entry); err != nil {
		panic(fmt.Sprintf("restable: serialize buffer entry: %v", err))
	}
	slot := b.count
	b.count++
	return slot
}

/**
 * @brief Merges a fresh buffer build into the bytes of a prior one. The
 * prior bytes are never modified, only extended; fresh payloads start at
 * the prior data length rounded up to the vertex stride.
 * @param prior The table and data read from the previous cook, empty on a
 * first build.
 * @param fresh The output of this build's BufferBuilder.
 * @returns The merged pair plus the slot remap base.
 */
func MergeBufferTables(prior, fresh TablePair) (*MergeResult, error) {
	return mergeTables(prior, fresh, BufferEntrySize, VertexStride)
}

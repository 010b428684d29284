package descriptor

import (
	"bytes"
	"fmt"

	"github.com/spaghettifunk/kiln/pipeline/math"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

/**
 * @brief Resolved resource table slots for one level of detail.
 */
type MeshBufferRef struct {
	/** @brief Slot of the vertex buffer entry in the buffer table. */
	VertexSlot uint32
	/** @brief Slot of the index buffer entry in the buffer table. */
	IndexSlot uint32
}

/**
 * @brief Body of a geometry descriptor. Together with the common header it
 * fills the 256 byte leading block; the per LOD records follow it.
 */
type geometryBody struct {
	LODCount  uint16
	BoundsMin [3]float32
	BoundsMax [3]float32
	_         [135]byte
}

type meshRecord struct {
	Name         [nameFieldSize]byte
	MeshType     uint8
	SubmeshCount uint16
	ViewCount    uint16
	VertexSlot   uint32
	IndexSlot    uint32
	VertexCount  uint32
	IndexCount   uint32
	BoundsMin    [3]float32
	BoundsMax    [3]float32
	_            [4]byte
}

type submeshRecord struct {
	MaterialKeyLo uint64
	MaterialKeyHi uint64
	IndexOffset   uint32
	IndexCount    uint32
	VertexOffset  uint32
	VertexCount   uint32
	ViewCount     uint16
	BoundsMin     [3]float32
	BoundsMax     [3]float32
	_             [50]byte
}

type meshViewRecord struct {
	FirstIndex uint32
	IndexCount uint32
	BaseVertex uint32
	Flags      uint32
}

func boundsOf(e math.Extents3D) ([3]float32, [3]float32) {
	return [3]float32{e.Min.X, e.Min.Y, e.Min.Z}, [3]float32{e.Max.X, e.Max.Y, e.Max.Z}
}

/**
 * @brief Encodes an imported geometry into the bytes of its .ogeo file.
 * buffers carries the resolved vertex and index table slots for each LOD
 * and must be parallel to geo.LODs.
 * @param geo The imported geometry to encode.
 * @param buffers Resolved resource table slots, one per LOD.
 * @returns The descriptor file bytes, or an error for payloads that do
 * not fit the wire format.
 */
func EncodeGeometry(geo *metadata.ImportedGeometry, buffers []MeshBufferRef) ([]byte, error) {
	if len(buffers) != len(geo.LODs) {
		panic(fmt.Sprintf("descriptor: geometry %q: %d buffer refs for %d LODs", geo.Name, len(buffers), len(geo.LODs)))
	}
	if len(geo.LODs) > 0xFFFF {
		return nil, fmt.Errorf("geometry %q: %d LODs: %w", geo.Name, len(geo.LODs), ErrRange)
	}

	bounds := geo.Extents()
	body := geometryBody{LODCount: uint16(len(geo.LODs))}
	body.BoundsMin, body.BoundsMax = boundsOf(bounds)

	size := BlockSize
	for _, mesh := range geo.LODs {
		size += MeshSize + len(mesh.Submeshes)*SubmeshSize
		for _, sm := range mesh.Submeshes {
			if len(sm.Views) == 0 {
				size += MeshViewSize
			} else {
				size += len(sm.Views) * MeshViewSize
			}
		}
	}

	header := fileHeader{
		AssetType:      uint8(metadata.AssetTypeGeometry),
		Name:           encodeName(geo.Name),
		FormatVersion:  formatVersion,
		StreamPriority: geo.StreamPriority,
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	writeRecord(buf, &header)
	writeRecord(buf, &body)

	for i, mesh := range geo.LODs {
		if err := encodeMesh(buf, geo.Name, mesh, buffers[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeMesh(buf *bytes.Buffer, owner string, mesh *metadata.ImportedMesh, ref MeshBufferRef) error {
	if mesh.MeshType == metadata.MeshTypeUnknown {
		return fmt.Errorf("geometry %q: mesh %q has no type: %w", owner, mesh.Name, ErrUnknownEnum)
	}
	if len(mesh.Submeshes) > 0xFFFF {
		return fmt.Errorf("geometry %q: mesh %q: %d submeshes: %w", owner, mesh.Name, len(mesh.Submeshes), ErrRange)
	}
	if len(mesh.Vertices) > 0xFFFFFFFF || len(mesh.Indices) > 0xFFFFFFFF {
		return fmt.Errorf("geometry %q: mesh %q: vertex or index count: %w", owner, mesh.Name, ErrRange)
	}

	totalViews := 0
	for _, sm := range mesh.Submeshes {
		if len(sm.Views) > 0xFFFF {
			return fmt.Errorf("geometry %q: mesh %q: %d views on one submesh: %w", owner, mesh.Name, len(sm.Views), ErrRange)
		}
		if len(sm.Views) == 0 {
			totalViews++
		} else {
			totalViews += len(sm.Views)
		}
	}
	if totalViews > 0xFFFF {
		return fmt.Errorf("geometry %q: mesh %q: %d views: %w", owner, mesh.Name, totalViews, ErrRange)
	}

	rec := meshRecord{
		Name:         encodeName(mesh.Name),
		MeshType:     uint8(mesh.MeshType),
		SubmeshCount: uint16(len(mesh.Submeshes)),
		ViewCount:    uint16(totalViews),
		VertexSlot:   ref.VertexSlot,
		IndexSlot:    ref.IndexSlot,
		VertexCount:  uint32(len(mesh.Vertices)),
		IndexCount:   uint32(len(mesh.Indices)),
	}
	rec.BoundsMin, rec.BoundsMax = boundsOf(mesh.Extents)
	writeRecord(buf, &rec)

	for _, sm := range mesh.Submeshes {
		views := sm.Views
		if len(views) == 0 {
			// A submesh without authored views still needs one so loaders
			// can always draw by views.
			views = []metadata.MeshView{{FirstIndex: sm.IndexOffset, IndexCount: sm.IndexCount}}
		}
		srec := submeshRecord{
			MaterialKeyLo: sm.MaterialKey.Lo,
			MaterialKeyHi: sm.MaterialKey.Hi,
			IndexOffset:   sm.IndexOffset,
			IndexCount:    sm.IndexCount,
			VertexOffset:  sm.VertexOffset,
			VertexCount:   sm.VertexCount,
			ViewCount:     uint16(len(views)),
		}
		srec.BoundsMin, srec.BoundsMax = boundsOf(sm.Extents)
		writeRecord(buf, &srec)
		for _, v := range views {
			writeRecord(buf, &meshViewRecord{
				FirstIndex: v.FirstIndex,
				IndexCount: v.IndexCount,
				BaseVertex: v.BaseVertex,
				Flags:      v.Flags,
			})
		}
	}
	return nil
}

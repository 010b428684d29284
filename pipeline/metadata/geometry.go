package metadata

import (
	"github.com/spaghettifunk/kiln/pipeline/math"
)

/** @brief The name used when a geometry arrives without one. */
const DefaultGeometryName string = "default"

/** @brief Distinguishes how a mesh sources its data. */
type MeshType uint8

const (
	/** @brief Not a valid mesh type in cooked output. */
	MeshTypeUnknown MeshType = 0
	/** @brief A standard mesh: vertex and index data live in the buffer
	resource table and are referenced by table index. */
	MeshTypeStandard MeshType = 1
)

/**
 * @brief A view into a mesh's index data, one runtime draw call.
 */
type MeshView struct {
	/** @brief The first index of the view. */
	FirstIndex uint32
	/** @brief The number of indices in the view. */
	IndexCount uint32
	/** @brief The value added to each index before vertex lookup. */
	BaseVertex uint32
	/** @brief Reserved per-view flags. */
	Flags uint32
}

/**
 * @brief A contiguous run of a mesh rendered with a single material.
 * Materials are referenced by AssetKey rather than by any transient index,
 * which keeps the binding stable across reimport-time renumbering.
 */
type ImportedSubmesh struct {
	/** @brief The key of the material this submesh renders with. Zero means "none". */
	MaterialKey AssetKey
	/** @brief The first index belonging to this submesh. */
	IndexOffset uint32
	/** @brief The number of indices belonging to this submesh. */
	IndexCount uint32
	/** @brief The first vertex belonging to this submesh. */
	VertexOffset uint32
	/** @brief The number of vertices belonging to this submesh. */
	VertexCount uint32
	/** @brief The extents of this submesh in local coordinates. */
	Extents math.Extents3D
	/** @brief Authored mesh views. When empty, one view covering the whole
	index range is synthesised at cook time. */
	Views []MeshView
}

/**
 * @brief One level of detail of a geometry: a vertex stream, an index stream
 * and the submesh partition over them.
 */
type ImportedMesh struct {
	/** @brief The mesh name. */
	Name string
	/** @brief The mesh type. */
	MeshType MeshType
	/** @brief The vertex stream. */
	Vertices []math.Vertex3D
	/** @brief The index stream. */
	Indices []uint32
	/** @brief The submesh partition. At least one entry. */
	Submeshes []*ImportedSubmesh
	/** @brief The extents of the mesh in local coordinates. */
	Extents math.Extents3D
}

/**
 * @brief A geometry asset as handed over by an importer: one mesh per level
 * of detail, most detailed first.
 */
type ImportedGeometry struct {
	/** @brief The geometry name. */
	Name string
	/** @brief The streaming priority byte carried into the descriptor header. */
	StreamPriority uint8
	/** @brief One mesh per LOD. At least one entry. */
	LODs []*ImportedMesh
}

// Extents returns the union of all LOD extents.
func (g *ImportedGeometry) Extents() math.Extents3D {
	if len(g.LODs) == 0 {
		return math.Extents3D{}
	}
	ext := g.LODs[0].Extents
	for _, lod := range g.LODs[1:] {
		ext = math.MergeExtents(ext, lod.Extents)
	}
	return ext
}

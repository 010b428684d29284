package descriptor

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/kiln/pipeline/math"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

func TestRecordSizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HeaderSize, binary.Size(fileHeader{}))
	assert.Equal(t, BlockSize-HeaderSize, binary.Size(materialBody{}))
	assert.Equal(t, BlockSize-HeaderSize, binary.Size(geometryBody{}))
	assert.Equal(t, ShaderRefSize, binary.Size(shaderRefRecord{}))
	assert.Equal(t, MeshSize, binary.Size(meshRecord{}))
	assert.Equal(t, SubmeshSize, binary.Size(submeshRecord{}))
	assert.Equal(t, MeshViewSize, binary.Size(meshViewRecord{}))
}

func TestEncodeName(t *testing.T) {
	t.Parallel()

	short := encodeName("crate01")
	assert.Equal(t, []byte("crate01"), short[:7])
	assert.Equal(t, byte(0), short[7])

	long := encodeName(strings.Repeat("a", 80))
	assert.Equal(t, bytes.Repeat([]byte("a"), 55), long[:55])
	assert.Equal(t, byte(0), long[55])

	// Truncation must not split a multi byte rune.
	multi := encodeName(strings.Repeat("a", 54) + "é")
	assert.Equal(t, bytes.Repeat([]byte("a"), 54), multi[:54])
	assert.Equal(t, byte(0), multi[54])
}

func TestPackUnorm16(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint16(0), packUnorm16(0))
	assert.Equal(t, uint16(65535), packUnorm16(1))
	assert.Equal(t, uint16(0), packUnorm16(-3))
	assert.Equal(t, uint16(65535), packUnorm16(2.5))
	assert.Equal(t, uint16(32768), packUnorm16(0.5))
}

func testMaterial() *metadata.MaterialSource {
	return &metadata.MaterialSource{
		Name:             "rock_wall",
		StreamPriority:   7,
		AlphaMode:        metadata.AlphaModeOpaque,
		BaseColour:       math.Vec4{X: 0.5, Y: 0.25, Z: 0.125, W: 1},
		NormalScale:      1,
		Metalness:        0.5,
		Roughness:        1,
		AmbientOcclusion: 1,
		ShaderStages:     metadata.ShaderStageVertex | metadata.ShaderStageFragment,
	}
}

func TestEncodeMaterialLayout(t *testing.T) {
	t.Parallel()

	baseColourKey := metadata.AssetKey{Lo: 11, Hi: 12}
	normalKey := metadata.AssetKey{Lo: 21, Hi: 22}

	mat := testMaterial()
	mat.DoubleSided = true
	mat.Textures[metadata.TextureSlotBaseColour] = baseColourKey
	mat.Textures[metadata.TextureSlotNormal] = normalKey
	mat.Shaders = []metadata.ShaderRef{
		{Stages: metadata.ShaderStageVertex, Name: "pbr_vert"},
		{Stages: metadata.ShaderStageFragment, Name: "pbr_frag"},
	}

	data, err := EncodeMaterial(mat, map[metadata.AssetKey]uint32{
		baseColourKey: 3,
		normalKey:     5,
	})
	require.NoError(t, err)
	require.Len(t, data, BlockSize+2*ShaderRefSize)

	r := bytes.NewReader(data)
	var hdr fileHeader
	require.NoError(t, binary.Read(r, binary.LittleEndian, &hdr))
	assert.Equal(t, uint8(metadata.AssetTypeMaterial), hdr.AssetType)
	assert.Equal(t, encodeName("rock_wall"), hdr.Name)
	assert.Equal(t, uint8(1), hdr.FormatVersion)
	assert.Equal(t, uint8(7), hdr.StreamPriority)
	assert.Equal(t, [32]byte{}, hdr.ContentHash)

	var body materialBody
	require.NoError(t, binary.Read(r, binary.LittleEndian, &body))
	assert.Equal(t, materialDomainOpaque, body.Domain)
	assert.Equal(t, materialFlagDoubleSided, body.Flags)
	assert.Equal(t, uint32(metadata.ShaderStageVertex|metadata.ShaderStageFragment), body.StageMask)
	assert.Equal(t, [4]float32{0.5, 0.25, 0.125, 1}, body.BaseColour)
	assert.Equal(t, float32(1), body.NormalScale)
	assert.Equal(t, uint16(32768), body.Metalness)
	assert.Equal(t, uint16(65535), body.Roughness)
	assert.Equal(t, uint32(3), body.TextureSlots[metadata.TextureSlotBaseColour])
	assert.Equal(t, uint32(5), body.TextureSlots[metadata.TextureSlotNormal])
	assert.Equal(t, uint32(0), body.TextureSlots[metadata.TextureSlotEmissive])
	assert.Equal(t, uint16(2), body.ShaderRefCount)

	var ref shaderRefRecord
	require.NoError(t, binary.Read(r, binary.LittleEndian, &ref))
	assert.Equal(t, uint32(metadata.ShaderStageVertex), ref.StageMask)
	assert.Equal(t, encodeName("pbr_vert"), ref.Name)
	require.NoError(t, binary.Read(r, binary.LittleEndian, &ref))
	assert.Equal(t, encodeName("pbr_frag"), ref.Name)
	assert.Zero(t, r.Len())
}

func TestEncodeMaterialNoTextureSampling(t *testing.T) {
	t.Parallel()

	data, err := EncodeMaterial(testMaterial(), nil)
	require.NoError(t, err)
	require.Len(t, data, BlockSize)

	var body materialBody
	require.NoError(t, binary.Read(bytes.NewReader(data[HeaderSize:]), binary.LittleEndian, &body))
	assert.Equal(t, materialFlagNoTextureSampling, body.Flags)
	assert.Equal(t, [metadata.TextureSlotCount]uint32{}, body.TextureSlots)
}

func TestEncodeMaterialUnresolvedTextureIsUnbound(t *testing.T) {
	t.Parallel()

	mat := testMaterial()
	mat.Textures[metadata.TextureSlotBaseColour] = metadata.AssetKey{Lo: 99}

	data, err := EncodeMaterial(mat, map[metadata.AssetKey]uint32{})
	require.NoError(t, err)

	var body materialBody
	require.NoError(t, binary.Read(bytes.NewReader(data[HeaderSize:]), binary.LittleEndian, &body))
	assert.Equal(t, uint32(0), body.TextureSlots[metadata.TextureSlotBaseColour])
	assert.NotZero(t, body.Flags&materialFlagNoTextureSampling)
}

func TestEncodeMaterialMask(t *testing.T) {
	t.Parallel()

	mat := testMaterial()
	mat.AlphaMode = metadata.AlphaModeMask
	mat.AlphaCutoff = 0.5

	data, err := EncodeMaterial(mat, nil)
	require.NoError(t, err)

	var body materialBody
	require.NoError(t, binary.Read(bytes.NewReader(data[HeaderSize:]), binary.LittleEndian, &body))
	assert.Equal(t, materialDomainMask, body.Domain)
	assert.NotZero(t, body.Flags&materialFlagAlphaTest)
	assert.Equal(t, uint16(32768), body.AlphaCutoff)
}

func TestEncodeMaterialUnknownAlphaMode(t *testing.T) {
	t.Parallel()

	mat := testMaterial()
	mat.AlphaMode = metadata.AlphaMode(9)

	_, err := EncodeMaterial(mat, nil)
	require.ErrorIs(t, err, ErrUnknownEnum)
}

func testGeometry() *metadata.ImportedGeometry {
	mesh := &metadata.ImportedMesh{
		Name:     "lod0",
		MeshType: metadata.MeshTypeStandard,
		Vertices: make([]math.Vertex3D, 9),
		Indices:  make([]uint32, 12),
		Extents: math.Extents3D{
			Min: math.Vec3{X: -1, Y: -2, Z: -3},
			Max: math.Vec3{X: 1, Y: 2, Z: 3},
		},
		Submeshes: []*metadata.ImportedSubmesh{
			{
				MaterialKey: metadata.AssetKey{Lo: 41, Hi: 42},
				IndexCount:  6,
				VertexCount: 5,
				Views: []metadata.MeshView{
					{FirstIndex: 0, IndexCount: 3},
					{FirstIndex: 3, IndexCount: 3, BaseVertex: 1, Flags: 8},
				},
			},
			{
				MaterialKey:  metadata.AssetKey{Lo: 51, Hi: 52},
				IndexOffset:  6,
				IndexCount:   6,
				VertexOffset: 5,
				VertexCount:  4,
			},
		},
	}
	return &metadata.ImportedGeometry{Name: "boulder", StreamPriority: 2, LODs: []*metadata.ImportedMesh{mesh}}
}

func TestEncodeGeometryLayout(t *testing.T) {
	t.Parallel()

	geo := testGeometry()
	data, err := EncodeGeometry(geo, []MeshBufferRef{{VertexSlot: 1, IndexSlot: 2}})
	require.NoError(t, err)
	require.Len(t, data, BlockSize+MeshSize+2*SubmeshSize+3*MeshViewSize)

	r := bytes.NewReader(data)
	var hdr fileHeader
	require.NoError(t, binary.Read(r, binary.LittleEndian, &hdr))
	assert.Equal(t, uint8(metadata.AssetTypeGeometry), hdr.AssetType)
	assert.Equal(t, encodeName("boulder"), hdr.Name)
	assert.Equal(t, uint8(2), hdr.StreamPriority)

	var body geometryBody
	require.NoError(t, binary.Read(r, binary.LittleEndian, &body))
	assert.Equal(t, uint16(1), body.LODCount)
	assert.Equal(t, [3]float32{-1, -2, -3}, body.BoundsMin)
	assert.Equal(t, [3]float32{1, 2, 3}, body.BoundsMax)

	var mesh meshRecord
	require.NoError(t, binary.Read(r, binary.LittleEndian, &mesh))
	assert.Equal(t, encodeName("lod0"), mesh.Name)
	assert.Equal(t, uint8(metadata.MeshTypeStandard), mesh.MeshType)
	assert.Equal(t, uint16(2), mesh.SubmeshCount)
	assert.Equal(t, uint16(3), mesh.ViewCount)
	assert.Equal(t, uint32(1), mesh.VertexSlot)
	assert.Equal(t, uint32(2), mesh.IndexSlot)
	assert.Equal(t, uint32(9), mesh.VertexCount)
	assert.Equal(t, uint32(12), mesh.IndexCount)

	var sm submeshRecord
	require.NoError(t, binary.Read(r, binary.LittleEndian, &sm))
	assert.Equal(t, uint64(41), sm.MaterialKeyLo)
	assert.Equal(t, uint64(42), sm.MaterialKeyHi)
	assert.Equal(t, uint16(2), sm.ViewCount)

	var view meshViewRecord
	require.NoError(t, binary.Read(r, binary.LittleEndian, &view))
	assert.Equal(t, meshViewRecord{FirstIndex: 0, IndexCount: 3}, view)
	require.NoError(t, binary.Read(r, binary.LittleEndian, &view))
	assert.Equal(t, meshViewRecord{FirstIndex: 3, IndexCount: 3, BaseVertex: 1, Flags: 8}, view)

	// The second submesh has no authored views, so one is synthesized
	// covering its whole index range.
	require.NoError(t, binary.Read(r, binary.LittleEndian, &sm))
	assert.Equal(t, uint64(51), sm.MaterialKeyLo)
	assert.Equal(t, uint16(1), sm.ViewCount)
	require.NoError(t, binary.Read(r, binary.LittleEndian, &view))
	assert.Equal(t, meshViewRecord{FirstIndex: 6, IndexCount: 6}, view)
	assert.Zero(t, r.Len())
}

func TestEncodeGeometryDeterministic(t *testing.T) {
	t.Parallel()

	refs := []MeshBufferRef{{VertexSlot: 1, IndexSlot: 2}}
	a, err := EncodeGeometry(testGeometry(), refs)
	require.NoError(t, err)
	b, err := EncodeGeometry(testGeometry(), refs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeGeometryUnknownMeshType(t *testing.T) {
	t.Parallel()

	geo := testGeometry()
	geo.LODs[0].MeshType = metadata.MeshTypeUnknown

	_, err := EncodeGeometry(geo, []MeshBufferRef{{}})
	require.ErrorIs(t, err, ErrUnknownEnum)
}

func TestEncodeGeometryMismatchedRefsPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		_, _ = EncodeGeometry(testGeometry(), nil)
	})
}

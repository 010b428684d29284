package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/math"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

const quadOBJ = `# two materials, one quad and one triangle
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 2 0 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl stone
f 1/1 2/2 3/3 4/4
usemtl lava
f 2/2 5/1 3/3
`

func TestParseOBJ(t *testing.T) {
	t.Parallel()

	mesh, err := parseOBJ([]byte(quadOBJ), "world/props/quad.obj")
	require.NoError(t, err)

	assert.Equal(t, "quad", mesh.Name)
	assert.Equal(t, metadata.MeshTypeStandard, mesh.MeshType)

	// The quad fans into two triangles over four deduplicated vertices;
	// the triangle gets its own vertex range.
	assert.Len(t, mesh.Vertices, 7)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6}, mesh.Indices)

	require.Len(t, mesh.Submeshes, 2)
	stone := mesh.Submeshes[0]
	assert.Equal(t, identity.KeyForPath("world/props/stone.kmt"), stone.MaterialKey)
	assert.Equal(t, uint32(0), stone.IndexOffset)
	assert.Equal(t, uint32(6), stone.IndexCount)
	assert.Equal(t, uint32(0), stone.VertexOffset)
	assert.Equal(t, uint32(4), stone.VertexCount)

	lava := mesh.Submeshes[1]
	assert.Equal(t, identity.KeyForPath("world/props/lava.kmt"), lava.MaterialKey)
	assert.Equal(t, uint32(6), lava.IndexOffset)
	assert.Equal(t, uint32(3), lava.IndexCount)
	assert.Equal(t, uint32(4), lava.VertexOffset)
	assert.Equal(t, uint32(3), lava.VertexCount)

	assert.Equal(t, math.Vec3{X: 0, Y: 0, Z: 0}, mesh.Extents.Min)
	assert.Equal(t, math.Vec3{X: 2, Y: 1, Z: 0}, mesh.Extents.Max)
	assert.Equal(t, float32(1), stone.Extents.Max.X)
	assert.Equal(t, float32(2), lava.Extents.Max.X)
}

func TestParseOBJGeneratesAttributes(t *testing.T) {
	t.Parallel()

	mesh, err := parseOBJ([]byte(quadOBJ), "world/props/quad.obj")
	require.NoError(t, err)

	v := mesh.Vertices[0]
	assert.Equal(t, math.NewVec4One(), v.Colour)
	// No vn lines, so face normals are generated; the quad lies in the
	// XY plane wound counter clockwise.
	assert.InDelta(t, 0, v.Normal.X, 1e-6)
	assert.InDelta(t, 0, v.Normal.Y, 1e-6)
	assert.InDelta(t, 1, v.Normal.Z, 1e-6)

	assert.InDelta(t, -1, v.Tangent.X, 1e-5)
	assert.InDelta(t, 0, v.Tangent.Y, 1e-5)
	assert.InDelta(t, 1, v.Bitangent.Y, 1e-5)
}

func TestParseOBJKeepsAuthoredNormals(t *testing.T) {
	t.Parallel()

	src := `v 0 0 0
v 1 0 0
v 0 1 0
vn 1 0 0
f 1//1 2//1 3//1
`
	mesh, err := parseOBJ([]byte(src), "m/tri.obj")
	require.NoError(t, err)
	// The authored normal wins even though the face would generate +Z.
	assert.Equal(t, math.Vec3{X: 1, Y: 0, Z: 0}, mesh.Vertices[0].Normal)
	assert.Equal(t, "tri", mesh.Name)

	// Faces before any usemtl carry the zero key.
	require.Len(t, mesh.Submeshes, 1)
	assert.True(t, mesh.Submeshes[0].MaterialKey.IsZero())
}

func TestParseOBJNegativeIndices(t *testing.T) {
	t.Parallel()

	src := `v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	mesh, err := parseOBJ([]byte(src), "m/neg.obj")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	assert.Equal(t, math.Vec3{X: 1, Y: 0, Z: 0}, mesh.Vertices[1].Position)
}

func TestParseOBJRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no faces":           "v 0 0 0\n",
		"index out of range": "v 0 0 0\nf 1 2 3\n",
		"zero index":         "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"short face":         "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad vertex":         "v 0 0\nf 1 1 1\n",
	}
	for name, src := range cases {
		src := src
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := parseOBJ([]byte(src), "m/bad.obj")
			require.ErrorIs(t, err, ErrMalformedModel)
		})
	}
}

func TestGeometryImporterImport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "quad.obj")
	require.NoError(t, os.WriteFile(file, []byte(quadOBJ), 0o644))

	assets, err := (&GeometryImporter{}).Import(context.Background(), platform.New(), Source{
		Path:        file,
		VirtualPath: "world/props/quad.obj",
	})
	require.NoError(t, err)
	require.Len(t, assets, 1)

	asset := assets[0]
	assert.Equal(t, metadata.AssetTypeGeometry, asset.Type)
	assert.Equal(t, identity.KeyForPath("world/props/quad.obj"), asset.Key)
	assert.Equal(t, "world/props/quad.obj", asset.VirtualPath)
	require.NotNil(t, asset.Geometry)
	assert.Equal(t, "quad", asset.Geometry.Name)
	require.Len(t, asset.Geometry.LODs, 1)
}

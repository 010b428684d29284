package importer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/math"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

/**
 * @brief Imports wavefront OBJ models as single LOD geometry. Faces are
 * triangulated, vertices are deduplicated per submesh, and one submesh is
 * produced per referenced material in order of first use.
 */
type GeometryImporter struct{}

func (gi *GeometryImporter) Extensions() []string {
	return []string{".obj"}
}

func (gi *GeometryImporter) Import(ctx context.Context, fs platform.FileSystem, src Source) ([]*metadata.ImportedAsset, error) {
	data, err := fs.ReadAllBytes(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	mesh, err := parseOBJ(data, src.VirtualPath)
	if err != nil {
		return nil, err
	}
	geo := &metadata.ImportedGeometry{
		Name: stem(src.Path),
		LODs: []*metadata.ImportedMesh{mesh},
	}
	return []*metadata.ImportedAsset{{
		Type:        metadata.AssetTypeGeometry,
		Key:         identity.KeyForPath(src.VirtualPath),
		VirtualPath: src.VirtualPath,
		Geometry:    geo,
	}}, nil
}

// cornerRef addresses one face corner's attributes. Absent attributes are
// -1, so the struct doubles as the deduplication key.
type cornerRef struct {
	position int
	texcoord int
	normal   int
}

type objModel struct {
	name      string
	positions []math.Vec3
	texcoords []math.Vec2
	normals   []math.Vec3
	// Face corner lists per material, keyed by the usemtl name. The
	// slice keeps first use order, since map iteration would not.
	materialOrder []string
	faces         map[string][][]cornerRef
}

func parseOBJ(data []byte, virtualPath string) (*metadata.ImportedMesh, error) {
	model := objModel{faces: map[string][][]cornerRef{}}
	currentMaterial := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s: vertex %q: %w", virtualPath, line, ErrMalformedModel)
			}
			model.positions = append(model.positions, v)
		case "vn":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%s: normal %q: %w", virtualPath, line, ErrMalformedModel)
			}
			model.normals = append(model.normals, v)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%s: texcoord %q: %w", virtualPath, line, ErrMalformedModel)
			}
			u, err1 := strconv.ParseFloat(fields[1], 32)
			v, err2 := strconv.ParseFloat(fields[2], 32)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%s: texcoord %q: %w", virtualPath, line, ErrMalformedModel)
			}
			model.texcoords = append(model.texcoords, math.Vec2{X: float32(u), Y: float32(v)})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s: face %q needs at least three corners: %w", virtualPath, line, ErrMalformedModel)
			}
			face := make([]cornerRef, 0, len(fields)-1)
			for _, token := range fields[1:] {
				corner, err := model.parseCorner(token)
				if err != nil {
					return nil, fmt.Errorf("%s: face corner %q: %w", virtualPath, token, err)
				}
				face = append(face, corner)
			}
			if _, ok := model.faces[currentMaterial]; !ok {
				model.materialOrder = append(model.materialOrder, currentMaterial)
			}
			model.faces[currentMaterial] = append(model.faces[currentMaterial], face)
		case "usemtl":
			if len(fields) > 1 {
				currentMaterial = fields[1]
			}
		case "o", "g":
			if model.name == "" && len(fields) > 1 {
				model.name = fields[1]
			}
		default:
			// mtllib, smoothing groups and the rest have no cooked
			// counterpart.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(model.faces) == 0 {
		return nil, fmt.Errorf("%s: no faces: %w", virtualPath, ErrMalformedModel)
	}
	return model.build(virtualPath)
}

func parseVec3(fields []string) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, fmt.Errorf("expected three components")
	}
	x, err1 := strconv.ParseFloat(fields[0], 32)
	y, err2 := strconv.ParseFloat(fields[1], 32)
	z, err3 := strconv.ParseFloat(fields[2], 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return math.Vec3{}, fmt.Errorf("bad component")
	}
	return math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}, nil
}

// parseCorner resolves one "pos/texcoord/normal" face token. OBJ indices
// are one based; negative values count back from the end of the list.
func (m *objModel) parseCorner(token string) (cornerRef, error) {
	parts := strings.Split(token, "/")
	if len(parts) > 3 {
		return cornerRef{}, fmt.Errorf("too many components: %w", ErrMalformedModel)
	}
	corner := cornerRef{position: -1, texcoord: -1, normal: -1}

	var err error
	if corner.position, err = resolveOBJIndex(parts[0], len(m.positions)); err != nil {
		return cornerRef{}, err
	}
	if corner.position < 0 {
		return cornerRef{}, fmt.Errorf("missing position index: %w", ErrMalformedModel)
	}
	if len(parts) > 1 {
		if corner.texcoord, err = resolveOBJIndex(parts[1], len(m.texcoords)); err != nil {
			return cornerRef{}, err
		}
	}
	if len(parts) > 2 {
		if corner.normal, err = resolveOBJIndex(parts[2], len(m.normals)); err != nil {
			return cornerRef{}, err
		}
	}
	return corner, nil
}

func resolveOBJIndex(s string, count int) (int, error) {
	if s == "" {
		return -1, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("index %q: %w", s, ErrMalformedModel)
	}
	if v > 0 {
		v--
	} else {
		v = count + v
	}
	if v < 0 || v >= count {
		return 0, fmt.Errorf("index %q out of range: %w", s, ErrMalformedModel)
	}
	return v, nil
}

// build flattens the parsed model into one cooked mesh: per material the
// faces are fan triangulated into a contiguous index range over a
// deduplicated vertex range, then missing normals and all tangents are
// generated.
func (m *objModel) build(virtualPath string) (*metadata.ImportedMesh, error) {
	virtualDir := path.Dir(virtualPath)
	hasNormals := len(m.normals) > 0

	var vertices []math.Vertex3D
	var indices []uint32
	var submeshes []*metadata.ImportedSubmesh

	for _, material := range m.materialOrder {
		vertexStart := len(vertices)
		indexStart := len(indices)
		seen := map[cornerRef]uint32{}

		appendCorner := func(c cornerRef) {
			global, ok := seen[c]
			if !ok {
				vertex := math.Vertex3D{
					Position: m.positions[c.position],
					Colour:   math.NewVec4One(),
				}
				if c.texcoord >= 0 {
					vertex.Texcoord = m.texcoords[c.texcoord]
				}
				if c.normal >= 0 {
					vertex.Normal = m.normals[c.normal]
				}
				global = uint32(len(vertices))
				vertices = append(vertices, vertex)
				seen[c] = global
			}
			indices = append(indices, global)
		}

		for _, face := range m.faces[material] {
			for i := 1; i+1 < len(face); i++ {
				appendCorner(face[0])
				appendCorner(face[i])
				appendCorner(face[i+1])
			}
		}

		var materialKey metadata.AssetKey
		if material != "" {
			// Materials referenced by name resolve to a sibling .kmt
			// source in the model's directory.
			materialKey = identity.KeyForPath(path.Join(virtualDir, material+".kmt"))
		}
		submeshes = append(submeshes, &metadata.ImportedSubmesh{
			MaterialKey:  materialKey,
			IndexOffset:  uint32(indexStart),
			IndexCount:   uint32(len(indices) - indexStart),
			VertexOffset: uint32(vertexStart),
			VertexCount:  uint32(len(vertices) - vertexStart),
			Extents:      math.CalculateExtents(vertices[vertexStart:]),
		})
	}

	if !hasNormals {
		math.GeometryGenerateNormals(vertices, indices)
	}
	math.GeometryGenerateTangents(vertices, indices)

	name := m.name
	if name == "" {
		name = stem(virtualPath)
	}
	return &metadata.ImportedMesh{
		Name:      name,
		MeshType:  metadata.MeshTypeStandard,
		Vertices:  vertices,
		Indices:   indices,
		Submeshes: submeshes,
		Extents:   math.CalculateExtents(vertices),
	}, nil
}

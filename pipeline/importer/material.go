package importer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spaghettifunk/kiln/pipeline/core"
	"github.com/spaghettifunk/kiln/pipeline/identity"
	"github.com/spaghettifunk/kiln/pipeline/math"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

/**
 * @brief Imports kiln material text files (.kmt): line oriented key=value
 * pairs with # comments. Texture map values are virtual paths; values
 * without a slash resolve inside the material's own directory.
 */
type MaterialImporter struct{}

func (mi *MaterialImporter) Extensions() []string {
	return []string{".kmt"}
}

func (mi *MaterialImporter) Import(ctx context.Context, fs platform.FileSystem, src Source) ([]*metadata.ImportedAsset, error) {
	data, err := fs.ReadAllBytes(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	mat, err := parseKMT(data, src.VirtualPath)
	if err != nil {
		return nil, err
	}
	return []*metadata.ImportedAsset{{
		Type:        metadata.AssetTypeMaterial,
		Key:         identity.KeyForPath(src.VirtualPath),
		VirtualPath: src.VirtualPath,
		Material:    mat,
	}}, nil
}

func parseKMT(data []byte, virtualPath string) (*metadata.MaterialSource, error) {
	mat := &metadata.MaterialSource{
		AlphaMode:        metadata.AlphaModeOpaque,
		AlphaCutoff:      0.5,
		BaseColour:       math.NewVec4One(),
		NormalScale:      1,
		Roughness:        1,
		AmbientOcclusion: 1,
	}
	virtualDir := path.Dir(virtualPath)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s: line %q is not key=value: %w", virtualPath, line, ErrMalformedMaterial)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "name":
			mat.Name = value
		case "priority":
			priority, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid priority %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.StreamPriority = uint8(priority)
		case "alpha_mode":
			switch value {
			case "opaque":
				mat.AlphaMode = metadata.AlphaModeOpaque
			case "blend":
				mat.AlphaMode = metadata.AlphaModeBlend
			case "mask":
				mat.AlphaMode = metadata.AlphaModeMask
			default:
				return nil, fmt.Errorf("%s: invalid alpha_mode %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
		case "alpha_cutoff":
			f, err := parseFactor(value)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid alpha_cutoff %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.AlphaCutoff = f
		case "double_sided":
			doubleSided, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid double_sided %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.DoubleSided = doubleSided
		case "base_colour":
			colour, err := parseColour(value)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid base_colour %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.BaseColour = colour
		case "normal_scale":
			f, err := strconv.ParseFloat(value, 32)
			if err != nil || f < 0 {
				return nil, fmt.Errorf("%s: invalid normal_scale %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.NormalScale = float32(f)
		case "metalness":
			f, err := parseFactor(value)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid metalness %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.Metalness = f
		case "roughness":
			f, err := parseFactor(value)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid roughness %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.Roughness = f
		case "ambient_occlusion":
			f, err := parseFactor(value)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid ambient_occlusion %q: %w", virtualPath, value, ErrMalformedMaterial)
			}
			mat.AmbientOcclusion = f
		case "shader":
			mat.Shaders = append(mat.Shaders, metadata.ShaderRef{
				Stages: metadata.ShaderStageVertex | metadata.ShaderStageFragment,
				Name:   value,
			})
		case "geometry_shader":
			mat.Shaders = append(mat.Shaders, metadata.ShaderRef{
				Stages: metadata.ShaderStageGeometry,
				Name:   value,
			})
		case "compute_shader":
			mat.Shaders = append(mat.Shaders, metadata.ShaderRef{
				Stages: metadata.ShaderStageCompute,
				Name:   value,
			})
		case "base_colour_map":
			mat.Textures[metadata.TextureSlotBaseColour] = textureKey(virtualDir, value)
		case "normal_map":
			mat.Textures[metadata.TextureSlotNormal] = textureKey(virtualDir, value)
		case "metallic_roughness_map":
			mat.Textures[metadata.TextureSlotMetallicRoughness] = textureKey(virtualDir, value)
		case "occlusion_map":
			mat.Textures[metadata.TextureSlotOcclusion] = textureKey(virtualDir, value)
		case "emissive_map":
			mat.Textures[metadata.TextureSlotEmissive] = textureKey(virtualDir, value)
		default:
			core.LogWarn("unknown key '%s' in material %s, skipping", key, virtualPath)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, ref := range mat.Shaders {
		mat.ShaderStages |= ref.Stages
	}
	if err := validateMaterial(mat, virtualPath); err != nil {
		return nil, err
	}
	return mat, nil
}

func validateMaterial(mat *metadata.MaterialSource, virtualPath string) error {
	if mat.Name == "" {
		return fmt.Errorf("%s: material name is required: %w", virtualPath, ErrMalformedMaterial)
	}
	for _, c := range []float32{mat.BaseColour.X, mat.BaseColour.Y, mat.BaseColour.Z, mat.BaseColour.W} {
		if c < 0 || c > 1 {
			return fmt.Errorf("%s: base_colour values must be between 0.0 and 1.0: %w", virtualPath, ErrMalformedMaterial)
		}
	}
	return nil
}

// parseFactor parses a float that must lie in [0,1].
func parseFactor(value string) (float32, error) {
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("value %v outside [0,1]", f)
	}
	return float32(f), nil
}

func parseColour(value string) (math.Vec4, error) {
	fields := strings.Fields(value)
	if len(fields) != 4 {
		return math.Vec4{}, fmt.Errorf("expected 4 values")
	}
	var out [4]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return math.Vec4{}, err
		}
		out[i] = float32(v)
	}
	return math.Vec4{X: out[0], Y: out[1], Z: out[2], W: out[3]}, nil
}

// textureKey mints the key of a referenced texture. References without a
// slash name a file in the material's own directory; anything else is a
// full virtual path.
func textureKey(virtualDir, ref string) metadata.AssetKey {
	if !strings.Contains(ref, "/") {
		ref = path.Join(virtualDir, ref)
	}
	return identity.KeyForPath(ref)
}

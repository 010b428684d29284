package metadata

import "github.com/spaghettifunk/kiln/pipeline/math"

/** @brief The name used when a material arrives without one. */
const DefaultMaterialName string = "default"

/**
 * @brief How a material resolves transparency. Maps onto the cooked
 * material domain tag (Opaque→1, Blend→2, Mask→3).
 */
type AlphaMode uint8

const (
	/** @brief Fully opaque; alpha is ignored. */
	AlphaModeOpaque AlphaMode = iota
	/** @brief Alpha-blended. */
	AlphaModeBlend
	/** @brief Alpha-tested against the material's cutoff. */
	AlphaModeMask
)

/** @brief Shader stages a material participates in, as a bitfield. */
type ShaderStageFlag uint32

const (
	ShaderStageVertex   ShaderStageFlag = 0x1
	ShaderStageFragment ShaderStageFlag = 0x2
	ShaderStageGeometry ShaderStageFlag = 0x4
	ShaderStageCompute  ShaderStageFlag = 0x8
)

/**
 * @brief The texture binding slots a material exposes. Slot order matches
 * the cooked descriptor's texture-index array.
 */
type TextureSlot int

const (
	/** @brief The base colour (albedo) map. */
	TextureSlotBaseColour TextureSlot = iota
	/** @brief The tangent-space normal map. */
	TextureSlotNormal
	/** @brief The combined metallic-roughness map. */
	TextureSlotMetallicRoughness
	/** @brief The ambient occlusion map. */
	TextureSlotOcclusion
	/** @brief The emissive map. */
	TextureSlotEmissive

	/** @brief The number of texture slots in the cooked layout. */
	TextureSlotCount
)

func (s TextureSlot) String() string {
	switch s {
	case TextureSlotBaseColour:
		return "base_colour"
	case TextureSlotNormal:
		return "normal"
	case TextureSlotMetallicRoughness:
		return "metallic_roughness"
	case TextureSlotOcclusion:
		return "occlusion"
	case TextureSlotEmissive:
		return "emissive"
	default:
		return "unknown"
	}
}

/**
 * @brief A reference to a shader a cooked material is compiled against,
 * appended to the descriptor as a variable-length record.
 */
type ShaderRef struct {
	/** @brief The stages the shader covers. */
	Stages ShaderStageFlag
	/** @brief The shader name. Truncated to the fixed wire field if longer. */
	Name string
}

/**
 * @brief A material asset as handed over by an importer. Factors are in
 * authoring units; quantisation to the cooked representation happens in the
 * descriptor codec.
 */
type MaterialSource struct {
	/** @brief The material name. */
	Name string
	/** @brief The streaming priority byte carried into the descriptor header. */
	StreamPriority uint8
	/** @brief How transparency is resolved. */
	AlphaMode AlphaMode
	/** @brief Indicates if backface culling is disabled for this material. */
	DoubleSided bool
	/** @brief The alpha-test cutoff, meaningful when AlphaMode is Mask. */
	AlphaCutoff float32
	/** @brief The base colour factor. */
	BaseColour math.Vec4
	/** @brief The scale applied to the sampled normal. */
	NormalScale float32
	/** @brief The metalness factor in [0,1]. */
	Metalness float32
	/** @brief The roughness factor in [0,1]. */
	Roughness float32
	/** @brief The ambient occlusion factor in [0,1]. */
	AmbientOcclusion float32
	/** @brief The stages this material's shading runs in. */
	ShaderStages ShaderStageFlag
	/** @brief Per-slot texture bindings. A zero key means the slot is unbound. */
	Textures [TextureSlotCount]AssetKey
	/** @brief Shaders this material is compiled against. May be empty. */
	Shaders []ShaderRef
}

// HasAnyTexture reports whether at least one texture slot is bound.
func (m *MaterialSource) HasAnyTexture() bool {
	for _, key := range m.Textures {
		if !key.IsZero() {
			return true
		}
	}
	return false
}

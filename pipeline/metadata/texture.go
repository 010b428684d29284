package metadata

/** @brief Pixel formats a cooked texture payload can be stored in. */
type TexturePixelFormat uint8

const (
	/** @brief Not a valid format in cooked output. */
	TextureFormatUnknown TexturePixelFormat = 0
	/** @brief 8-bit-per-channel RGBA, tightly packed rows. */
	TextureFormatRGBA8 TexturePixelFormat = 1
)

/** @brief Payload compression applied on top of the pixel format. */
type TextureCompression uint8

const (
	/** @brief Raw pixels, no compression. */
	TextureCompressionNone TextureCompression = 0
	/** @brief Zstandard-compressed pixels. */
	TextureCompressionZstd TextureCompression = 1
)

/** @brief Holds bit flags for textures. */
type TextureFlagBits uint16

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlagBits = 0x1
	/** @brief Indicates if the pixel data is sRGB-encoded. */
	TextureFlagSRGB TextureFlagBits = 0x2
)

/**
 * @brief A texture asset as handed over by the image codec: geometry and
 * format metadata plus the already-encoded payload bytes. The pipeline never
 * re-encodes; it only records what it is given.
 */
type TexturePayload struct {
	/** @brief The texture name. */
	Name string
	/** @brief The texture width in pixels. */
	Width uint32
	/** @brief The texture height in pixels. */
	Height uint32
	/** @brief The number of mip levels present in the payload, at least 1. */
	MipLevels uint16
	/** @brief The number of array layers present in the payload, at least 1. */
	ArrayLayers uint16
	/** @brief The pixel format of the payload. */
	Format TexturePixelFormat
	/** @brief The compression applied to the payload. */
	Compression TextureCompression
	/** @brief Various flags for this texture. */
	Flags TextureFlagBits
	/** @brief Bytes per row of the top mip before compression. */
	RowPitch uint32
	/** @brief The encoded payload bytes, all mips and layers concatenated. */
	Data []byte
}

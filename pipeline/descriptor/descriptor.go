/*
Package descriptor encodes cooked asset descriptors. Encoders are pure:
they take importer payloads plus resolved resource-table slots and return
the exact bytes of the descriptor file, little-endian, packed, with every
reserved region zero-filled. File placement and hashing belong to the
layers above.
*/
package descriptor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spaghettifunk/kiln/pipeline/math"
)

/** @brief File extension of cooked geometry descriptors. */
const GeometryFileExtension string = ".ogeo"

/** @brief File extension of cooked material descriptors. */
const MaterialFileExtension string = ".omat"

const (
	/** @brief Size in bytes of the common descriptor header. */
	HeaderSize int = 95
	/** @brief Size in bytes of the fixed leading block of every descriptor file. */
	BlockSize int = 256
	/** @brief Size in bytes of one shader reference record. */
	ShaderRefSize int = 64
	/** @brief Size in bytes of one mesh record. */
	MeshSize int = 105
	/** @brief Size in bytes of one submesh record. */
	SubmeshSize int = 108
	/** @brief Size in bytes of one mesh view record. */
	MeshViewSize int = 16
)

/** @brief Version written into every descriptor produced by this codec. */
const formatVersion uint8 = 1

var (
	// ErrRange reports a payload value that does not fit its wire field.
	ErrRange = errors.New("value exceeds wire field range")
	// ErrUnknownEnum reports a payload enum outside the cooked vocabulary.
	ErrUnknownEnum = errors.New("unknown enum value")
)

const nameFieldSize = 56

/**
 * @brief Common header at the start of every descriptor file.
 */
type fileHeader struct {
	AssetType      uint8
	Name           [nameFieldSize]byte
	FormatVersion  uint8
	StreamPriority uint8
	ContentHash    [32]byte
	VariantFlags   uint32
}

// encodeName null-pads s into the fixed name field, truncating on a rune
// boundary so the terminating NUL always fits.
func encodeName(s string) [nameFieldSize]byte {
	var out [nameFieldSize]byte
	if len(s) > nameFieldSize-1 {
		cut := nameFieldSize - 1
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	copy(out[:], s)
	return out
}

// writeRecord serializes one packed record into buf. The record types in
// this package contain only fixed-size fields, so failure here is a
// programming error, not an input condition.
func writeRecord(buf *bytes.Buffer, record any) {
	if err := binary.Write(buf, binary.LittleEndian, record); err != nil {
		panic(fmt.Sprintf("descriptor: encode record: %v", err))
	}
}

// packUnorm16 quantizes a [0,1] factor to 16-bit fixed point.
func packUnorm16(v float32) uint16 {
	return uint16(math.Clamp(v, 0, 1)*65535.0 + 0.5)
}

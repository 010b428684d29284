/*
Package identity mints the stable 128-bit keys that identify assets across
cook runs. A key is a function of the authoring virtual path alone, so
reimporting the same path always yields the same key, and nothing else in
the pipeline ever needs to mint or recompute one.
*/
package identity

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

// The namespace is fixed forever; changing it would re-key every asset in
// every project.
var keyNamespace = uuid.MustParse("8a2e9c55-6b1f-4d6e-9a83-51c0e2a7b4fd")

/**
 * @brief KeyForPath returns the asset key for an authoring virtual path.
 * The key is the version-5 UUID of the path under the kiln namespace,
 * interpreted as two little-endian 64-bit parts.
 */
func KeyForPath(virtualPath string) metadata.AssetKey {
	id := uuid.NewSHA1(keyNamespace, []byte(virtualPath))
	return metadata.NewAssetKeyFromBytes(id)
}

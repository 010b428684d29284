package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

func TestKeyForPathDeterministic(t *testing.T) {
	t.Parallel()
	key := KeyForPath("world/props/crate.obj")
	assert.Equal(t, key, KeyForPath("world/props/crate.obj"))

	// Pinned: a changed key here means every cooked container re-keys.
	assert.Equal(t, metadata.AssetKey{
		Lo: 0xe6511291a290345e,
		Hi: 0x2926ac709381e0b6,
	}, key)
	assert.Equal(t, "5e3490a2911251e6b6e0819370ac2629", key.String())
}

func TestKeyForPathDistinguishesPaths(t *testing.T) {
	t.Parallel()
	crate := KeyForPath("world/props/crate.obj")
	assert.NotEqual(t, crate, KeyForPath("world/props/crate2.obj"))
	assert.NotEqual(t, crate, KeyForPath("World/props/crate.obj"))
}

func TestKeyForPathNeverZero(t *testing.T) {
	t.Parallel()
	assert.False(t, KeyForPath("").IsZero())
}

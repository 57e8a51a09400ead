package bcrypthash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2"))

	assert.True(t, h.Compare("correct horse battery staple", digest))
	assert.False(t, h.Compare("wrong password", digest))
}

func TestHasher_DistinctDigests(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("same input")
	require.NoError(t, err)
	b, err := h.Hash("same input")
	require.NoError(t, err)

	// Salted: equal inputs never share a digest.
	assert.NotEqual(t, a, b)
	assert.True(t, h.Compare("same input", a))
	assert.True(t, h.Compare("same input", b))
}

func TestHasher_MalformedDigestIsMismatch(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	assert.False(t, h.Compare("anything", "not a bcrypt digest"))
	assert.False(t, h.Compare("anything", ""))
}

func TestNewHasher_CostClamping(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, DefaultCost, NewHasher(-1).cost)
	assert.Equal(t, DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
	assert.Equal(t, 12, NewHasher(12).cost)
}

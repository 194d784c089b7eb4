package security

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost, 2)
	require.NoError(t, err)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)

	ok, err := h.Compare(ctx, hash, "admin123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(ctx, hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare(ctx, "not-a-hash", "x")
	assert.Error(t, err)

	assert.NoError(t, h.CompareDummy(ctx, "anything"))
}

func TestInvalidCost(t *testing.T) {
	_, err := NewHasher(bcrypt.MaxCost+1, 1)
	assert.Error(t, err)
}

func TestHashHonoursCancelledContext(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost, 1)
	require.NoError(t, err)

	// hold the only slot so the next call has to wait on the context
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Hash(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLongPasswords(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost, 1)
	require.NoError(t, err)
	ctx := context.Background()

	long := strings.Repeat("p", 80)
	hash, err := h.Hash(ctx, long)
	require.NoError(t, err)

	ok, err := h.Compare(ctx, hash, long)
	require.NoError(t, err)
	assert.True(t, ok)

	// differs only after byte 72, which bcrypt alone would ignore
	ok, err = h.Compare(ctx, hash, strings.Repeat("p", 79)+"q")
	require.NoError(t, err)
	assert.False(t, ok)

	exact := strings.Repeat("x", maxPasswordBytes)
	hash, err = h.Hash(ctx, exact)
	require.NoError(t, err)
	ok, err = h.Compare(ctx, hash, exact)
	require.NoError(t, err)
	assert.True(t, ok)
}

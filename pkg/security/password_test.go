package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hash)

	require.NoError(t, CheckPassword(hash, "s3cret-pass"))
	require.ErrorIs(t, CheckPassword(hash, "wrong"), ErrPasswordMismatch)
}

func TestRandomPassword(t *testing.T) {
	a, err := RandomPassword(16)
	require.NoError(t, err)
	b, err := RandomPassword(16)
	require.NoError(t, err)
	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
}

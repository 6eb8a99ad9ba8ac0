package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Per spec.md §3/§4.C4: 10 codes, shape XXXX-XXXX, each hash verifies only
// its own plaintext.
func TestGenerateBackupCodesShapeAndCount(t *testing.T) {
	plain, hashes, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, plain, 10)
	require.Len(t, hashes, 10)

	for i, code := range plain {
		assert.Len(t, code, 9)
		assert.Equal(t, byte('-'), code[4])
		assert.True(t, VerifyBackupCode(hashes[i], code))
	}
}

func TestVerifyBackupCodeRejectsMismatch(t *testing.T) {
	plain, hashes, err := GenerateBackupCodes()
	require.NoError(t, err)
	assert.False(t, VerifyBackupCode(hashes[0], plain[1]))
}

func TestGenerateBackupCodesAreNotAllIdentical(t *testing.T) {
	plain, _, err := GenerateBackupCodes()
	require.NoError(t, err)
	seen := make(map[string]bool, len(plain))
	for _, code := range plain {
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "10 random codes should not all collide")
}

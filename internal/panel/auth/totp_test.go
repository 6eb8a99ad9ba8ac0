package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period: 30, Skew: 3, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// Per spec.md §8 invariant 9: a code within ±3 steps (90s) of now verifies.
func TestVerifyCodeAcceptsWithinSkewWindow(t *testing.T) {
	secret, err := NewSecret()
	require.NoError(t, err)

	ok, err := VerifyCode(codeAt(t, secret, time.Now().Add(60*time.Second)), secret)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyCode(codeAt(t, secret, time.Now().Add(-60*time.Second)), secret)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyCodeRejectsOutsideSkewWindow(t *testing.T) {
	secret, err := NewSecret()
	require.NoError(t, err)

	ok, err := VerifyCode(codeAt(t, secret, time.Now().Add(10*time.Minute)), secret)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyCodeStripsDashesAndWhitespace(t *testing.T) {
	secret, err := NewSecret()
	require.NoError(t, err)
	code := codeAt(t, secret, time.Now())

	ok, err := VerifyCode(" "+code[:3]+"-"+code[3:]+" ", secret)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyCodeRejectsGarbage(t *testing.T) {
	secret, err := NewSecret()
	require.NoError(t, err)

	ok, _ := VerifyCode("000000", secret)
	assert.False(t, ok)
}

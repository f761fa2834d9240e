// ABOUTME: Tests for admin JWT generation and verification
// ABOUTME: Covers round trips, expiry, wrong secrets, and malformed tokens

package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier([]byte("admin-secret"))
	require.NoError(t, err)

	token, err := v.Generate("ops", time.Hour)
	require.NoError(t, err)

	subject, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", subject)
}

func TestJWT_Expired(t *testing.T) {
	v, err := NewJWTVerifier([]byte("admin-secret"))
	require.NoError(t, err)

	token, err := v.Generate("ops", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	v1, err := NewJWTVerifier([]byte("secret-one"))
	require.NoError(t, err)
	v2, err := NewJWTVerifier([]byte("secret-two"))
	require.NoError(t, err)

	token, err := v1.Generate("ops", time.Hour)
	require.NoError(t, err)

	_, err = v2.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Garbage(t *testing.T) {
	v, err := NewJWTVerifier([]byte("admin-secret"))
	require.NoError(t, err)

	_, err = v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_EmptySecret(t *testing.T) {
	_, err := NewJWTVerifier(nil)
	assert.Error(t, err)
}

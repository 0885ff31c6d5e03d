package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)

	token, err := svc.CreateForUser(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := svc.ParseUserID(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Minute).CreateForUser(1)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Minute).ParseUserID(token)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	token, err := NewTokenService("test-secret", -time.Minute).CreateForUser(1)
	require.NoError(t, err)

	_, err = NewTokenService("test-secret", time.Minute).ParseUserID(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenScopeRequired(t *testing.T) {
	// A token signed with the right secret but without the websocket scope
	// must not authenticate a socket upgrade.
	claims := jwt.MapClaims{
		"sub": "42",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewTokenService("test-secret", time.Minute).ParseUserID(signed)
	assert.Error(t, err)
}

func TestTokenRejectsBadSubjects(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)
	for _, sub := range []string{"", "0", "-3", "abc"} {
		claims := jwt.MapClaims{
			"sub":   sub,
			"scope": "websocket",
			"iat":   time.Now().Unix(),
			"exp":   time.Now().Add(time.Minute).Unix(),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.ParseUserID(signed)
		assert.Error(t, err, "sub=%q", sub)
	}
}

func TestTokenGarbage(t *testing.T) {
	_, err := NewTokenService("test-secret", time.Minute).ParseUserID("not.a.jwt")
	assert.Error(t, err)
}

func TestEncryptorRoundTrip(t *testing.T) {
	enc, err := NewEncryptor([]byte("any-length-secret-works"))
	require.NoError(t, err)

	for _, plain := range []string{"", "hello", "тест 😀", "a longer message with\nnewlines"} {
		sealed, err := enc.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, sealed)

		got, err := enc.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncryptorNonceVaries(t *testing.T) {
	enc, err := NewEncryptor([]byte("k"))
	require.NoError(t, err)

	a, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)
	b, err := enc.Encrypt("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptorRejectsTampering(t *testing.T) {
	enc, err := NewEncryptor([]byte("k"))
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64!!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)

	other, err := NewEncryptor([]byte("different key"))
	require.NoError(t, err)
	sealed, err := other.Encrypt("secret")
	require.NoError(t, err)
	_, err = enc.Decrypt(sealed)
	assert.Error(t, err)
}

func TestEncryptorEmptyKey(t *testing.T) {
	_, err := NewEncryptor(nil)
	assert.Error(t, err)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)

	hashed, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hashed)

	assert.NoError(t, h.Verify("password123", hashed))
	assert.Error(t, h.Verify("wrong", hashed))
}

func TestPasswordHasherCostClamped(t *testing.T) {
	for _, cost := range []int{0, -1, bcrypt.MaxCost + 1} {
		hashed, err := NewPasswordHasher(cost).Hash("p")
		require.NoError(t, err, "cost %d", cost)

		got, err := bcrypt.Cost([]byte(hashed))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.DefaultCost, got, "cost %d falls back to the default", cost)
	}
}

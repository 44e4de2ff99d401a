package jwtutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, key *rsa.PrivateKey, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewVerifier(&key.PublicKey, "auth", "wallet")

	tok := sign(t, key, Claims{
		UserID: "usr_1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "auth",
			Audience:  jwt.ClaimStrings{"wallet"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := v.ParseAndValidate(tok)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", claims.UserID)
}

func TestVerifierRejects(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewVerifier(&key.PublicKey, "auth", "wallet")

	valid := jwt.RegisteredClaims{
		Issuer:    "auth",
		Audience:  jwt.ClaimStrings{"wallet"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongAud := valid
	wrongAud.Audience = jwt.ClaimStrings{"admin"}

	cases := map[string]string{
		"expired":        sign(t, key, Claims{UserID: "u", RegisteredClaims: expired}),
		"wrong audience": sign(t, key, Claims{UserID: "u", RegisteredClaims: wrongAud}),
		"foreign key":    sign(t, other, Claims{UserID: "u", RegisteredClaims: valid}),
		"missing uid":    sign(t, key, Claims{RegisteredClaims: valid}),
		"garbage":        "not-a-token",
	}
	for name, tok := range cases {
		_, err := v.ParseAndValidate(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestParseRSAPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pub, err := ParseRSAPublicKey(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = ParseRSAPublicKey([]byte("nope"))
	assert.Error(t, err)
}

package carteirinha

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func ecKeyPEM(t *testing.T, curve elliptic.Curve) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func testCard(validUntil time.Time) *Card {
	return &Card{
		ID:             "card-1",
		OrganizationID: "org-1",
		PatientID:      "p-1",
		Number:         "CART-250101-0001",
		HolderName:     "Paula Souza",
		ValidUntil:     validUntil,
		CreatedAt:      validUntil.Add(-24 * time.Hour),
	}
}

func TestSignerAlgorithms(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name string
		key  string
		alg  string
	}{
		{"hmac", testSecret, "HS256"},
		{"ecdsa", ecKeyPEM(t, elliptic.P256()), "ES256"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := newSigner(tc.key)
			require.NoError(t, err)
			require.Equal(t, tc.alg, s.Algorithm())

			token, err := s.Sign(testCard(now.Add(time.Hour)))
			require.NoError(t, err)
			require.Equal(t, 2, strings.Count(token, "."))

			claims, err := s.Verify(token, now)
			require.NoError(t, err)
			require.Equal(t, "card-1", claims.ID)
			require.Equal(t, "CART-250101-0001", claims.Number)
			require.Equal(t, "Paula Souza", claims.HolderName)
		})
	}
}

func TestSignerRejects(t *testing.T) {
	now := time.Now().UTC()
	s, err := newSigner(testSecret)
	require.NoError(t, err)

	_, err = newSigner("short")
	require.Error(t, err)
	_, err = newSigner(ecKeyPEM(t, elliptic.P384()))
	require.Error(t, err)

	token, err := s.Sign(testCard(now.Add(time.Hour)))
	require.NoError(t, err)

	other, err := newSigner(strings.Repeat("x", 32))
	require.NoError(t, err)
	_, err = other.Verify(token, now)
	require.ErrorIs(t, err, ErrInvalidToken)

	parts := strings.Split(token, ".")
	_, err = s.Verify(parts[0]+"."+parts[1]+"x."+parts[2], now)
	require.ErrorIs(t, err, ErrInvalidToken)

	claims, err := s.Verify(token, now.Add(2*time.Hour))
	require.ErrorIs(t, err, ErrTokenExpired)
	require.Equal(t, "card-1", claims.ID)
}

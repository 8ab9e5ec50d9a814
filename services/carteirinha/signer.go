package carteirinha

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"endurancy-platform/pkg/config"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const issuer = "endurancy/carteirinha"

var (
	ErrInvalidToken = errors.New("carteirinha: invalid token")
	ErrTokenExpired = errors.New("carteirinha: token expired")
)

// Claims are the card fields embedded in the QR code token.
type Claims struct {
	jwt.Claims
	Number       string `json:"num"`
	HolderName   string `json:"name"`
	Organization string `json:"org"`
}

// Signer issues and checks compact JWS tokens for cards. A PEM encoded P-256
// key selects ES256, any other secret is used for HS256.
type Signer struct {
	alg    jose.SignatureAlgorithm
	signer jose.Signer
	verify any
}

func NewSigner(cfg *config.Config) (*Signer, error) {
	key := cfg.Carteirinha.SigningKey
	if key == "" {
		key = cfg.Session.Secret
	}
	return newSigner(key)
}

func newSigner(key string) (*Signer, error) {
	if strings.HasPrefix(strings.TrimSpace(key), "-----BEGIN") {
		priv, err := parseECKey(key)
		if err != nil {
			return nil, err
		}
		return build(jose.ES256, priv, &priv.PublicKey)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("carteirinha: signing secret must have at least 32 bytes")
	}
	return build(jose.HS256, []byte(key), []byte(key))
}

func build(alg jose.SignatureAlgorithm, signKey, verifyKey any) (*Signer, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: signKey}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("carteirinha: create signer: %w", err)
	}
	return &Signer{alg: alg, signer: signer, verify: verifyKey}, nil
}

func parseECKey(data string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(data)))
	if block == nil {
		return nil, fmt.Errorf("carteirinha: signing key is not valid PEM")
	}

	var priv *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("carteirinha: parse EC key: %w", err)
		}
		priv = k
	default:
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("carteirinha: parse PKCS8 key: %w", err)
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("carteirinha: signing key must be ECDSA")
		}
		priv = ec
	}
	if priv.Curve != elliptic.P256() {
		return nil, fmt.Errorf("carteirinha: ES256 requires a P-256 key")
	}
	return priv, nil
}

func (s *Signer) Algorithm() string { return string(s.alg) }

func (s *Signer) Sign(card *Card) (string, error) {
	claims := Claims{
		Claims: jwt.Claims{
			ID:       card.ID,
			Subject:  card.PatientID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(card.CreatedAt),
			Expiry:   jwt.NewNumericDate(card.ValidUntil),
		},
		Number:       card.Number,
		HolderName:   card.HolderName,
		Organization: card.OrganizationID,
	}
	return jwt.Signed(s.signer).Claims(claims).Serialize()
}

// Verify checks the signature and expiry of token. When the signature is
// good but the token expired the claims are returned with ErrTokenExpired.
func (s *Signer) Verify(token string, now time.Time) (*Claims, error) {
	tok, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{s.alg})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	var claims Claims
	if err := tok.Claims(s.verify, &claims); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	err = claims.Claims.ValidateWithLeeway(jwt.Expected{Issuer: issuer, Time: now}, 0)
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return &claims, ErrTokenExpired
	case err != nil:
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return &claims, nil
}

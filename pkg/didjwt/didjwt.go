// Package didjwt signs and verifies compact JWTs bound to decentralized
// identifiers. The issuer holds a did:key ed25519 identity; inbound tokens
// are verified against the public key embedded in their iss claim, so no
// out-of-band key distribution is needed.
package didjwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is a DID with its signing key. The private key never leaves this
// package; callers sign through the methods below.
type Identity struct {
	DID string
	key ed25519.PrivateKey
}

// NewIdentity generates a fresh did:key ed25519 identity.
func NewIdentity() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity key: %w", err)
	}
	return &Identity{DID: EncodeDIDKey(pub), key: priv}, nil
}

// IdentityFromSeed derives a deterministic identity from a 32-byte seed.
// Used so the issuer DID is stable across process restarts.
func IdentityFromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Identity{DID: EncodeDIDKey(priv.Public().(ed25519.PublicKey)), key: priv}, nil
}

// Sign produces a compact EdDSA JWT over the given claims. The caller is
// responsible for setting iss/sub; nothing is injected here.
func (id *Identity) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = id.DID + "#0"
	signed, err := token.SignedString(id.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign jwt: %w", err)
	}
	return signed, nil
}

// Verify parses a compact JWT and checks its signature against the key
// resolved from the token's own iss claim. The algorithm is pinned to EdDSA.
// Standard time claims (exp, nbf) are validated when present.
func Verify(tokenString string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm %q", t.Method.Alg())
		}
		iss, err := claims.GetIssuer()
		if err != nil || iss == "" {
			return nil, errors.New("token has no issuer to resolve")
		}
		return DecodeDIDKey(iss)
	})
	if err != nil {
		return nil, fmt.Errorf("jwt verification failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid jwt")
	}
	return claims, nil
}

package didjwt

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// did:key encodes the public key directly in the identifier: a multicodec
// prefix (0xed 0x01 for ed25519) followed by the raw key bytes, base58btc
// encoded with the multibase 'z' prefix.
var ed25519Prefix = []byte{0xed, 0x01}

// EncodeDIDKey returns the did:key identifier for an ed25519 public key.
func EncodeDIDKey(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, len(ed25519Prefix)+len(pub))
	buf = append(buf, ed25519Prefix...)
	buf = append(buf, pub...)
	return "did:key:z" + base58.Encode(buf)
}

// DecodeDIDKey resolves a did:key identifier to its embedded ed25519 public key.
func DecodeDIDKey(did string) (ed25519.PublicKey, error) {
	id, ok := strings.CutPrefix(did, "did:key:z")
	if !ok {
		return nil, fmt.Errorf("unsupported did method or multibase prefix: %q", did)
	}
	raw, err := base58.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("invalid did:key encoding: %w", err)
	}
	if len(raw) != len(ed25519Prefix)+ed25519.PublicKeySize ||
		raw[0] != ed25519Prefix[0] || raw[1] != ed25519Prefix[1] {
		return nil, fmt.Errorf("did:key is not an ed25519 key")
	}
	return ed25519.PublicKey(raw[2:]), nil
}

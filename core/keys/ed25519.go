package keys

import (
	stded25519 "crypto/ed25519"

	"github.com/MichaleAnderson/beldex-storage-server/internal/base32z"
)

// Ed25519Pubkey is a conventional Ed25519 signing public key, used for
// master-node message-layer authentication and for the ".mnode" address
// form.
type Ed25519Pubkey [Size]byte

// Ed25519Seckey is the corresponding 32-byte seed.
type Ed25519Seckey [Size]byte

// Ed25519PubkeyFromBytes parses a raw 32-byte Ed25519 public key.
func Ed25519PubkeyFromBytes(b []byte) (Ed25519Pubkey, error) {
	raw, err := rawBytes(b)
	return Ed25519Pubkey(raw), err
}

// Ed25519PubkeyFromHex parses a 64-hex-character Ed25519 public key.
func Ed25519PubkeyFromHex(s string) (Ed25519Pubkey, error) {
	raw, err := rawHex(s)
	return Ed25519Pubkey(raw), err
}

// ParseEd25519PubkeyAny auto-detects the encoding of s (see rawAny).
func ParseEd25519PubkeyAny(s string) Ed25519Pubkey {
	return Ed25519Pubkey(rawAny(s))
}

// Bytes returns the raw 32-byte key.
func (k Ed25519Pubkey) Bytes() []byte { return k[:] }

// String renders the key as lowercase hex.
func (k Ed25519Pubkey) String() string { return toHexString(k) }

// MnodeAddress renders the key in the ".mnode" address form used on the
// master-node network: the z-base-32 encoding of the raw key, suffixed
// with ".mnode".
func (k Ed25519Pubkey) MnodeAddress() string {
	return base32z.EncodeToString(k[:]) + ".mnode"
}

// Ed25519SeckeyFromBytes parses a raw 32-byte Ed25519 seed.
func Ed25519SeckeyFromBytes(b []byte) (Ed25519Seckey, error) {
	raw, err := rawBytes(b)
	return Ed25519Seckey(raw), err
}

// Ed25519SeckeyFromHex parses a 64-hex-character Ed25519 seed.
func Ed25519SeckeyFromHex(s string) (Ed25519Seckey, error) {
	raw, err := rawHex(s)
	return Ed25519Seckey(raw), err
}

// Bytes returns the raw 32-byte seed.
func (k Ed25519Seckey) Bytes() []byte { return k[:] }

// Pubkey derives the Ed25519 public key via the conventional SK-to-PK
// path: the seed is expanded into a signing keypair and the public half
// is returned.
func (k Ed25519Seckey) Pubkey() Ed25519Pubkey {
	priv := stded25519.NewKeyFromSeed(k[:])
	var pk Ed25519Pubkey
	copy(pk[:], priv[32:])
	return pk
}

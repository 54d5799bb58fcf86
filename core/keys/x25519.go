package keys

import "golang.org/x/crypto/curve25519"

// X25519Pubkey is a 32-byte Diffie-Hellman public key, used to establish
// the per-hop channel-encryption shared secret.
type X25519Pubkey [Size]byte

// X25519Seckey is the corresponding 32-byte scalar.
type X25519Seckey [Size]byte

// X25519PubkeyFromBytes parses a raw 32-byte X25519 public key.
func X25519PubkeyFromBytes(b []byte) (X25519Pubkey, error) {
	raw, err := rawBytes(b)
	return X25519Pubkey(raw), err
}

// X25519PubkeyFromHex parses a 64-hex-character X25519 public key.
func X25519PubkeyFromHex(s string) (X25519Pubkey, error) {
	raw, err := rawHex(s)
	return X25519Pubkey(raw), err
}

// ParseX25519PubkeyAny auto-detects the encoding of s (see rawAny).
func ParseX25519PubkeyAny(s string) X25519Pubkey {
	return X25519Pubkey(rawAny(s))
}

// Bytes returns the raw 32-byte key.
func (k X25519Pubkey) Bytes() []byte { return k[:] }

// String renders the key as lowercase hex.
func (k X25519Pubkey) String() string { return toHexString(k) }

// X25519SeckeyFromBytes parses a raw 32-byte X25519 secret scalar.
func X25519SeckeyFromBytes(b []byte) (X25519Seckey, error) {
	raw, err := rawBytes(b)
	return X25519Seckey(raw), err
}

// X25519SeckeyFromHex parses a 64-hex-character X25519 secret scalar.
func X25519SeckeyFromHex(s string) (X25519Seckey, error) {
	raw, err := rawHex(s)
	return X25519Seckey(raw), err
}

// Bytes returns the raw 32-byte scalar.
func (k X25519Seckey) Bytes() []byte { return k[:] }

// Pubkey derives the X25519 public key by clamped scalar multiplication
// against the Curve25519 basepoint.
func (k X25519Seckey) Pubkey() X25519Pubkey {
	var pk X25519Pubkey
	out, err := curve25519.X25519(k[:], curve25519.Basepoint)
	if err != nil {
		// Only fails for a low-order/invalid scalar; a freshly
		// parsed 32-byte key never hits that path in practice, and
		// callers get a well-defined (if degenerate) key rather than
		// a panic by falling back to ScalarBaseMult directly.
		var raw [32]byte
		copy(raw[:], k[:])
		curve25519.ScalarBaseMult((*[32]byte)(&pk), &raw)
		return pk
	}
	copy(pk[:], out)
	return pk
}

// DH computes the shared secret x25519(local, peer).
func DH(local X25519Seckey, peer X25519Pubkey) ([]byte, error) {
	return curve25519.X25519(local[:], peer[:])
}

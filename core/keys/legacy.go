package keys

import "filippo.io/edwards25519"

// LegacyPubkey is a 32-byte Ed25519-curve public key used as the primary
// master-node identifier. Unlike Ed25519Pubkey, the corresponding secret
// is never clamped, so legacy keys are not interchangeable with Ed25519
// signing keys even though they share a curve.
type LegacyPubkey [Size]byte

// LegacySeckey is the secret half of a LegacyPubkey.
type LegacySeckey [Size]byte

// LegacyPubkeyFromBytes parses a raw 32-byte legacy public key.
func LegacyPubkeyFromBytes(b []byte) (LegacyPubkey, error) {
	raw, err := rawBytes(b)
	return LegacyPubkey(raw), err
}

// LegacyPubkeyFromHex parses a 64-hex-character legacy public key.
func LegacyPubkeyFromHex(s string) (LegacyPubkey, error) {
	raw, err := rawHex(s)
	return LegacyPubkey(raw), err
}

// ParseLegacyPubkeyAny auto-detects the encoding of s (see rawAny).
func ParseLegacyPubkeyAny(s string) LegacyPubkey {
	return LegacyPubkey(rawAny(s))
}

// Bytes returns the raw 32-byte key.
func (k LegacyPubkey) Bytes() []byte { return k[:] }

// String renders the key as lowercase hex.
func (k LegacyPubkey) String() string { return toHexString(k) }

// LegacySeckeyFromBytes parses a raw 32-byte legacy secret key.
func LegacySeckeyFromBytes(b []byte) (LegacySeckey, error) {
	raw, err := rawBytes(b)
	return LegacySeckey(raw), err
}

// LegacySeckeyFromHex parses a 64-hex-character legacy secret key.
func LegacySeckeyFromHex(s string) (LegacySeckey, error) {
	raw, err := rawHex(s)
	return LegacySeckey(raw), err
}

// Bytes returns the raw 32-byte key.
func (k LegacySeckey) Bytes() []byte { return k[:] }

// Pubkey derives the legacy public key by multiplying the secret scalar
// against the Ed25519-curve basepoint, without the bit-clamping that a
// conventional Ed25519 signing key applies.
func (k LegacySeckey) Pubkey() LegacyPubkey {
	scalar := scalarFromUnclampedBytes(k[:])
	point := new(edwards25519.Point).ScalarBaseMult(scalar)
	var pk LegacyPubkey
	copy(pk[:], point.Bytes())
	return pk
}

// scalarFromUnclampedBytes builds an edwards25519 scalar directly from 32
// little-endian bytes with no RFC 8032 clamping, matching the "no-clamp"
// legacy derivation.
func scalarFromUnclampedBytes(b []byte) *edwards25519.Scalar {
	var wide [64]byte
	copy(wide[:32], b)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		// SetUniformBytes only fails on wrong-length input; b is
		// always 32 bytes here (LegacySeckey is a [32]byte), so this
		// is an invariant violation, not a runtime condition.
		panic("keys: BUG: SetUniformBytes rejected a 32-byte legacy secret")
	}
	return s
}

package channel

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Scheme identifies one of the three symmetric encryption schemes a
// channel-encryption layer can use.
type Scheme int

const (
	// AesGcm is AES-256-GCM with a 12-byte random nonce.
	AesGcm Scheme = iota
	// AesCbc is AES-256-CBC with PKCS#7 padding and a 16-byte random IV.
	// It carries no integrity tag of its own; it MUST NOT be used as the
	// outermost onion layer without additional authentication.
	AesCbc
	// XChaCha20 is XChaCha20-Poly1305 with a 24-byte random nonce.
	XChaCha20
)

// String renders the scheme as its canonical lowercase wire token.
func (s Scheme) String() string {
	switch s {
	case AesGcm:
		return "aes-gcm"
	case AesCbc:
		return "aes-cbc"
	case XChaCha20:
		return "xchacha20"
	default:
		return fmt.Sprintf("unknown-scheme-%d", int(s))
	}
}

// ParseScheme parses a wire token into a Scheme. An absent or
// unrecognized token falls back to AesGcm so that a node running an
// older build can still decrypt layers built by a newer one that added
// a scheme it doesn't recognize yet.
func ParseScheme(token string) Scheme {
	switch token {
	case "aes-cbc":
		return AesCbc
	case "xchacha20":
		return XChaCha20
	case "aes-gcm", "":
		return AesGcm
	default:
		return AesGcm
	}
}

// IsKnownToken reports whether token is one of the scheme wire tokens
// ParseScheme recognizes, for callers (such as config validation) that
// need to reject a typo instead of silently falling back to AesGcm.
func IsKnownToken(token string) bool {
	switch token {
	case "aes-gcm", "aes-cbc", "xchacha20":
		return true
	default:
		return false
	}
}

// schemes is the set over which RandomScheme chooses uniformly.
var schemes = [...]Scheme{AesCbc, AesGcm, XChaCha20}

// RandomScheme returns a cryptographically-seeded uniform choice among the
// three schemes, used by clients that want to vary the encryption scheme
// per hop rather than always picking aes-gcm.
func RandomScheme() Scheme {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(schemes))))
	if err != nil {
		// crypto/rand failures are catastrophic system-entropy
		// failures; there is no fallback that preserves a uniform,
		// unpredictable choice, so panic rather than silently
		// degrading to a fixed scheme.
		panic("channel: crypto/rand unavailable: " + err.Error())
	}
	return schemes[n.Int64()]
}

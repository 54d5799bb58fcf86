// Package keys implements the three 32-byte key newtypes used by the
// onion-routing core (legacy, Ed25519, X25519) and their shared textual
// encodings: raw bytes, hex, base64, and z-base-32.
package keys

import (
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/MichaleAnderson/beldex-storage-server/internal/base32z"
	"github.com/MichaleAnderson/beldex-storage-server/log"
)

// Size is the length, in bytes, of every key in this package.
const Size = 32

var (
	// ErrInvalidLength is returned by FromBytes/FromHex when the input is
	// not exactly Size bytes (or 2*Size hex characters).
	ErrInvalidLength = errors.New("keys: invalid length")
	// ErrInvalidHex is returned by FromHex when the input is not valid
	// hexadecimal.
	ErrInvalidHex = errors.New("keys: invalid hex")
)

var parseLog = log.GetLogger("keys")

func rawBytes(b []byte) ([Size]byte, error) {
	var out [Size]byte
	if len(b) != Size {
		return out, ErrInvalidLength
	}
	copy(out[:], b)
	return out, nil
}

func rawHex(s string) ([Size]byte, error) {
	var out [Size]byte
	if len(s) != 2*Size {
		return out, ErrInvalidLength
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, ErrInvalidHex
	}
	copy(out[:], b)
	return out, nil
}

// rawAny auto-detects among 32 raw bytes, 64 hex chars, 43/44-char base64
// (44 must end '='), and 52-char base32z, in that order (length first,
// then character-set validation). It never errors: an unrecognized input
// logs a warning and returns the zero key.
func rawAny(s string) [Size]byte {
	var out [Size]byte
	switch {
	case len(s) == Size:
		copy(out[:], s)
		return out
	case len(s) == 2*Size && isHex(s):
		b, err := hex.DecodeString(s)
		if err == nil {
			copy(out[:], b)
			return out
		}
	case (len(s) == 43 || (len(s) == 44 && s[len(s)-1] == '=')) && isBase64(s):
		b, err := base64.StdEncoding.DecodeString(pad(s))
		if err == nil && len(b) == Size {
			copy(out[:], b)
			return out
		}
	case len(s) == 52 && base32z.IsValid(s):
		b, err := base32z.DecodeString(s)
		if err == nil && len(b) == Size {
			copy(out[:], b)
			return out
		}
	}
	parseLog.Warningf("invalid public key: not valid bytes, hex, b64, or b32z encoded")
	parseLog.Debugf("received public key encoded value of size %d: %q", len(s), s)
	return out
}

func pad(s string) string {
	if len(s) == 44 {
		return s
	}
	return s + "="
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func isBase64(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '+' || c == '/' || c == '=':
		default:
			return false
		}
	}
	return true
}

func toHexString(b [Size]byte) string {
	return hex.EncodeToString(b[:])
}

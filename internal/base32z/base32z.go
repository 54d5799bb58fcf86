// Package base32z implements the z-base-32 human-friendly encoding used
// for master-node addresses. It is bit-for-bit the RFC 4648 base32 group
// packing with z-base-32's alphabet and no padding, so it rides directly
// on encoding/base32's custom-alphabet support rather than a
// reimplementation.
package base32z

import "encoding/base32"

const alphabet = "ybndrfg8ejkmcpqxot1uwisza345h769"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// EncodeToString returns the z-base-32 encoding of b.
func EncodeToString(b []byte) string {
	return encoding.EncodeToString(b)
}

// DecodeString decodes a z-base-32 string into bytes.
func DecodeString(s string) ([]byte, error) {
	return encoding.DecodeString(s)
}

// IsValid reports whether s consists solely of z-base-32 alphabet
// characters.
func IsValid(s string) bool {
	for _, c := range s {
		if !isAlphabetRune(c) {
			return false
		}
	}
	return len(s) > 0
}

func isAlphabetRune(c rune) bool {
	for _, a := range alphabet {
		if a == c {
			return true
		}
	}
	return false
}

// Package userpubkey implements the (network_id, 32-byte) user identifier
// used to address swarms, in its hex, raw, and network-id-prefixed forms.
package userpubkey

import "encoding/hex"

// InvalidNetworkID is the sentinel network id for an invalid/empty user
// pubkey.
const InvalidNetworkID = 0xFF

// TestnetNetworkID is the fixed network id applied to testnet short-form
// user pubkeys.
const TestnetNetworkID = 5

const (
	mainnetHexLen = 66
	mainnetRawLen = 33
	testnetHexLen = 64
	testnetRawLen = 32
	identityLen   = 32
)

// UserPubkey is an immutable (network_id, 32-byte identity) pair.
type UserPubkey struct {
	networkID byte
	bytes     [identityLen]byte
	valid     bool
}

func invalid() UserPubkey {
	return UserPubkey{networkID: InvalidNetworkID}
}

// Load classifies a textual or raw-byte user pubkey per the length-based
// rules of §3/§4.B: mainnet hex (66 chars), mainnet raw (33 bytes),
// testnet-only short hex (64 chars) or raw (32 bytes). Testnet short forms
// are only recognized when isMainnet is false; everything else yields the
// invalid sentinel.
func Load(s string, isMainnet bool) UserPubkey {
	switch {
	case len(s) == mainnetHexLen && isHex(s):
		return fromHexWithPrefix(s)
	case len(s) == mainnetRawLen:
		return fromRawWithPrefix(s)
	case !isMainnet && len(s) == testnetHexLen && isHex(s):
		b, err := hex.DecodeString(s)
		if err != nil || len(b) != identityLen {
			return invalid()
		}
		u := UserPubkey{networkID: TestnetNetworkID, valid: true}
		copy(u.bytes[:], b)
		return u
	case !isMainnet && len(s) == testnetRawLen:
		u := UserPubkey{networkID: TestnetNetworkID, valid: true}
		copy(u.bytes[:], s)
		return u
	default:
		return invalid()
	}
}

// LoadBytes is the raw-byte analog of Load, used when the identifier
// arrives as already-decoded bytes (e.g. the prefixed_raw() wire form)
// rather than text.
func LoadBytes(b []byte, isMainnet bool) UserPubkey {
	switch {
	case len(b) == mainnetRawLen:
		u := UserPubkey{networkID: b[0], valid: true}
		copy(u.bytes[:], b[1:])
		return u
	case !isMainnet && len(b) == testnetRawLen:
		u := UserPubkey{networkID: TestnetNetworkID, valid: true}
		copy(u.bytes[:], b)
		return u
	default:
		return invalid()
	}
}

func fromHexWithPrefix(s string) UserPubkey {
	netBytes, err := hex.DecodeString(s[:2])
	if err != nil {
		return invalid()
	}
	idBytes, err := hex.DecodeString(s[2:])
	if err != nil || len(idBytes) != identityLen {
		return invalid()
	}
	u := UserPubkey{networkID: netBytes[0], valid: true}
	copy(u.bytes[:], idBytes)
	return u
}

func fromRawWithPrefix(s string) UserPubkey {
	u := UserPubkey{networkID: s[0], valid: true}
	copy(u.bytes[:], s[1:])
	return u
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// Valid reports whether the pubkey parsed successfully.
func (u UserPubkey) Valid() bool { return u.valid }

// NetworkID returns the network id byte (0xFF for the invalid sentinel).
func (u UserPubkey) NetworkID() byte { return u.networkID }

// Hex returns the 32-byte identity in hex, with no network-id prefix.
func (u UserPubkey) Hex() string {
	return hex.EncodeToString(u.bytes[:])
}

// PrefixedHex returns the network-id-prefixed hex form. The network id is
// omitted iff it is 0 and isMainnet is false.
func (u UserPubkey) PrefixedHex(isMainnet bool) string {
	if !u.valid {
		return ""
	}
	if u.networkID == 0 && !isMainnet {
		return u.Hex()
	}
	return hex.EncodeToString([]byte{u.networkID}) + u.Hex()
}

// PrefixedRaw returns the 33-byte [network_id][identity] form
// unconditionally.
func (u UserPubkey) PrefixedRaw() []byte {
	if !u.valid {
		return nil
	}
	out := make([]byte, 0, 1+identityLen)
	out = append(out, u.networkID)
	out = append(out, u.bytes[:]...)
	return out
}

package onion

import (
	"github.com/zeebo/bencode"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/MichaleAnderson/beldex-storage-server/crypto/channel"
)

// OnionData is the decoded form of the inter-node forwarding payload:
// the blob to deliver, the ephemeral key and scheme it was wrapped
// under, the hop number, and any client-supplied keys the forwarding
// node doesn't interpret but must pass through intact.
type OnionData struct {
	Blob         []byte
	EphemeralKey keys.X25519Pubkey
	Scheme       channel.Scheme
	HopNumber    int
	Extra        map[string]interface{}
}

// EncodeOnionData serializes a forwarding payload as a bencoded dict:
// {"d": blob, "ek": raw 32-byte ephemeral pubkey, "et": scheme token,
// "nh": hop number}, plus whatever is in extra.
func EncodeOnionData(blob []byte, ephemeralKey keys.X25519Pubkey, scheme channel.Scheme, hopNumber int, extra map[string]interface{}) ([]byte, error) {
	dict := make(map[string]interface{}, len(extra)+4)
	for k, v := range extra {
		dict[k] = v
	}
	dict["d"] = string(blob)
	dict["ek"] = string(ephemeralKey.Bytes())
	dict["et"] = scheme.String()
	dict["nh"] = int64(hopNumber)
	return bencode.EncodeBytes(dict)
}

// DecodeOnionData inverts EncodeOnionData. It fails MissingField when d,
// ek, or et are absent, and MalformedBencode on parse error.
func DecodeOnionData(data []byte) (*OnionData, error) {
	var dict map[string]interface{}
	if err := bencode.DecodeBytes(data, &dict); err != nil {
		return nil, &Error{Kind: MalformedBencode, Msg: "invalid bencode", Err: err}
	}

	d, ok := dict["d"].(string)
	if !ok {
		return nil, &Error{Kind: MissingField, Msg: "missing field d"}
	}
	ek, ok := dict["ek"].(string)
	if !ok || len(ek) != keys.Size {
		return nil, &Error{Kind: MissingField, Msg: "missing or malformed field ek"}
	}
	et, ok := dict["et"].(string)
	if !ok {
		return nil, &Error{Kind: MissingField, Msg: "missing field et"}
	}

	var hopNumber int
	if nh, ok := dict["nh"].(int64); ok {
		hopNumber = int(nh)
	}

	var ephemeral keys.X25519Pubkey
	copy(ephemeral[:], ek)

	extra := make(map[string]interface{})
	for k, v := range dict {
		switch k {
		case "d", "ek", "et", "nh":
		default:
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}

	return &OnionData{
		Blob:         []byte(d),
		EphemeralKey: ephemeral,
		Scheme:       channel.ParseScheme(et),
		HopNumber:    hopNumber,
		Extra:        extra,
	}, nil
}

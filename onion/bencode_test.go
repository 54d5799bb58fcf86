package onion

import (
	"crypto/rand"
	"testing"

	"github.com/zeebo/bencode"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/MichaleAnderson/beldex-storage-server/crypto/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomX25519Pubkey(t *testing.T) keys.X25519Pubkey {
	t.Helper()
	var pk keys.X25519Pubkey
	_, err := rand.Read(pk[:])
	require.NoError(t, err)
	return pk
}

func TestEncodeDecodeOnionDataRoundTrip(t *testing.T) {
	eph := randomX25519Pubkey(t)
	blob := []byte("forwarded layer bytes")

	encoded, err := EncodeOnionData(blob, eph, channel.AesGcm, 3, nil)
	require.NoError(t, err)

	decoded, err := DecodeOnionData(encoded)
	require.NoError(t, err)
	assert.Equal(t, blob, decoded.Blob)
	assert.Equal(t, eph, decoded.EphemeralKey)
	assert.Equal(t, channel.AesGcm, decoded.Scheme)
	assert.Equal(t, 3, decoded.HopNumber)
	assert.Nil(t, decoded.Extra)
}

func TestEncodeDecodeOnionDataPreservesExtraKeys(t *testing.T) {
	eph := randomX25519Pubkey(t)
	extra := map[string]interface{}{"original_timestamp": int64(12345)}

	encoded, err := EncodeOnionData([]byte("x"), eph, channel.XChaCha20, 1, extra)
	require.NoError(t, err)

	decoded, err := DecodeOnionData(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded.Extra)
	assert.Equal(t, int64(12345), decoded.Extra["original_timestamp"])
}

func TestDecodeOnionDataRejectsMalformedBencode(t *testing.T) {
	_, err := DecodeOnionData([]byte("not bencode"))
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, MalformedBencode, onionErr.Kind)
}

func TestDecodeOnionDataRejectsMissingField(t *testing.T) {
	eph := randomX25519Pubkey(t)
	dict := map[string]interface{}{
		"d":  "x",
		"ek": string(eph.Bytes()),
		// "et" intentionally omitted
	}
	encoded, err := bencode.EncodeBytes(dict)
	require.NoError(t, err)

	_, err = DecodeOnionData(encoded)
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, MissingField, onionErr.Kind)
}

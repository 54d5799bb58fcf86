package userpubkey

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomIdentity(t *testing.T) []byte {
	t.Helper()
	b := make([]byte, identityLen)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestLoadMainnetHex(t *testing.T) {
	id := randomIdentity(t)
	s := "05" + hex.EncodeToString(id)
	u := Load(s, true)
	require.True(t, u.Valid())
	assert.Equal(t, byte(0x05), u.NetworkID())
	assert.Equal(t, hex.EncodeToString(id), u.Hex())
}

func TestLoadMainnetRaw(t *testing.T) {
	id := randomIdentity(t)
	raw := append([]byte{0x05}, id...)
	u := Load(string(raw), true)
	require.True(t, u.Valid())
	assert.Equal(t, byte(0x05), u.NetworkID())
}

func TestLoadTestnetShortFormsOnlyWhenNotMainnet(t *testing.T) {
	id := randomIdentity(t)
	hexShort := hex.EncodeToString(id)

	u := Load(hexShort, false)
	require.True(t, u.Valid())
	assert.Equal(t, byte(TestnetNetworkID), u.NetworkID())

	// Same short hex form is not recognized on mainnet.
	uMain := Load(hexShort, true)
	assert.False(t, uMain.Valid())
}

func TestLoadTestnetRawShortForm(t *testing.T) {
	id := randomIdentity(t)
	u := Load(string(id), false)
	require.True(t, u.Valid())
	assert.Equal(t, byte(TestnetNetworkID), u.NetworkID())
}

func TestLoadInvalidSentinel(t *testing.T) {
	u := Load("", true)
	assert.False(t, u.Valid())
	assert.Equal(t, byte(InvalidNetworkID), u.NetworkID())
	assert.Nil(t, u.PrefixedRaw())
	assert.Equal(t, "", u.PrefixedHex(true))
}

func TestRoundTripPrefixedHexAndRaw(t *testing.T) {
	id := randomIdentity(t)
	s := "05" + hex.EncodeToString(id)
	u := Load(s, true)
	require.True(t, u.Valid())

	u2 := Load(u.PrefixedHex(true), true)
	assert.Equal(t, u, u2)

	u3 := LoadBytes(u.PrefixedRaw(), true)
	assert.Equal(t, u, u3)
}

func TestPrefixedHexOmitsZeroNetidOnTestnet(t *testing.T) {
	id := randomIdentity(t)
	u := UserPubkey{networkID: 0, valid: true}
	copy(u.bytes[:], id)

	assert.Equal(t, u.Hex(), u.PrefixedHex(false))
	assert.Equal(t, "00"+u.Hex(), u.PrefixedHex(true))
}

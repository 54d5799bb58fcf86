package onion

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/MichaleAnderson/beldex-storage-server/crypto/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	hop HopDescriptor
	enc *channel.ChannelEncryption
}

func newTestNode(t *testing.T) testNode {
	t.Helper()

	var x25519Sk keys.X25519Seckey
	_, err := rand.Read(x25519Sk[:])
	require.NoError(t, err)
	x25519Pk := x25519Sk.Pubkey()

	var ed25519Sk keys.Ed25519Seckey
	_, err = rand.Read(ed25519Sk[:])
	require.NoError(t, err)
	ed25519Pk := ed25519Sk.Pubkey()

	return testNode{
		hop: HopDescriptor{Ed25519: ed25519Pk, X25519: x25519Pk},
		enc: channel.New(x25519Sk, x25519Pk, true),
	}
}

func buildSchemes(n int, s channel.Scheme) []channel.Scheme {
	out := make([]channel.Scheme, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestBuildPeelSingleHopTerminalLocal(t *testing.T) {
	entry := newTestNode(t)

	payload := []byte(`{"method":"ping"}`)
	control := []byte(`{"headers":[]}`)

	res, err := Build([]HopDescriptor{entry.hop}, payload, control, buildSchemes(1, channel.XChaCha20))
	require.NoError(t, err)

	peeled, err := Peel(entry.enc, res.Outer, 0)
	require.NoError(t, err)
	require.Equal(t, HopTerminalLocal, peeled.Kind)
	assert.Equal(t, payload, peeled.TerminalLocal.InnerBlob)
}

func TestBuildPeelThreeHopForwardChain(t *testing.T) {
	h1, h2, h3 := newTestNode(t), newTestNode(t), newTestNode(t)

	payload := []byte(`{"method":"store"}`)
	control := []byte(`{"headers":[]}`)

	res, err := Build([]HopDescriptor{h1.hop, h2.hop, h3.hop}, payload, control, buildSchemes(3, channel.AesGcm))
	require.NoError(t, err)

	p1, err := Peel(h1.enc, res.Outer, 0)
	require.NoError(t, err)
	require.Equal(t, HopForward, p1.Kind)
	assert.Equal(t, h2.hop.Ed25519, p1.Forward.Destination)

	frame2 := EncodeFrame(p1.Forward.InnerBlob, marshalOuterMeta(t, p1.Forward.EphemeralKey, p1.Forward.Scheme))
	p2, err := Peel(h2.enc, frame2, 1)
	require.NoError(t, err)
	require.Equal(t, HopForward, p2.Kind)
	assert.Equal(t, h3.hop.Ed25519, p2.Forward.Destination)

	frame3 := EncodeFrame(p2.Forward.InnerBlob, marshalOuterMeta(t, p2.Forward.EphemeralKey, p2.Forward.Scheme))
	p3, err := Peel(h3.enc, frame3, 2)
	require.NoError(t, err)
	require.Equal(t, HopTerminalLocal, p3.Kind)
	assert.Equal(t, payload, p3.TerminalLocal.InnerBlob)
}

func marshalOuterMeta(t *testing.T, eph keys.X25519Pubkey, scheme channel.Scheme) []byte {
	t.Helper()
	b, err := json.Marshal(OuterMeta{EphemeralKey: eph.String(), EncType: scheme.String()})
	require.NoError(t, err)
	return b
}

func TestBuildPeelMixedSchemesFourHops(t *testing.T) {
	nodes := []testNode{newTestNode(t), newTestNode(t), newTestNode(t), newTestNode(t)}
	hops := make([]HopDescriptor, len(nodes))
	for i, n := range nodes {
		hops[i] = n.hop
	}
	schemes := []channel.Scheme{channel.AesGcm, channel.AesCbc, channel.XChaCha20, channel.AesGcm}

	payload := []byte("mixed scheme payload")
	control := []byte(`{"headers":[]}`)

	res, err := Build(hops, payload, control, schemes)
	require.NoError(t, err)

	outer := res.Outer
	for i, n := range nodes {
		peeled, err := Peel(n.enc, outer, i)
		require.NoError(t, err)
		if i < len(nodes)-1 {
			require.Equal(t, HopForward, peeled.Kind)
			outer = EncodeFrame(peeled.Forward.InnerBlob, marshalOuterMeta(t, peeled.Forward.EphemeralKey, peeled.Forward.Scheme))
		} else {
			require.Equal(t, HopTerminalLocal, peeled.Kind)
			assert.Equal(t, payload, peeled.TerminalLocal.InnerBlob)
		}
	}
}

func TestPeelTerminalProxy(t *testing.T) {
	exit := newTestNode(t)
	payload := []byte("proxy body")
	control := []byte(`{"host":"example.com","target":"/beldex/v1/lsrpc","port":443}`)

	res, err := Build([]HopDescriptor{exit.hop}, payload, control, buildSchemes(1, channel.AesGcm))
	require.NoError(t, err)

	peeled, err := Peel(exit.enc, res.Outer, 0)
	require.NoError(t, err)
	require.Equal(t, HopTerminalProxy, peeled.Kind)
	assert.Equal(t, "example.com", peeled.TerminalProxy.Host)
	assert.Equal(t, "/beldex/v1/lsrpc", peeled.TerminalProxy.Target)
	assert.Equal(t, 443, peeled.TerminalProxy.Port)
	assert.Equal(t, "https", peeled.TerminalProxy.Protocol)
	assert.Equal(t, payload, peeled.TerminalProxy.InnerBlob)
}

func TestPeelTerminalProxyRejectsBadTarget(t *testing.T) {
	exit := newTestNode(t)
	control := []byte(`{"host":"example.com","target":"/evil/path"}`)

	res, err := Build([]HopDescriptor{exit.hop}, []byte("x"), control, buildSchemes(1, channel.AesGcm))
	require.NoError(t, err)

	_, err = Peel(exit.enc, res.Outer, 0)
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, UnknownHop, onionErr.Kind)
}

func TestPeelRejectsHopLimitExceeded(t *testing.T) {
	entry := newTestNode(t)
	res, err := Build([]HopDescriptor{entry.hop}, []byte("x"), []byte(`{"headers":[]}`), buildSchemes(1, channel.AesGcm))
	require.NoError(t, err)

	_, err = Peel(entry.enc, res.Outer, MaxHops+1)
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, HopLimitExceeded, onionErr.Kind)
}

func TestPeelRejectsTamperedOuter(t *testing.T) {
	entry := newTestNode(t)
	res, err := Build([]HopDescriptor{entry.hop}, []byte("x"), []byte(`{"headers":[]}`), buildSchemes(1, channel.AesGcm))
	require.NoError(t, err)

	// Flip the last byte of the encrypted blob (the authentication tag),
	// not of the cleartext metadata that follows it in the frame.
	blob, _, err := DecodeFrame(res.Outer)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xFF

	_, err = Peel(entry.enc, res.Outer, 0)
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, DecryptError, onionErr.Kind)
}

func TestBuildRejectsSchemeCountMismatch(t *testing.T) {
	entry := newTestNode(t)
	_, err := Build([]HopDescriptor{entry.hop}, []byte("x"), []byte(`{"headers":[]}`), nil)
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, MalformedFrame, onionErr.Kind)
}

func TestBuildRejectsAesCbcAsOutermostScheme(t *testing.T) {
	entry, exit := newTestNode(t), newTestNode(t)
	_, err := Build([]HopDescriptor{entry.hop, exit.hop}, []byte("x"), []byte(`{"headers":[]}`), []channel.Scheme{channel.AesCbc, channel.AesGcm})
	var onionErr *Error
	require.ErrorAs(t, err, &onionErr)
	assert.Equal(t, MalformedFrame, onionErr.Kind)
}

func TestResponseDecryptUsesInnerKeying(t *testing.T) {
	entry := newTestNode(t)
	res, err := Build([]HopDescriptor{entry.hop}, []byte("req"), []byte(`{"headers":[]}`), buildSchemes(1, channel.AesGcm))
	require.NoError(t, err)

	exitEnc := entry.enc
	response := []byte("pong")
	clientEph := channel.New(res.InnerSeckey, res.InnerPubkey, false)

	ct, err := exitEnc.Encrypt(res.InnerScheme, response, clientEph.PublicKey())
	require.NoError(t, err)

	pt, err := clientEph.Decrypt(res.InnerScheme, ct, entry.hop.X25519)
	require.NoError(t, err)
	assert.Equal(t, response, pt)
}

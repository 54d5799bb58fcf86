// Package onion implements the onion-routing wire codec: frame
// encode/decode, multi-hop envelope construction and peeling, layer
// metadata classification, and the bencode inter-node forwarding format.
package onion

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/MichaleAnderson/beldex-storage-server/crypto/channel"
	"github.com/MichaleAnderson/beldex-storage-server/log"
)

// MaxHops is the largest hop number a node will forward before dropping
// the request.
const MaxHops = 15

var codecLog = log.GetLogger("onion")

// HopDescriptor names one master node in a chain: the identity key used
// to address it and the X25519 key used to encrypt to it.
type HopDescriptor struct {
	Ed25519 keys.Ed25519Pubkey
	X25519  keys.X25519Pubkey
}

// BuildResult is the outermost envelope plus the ephemeral keying the
// caller needs to decrypt the eventual response.
type BuildResult struct {
	Outer       []byte
	InnerSeckey keys.X25519Seckey
	InnerPubkey keys.X25519Pubkey
	InnerScheme channel.Scheme
}

func generateEphemeral() (keys.X25519Seckey, keys.X25519Pubkey, error) {
	var sk keys.X25519Seckey
	if _, err := rand.Read(sk[:]); err != nil {
		return sk, keys.X25519Pubkey{}, err
	}
	return sk, sk.Pubkey(), nil
}

func wrapDecrypt(err error) error {
	return &Error{Kind: DecryptError, Msg: "layer encrypt/decrypt failed", Err: err}
}

// Build constructs an N-hop nested envelope. hops is ordered entry-first,
// exit-last; schemes must have the same length as hops, one scheme per
// hop (callers wanting a random choice per hop should fill the slice
// with channel.RandomScheme() before calling Build). schemes[0], the
// scheme of the outermost encrypted layer, may not be channel.AesCbc:
// Build rejects it with MalformedFrame, including when RandomScheme
// chose it. The returned
// BuildResult carries the ephemeral secret key for the innermost layer,
// which the caller retains to decrypt the eventual response.
func Build(hops []HopDescriptor, payload, control []byte, schemes []channel.Scheme) (*BuildResult, error) {
	if len(hops) == 0 {
		return nil, &Error{Kind: MalformedFrame, Msg: "empty hop chain"}
	}
	if len(schemes) != len(hops) {
		return nil, &Error{Kind: MalformedFrame, Msg: "scheme count must match hop count"}
	}
	if schemes[0] == channel.AesCbc {
		return nil, &Error{Kind: MalformedFrame, Msg: "aes-cbc carries no integrity tag and cannot be the outermost layer's scheme"}
	}

	k := len(hops)

	innerSk, innerPk, err := generateEphemeral()
	if err != nil {
		return nil, err
	}
	innerEnc := channel.New(innerSk, innerPk, false)

	blob, err := innerEnc.Encrypt(schemes[k-1], EncodeFrame(payload, control), hops[k-1].X25519)
	if err != nil {
		return nil, wrapDecrypt(err)
	}

	prevPub := innerPk
	prevScheme := schemes[k-1]

	for i := k - 2; i >= 0; i-- {
		routing := ForwardMeta{
			Destination:  hops[i+1].Ed25519.String(),
			EphemeralKey: prevPub.String(),
			EncType:      prevScheme.String(),
		}
		meta, err := json.Marshal(routing)
		if err != nil {
			return nil, err
		}
		frame := EncodeFrame(blob, meta)

		sk, pk, err := generateEphemeral()
		if err != nil {
			return nil, err
		}
		layerEnc := channel.New(sk, pk, false)
		blob, err = layerEnc.Encrypt(schemes[i], frame, hops[i].X25519)
		if err != nil {
			return nil, wrapDecrypt(err)
		}

		prevPub = pk
		prevScheme = schemes[i]
	}

	outerMeta, err := json.Marshal(OuterMeta{EphemeralKey: prevPub.String(), EncType: prevScheme.String()})
	if err != nil {
		return nil, err
	}
	outer := EncodeFrame(blob, outerMeta)

	return &BuildResult{
		Outer:       outer,
		InnerSeckey: innerSk,
		InnerPubkey: innerPk,
		InnerScheme: schemes[k-1],
	}, nil
}

// ForwardHop is the result of peeling a layer whose metadata names a
// next hop.
type ForwardHop struct {
	Destination  keys.Ed25519Pubkey
	EphemeralKey keys.X25519Pubkey
	Scheme       channel.Scheme
	InnerBlob    []byte
	Extra        map[string]json.RawMessage
}

// TerminalLocalHop is the result of peeling a layer meant for local
// dispatch.
type TerminalLocalHop struct {
	InnerBlob []byte
}

// TerminalProxyHop is the result of peeling a layer meant to be relayed
// as an outbound HTTP(S) request.
type TerminalProxyHop struct {
	Host      string
	Target    string
	Port      int
	Protocol  string
	InnerBlob []byte
}

// PeelResult is the classified outcome of one Peel call.
type PeelResult struct {
	Kind          HopKind
	Forward       *ForwardHop
	TerminalLocal *TerminalLocalHop
	TerminalProxy *TerminalProxyHop
}

// Peel decrypts one onion layer with the local channel-encryption key
// and classifies what remains. hopNumber is the number of hops already
// traversed (0 at entry); Peel rejects anything past MaxHops before
// doing any cryptographic work.
func Peel(local *channel.ChannelEncryption, outer []byte, hopNumber int) (*PeelResult, error) {
	if hopNumber > MaxHops {
		codecLog.Debugf("dropping request: hop number %d exceeds limit %d", hopNumber, MaxHops)
		return nil, &Error{Kind: HopLimitExceeded, Msg: fmt.Sprintf("hop %d exceeds max %d", hopNumber, MaxHops)}
	}

	blob, metaRaw, err := DecodeFrame(outer)
	if err != nil {
		return nil, err
	}

	var outerMeta OuterMeta
	if err := json.Unmarshal(metaRaw, &outerMeta); err != nil {
		return nil, &Error{Kind: MalformedFrame, Msg: "outer metadata is not valid JSON", Err: err}
	}

	peerPub, err := keys.X25519PubkeyFromHex(outerMeta.EphemeralKey)
	if err != nil {
		return nil, &Error{Kind: InvalidKey, Msg: "malformed outer ephemeral key", Err: err}
	}
	scheme := channel.ParseScheme(outerMeta.EncType)

	plain, err := local.Decrypt(scheme, blob, peerPub)
	if err != nil {
		codecLog.Debugf("layer decrypt failed for peer %s", log.TruncatePeerID(peerPub.String()))
		return nil, &Error{Kind: DecryptError, Msg: "layer decrypt failed", Err: err}
	}

	innerBlob, innerMetaRaw, err := DecodeFrame(plain)
	if err != nil {
		return nil, err
	}

	kind, fields, err := classifyRaw(innerMetaRaw)
	if err != nil {
		return nil, err
	}

	switch kind {
	case HopForward:
		var fm ForwardMeta
		if err := json.Unmarshal(innerMetaRaw, &fm); err != nil {
			return nil, &Error{Kind: MalformedFrame, Msg: "forward metadata malformed", Err: err}
		}
		dest, err := keys.Ed25519PubkeyFromHex(fm.Destination)
		if err != nil {
			return nil, &Error{Kind: InvalidKey, Msg: "malformed destination key", Err: err}
		}
		eph, err := keys.X25519PubkeyFromHex(fm.EphemeralKey)
		if err != nil {
			return nil, &Error{Kind: InvalidKey, Msg: "malformed forward ephemeral key", Err: err}
		}
		return &PeelResult{Kind: HopForward, Forward: &ForwardHop{
			Destination:  dest,
			EphemeralKey: eph,
			Scheme:       channel.ParseScheme(fm.EncType),
			InnerBlob:    innerBlob,
			Extra:        extraFields(fields, "destination", "ephemeral_key", "enc_type"),
		}}, nil

	case HopTerminalLocal:
		return &PeelResult{Kind: HopTerminalLocal, TerminalLocal: &TerminalLocalHop{InnerBlob: innerBlob}}, nil

	case HopTerminalProxy:
		var tp TerminalProxyMeta
		if err := json.Unmarshal(innerMetaRaw, &tp); err != nil {
			return nil, &Error{Kind: MalformedFrame, Msg: "proxy metadata malformed", Err: err}
		}
		if err := validateProxyTarget(tp.Target); err != nil {
			return nil, err
		}
		if tp.Protocol == "" {
			tp.Protocol = "https"
		}
		return &PeelResult{Kind: HopTerminalProxy, TerminalProxy: &TerminalProxyHop{
			Host:      tp.Host,
			Target:    tp.Target,
			Port:      tp.Port,
			Protocol:  tp.Protocol,
			InnerBlob: innerBlob,
		}}, nil

	default:
		return nil, &Error{Kind: UnknownHop, Msg: "metadata matches no known shape"}
	}
}

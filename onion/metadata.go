package onion

import (
	"encoding/json"
	"regexp"
)

var proxyTargetPattern = regexp.MustCompile(`^/(beldex|session)/.*/lsrpc$`)

// ForwardMeta is the shape a non-terminal onion layer's metadata takes:
// the next hop's identity, the ephemeral key for that hop, and the
// encryption scheme it was wrapped under.
type ForwardMeta struct {
	Destination  string `json:"destination"`
	EphemeralKey string `json:"ephemeral_key"`
	EncType      string `json:"enc_type,omitempty"`
}

// TerminalLocalMeta marks a layer whose blob is a JSON request for the
// node that just peeled it.
type TerminalLocalMeta struct {
	Headers json.RawMessage `json:"headers"`
}

// TerminalProxyMeta marks a layer whose blob should be relayed as an
// outbound HTTP(S) request.
type TerminalProxyMeta struct {
	Host     string `json:"host"`
	Target   string `json:"target"`
	Port     int    `json:"port,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

// OuterMeta is the unencrypted metadata carried on the outermost frame,
// naming the ephemeral key and scheme the entry node needs to peel it.
type OuterMeta struct {
	EphemeralKey string `json:"ephemeral_key"`
	EncType      string `json:"enc_type,omitempty"`
}

// HopKind is the classification a peeled layer's metadata resolves to.
type HopKind int

const (
	HopUnknown HopKind = iota
	HopForward
	HopTerminalLocal
	HopTerminalProxy
)

// classifyRaw inspects a decrypted layer's metadata JSON object and
// determines which of the three known shapes it matches, without fully
// unmarshaling into the corresponding typed struct (callers do that once
// the kind is known, so they can also recover any extra keys).
func classifyRaw(raw json.RawMessage) (HopKind, map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return HopUnknown, nil, &Error{Kind: MalformedFrame, Msg: "metadata is not a JSON object", Err: err}
	}
	switch {
	case fields["destination"] != nil && fields["ephemeral_key"] != nil:
		return HopForward, fields, nil
	case fields["headers"] != nil:
		return HopTerminalLocal, fields, nil
	case fields["host"] != nil && fields["target"] != nil:
		return HopTerminalProxy, fields, nil
	default:
		return HopUnknown, fields, nil
	}
}

func validateProxyTarget(target string) error {
	if !proxyTargetPattern.MatchString(target) {
		return &Error{Kind: UnknownHop, Msg: "proxy target does not match the allowed prefix/suffix"}
	}
	return nil
}

// extraFields returns the entries of fields not named in exclude, or nil
// if none remain. Used to preserve client-supplied metadata keys the
// codec itself does not interpret.
func extraFields(fields map[string]json.RawMessage, exclude ...string) map[string]json.RawMessage {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	out := make(map[string]json.RawMessage)
	for k, v := range fields {
		if !skip[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

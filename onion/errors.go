package onion

import "fmt"

// Kind classifies the failure modes the onion codec can surface.
type Kind int

const (
	// MalformedFrame covers length overruns, truncated metadata, and
	// invalid JSON.
	MalformedFrame Kind = iota
	// DecryptError covers authentication failure, key mismatch, or
	// scheme mismatch.
	DecryptError
	// UnknownHop means the peeled metadata matches no known shape.
	UnknownHop
	// PeerUnknown means a forward destination could not be resolved to
	// a transport address.
	PeerUnknown
	// HopLimitExceeded means the hop counter exceeded MaxHops.
	HopLimitExceeded
	// InvalidKey means a length/encoding failure parsing key material.
	InvalidKey
	// RateLimited means admission control rejected the request.
	RateLimited
	// UpstreamTimeout means a forwarded hop or proxy target did not
	// respond within the request deadline.
	UpstreamTimeout
	// MalformedBencode means an inter-node payload failed to parse as
	// a bencoded dict.
	MalformedBencode
	// MissingField means a required bencode dict key (d, ek, or et)
	// was absent.
	MissingField
)

func (k Kind) String() string {
	switch k {
	case MalformedFrame:
		return "malformed-frame"
	case DecryptError:
		return "decrypt-error"
	case UnknownHop:
		return "unknown-hop"
	case PeerUnknown:
		return "peer-unknown"
	case HopLimitExceeded:
		return "hop-limit-exceeded"
	case InvalidKey:
		return "invalid-key"
	case RateLimited:
		return "rate-limited"
	case UpstreamTimeout:
		return "upstream-timeout"
	case MalformedBencode:
		return "malformed-bencode"
	case MissingField:
		return "missing-field"
	default:
		return fmt.Sprintf("unknown-kind-%d", int(k))
	}
}

// Error is the tagged-union error type the codec and its collaborators
// return. It satisfies errors.As via Unwrap.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("onion: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("onion: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &Error{Kind: k}) matches any error of kind k regardless
// of Msg and Err.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

// Package dispatch defines the seam between a peeled onion layer and
// whatever transport, storage, and HTTP-proxy collaborators the
// surrounding server provides. The interfaces here are deliberately
// thin: routing policy and the actual network calls belong to the
// server that wires a Dispatcher in, not to the codec.
package dispatch

import (
	"context"
	"time"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/MichaleAnderson/beldex-storage-server/onion"
)

// RequestContext carries the per-request deadline and hop count that
// flow from peel through dispatch to reply-encrypt. Retries at the
// dispatcher level must reuse HopNumber unchanged — they must never
// re-increment it.
type RequestContext struct {
	Deadline  time.Time
	HopNumber int
}

// DefaultRequestDeadline is the wall-clock budget a freshly-received
// request gets when the caller doesn't specify one.
const DefaultRequestDeadline = 30 * time.Second

// NewRequestContext returns a RequestContext whose deadline is now plus
// DefaultRequestDeadline.
func NewRequestContext(hopNumber int, now time.Time) RequestContext {
	return RequestContext{Deadline: now.Add(DefaultRequestDeadline), HopNumber: hopNumber}
}

// Context returns a context.Context bound to c's deadline.
func (c RequestContext) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithDeadline(parent, c.Deadline)
}

// PeerLookup resolves a master node's signing identity to the X25519 key
// and transport address needed to forward traffic to it. Implementations
// MUST be non-blocking or return cached data synchronously — the
// dispatcher calls this while routing a Forward hop.
type PeerLookup interface {
	Lookup(ed25519Pub keys.Ed25519Pubkey) (x25519Pub keys.X25519Pubkey, address string, err error)
}

// Response is the opaque reply bytes produced by dispatching a peeled
// hop, regardless of which branch handled it.
type Response struct {
	Body []byte
}

// Dispatcher routes one peeled onion layer to local handling, outbound
// proxying, or the next hop, and returns the opaque reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, peeled *onion.PeelResult, rc RequestContext) (Response, error)
}

// LocalHandler answers a Terminal-local request: a JSON client request
// body, returning the JSON (or otherwise opaque) reply body.
type LocalHandler interface {
	Handle(ctx context.Context, request []byte) (Response, error)
}

// ProxyClient makes the outbound HTTP(S) call a Terminal-proxy hop asks
// for.
type ProxyClient interface {
	Proxy(ctx context.Context, hop *onion.TerminalProxyHop) (Response, error)
}

// ForwardSender delivers a forwarded layer to the next hop over
// whatever inter-node transport the server has wired in, using the
// bencode inter-node payload format.
type ForwardSender interface {
	Forward(ctx context.Context, address string, payload []byte) (Response, error)
}

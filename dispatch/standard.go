package dispatch

import (
	"context"

	"github.com/MichaleAnderson/beldex-storage-server/log"
	"github.com/MichaleAnderson/beldex-storage-server/onion"
)

var dispatchLog = log.GetLogger("dispatch")

// StandardDispatcher is the default Dispatcher: it consults a
// PeerLookup for Forward hops, a LocalHandler for Terminal-local hops,
// and a ProxyClient for Terminal-proxy hops, routing through a
// ForwardSender for the actual inter-node send.
type StandardDispatcher struct {
	Peers   PeerLookup
	Local   LocalHandler
	Proxy   ProxyClient
	Forward ForwardSender
}

// Dispatch implements Dispatcher. The collaborators are called with a
// context bound to rc.Deadline.
func (d *StandardDispatcher) Dispatch(ctx context.Context, peeled *onion.PeelResult, rc RequestContext) (Response, error) {
	ctx, cancel := rc.Context(ctx)
	defer cancel()
	switch peeled.Kind {
	case onion.HopForward:
		return d.dispatchForward(ctx, peeled.Forward, rc)
	case onion.HopTerminalLocal:
		return d.Local.Handle(ctx, peeled.TerminalLocal.InnerBlob)
	case onion.HopTerminalProxy:
		return d.Proxy.Proxy(ctx, peeled.TerminalProxy)
	default:
		return Response{}, &onion.Error{Kind: onion.UnknownHop, Msg: "dispatch: unclassified peel result"}
	}
}

func (d *StandardDispatcher) dispatchForward(ctx context.Context, hop *onion.ForwardHop, rc RequestContext) (Response, error) {
	nextHop := rc.HopNumber + 1
	if nextHop > onion.MaxHops {
		dispatchLog.Debugf("dropping forward: hop %d exceeds limit", nextHop)
		return Response{}, &onion.Error{Kind: onion.HopLimitExceeded, Msg: "forward would exceed hop limit"}
	}

	_, address, err := d.Peers.Lookup(hop.Destination)
	if err != nil {
		dispatchLog.Debugf("forward: peer lookup failed for %s", log.TruncatePeerID(hop.Destination.String()))
		return Response{}, &onion.Error{Kind: onion.PeerUnknown, Msg: "next hop not resolvable", Err: err}
	}

	extra := make(map[string]interface{}, len(hop.Extra))
	for k, v := range hop.Extra {
		extra[k] = v
	}

	payload, err := onion.EncodeOnionData(hop.InnerBlob, hop.EphemeralKey, hop.Scheme, nextHop, extra)
	if err != nil {
		return Response{}, err
	}

	return d.Forward.Forward(ctx, address, payload)
}

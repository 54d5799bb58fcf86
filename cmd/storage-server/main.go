// Command storage-server is the daemon entrypoint: it loads
// configuration, wires the glue, and starts the rate limiter and
// dispatcher. It does not implement the HTTPS front-end or the
// inter-node transport (out-of-scope external collaborators); those
// are represented here as stub PeerLookup/LocalHandler/ProxyClient/
// ForwardSender implementations with a clear seam for a real transport
// to be plugged in later.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/MichaleAnderson/beldex-storage-server/config"
	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/MichaleAnderson/beldex-storage-server/dispatch"
	"github.com/MichaleAnderson/beldex-storage-server/internal/glue"
	"github.com/MichaleAnderson/beldex-storage-server/log"
	"github.com/MichaleAnderson/beldex-storage-server/onion"
	"github.com/MichaleAnderson/beldex-storage-server/ratelimit"
)

var daemonLog = log.GetLogger("storage-server")

// unwiredPeers is a placeholder PeerLookup: every node in this build is
// standalone, so no real swarm-membership data exists yet to resolve a
// peer's transport address.
type unwiredPeers struct{}

func (unwiredPeers) Lookup(ed25519Pub keys.Ed25519Pubkey) (keys.X25519Pubkey, string, error) {
	return keys.X25519Pubkey{}, "", &onion.Error{Kind: onion.PeerUnknown, Msg: "peer lookup is not wired to a transport in this build"}
}

// unwiredForward is a placeholder ForwardSender.
type unwiredForward struct{}

func (unwiredForward) Forward(ctx context.Context, address string, payload []byte) (dispatch.Response, error) {
	return dispatch.Response{}, &onion.Error{Kind: onion.UpstreamTimeout, Msg: "inter-node forwarding is not wired to a transport in this build"}
}

// unwiredProxy is a placeholder ProxyClient.
type unwiredProxy struct{}

func (unwiredProxy) Proxy(ctx context.Context, hop *onion.TerminalProxyHop) (dispatch.Response, error) {
	return dispatch.Response{}, &onion.Error{Kind: onion.UpstreamTimeout, Msg: "outbound proxying is not wired to an HTTP client in this build"}
}

// unwiredLocal is a placeholder LocalHandler.
type unwiredLocal struct{}

func (unwiredLocal) Handle(ctx context.Context, request []byte) (dispatch.Response, error) {
	return dispatch.Response{}, &onion.Error{Kind: onion.UpstreamTimeout, Msg: "local request handling is not wired to a storage backend in this build"}
}

type rootConfig struct {
	ConfigFile string
}

func newRootCommand() *cobra.Command {
	var cfg rootConfig

	cmd := &cobra.Command{
		Use:   "storage-server",
		Short: "onion-routing storage server daemon",
		Long: `storage-server loads the node's configuration and key material, wires
the rate limiter and onion-request dispatcher, and waits for a real
front-end to drive them. It has no HTTPS listener or inter-node
transport of its own in this build: run it to validate configuration
and key loading, or to host an in-process front-end that calls its
wired dispatch.Dispatcher directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg.ConfigFile)
		},
	}

	cmd.Flags().StringVarP(&cfg.ConfigFile, "config", "f", "storage-server.toml", "path to the TOML configuration file")

	return cmd
}

func run(configPath string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config %q: %w", configPath, err)
	}

	node, err := glue.New(cfg)
	if err != nil {
		return fmt.Errorf("constructing node: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.TokenRate, cfg.RateLimit.BucketSize, cfg.RateLimit.MaxClients, cfg.RateLimit.DisableRateLimit, nil)
	dispatcher := &dispatch.StandardDispatcher{
		Peers:   unwiredPeers{},
		Local:   unwiredLocal{},
		Proxy:   unwiredProxy{},
		Forward: unwiredForward{},
	}
	node.Init(limiter, dispatcher, unwiredPeers{})

	daemonLog.Noticef("ready: identity=%s max-hops=%d rate-limit-disabled=%v",
		log.TruncatePeerID(node.Ed25519Key().Pubkey().String()), cfg.Onion.MaxHops, cfg.RateLimit.DisableRateLimit)

	haltCh := make(chan os.Signal, 1)
	signal.Notify(haltCh, os.Interrupt, syscall.SIGTERM)
	<-haltCh
	daemonLog.Notice("shutting down")
	return nil
}

func main() {
	rootCmd := newRootCommand()
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(versioninfo.Short()),
	); err != nil {
		os.Exit(1)
	}
}

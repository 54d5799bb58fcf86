// Package glue binds the independently-constructed components of a
// storage-server node together. The request-handling path (dispatch),
// the admission-control path (ratelimit), and the peer-resolution path
// all need a back-reference to collaborators that in turn depend on the
// node being fully constructed — a cyclic dependency with no acyclic
// construction order.
//
// This package resolves it by mutable-initialization-then-install: every
// component is built first with its collaborator slots left nil, and a
// single Init call wires the slots in afterward. Node itself holds the
// only mutable state; everything it hands out is read through an
// accessor, so a caller never observes a half-wired Glue.
package glue

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/MichaleAnderson/beldex-storage-server/config"
	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/MichaleAnderson/beldex-storage-server/dispatch"
	"github.com/MichaleAnderson/beldex-storage-server/log"
	"github.com/MichaleAnderson/beldex-storage-server/ratelimit"
)

// Glue is the read-only view of a fully-wired node that the dispatch,
// ratelimit, and transport layers are handed. Nothing outside this
// package may construct a Glue directly; Node is the only
// implementation.
type Glue interface {
	Config() *config.Config
	LogBackend() *log.Backend

	LegacyKey() keys.LegacySeckey
	Ed25519Key() keys.Ed25519Seckey
	X25519Key() keys.X25519Seckey

	RateLimiter() *ratelimit.Limiter
	Dispatcher() dispatch.Dispatcher
	Peers() dispatch.PeerLookup
}

// Node is the concrete Glue. Config, the log backend, and the local key
// material are set at construction time and never change; RateLimiter,
// Dispatcher, and Peers start nil and are installed once by Init.
type Node struct {
	cfg *config.Config
	log *log.Backend

	legacyKey  keys.LegacySeckey
	ed25519Key keys.Ed25519Seckey
	x25519Key  keys.X25519Seckey

	mu          sync.RWMutex
	initialized bool
	rateLimiter *ratelimit.Limiter
	dispatcher  dispatch.Dispatcher
	peers       dispatch.PeerLookup
}

// New constructs a Node's config-derived and key-derived state. The
// collaborator slots (RateLimiter, Dispatcher, Peers) are left nil until
// Init is called; calling any of their accessors before that panics,
// the same invariant-violation policy the rest of this module uses for
// programmer errors rather than runtime conditions.
func New(cfg *config.Config) (*Node, error) {
	backend := log.Init(cfg.Logging.Level, nil)

	legacyKey, err := loadLegacyKey(cfg.Keys.LegacyKeyFile)
	if err != nil {
		return nil, fmt.Errorf("glue: loading legacy key: %w", err)
	}
	ed25519Key, err := loadEd25519Key(cfg.Keys.Ed25519KeyFile)
	if err != nil {
		return nil, fmt.Errorf("glue: loading ed25519 key: %w", err)
	}
	x25519Key, err := loadX25519Key(cfg.Keys.X25519KeyFile)
	if err != nil {
		return nil, fmt.Errorf("glue: loading x25519 key: %w", err)
	}

	return &Node{
		cfg:        cfg,
		log:        backend,
		legacyKey:  legacyKey,
		ed25519Key: ed25519Key,
		x25519Key:  x25519Key,
	}, nil
}

// Init installs the collaborator slots left nil by New: the rate
// limiter, the dispatcher, and the peer lookup. Init may be called
// exactly once; calling it twice panics.
func (n *Node) Init(rateLimiter *ratelimit.Limiter, dispatcher dispatch.Dispatcher, peers dispatch.PeerLookup) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.initialized {
		panic("glue: Init called more than once")
	}
	n.rateLimiter = rateLimiter
	n.dispatcher = dispatcher
	n.peers = peers
	n.initialized = true
}

func (n *Node) Config() *config.Config   { return n.cfg }
func (n *Node) LogBackend() *log.Backend { return n.log }

func (n *Node) LegacyKey() keys.LegacySeckey   { return n.legacyKey }
func (n *Node) Ed25519Key() keys.Ed25519Seckey { return n.ed25519Key }
func (n *Node) X25519Key() keys.X25519Seckey   { return n.x25519Key }

func (n *Node) RateLimiter() *ratelimit.Limiter {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.initialized {
		panic("glue: RateLimiter accessed before Init")
	}
	return n.rateLimiter
}

func (n *Node) Dispatcher() dispatch.Dispatcher {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.initialized {
		panic("glue: Dispatcher accessed before Init")
	}
	return n.dispatcher
}

func (n *Node) Peers() dispatch.PeerLookup {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.initialized {
		panic("glue: Peers accessed before Init")
	}
	return n.peers
}

func readKeyFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", errors.New("key file is empty")
	}
	return s, nil
}

func loadLegacyKey(path string) (keys.LegacySeckey, error) {
	s, err := readKeyFile(path)
	if err != nil {
		return keys.LegacySeckey{}, err
	}
	return keys.LegacySeckeyFromHex(s)
}

func loadEd25519Key(path string) (keys.Ed25519Seckey, error) {
	s, err := readKeyFile(path)
	if err != nil {
		return keys.Ed25519Seckey{}, err
	}
	return keys.Ed25519SeckeyFromHex(s)
}

func loadX25519Key(path string) (keys.X25519Seckey, error) {
	s, err := readKeyFile(path)
	if err != nil {
		return keys.X25519Seckey{}, err
	}
	return keys.X25519SeckeyFromHex(s)
}

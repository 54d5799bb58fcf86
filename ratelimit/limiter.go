// Package ratelimit implements token-bucket admission control for
// incoming peer (master-node) and client (IPv4) traffic: two independent
// bucket families, the client family backed by a bounded, LRU-evicted
// table.
package ratelimit

import (
	"container/list"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
)

// Defaults mirror the constants carried over from the rate-limiter unit
// tests: 600 tokens/second, 600-token bucket capacity, and a 10,000-entry
// client table.
const (
	DefaultTokenRate  = 600.0
	DefaultBucketSize = 600.0
	DefaultMaxClients = 10000
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

type clientEntry struct {
	ip     uint32
	bucket *bucket
}

// Limiter admits or rejects requests for two independent identifier
// spaces: master-node peers (keyed by legacy pubkey) and clients (keyed
// by IPv4 address). Each family is protected by its own mutex; the
// critical section never performs I/O.
type Limiter struct {
	tokenRate  float64
	bucketSize float64
	maxClients int
	disabled   bool

	peerMu sync.Mutex
	peers  map[keys.LegacyPubkey]*bucket

	clientMu  sync.Mutex
	clients   map[uint32]*list.Element // value is *clientEntry
	clientLRU *list.List               // front = most-recently-refilled

	admitted *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// New constructs a Limiter. reg may be nil to skip Prometheus
// registration (tests do this to avoid cross-test collector collisions).
func New(tokenRate, bucketSize float64, maxClients int, disabled bool, reg prometheus.Registerer) *Limiter {
	l := &Limiter{
		tokenRate:  tokenRate,
		bucketSize: bucketSize,
		maxClients: maxClients,
		disabled:   disabled,
		peers:      make(map[keys.LegacyPubkey]*bucket),
		clients:    make(map[uint32]*list.Element),
		clientLRU:  list.New(),
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onion_ratelimit_admitted_total",
			Help: "Requests admitted by the token-bucket limiter, by bucket family.",
		}, []string{"family"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onion_ratelimit_rejected_total",
			Help: "Requests rejected by the token-bucket limiter, by bucket family.",
		}, []string{"family"}),
	}
	if reg != nil {
		reg.MustRegister(l.admitted, l.rejected)
	}
	return l
}

// admit runs the shared refill-then-admit algorithm against b and
// reports whether the caller should be rejected.
func (l *Limiter) admit(b *bucket, now time.Time) bool {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < 0 {
		elapsed = 0
	}
	b.tokens = math.Min(l.bucketSize, b.tokens+elapsed.Seconds()*l.tokenRate)
	b.lastRefill = now
	if b.tokens >= 1 {
		b.tokens--
		return false
	}
	return true
}

func (l *Limiter) observe(family string, rejected bool) {
	if rejected {
		l.rejected.WithLabelValues(family).Inc()
	} else {
		l.admitted.WithLabelValues(family).Inc()
	}
}

// ShouldRateLimitPeer reports whether a request from peer should be
// rejected at time now. Peer buckets are unbounded: a master node's
// identity is not attacker-controlled the way a client IP is.
func (l *Limiter) ShouldRateLimitPeer(peer keys.LegacyPubkey, now time.Time) bool {
	if l.disabled {
		return false
	}
	l.peerMu.Lock()
	defer l.peerMu.Unlock()

	b, ok := l.peers[peer]
	if !ok {
		b = &bucket{tokens: l.bucketSize, lastRefill: now}
		l.peers[peer] = b
	}
	rejected := l.admit(b, now)
	l.observe("peer", rejected)
	return rejected
}

// ShouldRateLimitClient reports whether a request from the given IPv4
// address (host byte order u32) should be rejected at time now. The
// client table is bounded to maxClients; once full, inserting a new
// identifier evicts the least-recently-refilled entry and the newcomer
// starts with an empty bucket rather than a full one, so a flood of
// distinct IPs can't use table churn to bypass admission control.
func (l *Limiter) ShouldRateLimitClient(ip uint32, now time.Time) bool {
	if l.disabled {
		return false
	}
	l.clientMu.Lock()
	defer l.clientMu.Unlock()

	if elem, ok := l.clients[ip]; ok {
		l.clientLRU.MoveToFront(elem)
		entry := elem.Value.(*clientEntry)
		rejected := l.admit(entry.bucket, now)
		l.observe("client", rejected)
		return rejected
	}

	var b *bucket
	if len(l.clients) >= l.maxClients {
		l.evictOldestClient()
		b = &bucket{tokens: 0, lastRefill: now}
	} else {
		b = &bucket{tokens: l.bucketSize, lastRefill: now}
	}
	entry := &clientEntry{ip: ip, bucket: b}
	elem := l.clientLRU.PushFront(entry)
	l.clients[ip] = elem

	rejected := l.admit(b, now)
	l.observe("client", rejected)
	return rejected
}

func (l *Limiter) evictOldestClient() {
	oldest := l.clientLRU.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*clientEntry)
	delete(l.clients, entry.ip)
	l.clientLRU.Remove(oldest)
}

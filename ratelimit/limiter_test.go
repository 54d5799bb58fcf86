package ratelimit

import (
	"math"
	"testing"
	"time"

	"github.com/MichaleAnderson/beldex-storage-server/core/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter() *Limiter {
	return New(DefaultTokenRate, DefaultBucketSize, DefaultMaxClients, false, nil)
}

func testPeer(t *testing.T, hexSuffix string) keys.LegacyPubkey {
	t.Helper()
	pk, err := keys.LegacyPubkeyFromHex("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abc0" + hexSuffix)
	require.NoError(t, err)
	return pk
}

// tickDelta is one refill interval (1/DefaultTokenRate seconds), rounded
// up to whole nanoseconds so that it refills at least one full token.
func tickDelta() time.Duration {
	return time.Duration(math.Ceil(float64(time.Second) / DefaultTokenRate))
}

func TestPeerEmptyBucket(t *testing.T) {
	l := newTestLimiter()
	peer := testPeer(t, "00")
	now := time.Now()

	for i := 0; i < int(DefaultBucketSize); i++ {
		assert.False(t, l.ShouldRateLimitPeer(peer, now))
	}
	assert.True(t, l.ShouldRateLimitPeer(peer, now))

	assert.False(t, l.ShouldRateLimitPeer(peer, now.Add(tickDelta())))
}

func TestPeerSteadyBucketFillup(t *testing.T) {
	l := newTestLimiter()
	peer := testPeer(t, "00")
	now := time.Now()

	for i := 0; i < int(DefaultBucketSize)*10; i++ {
		delta := time.Duration(float64(i) * float64(time.Second) / DefaultTokenRate)
		assert.False(t, l.ShouldRateLimitPeer(peer, now.Add(delta)))
	}
}

func TestPeerMultipleIdentifiersAreIndependent(t *testing.T) {
	l := newTestLimiter()
	peer1 := testPeer(t, "00")
	now := time.Now()

	for i := 0; i < int(DefaultBucketSize); i++ {
		assert.False(t, l.ShouldRateLimitPeer(peer1, now))
	}
	assert.True(t, l.ShouldRateLimitPeer(peer1, now))

	peer2 := testPeer(t, "01")
	assert.False(t, l.ShouldRateLimitPeer(peer2, now))
}

func ipFromOctets(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

func TestClientEmptyBucket(t *testing.T) {
	l := newTestLimiter()
	ip := ipFromOctets(10, 1, 1, 13)
	now := time.Now()

	for i := 0; i < int(DefaultBucketSize); i++ {
		assert.False(t, l.ShouldRateLimitClient(ip, now))
	}
	assert.True(t, l.ShouldRateLimitClient(ip, now))

	assert.False(t, l.ShouldRateLimitClient(ip, now.Add(tickDelta())))
}

func TestClientSteadyBucketFillup(t *testing.T) {
	l := newTestLimiter()
	ip := ipFromOctets(10, 1, 1, 13)
	now := time.Now()

	for i := 0; i < int(DefaultBucketSize)*10; i++ {
		delta := time.Duration(float64(i) * float64(time.Second) / DefaultTokenRate)
		assert.False(t, l.ShouldRateLimitClient(ip, now.Add(delta)))
	}
}

func TestClientMultipleIdentifiersAreIndependent(t *testing.T) {
	l := newTestLimiter()
	ip1 := ipFromOctets(10, 1, 1, 13)
	now := time.Now()

	for i := 0; i < int(DefaultBucketSize); i++ {
		assert.False(t, l.ShouldRateLimitClient(ip1, now))
	}
	assert.True(t, l.ShouldRateLimitClient(ip1, now))

	ip2 := ipFromOctets(10, 1, 1, 10)
	assert.False(t, l.ShouldRateLimitClient(ip2, now))
}

func TestClientMaxClientsEviction(t *testing.T) {
	l := New(DefaultTokenRate, DefaultBucketSize, 100, false, nil)
	now := time.Now()

	ipStart := ipFromOctets(10, 0, 0, 1)
	for i := uint32(0); i < 100; i++ {
		l.ShouldRateLimitClient(ipStart+i, now)
	}

	overflow := ipStart + 100
	assert.True(t, l.ShouldRateLimitClient(overflow, now))

	assert.False(t, l.ShouldRateLimitClient(overflow, now.Add(tickDelta())))
}

func TestDisabledLimiterNeverRejects(t *testing.T) {
	l := New(DefaultTokenRate, DefaultBucketSize, DefaultMaxClients, true, nil)
	peer := testPeer(t, "00")
	now := time.Now()

	for i := 0; i < int(DefaultBucketSize)*2; i++ {
		assert.False(t, l.ShouldRateLimitPeer(peer, now))
	}
}

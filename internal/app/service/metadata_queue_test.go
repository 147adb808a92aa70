package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/infrastructure/cache"
	"chain_reader/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	address string
	at      time.Time
}

// fakeFetcher answers from scripted per-address outcomes; the last outcome repeats.
type fakeFetcher struct {
	mu       sync.Mutex
	outcomes map[string][]error
	calls    []fetchCall
	block    chan struct{}
}

func (f *fakeFetcher) FetchMetadata(ctx context.Context, platformID, address string) (*entity.TokenMetadata, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{address: address, at: time.Now()})

	var err error
	if outs := f.outcomes[address]; len(outs) > 0 {
		err = outs[0]
		if len(outs) > 1 {
			f.outcomes[address] = outs[1:]
		}
	}
	if err != nil {
		return nil, err
	}
	return &entity.TokenMetadata{Name: "Token " + address, Symbol: strings.ToUpper(address), ChainLabel: platformID}, nil
}

func (f *fakeFetcher) snapshot() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fetchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestQueue(f *fakeFetcher, opts MetadataQueueOptions) *MetadataQueue {
	return NewMetadataQueue(f, cache.NewMetadataCache(0), map[string]string{"ethereum": "ethereum", "bsc": "binance-smart-chain"}, opts, logger.NewNop(), nil)
}

func await(t *testing.T, ch <-chan *entity.TokenMetadata) *entity.TokenMetadata {
	t.Helper()
	select {
	case md := <-ch:
		return md
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for metadata")
		return nil
	}
}

func TestQueueRespectsRequestInterval(t *testing.T) {
	f := &fakeFetcher{}
	q := newTestQueue(f, MetadataQueueOptions{RequestInterval: 60 * time.Millisecond})
	defer q.Close()

	chans := []<-chan *entity.TokenMetadata{
		q.Enqueue("ethereum", "0xa"),
		q.Enqueue("ethereum", "0xb"),
		q.Enqueue("ethereum", "0xc"),
	}
	for _, ch := range chans {
		require.NotNil(t, await(t, ch))
	}

	calls := f.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"0xa", "0xb", "0xc"}, []string{calls[0].address, calls[1].address, calls[2].address})
	for i := 1; i < len(calls); i++ {
		gap := calls[i].at.Sub(calls[i-1].at)
		assert.GreaterOrEqual(t, gap, 55*time.Millisecond, "gap %d", i)
	}
}

func TestQueueRetriesThrottledFetchFirst(t *testing.T) {
	rateLimited := fmt.Errorf("status 429: %w", entity.ErrRateLimited)
	f := &fakeFetcher{outcomes: map[string][]error{"0xa": {rateLimited, rateLimited, nil}}}
	q := newTestQueue(f, MetadataQueueOptions{
		RequestInterval:  5 * time.Millisecond,
		RateLimitBackoff: 30 * time.Millisecond,
		MaxBackoff:       time.Second,
	})
	defer q.Close()

	a := q.Enqueue("ethereum", "0xa")
	b := q.Enqueue("ethereum", "0xb")

	mdA := await(t, a)
	require.NotNil(t, mdA)
	assert.Equal(t, "ethereum", mdA.ChainKey)
	require.NotNil(t, await(t, b))

	calls := f.snapshot()
	require.Len(t, calls, 4)
	assert.Equal(t, []string{"0xa", "0xa", "0xa", "0xb"},
		[]string{calls[0].address, calls[1].address, calls[2].address, calls[3].address})
	assert.GreaterOrEqual(t, calls[1].at.Sub(calls[0].at), 25*time.Millisecond)
	assert.GreaterOrEqual(t, calls[2].at.Sub(calls[1].at), 55*time.Millisecond, "backoff doubles")
}

func TestQueueThrottleBackoffFixedByDefault(t *testing.T) {
	opts := MetadataQueueOptions{RateLimitBackoff: 40 * time.Millisecond}.withDefaults()
	assert.Equal(t, opts.RateLimitBackoff, opts.MaxBackoff)
	assert.Equal(t, defaultRateLimitBackoff, MetadataQueueOptions{}.withDefaults().MaxBackoff)

	rateLimited := fmt.Errorf("status 429: %w", entity.ErrRateLimited)
	f := &fakeFetcher{outcomes: map[string][]error{"0xa": {rateLimited, rateLimited, rateLimited, nil}}}
	q := newTestQueue(f, MetadataQueueOptions{
		RequestInterval:  5 * time.Millisecond,
		RateLimitBackoff: 40 * time.Millisecond,
	})
	defer q.Close()

	require.NotNil(t, await(t, q.Enqueue("ethereum", "0xa")))

	calls := f.snapshot()
	require.Len(t, calls, 4)
	for i := 1; i < len(calls); i++ {
		gap := calls[i].at.Sub(calls[i-1].at)
		assert.GreaterOrEqual(t, gap, 35*time.Millisecond, "gap %d", i)
	}
	// A doubling pause would put the last call at least 280ms after the first.
	assert.Less(t, calls[3].at.Sub(calls[0].at), 250*time.Millisecond)
}

func TestQueueCachesFailuresAndSuccesses(t *testing.T) {
	f := &fakeFetcher{outcomes: map[string][]error{"0xbad": {errors.New("not found")}}}
	q := newTestQueue(f, MetadataQueueOptions{RequestInterval: time.Millisecond})
	defer q.Close()

	assert.Nil(t, await(t, q.Enqueue("ethereum", "0xbad")))
	good := await(t, q.Enqueue("ethereum", "0xGood"))
	require.NotNil(t, good)

	assert.Nil(t, await(t, q.Enqueue("ethereum", "0xbad")))
	assert.Same(t, good, await(t, q.Enqueue("ETHEREUM", "0xgood")))
	assert.Len(t, f.snapshot(), 2)

	md, found := q.Cached("ethereum", "0xbad")
	assert.True(t, found)
	assert.Nil(t, md)
}

func TestQueueUnmappedChain(t *testing.T) {
	f := &fakeFetcher{}
	q := newTestQueue(f, MetadataQueueOptions{})
	defer q.Close()

	ch := q.Enqueue("solana", "0xa")
	select {
	case md := <-ch:
		assert.Nil(t, md)
	default:
		t.Fatal("unmapped chain should resolve immediately")
	}
	assert.Empty(t, f.snapshot())
	assert.Equal(t, QueueIdle, q.State())
}

func TestQueueDuplicateEntriesFetchOnce(t *testing.T) {
	f := &fakeFetcher{}
	q := newTestQueue(f, MetadataQueueOptions{RequestInterval: 20 * time.Millisecond})
	defer q.Close()

	first := q.Enqueue("bsc", "0xa")
	second := q.Enqueue("bsc", "0xa")

	a := await(t, first)
	b := await(t, second)
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Len(t, f.snapshot(), 1)
	assert.Equal(t, "binance-smart-chain", a.ChainLabel)
}

func TestQueueStateTransitions(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	q := newTestQueue(f, MetadataQueueOptions{RequestInterval: time.Millisecond})
	defer q.Close()

	assert.Equal(t, QueueIdle, q.State())
	ch := q.Enqueue("ethereum", "0xa")
	assert.Equal(t, QueueDraining, q.State())

	close(f.block)
	require.NotNil(t, await(t, ch))
	assert.Eventually(t, func() bool { return q.State() == QueueIdle }, time.Second, 5*time.Millisecond)
}

func TestQueueCloseResolvesPending(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	q := newTestQueue(f, MetadataQueueOptions{RequestInterval: time.Millisecond})

	inFlight := q.Enqueue("ethereum", "0xa")
	waiting := q.Enqueue("ethereum", "0xb")
	q.Close()

	assert.Nil(t, await(t, inFlight))
	assert.Nil(t, await(t, waiting))
	_, found := q.Cached("ethereum", "0xb")
	assert.False(t, found, "closing does not cache")
	assert.Equal(t, QueueIdle, q.State())
	assert.Nil(t, await(t, q.Enqueue("ethereum", "0xc")))
}

func TestQueueLookupHonoursContext(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	q := newTestQueue(f, MetadataQueueOptions{})
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	md, err := q.Lookup(ctx, "ethereum", "0xa")
	assert.Nil(t, md)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(0, time.Second, 3*time.Second))
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, time.Second, 3*time.Second))
	assert.Equal(t, 3*time.Second, nextBackoff(2*time.Second, time.Second, 3*time.Second))
	assert.Equal(t, time.Second, nextBackoff(time.Second, time.Second, time.Second))
}

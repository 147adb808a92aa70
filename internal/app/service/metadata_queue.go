package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"chain_reader/internal/app/port"
	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/metrics"
)

// QueueState is the worker state of a MetadataQueue.
type QueueState string

const (
	QueueIdle     QueueState = "idle"
	QueueDraining QueueState = "draining"
)

const (
	defaultRequestInterval  = 2 * time.Second
	defaultRateLimitBackoff = 30 * time.Second
	defaultFetchTimeout     = 15 * time.Second
)

// MetadataQueueOptions tune the queue's pacing.
type MetadataQueueOptions struct {
	// RequestInterval is the pause after every definitive fetch outcome.
	RequestInterval time.Duration
	// RateLimitBackoff is the pause after a throttled fetch.
	RateLimitBackoff time.Duration
	// MaxBackoff caps growth of the throttle pause, which doubles per consecutive
	// throttle. Unset or below RateLimitBackoff keeps the pause fixed.
	MaxBackoff   time.Duration
	FetchTimeout time.Duration
}

func (o MetadataQueueOptions) withDefaults() MetadataQueueOptions {
	if o.RequestInterval <= 0 {
		o.RequestInterval = defaultRequestInterval
	}
	if o.RateLimitBackoff <= 0 {
		o.RateLimitBackoff = defaultRateLimitBackoff
	}
	if o.MaxBackoff < o.RateLimitBackoff {
		o.MaxBackoff = o.RateLimitBackoff
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	return o
}

type queueEntry struct {
	chainKey string
	address  string
	key      string
	resolve  chan *entity.TokenMetadata
}

// MetadataQueue resolves token metadata one fetch at a time, no faster than one
// request per RequestInterval, with retry on throttling and per-key caching.
// All methods are safe for concurrent use.
type MetadataQueue struct {
	fetcher   port.MetadataFetcher
	cache     port.MetadataCache
	platforms map[string]string
	opts      MetadataQueueOptions
	logger    port.Logger
	metrics   *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entries  []*queueEntry
	draining bool
	closed   bool
}

// NewMetadataQueue creates an idle queue. platforms maps chain keys to the fetcher's platform IDs;
// chains missing from it resolve to nil without a fetch.
func NewMetadataQueue(
	fetcher port.MetadataFetcher,
	cache port.MetadataCache,
	platforms map[string]string,
	opts MetadataQueueOptions,
	logger port.Logger,
	m *metrics.Metrics,
) *MetadataQueue {
	ctx, cancel := context.WithCancel(context.Background())
	table := make(map[string]string, len(platforms))
	for chain, platform := range platforms {
		if platform != "" {
			table[strings.ToLower(chain)] = platform
		}
	}
	return &MetadataQueue{
		fetcher:   fetcher,
		cache:     cache,
		platforms: table,
		opts:      opts.withDefaults(),
		logger:    logger,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Enqueue requests metadata for (chainKey, contractAddress). The returned channel receives
// exactly one value: the metadata, or nil when it is unavailable.
func (q *MetadataQueue) Enqueue(chainKey, contractAddress string) <-chan *entity.TokenMetadata {
	resolve := make(chan *entity.TokenMetadata, 1)
	chainKey = strings.ToLower(chainKey)
	key := entity.MetadataKey(chainKey, contractAddress)

	if _, mapped := q.platforms[chainKey]; !mapped {
		q.cache.Add(key, nil)
		resolve <- nil
		return resolve
	}
	if md, found := q.cache.Get(key); found {
		resolve <- md
		return resolve
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		resolve <- nil
		return resolve
	}

	q.entries = append(q.entries, &queueEntry{chainKey: chainKey, address: contractAddress, key: key, resolve: resolve})
	q.metrics.SetQueueDepth(len(q.entries))
	if !q.draining {
		q.draining = true
		q.wg.Add(1)
		go q.drain()
	}
	return resolve
}

// Lookup enqueues the pair and waits for its value or for ctx to end.
func (q *MetadataQueue) Lookup(ctx context.Context, chainKey, contractAddress string) (*entity.TokenMetadata, error) {
	resolve := q.Enqueue(chainKey, contractAddress)
	select {
	case md := <-resolve:
		return md, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cached returns the cached value without enqueueing. found is false when nothing is cached yet.
func (q *MetadataQueue) Cached(chainKey, contractAddress string) (*entity.TokenMetadata, bool) {
	return q.cache.Get(entity.MetadataKey(chainKey, contractAddress))
}

// State reports whether the worker is running.
func (q *MetadataQueue) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining {
		return QueueDraining
	}
	return QueueIdle
}

// Len returns the number of entries waiting.
func (q *MetadataQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops the worker and resolves every outstanding entry with nil. Nothing is cached for them.
func (q *MetadataQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.entries
	q.entries = nil
	q.mu.Unlock()

	q.cancel()
	for _, e := range pending {
		e.resolve <- nil
	}
	q.wg.Wait()

	q.mu.Lock()
	q.draining = false
	q.mu.Unlock()
	q.metrics.SetQueueDepth(0)
}

func (q *MetadataQueue) pop() (*queueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.entries) == 0 {
		q.draining = false
		return nil, false
	}
	e := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	q.metrics.SetQueueDepth(len(q.entries))
	return e, true
}

func (q *MetadataQueue) pushFront(e *queueEntry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.entries = append([]*queueEntry{e}, q.entries...)
	q.metrics.SetQueueDepth(len(q.entries))
	return true
}

func (q *MetadataQueue) drain() {
	defer q.wg.Done()

	var backoff time.Duration
	for {
		e, ok := q.pop()
		if !ok {
			return
		}

		if md, found := q.cache.Get(e.key); found {
			e.resolve <- md
			continue
		}

		md, err := q.fetch(e)
		if q.ctx.Err() != nil {
			e.resolve <- nil
			return
		}

		if errors.Is(err, entity.ErrRateLimited) {
			backoff = nextBackoff(backoff, q.opts.RateLimitBackoff, q.opts.MaxBackoff)
			q.logger.Warn("Metadata fetch throttled, pausing queue", "chain", e.chainKey, "address", e.address, "backoff", backoff.String())
			if !q.pushFront(e) {
				e.resolve <- nil
				return
			}
			if !q.sleep(backoff) {
				return
			}
			continue
		}
		backoff = 0

		if err != nil {
			q.logger.Debug("Metadata unavailable", "chain", e.chainKey, "address", e.address, "error", err)
			q.cache.Add(e.key, nil)
			e.resolve <- nil
		} else {
			md.ChainKey = e.chainKey
			if md.ContractAddress == "" {
				md.ContractAddress = e.address
			}
			q.cache.Add(e.key, md)
			cached, _ := q.cache.Get(e.key)
			e.resolve <- cached
		}

		if !q.sleep(q.opts.RequestInterval) {
			return
		}
	}
}

func (q *MetadataQueue) fetch(e *queueEntry) (*entity.TokenMetadata, error) {
	ctx, cancel := context.WithTimeout(q.ctx, q.opts.FetchTimeout)
	defer cancel()
	md, err := q.fetcher.FetchMetadata(ctx, q.platforms[e.chainKey], e.address)
	if err == nil && md == nil {
		err = errors.New("fetcher returned no metadata")
	}
	return md, err
}

// sleep waits for d and reports false when the queue was closed meanwhile.
func (q *MetadataQueue) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current, initial, limit time.Duration) time.Duration {
	if current <= 0 {
		return initial
	}
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

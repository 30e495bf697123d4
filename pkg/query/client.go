// Package query is the read/write facade over the gateway. A Client owns the
// process-wide cache of read results; Query observes one key of that cache
// and Mutation performs writes without touching it.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
	"github.com/vitrine/storefront_sdk_go/internal/httpx"
	"github.com/vitrine/storefront_sdk_go/internal/metrics"
	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
)

// Fetcher is the subset of *gateway.Gateway the facade needs.
type Fetcher interface {
	Send(ctx context.Context, path string, req gateway.Request) (*gateway.Response, error)
}

// Options describes a read.
type Options struct {
	Key    Key
	Path   string
	Params map[string]any

	// StaleTime is how long a result is served from cache. Zero means a
	// result is stale as soon as it lands; concurrent reads are still
	// deduplicated. A negative value never goes stale on its own.
	StaleTime time.Duration

	// Retry is the number of extra attempts after a failure. 4xx API errors
	// other than 408 and 429 are never retried.
	Retry   int
	Backoff *httpx.Backoff
}

// entry is a cached read. seq orders writes: a result never replaces an
// entry written by a later flight or by SetData.
type entry struct {
	key       Key
	env       envelope.Envelope
	updatedAt time.Time
	seq       uint64
	stale     bool
}

func (e *entry) fresh(now time.Time, staleTime time.Duration) bool {
	if e == nil || e.stale {
		return false
	}
	if staleTime < 0 {
		return true
	}
	return now.Sub(e.updatedAt) < staleTime
}

// flight is a network read in progress. Invalidate and Remove mark it so
// that its result does not land in the cache as fresh.
type flight struct {
	key     Key
	hash    string
	seq     uint64
	stale   bool
	dropped bool
}

type observer interface {
	currentKey() Key
	invalidate()
	reload()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records cache hits, misses and deduplicated reads.
func WithMetrics(m *metrics.Recorder) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithDefaultStaleTime sets the StaleTime used when a read leaves it zero.
func WithDefaultStaleTime(d time.Duration) ClientOption {
	return func(c *Client) {
		c.staleTime = d
	}
}

// Client is the read cache shared by every Query built on it.
type Client struct {
	fetcher   Fetcher
	logger    *zap.Logger
	metrics   *metrics.Recorder
	staleTime time.Duration
	now       func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	seq       uint64
	entries   map[string]*entry
	flights   map[*flight]struct{}
	observers map[observer]struct{}
}

// NewClient binds a cache to fetcher.
func NewClient(fetcher Fetcher, opts ...ClientOption) *Client {
	c := &Client{
		fetcher:   fetcher,
		logger:    zap.NewNop(),
		now:       time.Now,
		entries:   make(map[string]*entry),
		flights:   make(map[*flight]struct{}),
		observers: make(map[observer]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetcher returns the fetcher reads go through.
func (c *Client) Fetcher() Fetcher {
	return c.fetcher
}

// Fetch performs a one-shot read through the cache.
func Fetch[T, M any](ctx context.Context, c *Client, opts Options) (T, M, error) {
	env, _, err := c.load(ctx, opts, false)
	if err != nil {
		var (
			data T
			meta M
		)
		return data, meta, err
	}
	return envelope.Decode[T, M](env)
}

// Peek returns the cached envelope for key, fresh or not.
func (c *Client) Peek(key Key) (envelope.Envelope, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.Hash()]
	if !ok {
		return envelope.Envelope{}, time.Time{}, false
	}
	return e.env, e.updatedAt, true
}

// SetData primes the cache entry for key and pushes it to the queries
// observing that key.
func (c *Client) SetData(key Key, data, meta any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("query: encode data: %w", err)
	}
	env := envelope.Envelope{Data: raw}
	if meta != nil {
		if env.Meta, err = json.Marshal(meta); err != nil {
			return fmt.Errorf("query: encode meta: %w", err)
		}
	}

	hash := key.Hash()
	c.mu.Lock()
	c.seq++
	c.entries[hash] = &entry{key: key, env: env, updatedAt: c.now(), seq: c.seq}
	c.mu.Unlock()

	for _, o := range c.observing(func(k Key) bool { return k.Hash() == hash }) {
		o.reload()
	}
	return nil
}

// Invalidate marks every entry whose key starts with prefix as stale and
// re-fetches the active queries observing such a key. Reads already in flight
// for a matching key still answer their callers but are cached as stale. It
// returns the number of cache entries touched.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	n := 0
	for hash, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			c.group.Forget(hash)
			n++
		}
	}
	for fl := range c.flights {
		if fl.key.HasPrefix(prefix) {
			fl.stale = true
			c.group.Forget(fl.hash)
		}
	}
	c.mu.Unlock()

	targets := c.observing(func(k Key) bool { return k.HasPrefix(prefix) })
	c.logger.Debug("query cache invalidated",
		zap.Stringer("prefix", prefix),
		zap.Int("entries", n),
		zap.Int("active", len(targets)))
	for _, o := range targets {
		o.invalidate()
	}
	return n
}

// Remove drops every entry whose key starts with prefix without refetching.
// Reads in flight for a matching key are not cached when they land.
func (c *Client) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for hash, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, hash)
			c.group.Forget(hash)
			n++
		}
	}
	for fl := range c.flights {
		if fl.key.HasPrefix(prefix) {
			fl.dropped = true
			c.group.Forget(fl.hash)
		}
	}
	return n
}

// Clear empties the cache, e.g. after sign-out.
func (c *Client) Clear() {
	c.Remove(nil)
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client) attach(o observer) {
	c.mu.Lock()
	c.observers[o] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) detach(o observer) {
	c.mu.Lock()
	delete(c.observers, o)
	c.mu.Unlock()
}

// observing must not hold c.mu while asking observers for their key.
func (c *Client) observing(match func(Key) bool) []observer {
	c.mu.Lock()
	all := make([]observer, 0, len(c.observers))
	for o := range c.observers {
		all = append(all, o)
	}
	c.mu.Unlock()

	var out []observer
	for _, o := range all {
		if match(o.currentKey()) {
			out = append(out, o)
		}
	}
	return out
}

// load serves opts from cache when fresh, otherwise fetches with retry.
func (c *Client) load(ctx context.Context, opts Options, force bool) (envelope.Envelope, time.Time, error) {
	if opts.Path == "" {
		return envelope.Envelope{}, time.Time{}, errors.New("query: path is required")
	}
	key := opts.Key
	if len(key) == 0 {
		key = Key{opts.Path, opts.Params}
	}
	staleTime := opts.StaleTime
	if staleTime == 0 {
		staleTime = c.staleTime
	}

	hash := key.Hash()
	if !force {
		c.mu.Lock()
		e := c.entries[hash]
		if e.fresh(c.now(), staleTime) {
			env, at := e.env, e.updatedAt
			c.mu.Unlock()
			c.metrics.ObserveCache(metrics.CacheHit)
			return env, at, nil
		}
		c.mu.Unlock()
	}

	backoff := opts.Backoff
	for attempt := 0; ; attempt++ {
		env, at, err := c.fetch(ctx, key, hash, opts)
		if err == nil || attempt >= opts.Retry || !retryable(err) {
			return env, at, err
		}
		if backoff == nil {
			backoff = httpx.NewBackoff(200*time.Millisecond, 5*time.Second, 0.2)
		}
		c.logger.Debug("query fetch failed, retrying",
			zap.Stringer("key", key),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		wait := backoff.ForAttempt(attempt)
		if apiErr, ok := gateway.AsAPIError(err); ok && apiErr.RetryAfter > wait {
			wait = apiErr.RetryAfter
		}
		if werr := backoff.WaitFor(ctx, wait); werr != nil {
			return env, at, err
		}
	}
}

type result struct {
	env envelope.Envelope
	at  time.Time
}

// fetch joins or starts the shared read for hash. The shared read runs
// detached from ctx; ctx only bounds how long this caller waits.
func (c *Client) fetch(ctx context.Context, key Key, hash string, opts Options) (envelope.Envelope, time.Time, error) {
	var led atomic.Bool
	ch := c.group.DoChan(hash, func() (any, error) {
		led.Store(true)
		return c.roundTrip(context.WithoutCancel(ctx), key, hash, opts)
	})

	select {
	case <-ctx.Done():
		return envelope.Envelope{}, time.Time{}, ctx.Err()
	case res := <-ch:
		if led.Load() {
			c.metrics.ObserveCache(metrics.CacheMiss)
		} else {
			c.metrics.ObserveCache(metrics.CacheDedup)
		}
		if res.Err != nil {
			return envelope.Envelope{}, time.Time{}, res.Err
		}
		r := res.Val.(result)
		return r.env, r.at, nil
	}
}

func (c *Client) roundTrip(ctx context.Context, key Key, hash string, opts Options) (result, error) {
	c.mu.Lock()
	c.seq++
	fl := &flight{key: key, hash: hash, seq: c.seq}
	c.flights[fl] = struct{}{}
	c.mu.Unlock()

	env, err := c.get(ctx, opts)
	at := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flights, fl)
	if err != nil {
		return result{}, err
	}
	if fl.dropped {
		return result{env: env, at: at}, nil
	}
	if prev, ok := c.entries[hash]; ok && prev.seq > fl.seq {
		// A later read or SetData already landed; answer with it.
		if !prev.stale {
			return result{env: prev.env, at: prev.updatedAt}, nil
		}
		return result{env: env, at: at}, nil
	}
	c.entries[hash] = &entry{key: key, env: env, updatedAt: at, seq: fl.seq, stale: fl.stale}
	return result{env: env, at: at}, nil
}

func (c *Client) get(ctx context.Context, opts Options) (envelope.Envelope, error) {
	resp, err := c.fetcher.Send(ctx, opts.Path, gateway.Request{
		Method: http.MethodGet,
		Params: opts.Params,
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return resp.Envelope()
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if apiErr, ok := gateway.AsAPIError(err); ok {
		return apiErr.Retryable()
	}
	return true
}

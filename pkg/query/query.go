package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
)

// Status is the lifecycle of a read.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is the snapshot a Query exposes.
type State[T, M any] struct {
	Key       Key
	Data      T
	Meta      M
	Status    Status
	Err       error
	Loading   bool
	UpdatedAt time.Time
}

// IsError reports whether the last fetch failed.
func (s State[T, M]) IsError() bool {
	return s.Status == StatusError
}

// Query observes one key of a Client. Changing the key re-issues the read
// and results for the previous key are discarded.
type Query[T, M any] struct {
	client *Client
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	hash    string
	seq     uint64
	state   State[T, M]
	done    chan struct{}
	subs    map[int]func(State[T, M])
	nextSub int
	started bool
	closed  bool
}

// NewQuery builds a read over client. Nothing is fetched until Start.
func NewQuery[T, M any](client *Client, opts Options) *Query[T, M] {
	if len(opts.Key) == 0 {
		opts.Key = Key{opts.Path, opts.Params}
	}
	return &Query[T, M]{
		client: client,
		opts:   opts,
		logger: client.logger,
		hash:   opts.Key.Hash(),
		state:  State[T, M]{Key: opts.Key},
		subs:   make(map[int]func(State[T, M])),
	}
}

// Start attaches the query to its client and issues the first read. ctx
// bounds every fetch the query makes until Close.
func (q *Query[T, M]) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.ctx = ctx
	q.mu.Unlock()

	q.client.attach(q)
	q.issue(false, true)
}

// SetKey switches the query to a new key and params. The same key is a no-op.
func (q *Query[T, M]) SetKey(key Key, params map[string]any) {
	if len(key) == 0 {
		key = Key{q.opts.Path, params}
	}
	hash := key.Hash()

	q.mu.Lock()
	if q.closed || hash == q.hash {
		q.mu.Unlock()
		return
	}
	q.opts.Key = key
	q.opts.Params = params
	q.hash = hash
	started := q.started
	q.mu.Unlock()

	if started {
		q.issue(false, true)
	}
}

// Refetch forces a network read of the current key and waits for it.
func (q *Query[T, M]) Refetch(ctx context.Context) (State[T, M], error) {
	q.issue(true, false)
	return q.Wait(ctx)
}

// Wait blocks until the latest read settles or ctx is done.
func (q *Query[T, M]) Wait(ctx context.Context) (State[T, M], error) {
	for {
		q.mu.Lock()
		if !q.state.Loading || q.done == nil {
			st := q.state
			q.mu.Unlock()
			return st, nil
		}
		done := q.done
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return q.State(), ctx.Err()
		case <-done:
		}
	}
}

// State returns the current snapshot.
func (q *Query[T, M]) State() State[T, M] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Subscribe calls fn on every state change until the returned func is called.
func (q *Query[T, M]) Subscribe(fn func(State[T, M])) (unsubscribe func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return func() {}
	}
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// Close detaches the query. Reads still in flight complete without updating
// state and Wait returns immediately.
func (q *Query[T, M]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.seq++
	q.subs = nil
	q.state.Loading = false
	if q.done != nil {
		close(q.done)
		q.done = nil
	}
	q.mu.Unlock()
	q.client.detach(q)
}

func (q *Query[T, M]) currentKey() Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.opts.Key
}

func (q *Query[T, M]) invalidate() {
	q.issue(true, false)
}

// reload presents the cached entry for the current key without fetching.
func (q *Query[T, M]) reload() {
	env, at, ok := q.client.Peek(q.currentKey())
	if !ok {
		return
	}
	q.mu.Lock()
	if q.closed || !q.started {
		q.mu.Unlock()
		return
	}
	q.seq++
	seq := q.seq
	q.mu.Unlock()
	q.settle(seq, env, at, nil)
}

// issue starts a read of the current key. keyChanged resets the exposed data
// to whatever the cache holds for the new key.
func (q *Query[T, M]) issue(force, keyChanged bool) {
	q.mu.Lock()
	if q.closed || !q.started {
		q.mu.Unlock()
		return
	}
	q.seq++
	seq := q.seq
	opts := q.opts
	ctx := q.ctx
	q.mu.Unlock()

	var cached *State[T, M]
	if keyChanged {
		cached = &State[T, M]{Key: opts.Key, Status: StatusLoading}
		if env, at, ok := q.client.Peek(opts.Key); ok {
			if data, meta, err := envelope.Decode[T, M](env); err == nil {
				cached.Data, cached.Meta = data, meta
				cached.Status = StatusSuccess
				cached.UpdatedAt = at
			}
		}
	}

	q.mu.Lock()
	if q.closed || seq != q.seq {
		q.mu.Unlock()
		return
	}
	if cached != nil {
		cached.Loading = q.state.Loading
		q.state = *cached
	}
	if !q.state.Loading {
		q.done = make(chan struct{})
	}
	q.state.Loading = true
	snapshot, subs := q.state, q.subscribersLocked()
	q.mu.Unlock()
	notify(subs, snapshot)

	go func() {
		env, at, err := q.client.load(ctx, opts, force)
		q.settle(seq, env, at, err)
	}()
}

func (q *Query[T, M]) settle(seq uint64, env envelope.Envelope, at time.Time, err error) {
	var (
		data T
		meta M
	)
	if err == nil {
		data, meta, err = envelope.Decode[T, M](env)
	}

	q.mu.Lock()
	if q.closed || seq != q.seq {
		q.mu.Unlock()
		return
	}
	if err != nil {
		q.logger.Debug("query read failed", zap.Stringer("key", q.opts.Key), zap.Error(err))
		q.state.Status = StatusError
		q.state.Err = err
	} else {
		q.state.Data = data
		q.state.Meta = meta
		q.state.Status = StatusSuccess
		q.state.Err = nil
		q.state.UpdatedAt = at
	}
	q.state.Loading = false
	if q.done != nil {
		close(q.done)
		q.done = nil
	}
	snapshot, subs := q.state, q.subscribersLocked()
	q.mu.Unlock()
	notify(subs, snapshot)
}

func (q *Query[T, M]) subscribersLocked() []func(State[T, M]) {
	out := make([]func(State[T, M]), 0, len(q.subs))
	for _, fn := range q.subs {
		out = append(out, fn)
	}
	return out
}

func notify[S any](subs []func(S), s S) {
	for _, fn := range subs {
		fn(s)
	}
}

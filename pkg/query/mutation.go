package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
)

// Callbacks observe the outcome of one mutation. Any of them may be nil.
type Callbacks[V, T any] struct {
	OnSuccess func(data T, vars V)
	OnError   func(err error, vars V)
	OnSettled func(data T, err error, vars V)
}

func (cb Callbacks[V, T]) run(data T, err error, vars V) {
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(err, vars)
		}
	} else if cb.OnSuccess != nil {
		cb.OnSuccess(data, vars)
	}
	if cb.OnSettled != nil {
		cb.OnSettled(data, err, vars)
	}
}

// MutationOptions describes a write.
type MutationOptions[V, T any] struct {
	// Method defaults to POST.
	Method string
	Path   string
	// PathFunc builds the path from the variables, e.g. "products/{id}".
	// It takes precedence over Path.
	PathFunc func(vars V) string
	// Body maps the variables to the request body. By default the variables
	// are the body.
	Body func(vars V) any
	// Params maps the variables to query parameters.
	Params func(vars V) map[string]any

	Callbacks[V, T]

	Logger *zap.Logger
}

// MutationState is the snapshot a Mutation exposes.
type MutationState[T any] struct {
	Data    T
	Err     error
	Loading bool
	Status  Status
}

// IsError reports whether the last settled call failed.
func (s MutationState[T]) IsError() bool {
	return s.Status == StatusError
}

// Mutation performs a write through the fetcher. It never reads or writes the
// query cache; callers invalidate the keys a write makes stale.
type Mutation[V, T any] struct {
	fetcher Fetcher
	opts    MutationOptions[V, T]
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight int
	state    MutationState[T]
	closed   bool
	wg       sync.WaitGroup
}

// NewMutation builds a write over fetcher.
func NewMutation[V, T any](fetcher Fetcher, opts MutationOptions[V, T]) *Mutation[V, T] {
	if opts.Method == "" {
		opts.Method = http.MethodPost
	}
	opts.Method = strings.ToUpper(opts.Method)
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutation[V, T]{fetcher: fetcher, opts: opts, logger: logger}
}

// Mutate issues the write in the background. Instance callbacks run first,
// then the per-call ones.
func (m *Mutation[V, T]) Mutate(ctx context.Context, vars V, cbs ...Callbacks[V, T]) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.begin()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_, _ = m.execute(ctx, vars, cbs)
	}()
}

// MutateAsync issues the write and waits for it. Callbacks fire before it
// returns.
func (m *Mutation[V, T]) MutateAsync(ctx context.Context, vars V, cbs ...Callbacks[V, T]) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.begin()
	return m.execute(ctx, vars, cbs)
}

// State returns the current snapshot.
func (m *Mutation[V, T]) State() MutationState[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loading reports whether any call is in flight.
func (m *Mutation[V, T]) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight > 0
}

// Reset clears data and error. In-flight calls still settle.
func (m *Mutation[V, T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = MutationState[T]{Loading: m.inFlight > 0}
	if m.state.Loading {
		m.state.Status = StatusLoading
	}
}

// Wait blocks until every call started with Mutate has settled.
func (m *Mutation[V, T]) Wait() {
	m.wg.Wait()
}

// Close detaches the mutation from its owner: later settles leave state
// untouched and skip per-call callbacks. Instance callbacks still run.
func (m *Mutation[V, T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *Mutation[V, T]) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
	if !m.closed {
		m.state.Loading = true
		m.state.Status = StatusLoading
	}
}

func (m *Mutation[V, T]) execute(ctx context.Context, vars V, cbs []Callbacks[V, T]) (T, error) {
	data, err := m.send(ctx, vars)

	m.mu.Lock()
	m.inFlight--
	closed := m.closed
	if !closed {
		m.state.Loading = m.inFlight > 0
		if err != nil {
			m.state.Err = err
			m.state.Status = StatusError
		} else {
			m.state.Data = data
			m.state.Err = nil
			m.state.Status = StatusSuccess
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Debug("mutation failed",
			zap.String("method", m.opts.Method),
			zap.Error(err))
	}

	m.opts.Callbacks.run(data, err, vars)
	if !closed {
		for _, cb := range cbs {
			cb.run(data, err, vars)
		}
	}
	return data, err
}

func (m *Mutation[V, T]) send(ctx context.Context, vars V) (T, error) {
	var zero T
	path := m.opts.Path
	if m.opts.PathFunc != nil {
		path = m.opts.PathFunc(vars)
	}
	if path == "" {
		return zero, errors.New("query: mutation path is required")
	}

	req := gateway.Request{Method: m.opts.Method}
	if m.opts.Body != nil {
		req.Body = m.opts.Body(vars)
	} else {
		req.Body = vars
	}
	if m.opts.Params != nil {
		req.Params = m.opts.Params(vars)
	}

	resp, err := m.fetcher.Send(ctx, path, req)
	if err != nil {
		return zero, err
	}
	env, err := resp.Envelope()
	if err != nil {
		return zero, err
	}
	data, _, err := envelope.Decode[T, json.RawMessage](env)
	return data, err
}

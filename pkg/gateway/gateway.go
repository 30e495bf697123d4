// Package gateway turns logical storefront operations into HTTP calls. It
// attaches the session's bearer token, encodes parameters and bodies,
// classifies failures into *APIError or *TransportError, and runs the
// process-wide side effects the API can request (forced logout, redirect).
// Requests are never retried.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
	"github.com/vitrine/storefront_sdk_go/internal/httpx"
	"github.com/vitrine/storefront_sdk_go/internal/metrics"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
)

// HeaderRequestID carries the correlation id of every request.
const HeaderRequestID = "X-Request-ID"

// Request describes one call. Path is passed to Send separately.
type Request struct {
	Method string
	Params map[string]any
	Body   any
	Header http.Header
}

// Response is a successful (2xx) reply.
type Response struct {
	Status    int
	Body      json.RawMessage
	RequestID string
}

// Envelope splits the body into data and meta.
func (r *Response) Envelope() (envelope.Envelope, error) {
	if r == nil {
		return envelope.Envelope{}, fmt.Errorf("gateway: nil response")
	}
	return envelope.Split(r.Body)
}

// Decode unwraps the {data, meta} envelope of resp into typed values.
func Decode[T, M any](resp *Response) (T, M, error) {
	env, err := resp.Envelope()
	if err != nil {
		var (
			data T
			meta M
		)
		return data, meta, err
	}
	return envelope.Decode[T, M](env)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSession binds the session the token is read from.
func WithSession(s *session.Session) Option {
	return func(g *Gateway) {
		if s != nil {
			g.session = s
		}
	}
}

// WithNavigator installs the redirect handler used by API actions.
func WithNavigator(n Navigator) Option {
	return func(g *Gateway) {
		if n != nil {
			g.navigator = n
		}
	}
}

// WithNotifier subscribes n to gateway notifications.
func WithNotifier(n Notifier) Option {
	return func(g *Gateway) {
		if n != nil {
			g.notifiers[g.nextID] = n
			g.nextID++
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithTimeout bounds each round trip. Zero disables the client-level timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.httpOpts = append(g.httpOpts, httpx.WithTimeout(d))
	}
}

// WithRateLimit throttles outbound requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		g.httpOpts = append(g.httpOpts, httpx.WithRateLimit(rps, burst))
	}
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(g *Gateway) {
		g.httpOpts = append(g.httpOpts, httpx.WithHTTPClient(h))
	}
}

// WithHeaders adds default headers to every request.
func WithHeaders(h http.Header) Option {
	return func(g *Gateway) {
		g.httpOpts = append(g.httpOpts, httpx.WithHeaders(h))
	}
}

// Gateway is the single entry point for talking to the storefront API.
type Gateway struct {
	client    *httpx.Client
	httpOpts  []httpx.Option
	session   *session.Session
	navigator Navigator
	logger    *zap.Logger
	metrics   *metrics.Recorder

	mu        sync.RWMutex
	notifiers map[int]Notifier
	nextID    int
	actions   map[string]ActionFunc
}

// New constructs a Gateway bound to baseURL.
func New(baseURL string, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		logger:    zap.NewNop(),
		navigator: NavigatorFunc(func(string) {}),
		notifiers: make(map[int]Notifier),
	}
	g.actions = map[string]ActionFunc{
		ActionLogout: logoutAction,
		ActionHome:   homeAction,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.session == nil {
		g.session = session.New(nil, session.WithLogger(g.logger))
	}

	client, err := httpx.NewClient(baseURL, g.httpOpts...)
	if err != nil {
		return nil, err
	}
	g.client = client
	g.httpOpts = nil
	return g, nil
}

// BaseURL returns the normalised API root.
func (g *Gateway) BaseURL() string {
	return g.client.BaseURL()
}

// Session returns the bound session.
func (g *Gateway) Session() *session.Session {
	return g.session
}

// SetCredentials stores the token and profile obtained from /sign-in.
func (g *Gateway) SetCredentials(token string, user session.User) error {
	return g.session.SetCredentials(token, user)
}

// Logout ends the session voluntarily and navigates to the sign-in page.
func (g *Gateway) Logout() error {
	if err := g.session.Teardown(false); err != nil {
		return err
	}
	g.navigator.Navigate(RouteSignIn)
	return nil
}

// Subscribe registers a notifier and returns a function that removes it.
func (g *Gateway) Subscribe(n Notifier) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.notifiers[id] = n
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.notifiers, id)
			g.mu.Unlock()
		})
	}
}

// RegisterAction installs or replaces the side effect for an API action name.
// A nil fn removes it.
func (g *Gateway) RegisterAction(name string, fn ActionFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fn == nil {
		delete(g.actions, name)
		return
	}
	g.actions[name] = fn
}

// Get issues a GET with optional query parameters.
func (g *Gateway) Get(ctx context.Context, path string, params map[string]any) (*Response, error) {
	return g.Send(ctx, path, Request{Method: http.MethodGet, Params: params})
}

// Post issues a POST with a JSON body.
func (g *Gateway) Post(ctx context.Context, path string, body any) (*Response, error) {
	return g.Send(ctx, path, Request{Method: http.MethodPost, Body: body})
}

// Put issues a PUT with a JSON body.
func (g *Gateway) Put(ctx context.Context, path string, body any) (*Response, error) {
	return g.Send(ctx, path, Request{Method: http.MethodPut, Body: body})
}

// Patch issues a PATCH with a JSON body.
func (g *Gateway) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return g.Send(ctx, path, Request{Method: http.MethodPatch, Body: body})
}

// Delete issues a DELETE, with an optional JSON body.
func (g *Gateway) Delete(ctx context.Context, path string, body any) (*Response, error) {
	return g.Send(ctx, path, Request{Method: http.MethodDelete, Body: body})
}

// Send performs req against path.
func (g *Gateway) Send(ctx context.Context, path string, req Request) (*Response, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("gateway: path is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	header := make(http.Header, len(req.Header)+4)
	for k, values := range req.Header {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), values...)
	}
	requestID := header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
		header.Set(HeaderRequestID, requestID)
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	if token := g.session.Token(); token != "" && header.Get("Authorization") == "" {
		header.Set("Authorization", "Bearer "+token)
	}

	hreq := &httpx.Request{
		Method: method,
		Path:   path,
		Query:  httpx.EncodeParams(req.Params),
		Header: header,
	}
	if req.Body != nil {
		data, err := httpx.MarshalJSON(req.Body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode body: %w", err)
		}
		hreq.Body = bytes.NewReader(data)
	}

	log := g.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)
	start := time.Now()
	resp, err := g.client.Do(ctx, hreq)
	elapsed := time.Since(start)

	if err != nil {
		var httpErr *httpx.HTTPError
		if errors.As(err, &httpErr) {
			g.metrics.ObserveRequest(method, httpErr.StatusCode, elapsed)
			apiErr := g.classify(httpErr, requestID)
			log.Warn("api request failed",
				zap.Int("status", apiErr.Status),
				zap.String("code", apiErr.Code),
				zap.String("action", apiErr.Action),
				zap.Duration("duration", elapsed))
			g.runAction(apiErr.Action, log)
			if apiErr.ServerFault() {
				g.publish(Notification{
					Level:     LevelError,
					Message:   ServerErrorMessage,
					Detail:    apiErr.Message,
					Status:    apiErr.Status,
					Code:      apiErr.Code,
					RequestID: requestID,
					Time:      time.Now(),
				})
			}
			return nil, apiErr
		}
		g.metrics.ObserveRequest(method, 0, elapsed)
		log.Warn("api request did not complete", zap.Error(err), zap.Duration("duration", elapsed))
		return nil, &TransportError{Method: method, Path: path, RequestID: requestID, Err: err}
	}

	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		g.metrics.ObserveRequest(method, 0, elapsed)
		return nil, &TransportError{Method: method, Path: path, RequestID: requestID, Err: fmt.Errorf("read body: %w", err)}
	}
	g.metrics.ObserveRequest(method, resp.StatusCode, elapsed)
	log.Debug("api request completed", zap.Int("status", resp.StatusCode), zap.Duration("duration", elapsed))

	trimmed := bytes.TrimSpace(data)
	if resp.StatusCode == http.StatusNoContent || len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("gateway: %s %s: response is not valid JSON", method, path)
	}
	return &Response{Status: resp.StatusCode, Body: json.RawMessage(trimmed), RequestID: requestID}, nil
}

func (g *Gateway) classify(httpErr *httpx.HTTPError, requestID string) *APIError {
	body := httpErr.Envelope
	apiErr := &APIError{
		Message:     body.Message,
		Status:      httpErr.StatusCode,
		Code:        body.Code,
		Action:      body.Action,
		Issues:      body.Issues,
		Operational: true,
		RequestID:   requestID,
	}
	if apiErr.Message == "" {
		status := httpErr.Status
		if status == "" {
			status = http.StatusText(httpErr.StatusCode)
		}
		apiErr.Message = "Erro: " + status
	}
	if apiErr.Code == "" {
		apiErr.Code = DefaultErrorCode
	}
	if d, ok := httpErr.RetryAfter(); ok {
		apiErr.RetryAfter = d
	}
	return apiErr
}

func (g *Gateway) runAction(name string, log *zap.Logger) {
	if name == "" {
		return
	}
	g.mu.RLock()
	fn := g.actions[name]
	g.mu.RUnlock()
	if fn == nil {
		log.Debug("ignoring unknown api action", zap.String("action", name))
		return
	}
	if err := fn(g); err != nil {
		log.Error("api action failed", zap.String("action", name), zap.Error(err))
	}
}

func (g *Gateway) publish(n Notification) {
	g.mu.RLock()
	targets := make([]Notifier, 0, len(g.notifiers))
	for _, nt := range g.notifiers {
		targets = append(targets, nt)
	}
	g.mu.RUnlock()
	for _, nt := range targets {
		nt.Notify(n)
	}
}

func logoutAction(g *Gateway) error {
	err := g.session.Teardown(true)
	g.navigator.Navigate(RouteSignIn)
	return err
}

func homeAction(g *Gateway) error {
	g.navigator.Navigate(RouteHome)
	return nil
}

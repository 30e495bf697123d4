// Package storefront is the typed API of the store: catalogue, cart, orders,
// favorites, seller tools and authentication. Reads are query.Query values
// keyed the way the screens key them; writes are query.Mutation values that
// invalidate the keys they make stale.
package storefront

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
	"github.com/vitrine/storefront_sdk_go/pkg/query"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
)

// Cache key roots.
const (
	KeyProducts       = "products"
	KeyProduct        = "product"
	KeyCart           = "cart-items"
	KeyOrders         = "orders"
	KeyFavorites      = "favorites"
	KeySellerProducts = "seller-products"
	KeyDashboard      = "dashboard"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueryClient shares an existing cache instead of creating one.
func WithQueryClient(qc *query.Client) Option {
	return func(c *Client) {
		if qc != nil {
			c.queries = qc
		}
	}
}

// WithStaleTime sets how long read results are served from cache.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) {
		c.staleTime = d
	}
}

// WithRetry sets the number of extra attempts reads make on server faults
// and throttling. Zero disables retries.
func WithRetry(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retry = n
		}
	}
}

// Client is the storefront API bound to one gateway and one cache.
type Client struct {
	gw        *gateway.Gateway
	queries   *query.Client
	logger    *zap.Logger
	staleTime time.Duration
	retry     int
}

// New builds a client over gw.
func New(gw *gateway.Gateway, opts ...Option) *Client {
	c := &Client{
		gw:     gw,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.queries == nil {
		c.queries = query.NewClient(gw, query.WithLogger(c.logger))
	}
	return c
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *gateway.Gateway {
	return c.gw
}

// Queries returns the shared read cache.
func (c *Client) Queries() *query.Client {
	return c.queries
}

// Session returns the session of the gateway.
func (c *Client) Session() *session.Session {
	return c.gw.Session()
}

// CurrentUser returns the signed-in user.
func (c *Client) CurrentUser() (*session.User, error) {
	return c.gw.Session().User()
}

// Invalidate marks the given key roots stale. No roots invalidates
// everything.
func (c *Client) Invalidate(roots ...string) {
	if len(roots) == 0 {
		c.queries.Invalidate(nil)
		return
	}
	for _, root := range roots {
		c.queries.Invalidate(query.Key{root})
	}
}

func (c *Client) read(key query.Key, path string, params map[string]any) query.Options {
	return query.Options{
		Key:       key,
		Path:      path,
		Params:    params,
		StaleTime: c.staleTime,
		Retry:     c.retry,
	}
}

// writer builds a mutation whose success invalidates roots. An OnSuccess
// already set in opts runs after the invalidation.
func writer[V, T any](c *Client, opts query.MutationOptions[V, T], roots ...string) *query.Mutation[V, T] {
	after := opts.OnSuccess
	opts.OnSuccess = func(data T, vars V) {
		c.Invalidate(roots...)
		if after != nil {
			after(data, vars)
		}
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}
	return query.NewMutation[V, T](c.gw, opts)
}

func idPath(prefix string, id int64, suffix string) string {
	p := prefix + "/" + strconv.FormatInt(id, 10)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

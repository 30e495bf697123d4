// Package mock is an in-memory storefront API. Handler serves the same
// routes and envelopes as the remote service, so the SDK, the CLI and tests
// can run without one.
package mock

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/metrics"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

type account struct {
	user     session.User
	password string
}

type cartLine struct {
	productID int64
	quantity  int
	addedAt   time.Time
	id        int64
}

type favorite struct {
	productID int64
	createdAt time.Time
}

// Mock holds the users, catalogue, carts, orders and favorites of a fake
// storefront.
type Mock struct {
	mu      sync.Mutex
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Recorder
	chaos   Chaos

	seq       int64
	users     map[int64]*account
	tokens    map[string]int64
	products  map[int64]*storefront.Product
	carts     map[int64][]*cartLine
	orders    map[int64][]storefront.Order
	favorites map[int64][]favorite
}

// Option configures the mock instance.
type Option func(*Mock)

// WithClock overrides the clock used for timestamps (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Mock) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mock) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics counts served requests.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Mock) {
		m.metrics = r
	}
}

// WithChaos injects latency and failures into every request.
func WithChaos(c Chaos) Option {
	return func(m *Mock) {
		m.chaos = c
	}
}

// New creates an empty store.
func New(opts ...Option) *Mock {
	m := &Mock{
		now:       func() time.Time { return time.Now().UTC() },
		logger:    zap.NewNop(),
		users:     make(map[int64]*account),
		tokens:    make(map[string]int64),
		products:  make(map[int64]*storefront.Product),
		carts:     make(map[int64][]*cartLine),
		orders:    make(map[int64][]storefront.Order),
		favorites: make(map[int64][]favorite),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mock) clock() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now()
}

func (m *Mock) nextIDLocked() int64 {
	m.seq++
	return m.seq
}

// AddUser registers an account and returns it with its id.
func (m *Mock) AddUser(name, email, password, role string) (session.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addUserLocked(name, email, password, role)
}

func (m *Mock) addUserLocked(name, email, password, role string) (session.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return session.User{}, fmt.Errorf("mock storefront: email is required")
	}
	if m.findByEmailLocked(email) != nil {
		return session.User{}, errEmailTaken
	}
	u := session.User{
		ID:     m.nextIDLocked(),
		Name:   name,
		Email:  email,
		Role:   role,
		Status: storefront.UserActive,
	}
	m.users[u.ID] = &account{user: u, password: password}
	return u, nil
}

func (m *Mock) findByEmailLocked(email string) *account {
	for _, a := range m.users {
		if a.user.Email == email {
			return a
		}
	}
	return nil
}

// Issue signs a user in without a password and returns a token.
func (m *Mock) Issue(userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return "", fmt.Errorf("mock storefront: unknown user %d", userID)
	}
	return m.issueLocked(userID), nil
}

func (m *Mock) issueLocked(userID int64) string {
	token := uuid.NewString()
	m.tokens[token] = userID
	return token
}

// Revoke invalidates a token so the next request with it is rejected.
func (m *Mock) Revoke(token string) {
	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()
}

// AddProduct stores p for seller and returns it with ids filled in.
func (m *Mock) AddProduct(sellerID int64, p storefront.NewProduct) (storefront.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[sellerID]; !ok {
		return storefront.Product{}, fmt.Errorf("mock storefront: unknown seller %d", sellerID)
	}
	return m.createProductLocked(sellerID, p), nil
}

func (m *Mock) createProductLocked(sellerID int64, in storefront.NewProduct) storefront.Product {
	now := m.clock()
	p := &storefront.Product{
		ID:        m.nextIDLocked(),
		SellerID:  sellerID,
		CreatedAt: now,
	}
	m.applyLocked(p, in)
	if p.Status == "" {
		p.Status = storefront.ProductActive
	}
	if p.Status == storefront.ProductActive {
		p.PublishedAt = &now
	}
	m.products[p.ID] = p
	return *p
}

func (m *Mock) applyLocked(p *storefront.Product, in storefront.NewProduct) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.StockQuantity = in.StockQuantity
	p.IsStockInfinite = in.Config.IsStockInfinite
	p.Config = &storefront.ProductConfig{IsStockInfinite: in.Config.IsStockInfinite}
	if in.Status != "" {
		p.Status = in.Status
	}
	p.Images = make([]storefront.ProductImage, len(in.Images))
	for i, img := range in.Images {
		img.ID = m.nextIDLocked()
		img.ProductID = p.ID
		img.DisplayOrder = i
		p.Images[i] = img
	}
}

// Products returns a copy of the catalogue ordered by id.
func (m *Mock) Products() []storefront.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storefront.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Users returns every account ordered by id.
func (m *Mock) Users() []session.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]session.User, 0, len(m.users))
	for _, a := range m.users {
		out = append(out, a.user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// viewLocked returns p as seen by viewer: favoritedBy lists only the viewer.
func (m *Mock) viewLocked(p *storefront.Product, viewer int64) storefront.Product {
	out := *p
	out.Images = append([]storefront.ProductImage(nil), p.Images...)
	out.FavoritedBy = nil
	if viewer != 0 && m.isFavoriteLocked(viewer, p.ID) {
		out.FavoritedBy = append(out.FavoritedBy, json.RawMessage(fmt.Sprintf(`{"userId":%d}`, viewer)))
	}
	return out
}

func (m *Mock) isFavoriteLocked(userID, productID int64) bool {
	for _, f := range m.favorites[userID] {
		if f.productID == productID {
			return true
		}
	}
	return false
}

// visibleLocked reports whether p is listed in the public catalogue.
func (m *Mock) visibleLocked(p *storefront.Product) bool {
	if p.Status != storefront.ProductActive {
		return false
	}
	seller, ok := m.users[p.SellerID]
	return ok && seller.user.Status != storefront.UserInactive
}

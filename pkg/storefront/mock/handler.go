package mock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
	"github.com/vitrine/storefront_sdk_go/pkg/form"
	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/schema"
)

// Error codes returned by the mock.
const (
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeInvalidBody    = "invalid_body"
	CodeValidation     = "validation_error"
	CodeEmailTaken     = "email_taken"
	CodeOutOfStock     = "out_of_stock"
	CodeInvalidQty     = "invalid_quantity"
	CodeEmptyCart      = "empty_cart"
	CodeProductOffline = "product_unavailable"
)

// Messages returned by the mock.
const (
	MsgSessionExpired = "Sessão expirada. Faça login novamente."
	MsgForbidden      = "Você não tem permissão para esta ação."
	MsgNotFound       = "Recurso não encontrado."
	MsgInvalidBody    = "Corpo da requisição inválido."
	MsgValidation     = "Dados inválidos."
	MsgEmailTaken     = "E-mail já cadastrado."
	MsgOutOfStock     = "Produto sem estoque."
	MsgInvalidQty     = "Quantidade inválida."
	MsgEmptyCart      = "Carrinho vazio."
	MsgUnavailable    = "Produto indisponível."
)

var errEmailTaken = errors.New("mock storefront: email already registered")

type userKey struct{}

func userFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey{}).(int64)
	return id
}

// Handler serves the storefront API.
func (m *Mock) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(m.observe)
	r.Use(m.chaos.Middleware)
	r.Use(m.identify)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, envelope.ErrorBody{Message: MsgNotFound, Code: CodeNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, envelope.ErrorBody{Code: "method_not_allowed"})
	})

	r.Post("/sign-in", m.signIn)
	r.Post("/sign-up", m.signUp)
	r.Get("/products", m.listProducts)
	r.Get("/products/{id}", m.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(m.requireUser)
		r.Post("/products", m.createProducts)
		r.Put("/products/{id}", m.updateProduct)
		r.Post("/products/{id}/favorites", m.addFavorite)
		r.Delete("/products/{id}/favorites", m.removeFavorite)
		r.Get("/favorites", m.listFavorites)

		r.Get("/cart", m.getCart)
		r.Post("/cart", m.addToCart)
		r.Put("/cart", m.changeQuantity)
		r.Delete("/cart", m.removeFromCart)

		r.Get("/orders", m.listOrders)
		r.Post("/orders", m.checkout)

		r.Get("/user/{id}/products", m.sellerProducts)
		r.Patch("/user/{id}/status", m.setStatus)
		r.Get("/dashboard", m.dashboard)
	})
	return r
}

func (m *Mock) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := m.clock()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.metrics.ObserveServed(r.Method, status)
		m.logger.Debug("mock request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("request_id", r.Header.Get(gateway.HeaderRequestID)),
			zap.Duration("duration", m.clock().Sub(started)))
	})
}

// identify resolves the bearer token. A token that is present but unknown
// is rejected with the logout action.
func (m *Mock) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		m.mu.Lock()
		id, known := m.tokens[token]
		m.mu.Unlock()
		if !known {
			writeError(w, http.StatusUnauthorized, envelope.ErrorBody{
				Message: MsgSessionExpired,
				Code:    CodeUnauthorized,
				Action:  gateway.ActionLogout,
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

func (m *Mock) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r.Context()) == 0 {
			writeError(w, http.StatusUnauthorized, envelope.ErrorBody{
				Message: MsgSessionExpired,
				Code:    CodeUnauthorized,
				Action:  gateway.ActionLogout,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return h, true
	}
	return strings.TrimSpace(token), true
}

func (m *Mock) signIn(w http.ResponseWriter, r *http.Request) {
	var in schema.SignIn
	if !decode(w, r, &in) {
		return
	}
	m.mu.Lock()
	a := m.findByEmailLocked(strings.ToLower(strings.TrimSpace(in.Email)))
	if a == nil || a.password != in.Password {
		m.mu.Unlock()
		writeError(w, http.StatusUnauthorized, envelope.ErrorBody{
			Message: schema.MsgInvalidLogin,
			Code:    storefront.CodeInvalidCredentials,
		})
		return
	}
	token := m.issueLocked(a.user.ID)
	user := a.user
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, storefront.AuthResult{User: user, Token: token})
}

func (m *Mock) signUp(w http.ResponseWriter, r *http.Request) {
	var in schema.SignUp
	if !decode(w, r, &in) {
		return
	}
	in.ConfirmPassword = in.Password
	if fields := schema.Check(in); fields != nil {
		writeIssues(w, fields)
		return
	}
	u, err := m.AddUser(in.Name, in.Email, in.Password, in.Role)
	if errors.Is(err, errEmailTaken) {
		writeError(w, http.StatusConflict, envelope.ErrorBody{
			Message: MsgEmailTaken,
			Code:    CodeEmailTaken,
			Issues:  []envelope.Issue{{Field: "email", Message: MsgEmailTaken}},
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, envelope.ErrorBody{Message: err.Error(), Code: CodeInvalidBody})
		return
	}
	writeData(w, http.StatusCreated, u)
}

func (m *Mock) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	params := storefront.ListParams{
		Page:      page,
		Size:      size,
		Search:    q.Get("search"),
		OrderBy:   q.Get("orderBy"),
		OrderType: q.Get("orderType"),
	}.Normalize()
	viewer := userFrom(r.Context())

	m.mu.Lock()
	matched := []storefront.Product{}
	needle := strings.ToLower(params.Search)
	for _, p := range m.products {
		if !m.visibleLocked(p) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		matched = append(matched, m.viewLocked(p, viewer))
	}
	m.mu.Unlock()

	sortProducts(matched, params.OrderBy, params.OrderType == storefront.OrderDesc)
	total := len(matched)
	start := (params.Page - 1) * params.Size
	if start > total {
		start = total
	}
	end := start + params.Size
	if end > total {
		end = total
	}
	writeList(w, matched[start:end], storefront.ListMeta{Total: total})
}

func sortProducts(ps []storefront.Product, by string, desc bool) {
	less := func(a, b storefront.Product) bool {
		switch by {
		case storefront.OrderByPrice:
			if !a.Price.Equal(b.Price.Decimal) {
				return a.Price.LessThan(b.Price.Decimal)
			}
		case storefront.OrderByName:
			if a.Name != b.Name {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if desc {
			return less(ps[j], ps[i])
		}
		return less(ps[i], ps[j])
	})
}

func (m *Mock) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m.mu.Lock()
	p, found := m.products[id]
	var out storefront.Product
	if found {
		out = m.viewLocked(p, userFrom(r.Context()))
	}
	m.mu.Unlock()
	if !found {
		notFound(w)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (m *Mock) createProducts(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	if !m.isSeller(userID) {
		forbidden(w)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		invalidBody(w)
		return
	}

	batch := gjson.GetBytes(raw, "products").IsArray()
	var in []storefront.NewProduct
	if batch {
		var body struct {
			Products []storefront.NewProduct `json:"products"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			invalidBody(w)
			return
		}
		in = body.Products
	} else {
		var p storefront.NewProduct
		if err := json.Unmarshal(raw, &p); err != nil {
			invalidBody(w)
			return
		}
		in = []storefront.NewProduct{p}
	}

	fields := map[string]string{}
	for i, p := range in {
		var verr *form.ValidationError
		if !errors.As(p.Validate(), &verr) {
			continue
		}
		for name, msg := range verr.Fields {
			if batch {
				name = "products." + strconv.Itoa(i) + "." + name
			}
			fields[name] = msg
		}
	}
	if len(fields) > 0 {
		writeIssues(w, fields)
		return
	}

	m.mu.Lock()
	out := make([]storefront.Product, 0, len(in))
	for _, p := range in {
		out = append(out, m.createProductLocked(userID, p))
	}
	m.mu.Unlock()

	if batch {
		writeData(w, http.StatusCreated, out)
		return
	}
	writeData(w, http.StatusCreated, out[0])
}

func (m *Mock) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in storefront.NewProduct
	if !decode(w, r, &in) {
		return
	}
	var verr *form.ValidationError
	if errors.As(in.Validate(), &verr) {
		writeIssues(w, verr.Fields)
		return
	}

	userID := userFrom(r.Context())
	m.mu.Lock()
	p, found := m.products[id]
	switch {
	case !found:
		m.mu.Unlock()
		notFound(w)
		return
	case p.SellerID != userID:
		m.mu.Unlock()
		forbidden(w)
		return
	}
	m.applyLocked(p, in)
	if p.Status == storefront.ProductActive && p.PublishedAt == nil {
		now := m.clock()
		p.PublishedAt = &now
	}
	out := m.viewLocked(p, userID)
	m.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

func (m *Mock) addFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID := userFrom(r.Context())
	m.mu.Lock()
	if _, found := m.products[id]; !found {
		m.mu.Unlock()
		notFound(w)
		return
	}
	now := m.clock()
	if !m.isFavoriteLocked(userID, id) {
		m.favorites[userID] = append(m.favorites[userID], favorite{productID: id, createdAt: now})
	}
	m.mu.Unlock()
	writeData(w, http.StatusCreated, map[string]any{"userId": userID, "productId": id, "createdAt": now})
}

func (m *Mock) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID := userFrom(r.Context())
	m.mu.Lock()
	favs := m.favorites[userID]
	kept := favs[:0]
	removed := false
	for _, f := range favs {
		if f.productID == id {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	m.favorites[userID] = kept
	m.mu.Unlock()
	if !removed {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Mock) listFavorites(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	m.mu.Lock()
	out := make([]storefront.Favorite, 0, len(m.favorites[userID]))
	for _, f := range m.favorites[userID] {
		p, ok := m.products[f.productID]
		if !ok {
			continue
		}
		out = append(out, storefront.Favorite{
			UserID:    userID,
			ProductID: f.productID,
			CreatedAt: f.createdAt,
			Product:   m.viewLocked(p, userID),
		})
	}
	m.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

func (m *Mock) cartLocked(userID int64) storefront.Cart {
	out := storefront.Cart{}
	for _, l := range m.carts[userID] {
		p, ok := m.products[l.productID]
		if !ok {
			continue
		}
		out = append(out, storefront.CartItem{
			ID:        l.id,
			CartID:    userID,
			ProductID: l.productID,
			Quantity:  l.quantity,
			AddedAt:   l.addedAt,
			Product:   m.viewLocked(p, userID),
		})
	}
	return out
}

func (m *Mock) getCart(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	cart := m.cartLocked(userFrom(r.Context()))
	m.mu.Unlock()
	writeData(w, http.StatusOK, cart)
}

func (m *Mock) addToCart(w http.ResponseWriter, r *http.Request) {
	var in storefront.CartLine
	if !decode(w, r, &in) {
		return
	}
	userID := userFrom(r.Context())

	m.mu.Lock()
	defer m.mu.Unlock()
	p, found := m.products[in.ProductID]
	if !found {
		notFound(w)
		return
	}
	if !m.visibleLocked(p) {
		writeError(w, http.StatusConflict, envelope.ErrorBody{Message: MsgUnavailable, Code: CodeProductOffline})
		return
	}
	line := m.lineLocked(userID, in.ProductID)
	want := 1
	if line != nil {
		want = line.quantity + 1
	}
	if !p.InfiniteStock() && want > p.StockQuantity {
		writeError(w, http.StatusConflict, envelope.ErrorBody{Message: MsgOutOfStock, Code: CodeOutOfStock})
		return
	}
	if line != nil {
		line.quantity = want
	} else {
		m.carts[userID] = append(m.carts[userID], &cartLine{
			id:        m.nextIDLocked(),
			productID: in.ProductID,
			quantity:  1,
			addedAt:   m.clock(),
		})
	}
	writeData(w, http.StatusCreated, m.cartLocked(userID))
}

func (m *Mock) lineLocked(userID, productID int64) *cartLine {
	for _, l := range m.carts[userID] {
		if l.productID == productID {
			return l
		}
	}
	return nil
}

func (m *Mock) changeQuantity(w http.ResponseWriter, r *http.Request) {
	var in storefront.CartLine
	if !decode(w, r, &in) {
		return
	}
	if in.Quantity < 1 {
		writeError(w, http.StatusBadRequest, envelope.ErrorBody{
			Message: MsgInvalidQty,
			Code:    CodeInvalidQty,
			Issues:  []envelope.Issue{{Field: "quantity", Message: MsgInvalidQty}},
		})
		return
	}
	userID := userFrom(r.Context())

	m.mu.Lock()
	defer m.mu.Unlock()
	line := m.lineLocked(userID, in.ProductID)
	p, found := m.products[in.ProductID]
	if line == nil || !found {
		notFound(w)
		return
	}
	if !p.InfiniteStock() && in.Quantity > p.StockQuantity {
		writeError(w, http.StatusConflict, envelope.ErrorBody{Message: MsgOutOfStock, Code: CodeOutOfStock})
		return
	}
	line.quantity = in.Quantity
	writeData(w, http.StatusOK, m.cartLocked(userID))
}

func (m *Mock) removeFromCart(w http.ResponseWriter, r *http.Request) {
	var in storefront.CartLine
	if !decode(w, r, &in) {
		return
	}
	userID := userFrom(r.Context())

	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.carts[userID]
	for i, l := range lines {
		if l.productID == in.ProductID {
			m.carts[userID] = append(lines[:i], lines[i+1:]...)
			writeData(w, http.StatusOK, m.cartLocked(userID))
			return
		}
	}
	notFound(w)
}

func (m *Mock) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	m.mu.Lock()
	orders := append([]storefront.Order{}, m.orders[userID]...)
	m.mu.Unlock()
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	writeData(w, http.StatusOK, orders)
}

func (m *Mock) checkout(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())

	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.cartLocked(userID)
	if len(cart) == 0 {
		writeError(w, http.StatusBadRequest, envelope.ErrorBody{Message: MsgEmptyCart, Code: CodeEmptyCart})
		return
	}
	var issues []envelope.Issue
	for _, item := range cart {
		p := m.products[item.ProductID]
		if !m.visibleLocked(p) {
			issues = append(issues, envelope.Issue{Message: MsgUnavailable + " " + p.Name})
			continue
		}
		if !p.InfiniteStock() && item.Quantity > p.StockQuantity {
			issues = append(issues, envelope.Issue{Message: MsgOutOfStock + " " + p.Name})
		}
	}
	if len(issues) > 0 {
		writeError(w, http.StatusConflict, envelope.ErrorBody{Message: MsgOutOfStock, Code: CodeOutOfStock, Issues: issues})
		return
	}

	for _, item := range cart {
		if p := m.products[item.ProductID]; !p.InfiniteStock() {
			p.StockQuantity -= item.Quantity
		}
	}
	order := storefront.Order{
		ID:          m.nextIDLocked(),
		CustomerID:  userID,
		TotalAmount: cart.Subtotal(),
		Status:      storefront.OrderPending,
		CreatedAt:   m.clock(),
		Items:       cart,
	}
	m.orders[userID] = append(m.orders[userID], order)
	delete(m.carts, userID)
	writeData(w, http.StatusCreated, order)
}

func (m *Mock) sellerProducts(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := pathID(w, r)
	if !ok {
		return
	}
	viewer := userFrom(r.Context())
	m.mu.Lock()
	out := []storefront.Product{}
	for _, p := range m.products {
		if p.SellerID == sellerID {
			out = append(out, m.viewLocked(p, viewer))
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	writeData(w, http.StatusOK, out)
}

func (m *Mock) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Status != storefront.UserActive && in.Status != storefront.UserInactive {
		writeIssues(w, map[string]string{"status": schema.MsgStatus})
		return
	}
	if id != userFrom(r.Context()) {
		forbidden(w)
		return
	}
	m.mu.Lock()
	a, found := m.users[id]
	var out session.User
	if found {
		a.user.Status = in.Status
		out = a.user
	}
	m.mu.Unlock()
	if !found {
		notFound(w)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (m *Mock) isSeller(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.users[userID]
	return ok && a.user.IsSeller()
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		notFound(w)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		invalidBody(w)
		return false
	}
	return true
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, envelope.ErrorBody{Message: MsgNotFound, Code: CodeNotFound})
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, envelope.ErrorBody{
		Message: MsgForbidden,
		Code:    CodeForbidden,
		Action:  gateway.ActionHome,
	})
}

func invalidBody(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, envelope.ErrorBody{Message: MsgInvalidBody, Code: CodeInvalidBody})
}

func writeIssues(w http.ResponseWriter, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	issues := make([]envelope.Issue, 0, len(names))
	for _, name := range names {
		issues = append(issues, envelope.Issue{Field: name, Message: fields[name]})
	}
	writeError(w, http.StatusBadRequest, envelope.ErrorBody{Message: MsgValidation, Code: CodeValidation, Issues: issues})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeList(w http.ResponseWriter, data any, meta any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": data, "meta": meta})
}

func writeError(w http.ResponseWriter, status int, body envelope.ErrorBody) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

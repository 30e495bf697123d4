package mock_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/vitrine/storefront_sdk_go/internal/metrics"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/mock"
)

const seedYAML = `
users:
  - name: Loja Azul
    email: Azul@Loja.dev
    password: Senha#123
    role: seller
  - name: Bia
    email: bia@loja.dev
    password: Senha#123
  - name: Loja Fechada
    email: fechada@loja.dev
    password: Senha#123
    role: seller
    status: inactive
products:
  - seller: azul@loja.dev
    name: Caneca
    description: Caneca de cerâmica
    price: "29.90"
    stockQuantity: 12
    images:
      - https://img/caneca-1.png
      - https://img/caneca-2.png
  - seller: azul@loja.dev
    name: Rascunho
    description: Ainda não publicado
    price: "5"
    status: inactive
  - seller: fechada@loja.dev
    name: Prato
    description: Prato fundo
    price: "15"
    isStockInfinite: true
`

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func userByEmail(t *testing.T, m *mock.Mock, email string) session.User {
	t.Helper()
	for _, u := range m.Users() {
		if u.Email == email {
			return u
		}
	}
	t.Fatalf("user %s not found", email)
	return session.User{}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	data, err := mock.LoadSeed(path)
	require.NoError(t, err)
	m := mock.New()
	require.NoError(t, m.Seed(data))

	users := m.Users()
	require.Len(t, users, 3)
	assert.Equal(t, "azul@loja.dev", users[0].Email)
	assert.Equal(t, session.RoleCustomer, users[1].Role)
	assert.Equal(t, storefront.UserInactive, users[2].Status)

	products := m.Products()
	require.Len(t, products, 3)
	assert.Equal(t, "R$ 29,90", products[0].Price.BRL())
	require.Len(t, products[0].Images, 2)
	assert.True(t, products[0].Images[0].IsCover)
	assert.NotNil(t, products[0].PublishedAt)
	assert.True(t, products[1].Inactive())
	assert.Nil(t, products[1].PublishedAt)
	assert.True(t, products[2].InfiniteStock())

	rec := call(t, m.Handler(), http.MethodGet, "/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "meta.total").Int(), "inactive products and sellers are hidden")
	assert.Equal(t, "Caneca", gjson.Get(rec.Body.String(), "data.0.name").String())

	_, err = mock.LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedRejectsUnknownSeller(t *testing.T) {
	m := mock.New()
	err := m.Seed(mock.SeedData{Products: []mock.SeedProduct{{Seller: "ninguem@loja.dev", Name: "X"}}})
	assert.ErrorContains(t, err, "unknown seller")

	_, err = m.AddUser("A", "a@loja.dev", "x", session.RoleSeller)
	require.NoError(t, err)
	_, err = m.AddUser("B", "A@LOJA.dev", "y", session.RoleSeller)
	assert.Error(t, err)
}

func TestFakeIsDeterministic(t *testing.T) {
	a, b := mock.New(), mock.New()
	require.NoError(t, a.Fake(5, 7))
	require.NoError(t, b.Fake(5, 7))

	pa, pb := a.Products(), b.Products()
	require.Len(t, pa, 5)
	for i := range pa {
		assert.Equal(t, pa[i].Name, pb[i].Name)
		assert.Equal(t, pa[i].Price.String(), pb[i].Price.String())
		assert.NotEmpty(t, pa[i].Images)
		assert.NoError(t, pa[i].Draft().Validate())
	}

	require.NoError(t, a.Fake(1, 8))
	assert.Len(t, a.Users(), 2, "fake accounts are created once")
	assert.Len(t, a.Products(), 6)
	assert.Error(t, a.Fake(-1, 0))
}

func TestSignInAndEnvelopes(t *testing.T) {
	m := mock.New()
	require.NoError(t, m.Fake(0, 1))
	h := m.Handler()

	rec := call(t, h, http.MethodPost, "/sign-in", "", map[string]string{"email": mock.FakeCustomerEmail, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", gjson.Get(rec.Body.String(), "code").String())
	assert.Empty(t, gjson.Get(rec.Body.String(), "action").String())

	rec = call(t, h, http.MethodPost, "/sign-in", "", map[string]string{"email": "CLIENTE@vitrine.dev", "password": mock.FakePassword})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.False(t, gjson.Get(body, "data").Exists(), "sign-in answers without an envelope")
	token := gjson.Get(body, "token").String()
	assert.NotEmpty(t, token)
	assert.Equal(t, session.RoleCustomer, gjson.Get(body, "user.role").String())

	rec = call(t, h, http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), "data").IsArray())

	rec = call(t, h, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "logout", gjson.Get(rec.Body.String(), "action").String())

	m.Revoke(token)
	rec = call(t, h, http.MethodGet, "/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "logout", gjson.Get(rec.Body.String(), "action").String())

	rec = call(t, h, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, mock.CodeNotFound, gjson.Get(rec.Body.String(), "code").String())
}

func TestSignUpIssues(t *testing.T) {
	m := mock.New()
	h := m.Handler()

	rec := call(t, h, http.MethodPost, "/sign-up", "", map[string]string{"name": "Jo", "email": "x", "password": "1", "role": "admin"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	issues := gjson.Get(rec.Body.String(), "issues.#.field").Array()
	var fields []string
	for _, f := range issues {
		fields = append(fields, f.String())
	}
	assert.Equal(t, []string{"email", "name", "password", "role"}, fields)

	in := map[string]string{"name": "Joana", "email": "joana@loja.dev", "password": "123456", "role": "seller"}
	rec = call(t, h, http.MethodPost, "/sign-up", "", in)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "joana@loja.dev", gjson.Get(rec.Body.String(), "data.email").String())

	rec = call(t, h, http.MethodPost, "/sign-up", "", in)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, mock.CodeEmailTaken, gjson.Get(rec.Body.String(), "code").String())
	assert.Equal(t, "email", gjson.Get(rec.Body.String(), "issues.0.field").String())
}

func TestBatchCreateAndOwnership(t *testing.T) {
	m := mock.New()
	require.NoError(t, m.Fake(0, 1))
	h := m.Handler()
	seller := userByEmail(t, m, mock.FakeSellerEmail)
	customer := userByEmail(t, m, mock.FakeCustomerEmail)
	sellerToken, err := m.Issue(seller.ID)
	require.NoError(t, err)
	customerToken, err := m.Issue(customer.ID)
	require.NoError(t, err)

	batch := map[string]any{"products": []storefront.NewProduct{
		{Name: "Lápis", Description: "Grafite", Price: storefront.MustMoney("2")},
		{Name: "L", Description: "Grafite", Price: storefront.MustMoney("2")},
	}}
	rec := call(t, h, http.MethodPost, "/products", sellerToken, batch)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "products.1.name", gjson.Get(rec.Body.String(), "issues.0.field").String())
	assert.Empty(t, m.Products())

	batch["products"] = batch["products"].([]storefront.NewProduct)[:1]
	rec = call(t, h, http.MethodPost, "/products", sellerToken, batch)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, m.Products(), 1)
	id := m.Products()[0].ID

	rec = call(t, h, http.MethodPost, "/products", customerToken, storefront.NewProduct{Name: "Caneta", Description: "Azul"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "home", gjson.Get(rec.Body.String(), "action").String())

	path := "/products/" + mustJSON(t, id)
	rec = call(t, h, http.MethodPut, path, customerToken, storefront.NewProduct{Name: "Caneta", Description: "Azul"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h, http.MethodPut, path, sellerToken, storefront.NewProduct{Name: "Lápis 2B", Description: "Grafite", Price: storefront.MustMoney("3")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lápis 2B", gjson.Get(rec.Body.String(), "data.name").String())
}

func TestFavoritesAreViewerScoped(t *testing.T) {
	m := mock.New()
	require.NoError(t, m.Fake(1, 3))
	h := m.Handler()
	customer := userByEmail(t, m, mock.FakeCustomerEmail)
	seller := userByEmail(t, m, mock.FakeSellerEmail)
	ct, _ := m.Issue(customer.ID)
	st, _ := m.Issue(seller.ID)
	path := "/products/" + mustJSON(t, m.Products()[0].ID)

	rec := call(t, h, http.MethodDelete, path+"/favorites", ct, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, h, http.MethodPost, path+"/favorites", ct, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, h, http.MethodGet, path, ct, nil)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "data.favoritedBy.#").Int())
	rec = call(t, h, http.MethodGet, path, st, nil)
	assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "data.favoritedBy.#").Int())

	rec = call(t, h, http.MethodDelete, path+"/favorites", ct, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDashboardWindow(t *testing.T) {
	now := time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)
	m := mock.New(mock.WithClock(func() time.Time { return now }))
	require.NoError(t, m.Fake(0, 1))
	h := m.Handler()
	seller := userByEmail(t, m, mock.FakeSellerEmail)
	customer := userByEmail(t, m, mock.FakeCustomerEmail)
	st, _ := m.Issue(seller.ID)
	ct, _ := m.Issue(customer.ID)

	rec := call(t, h, http.MethodGet, "/dashboard", st, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chart := gjson.Get(rec.Body.String(), "data.chart").Array()
	require.Len(t, chart, mock.DashboardDays)
	assert.Equal(t, "2026-05-14", chart[0].Get("fullDate").String())
	assert.Equal(t, "20/05", chart[6].Get("date").String())
	assert.Equal(t, gjson.Null, gjson.Get(rec.Body.String(), "data.bestSeller").Type)

	rec = call(t, h, http.MethodGet, "/dashboard?startDate=2026-06-01", st, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, gjson.Get(rec.Body.String(), "data.chart").Array(), 1)

	rec = call(t, h, http.MethodGet, "/dashboard?startDate=20/05/2026", st, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "startDate", gjson.Get(rec.Body.String(), "issues.0.field").String())

	rec = call(t, h, http.MethodGet, "/dashboard", ct, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParseFailure(t *testing.T) {
	rate, code, err := mock.ParseFailure("rate=0.25, code=503")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, rate, 1e-9)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	rate, code, err = mock.ParseFailure("rate=1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	assert.Equal(t, http.StatusInternalServerError, code)

	rate, code, err = mock.ParseFailure("")
	require.NoError(t, err)
	assert.Zero(t, rate)
	assert.Zero(t, code)

	for _, bad := range []string{"rate", "rate=x", "code=abc", "ratio=1"} {
		_, _, err := mock.ParseFailure(bad)
		assert.Error(t, err, bad)
	}
}

func TestChaosAndMetrics(t *testing.T) {
	rec := metrics.New()
	m := mock.New(mock.WithMetrics(rec), mock.WithChaos(mock.Chaos{FailRate: 1, FailCode: http.StatusBadGateway}))
	h := m.Handler()

	res := call(t, h, http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.Equal(t, "injected", gjson.Get(res.Body.String(), "code").String())

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	var served float64
	for _, mf := range families {
		if mf.GetName() != metrics.MetricSandboxRequestsTotal {
			continue
		}
		for _, metric := range mf.GetMetric() {
			served += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, served)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

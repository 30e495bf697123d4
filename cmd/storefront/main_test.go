package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/metrics"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/mock"
)

func startSandbox(t *testing.T, o sandboxOptions) *httptest.Server {
	t.Helper()
	_, h, err := newSandbox(o, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSandboxServesAPIAndMetrics(t *testing.T) {
	srv := startSandbox(t, sandboxOptions{fakeProducts: 3, fakeSeed: 5})

	body := get(t, srv.URL+"/products")
	assert.Equal(t, int64(3), gjson.Get(body, "meta.total").Int())

	assert.Contains(t, get(t, srv.URL+"/metrics"), metrics.MetricSandboxRequestsTotal)
}

func TestSandboxRejectsBadFailure(t *testing.T) {
	_, _, err := newSandbox(sandboxOptions{fail: "rate=often"}, zap.NewNop())
	assert.ErrorContains(t, err, "--fail")
}

func TestCommandsAgainstSandbox(t *testing.T) {
	srv := startSandbox(t, sandboxOptions{fakeProducts: 8, fakeSeed: 11})
	t.Chdir(t.TempDir())
	t.Setenv("STOREFRONT_MODE", "http")
	t.Setenv("STOREFRONT_API_URL", srv.URL)
	t.Setenv("STOREFRONT_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))

	out, err := run(t, "products", "--json")
	require.NoError(t, err)
	assert.Equal(t, int64(8), gjson.Get(out, "meta.total").Int())
	var id string
	gjson.Get(out, "data").ForEach(func(_, p gjson.Result) bool {
		if p.Get("stockQuantity").Int() > 0 || p.Get("config.isStockInfinite").Bool() {
			id = p.Get("id").String()
			return false
		}
		return true
	})
	require.NotEmpty(t, id, "no product in stock")

	_, err = run(t, "cart")
	assert.ErrorContains(t, err, "not signed in")

	out, err = run(t, "sign-in", mock.FakeCustomerEmail, "--password", mock.FakePassword)
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as")

	_, err = run(t, "cart", "add", id)
	require.NoError(t, err)
	out, err = run(t, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "total: R$")

	_, err = run(t, "cart", "set", id, "0")
	assert.Error(t, err)

	out, err = run(t, "checkout")
	require.NoError(t, err)
	assert.Equal(t, "order placed\n", out)

	out, err = run(t, "orders", "--json")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())

	_, err = run(t, "sign-out")
	require.NoError(t, err)

	out, err = run(t, "dashboard", "--email", mock.FakeSellerEmail, "--password", mock.FakePassword)
	require.NoError(t, err)
	assert.Contains(t, out, "best seller:")

	_, err = run(t, "product", "abc")
	assert.ErrorContains(t, err, "invalid id")
}

func TestCSVTemplateCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, "csv-template")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "name,price,stockQuantity,isStockInfinite,description\n"))
}

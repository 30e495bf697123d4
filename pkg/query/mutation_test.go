package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
	"github.com/vitrine/storefront_sdk_go/pkg/query"
)

type cartChange struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

func TestMutationInvalidQuantity(t *testing.T) {
	var gotMethod string
	var gotBody cartChange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Quantidade inválida","code":"invalid_quantity"}`))
	}))
	defer srv.Close()
	g, err := gateway.New(srv.URL)
	require.NoError(t, err)

	var instanceErr error
	m := query.NewMutation[cartChange, json.RawMessage](g, query.MutationOptions[cartChange, json.RawMessage]{
		Method: http.MethodPut,
		Path:   "cart",
		Callbacks: query.Callbacks[cartChange, json.RawMessage]{
			OnError: func(err error, _ cartChange) { instanceErr = err },
		},
	})

	successCalled := false
	_, err = m.MutateAsync(context.Background(), cartChange{ProductID: 42, Quantity: 0}, query.Callbacks[cartChange, json.RawMessage]{
		OnSuccess: func(json.RawMessage, cartChange) { successCalled = true },
	})
	require.Error(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, cartChange{ProductID: 42}, gotBody)
	assert.False(t, successCalled)
	assert.False(t, m.Loading())

	st := m.State()
	assert.True(t, st.IsError())
	assert.False(t, st.Loading)
	apiErr, ok := gateway.AsAPIError(st.Err)
	require.True(t, ok)
	assert.Equal(t, "invalid_quantity", apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Same(t, st.Err, instanceErr)
}

func TestMutationCallbacksCompose(t *testing.T) {
	f := newFakeFetcher(func(ctx context.Context, path string, req gateway.Request) (*gateway.Response, error) {
		return jsonResponse(`{"data":{"id":11,"name":"Cadeira"}}`), nil
	})
	var order []string
	m := query.NewMutation[map[string]any, product](f, query.MutationOptions[map[string]any, product]{
		Path: "products",
		Callbacks: query.Callbacks[map[string]any, product]{
			OnSuccess: func(product, map[string]any) { order = append(order, "instance-success") },
			OnSettled: func(product, error, map[string]any) { order = append(order, "instance-settled") },
		},
	})

	done := make(chan product, 1)
	m.Mutate(context.Background(), map[string]any{"name": "Cadeira"}, query.Callbacks[map[string]any, product]{
		OnSuccess: func(p product, _ map[string]any) {
			order = append(order, "call-success")
			done <- p
		},
	})
	p := <-done
	m.Wait()

	assert.Equal(t, 11, p.ID)
	assert.Equal(t, []string{"instance-success", "instance-settled", "call-success"}, order)
	st := m.State()
	assert.Equal(t, query.StatusSuccess, st.Status)
	assert.Equal(t, "Cadeira", st.Data.Name)

	m.Reset()
	assert.Equal(t, query.MutationState[product]{}, m.State())
}

func TestMutationPathBodyAndParams(t *testing.T) {
	var got gateway.Request
	var gotPath string
	f := newFakeFetcher(func(ctx context.Context, path string, req gateway.Request) (*gateway.Response, error) {
		gotPath, got = path, req
		return &gateway.Response{Status: http.StatusNoContent, Body: json.RawMessage(`{}`)}, nil
	})
	m := query.NewMutation[int, json.RawMessage](f, query.MutationOptions[int, json.RawMessage]{
		Method:   "delete",
		PathFunc: func(id int) string { return "products/" + strconv.Itoa(id) + "/favorites" },
		Body:     func(int) any { return nil },
		Params:   func(id int) map[string]any { return map[string]any{"source": "list"} },
	})
	_, err := m.MutateAsync(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "products/7/favorites", gotPath)
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Nil(t, got.Body)
	assert.Equal(t, map[string]any{"source": "list"}, got.Params)
}

func TestMutationLoadingTracksInFlightCalls(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	f := newFakeFetcher(func(ctx context.Context, path string, req gateway.Request) (*gateway.Response, error) {
		started <- struct{}{}
		<-release
		return jsonResponse(`{}`), nil
	})
	m := query.NewMutation[cartChange, json.RawMessage](f, query.MutationOptions[cartChange, json.RawMessage]{Method: http.MethodPut, Path: "cart"})

	assert.False(t, m.Loading())
	m.Mutate(context.Background(), cartChange{ProductID: 1, Quantity: 2})
	m.Mutate(context.Background(), cartChange{ProductID: 1, Quantity: 3})
	<-started
	<-started
	assert.True(t, m.Loading())
	assert.True(t, m.State().Loading)
	assert.Equal(t, 2, f.Calls("cart"), "writes are not deduplicated")

	close(release)
	m.Wait()
	assert.False(t, m.Loading())
	assert.False(t, m.State().Loading)
}

func TestClosedMutationSkipsPerCallCallbacks(t *testing.T) {
	release := make(chan struct{})
	f := newFakeFetcher(func(ctx context.Context, path string, req gateway.Request) (*gateway.Response, error) {
		<-release
		return nil, errors.New("boom")
	})
	var mu sync.Mutex
	var calls []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, s)
	}
	m := query.NewMutation[string, json.RawMessage](f, query.MutationOptions[string, json.RawMessage]{
		Path: "orders",
		Callbacks: query.Callbacks[string, json.RawMessage]{
			OnError: func(error, string) { record("instance") },
		},
	})
	m.Mutate(context.Background(), "checkout", query.Callbacks[string, json.RawMessage]{
		OnError: func(error, string) { record("call") },
	})
	m.Close()
	close(release)
	m.Wait()

	assert.Equal(t, []string{"instance"}, calls)
	assert.Nil(t, m.State().Err)
}

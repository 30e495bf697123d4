package form_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrine/storefront_sdk_go/pkg/form"
	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
)

func countingSubmitter(calls *atomic.Int32, data string, err error) form.Submitter {
	return form.SubmitterFunc(func(ctx context.Context, values form.Values) (json.RawMessage, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	})
}

func TestServerIssuesMapToFields(t *testing.T) {
	var calls atomic.Int32
	apiErr := &gateway.APIError{
		Status:  http.StatusConflict,
		Code:    "validation",
		Message: "Dados inválidos",
		Issues:  []gateway.Issue{{Field: "email", Message: "Email já cadastrado"}},
	}
	var onError error
	f := form.New(countingSubmitter(&calls, "", apiErr), form.Options{
		OnError: func(err error) { onError = err },
	})
	email := f.Field("email", form.Required(""))
	name := f.Field("name")
	email.Set("ana@loja.com")
	name.Set("Ana")
	before := f.Values()

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Same(t, apiErr, onError)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, map[string]string{"email": "Email já cadastrado"}, f.Errors())
	assert.Equal(t, before, f.Values())
	assert.Equal(t, form.StateEditing, f.State())
	assert.Empty(t, f.Banner())
}

func TestRequiredBlocksSubmit(t *testing.T) {
	var calls atomic.Int32
	f := form.New(countingSubmitter(&calls, `{}`, nil), form.Options{})
	f.Field("name", form.Required(""))
	f.Field("email", form.Required(""))
	f.SetValue("email", "x@y.z")

	_, err := f.Submit(context.Background())
	var verr *form.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"name": "Este campo é obrigatório"}, verr.Fields)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, "Este campo é obrigatório", f.Error("name"))
	assert.Equal(t, form.StateEditing, f.State())
}

func TestRequiredBlocksGatewayCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	g, err := gateway.New(srv.URL)
	require.NoError(t, err)

	f, m := form.NewRemote(g, http.MethodPost, "sign-up", form.Options{})
	f.Field("name", form.Required(""))

	_, err = f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(0), hits.Load())
	assert.False(t, m.Loading())
}

func TestSuccessfulSubmitThroughGateway(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":12}}`))
	}))
	defer srv.Close()
	g, err := gateway.New(srv.URL)
	require.NoError(t, err)

	var success json.RawMessage
	f, _ := form.NewRemote(g, "", "products", form.Options{
		OnSuccess: func(data json.RawMessage) { success = data },
	})
	f.Field("name", form.Required(""), form.MinLength(3, "Nome muito curto")).Set("Mesa")
	f.Field("price").Set(99.9)

	data, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":12}`, string(data))
	assert.JSONEq(t, `{"id":12}`, string(success))
	assert.Equal(t, map[string]any{"name": "Mesa", "price": 99.9}, got)
	assert.Equal(t, form.StateSubmitted, f.State())
	assert.Equal(t, "Mesa", f.Value("name"), "values are kept after success")

	_, err = f.Submit(context.Background())
	assert.ErrorIs(t, err, form.ErrSubmitted)
	f.Reset()
	assert.Equal(t, form.StateEditing, f.State())
	assert.Nil(t, f.Value("name"))
}

func TestSetValueClearsError(t *testing.T) {
	var calls atomic.Int32
	f := form.New(countingSubmitter(&calls, `{}`, nil), form.Options{})
	field := f.Field("name", form.Required(""))

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, field.Error())

	field.Set("x")
	assert.Empty(t, field.Error())
	assert.Empty(t, f.Errors())
}

func TestDisposeIsSymmetric(t *testing.T) {
	var calls atomic.Int32
	f := form.New(countingSubmitter(&calls, `{}`, nil), form.Options{})
	assert.Equal(t, form.StateEmpty, f.State())

	old := f.Field("email", form.Required(""))
	assert.Equal(t, form.StateEditing, f.State())
	_, err := f.Submit(context.Background())
	require.Error(t, err)
	old.Set("bad")
	_, _ = f.Submit(context.Background())
	f.Reset()

	_, err = f.Submit(context.Background())
	require.Error(t, err)
	require.NotEmpty(t, f.Error("email"))

	old.Dispose()
	old.Dispose()
	assert.Empty(t, f.Errors())
	assert.Nil(t, f.Value("email"))
	assert.Equal(t, form.StateEmpty, f.State())

	fresh := f.Field("email")
	assert.Nil(t, fresh.Value())
	assert.Empty(t, fresh.Error())
	_, err = f.Submit(context.Background())
	require.NoError(t, err, "the old validator must be gone")
}

func TestStaleHandleDoesNotRemoveNewRegistration(t *testing.T) {
	f := form.New(form.SubmitterFunc(func(context.Context, form.Values) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}), form.Options{})
	old := f.Field("name")
	f.Field("name", form.Required(""))
	old.Dispose()
	assert.Equal(t, []string{"name"}, f.FieldNames())
}

func TestUnknownAndRootIssuesGoToBanner(t *testing.T) {
	apiErr := &gateway.APIError{
		Status:  http.StatusBadRequest,
		Message: "Requisição inválida",
		Issues: []gateway.Issue{
			{Field: "", Message: "Conta desativada"},
			{Field: "coupon", Message: "Cupom expirado"},
		},
	}
	f := form.New(form.SubmitterFunc(func(context.Context, form.Values) (json.RawMessage, error) {
		return nil, apiErr
	}), form.Options{})
	f.Field("email").Set("a@b.c")

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.Errors())
	assert.Equal(t, []string{"Requisição inválida", "Conta desativada", "Cupom expirado"}, f.Banner())

	f.DismissBanner()
	assert.Empty(t, f.Banner())
}

func TestTransportErrorGoesToBanner(t *testing.T) {
	f := form.New(form.SubmitterFunc(func(context.Context, form.Values) (json.RawMessage, error) {
		return nil, &gateway.TransportError{Method: "POST", Path: "sign-in", Err: errors.New("connection refused")}
	}), form.Options{})
	f.Field("email").Set("a@b.c")

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, gateway.ErrTransport)
	require.Len(t, f.Banner(), 1)
	assert.Contains(t, f.Banner()[0], "connection refused")
}

func TestSubmitWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	f := form.New(form.SubmitterFunc(func(context.Context, form.Values) (json.RawMessage, error) {
		close(entered)
		<-release
		return json.RawMessage(`{}`), nil
	}), form.Options{})
	f.Field("name").Set("x")

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-entered
	assert.True(t, f.Submitting())
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, form.ErrSubmitting)

	close(release)
	require.NoError(t, <-done)
}

func TestSubmitWithoutSubmitter(t *testing.T) {
	f := form.New(nil, form.Options{})
	f.Field("name", form.Required("Este campo é obrigatório")).Set("Mesa")

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, form.ErrNoSubmitter)
	assert.False(t, f.Submitting())
	assert.Equal(t, "Mesa", f.Value("name"))
}

func TestClosedFormIgnoresLateResult(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	apiErr := &gateway.APIError{Status: 400, Issues: []gateway.Issue{{Field: "name", Message: "ruim"}}}
	f := form.New(form.SubmitterFunc(func(context.Context, form.Values) (json.RawMessage, error) {
		close(entered)
		<-release
		return nil, apiErr
	}), form.Options{})
	f.Field("name").Set("x")

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-entered
	f.Close()
	close(release)
	require.Error(t, <-done)
	assert.Empty(t, f.Errors())

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, form.ErrClosed)
}

func TestValidators(t *testing.T) {
	values := form.Values{"password": "Segredo1!", "confirmPassword": "outro"}

	assert.Equal(t, "obrigatório", form.Required("obrigatório")(nil, values))
	assert.Equal(t, form.RequiredMessage, form.Required("")("", values))
	assert.Empty(t, form.Required("")(0, values))
	assert.Equal(t, "vazio", form.Required("vazio")([]string{}, values))

	assert.Equal(t, "curto", form.MinLength(3, "curto")("ab", values))
	assert.Empty(t, form.MinLength(3, "curto")("açú", values))

	upper := form.Matches(regexp.MustCompile(`[A-Z]`), "maiúscula")
	assert.Equal(t, "maiúscula", upper("abc", values))
	assert.Empty(t, upper("aBc", values))

	email := form.Tag("email", "Por favor, insira um e-mail válido.")
	assert.NotEmpty(t, email("nope", values))
	assert.Empty(t, email("ana@loja.com", values))
	assert.NotEmpty(t, email(nil, values))

	role := form.Tag("oneof=seller customer", "papel")
	assert.Empty(t, role("seller", values))
	assert.Equal(t, "papel", role("admin", values))

	match := form.Equals("password", "As senhas não coincidem")
	assert.Equal(t, "As senhas não coincidem", match(values["confirmPassword"], values))
	assert.Empty(t, match("Segredo1!", values))

	positive := form.Func(func(v any) bool { n, ok := v.(float64); return ok && n > 0 }, "positivo")
	assert.Equal(t, "positivo", positive(-1.0, values))
}

func TestFirstFailingValidatorWins(t *testing.T) {
	f := form.New(form.SubmitterFunc(func(context.Context, form.Values) (json.RawMessage, error) {
		return nil, nil
	}), form.Options{})
	f.Field("password",
		form.MinLength(8, "A senha deve ter no mínimo 8 caracteres."),
		form.Matches(regexp.MustCompile(`[0-9]`), "A senha deve conter pelo menos um número."),
	).Set("abc")

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "A senha deve ter no mínimo 8 caracteres.", f.Error("password"))
}

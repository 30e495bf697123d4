package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		body string
		data string
		meta string
	}{
		{name: "data and meta", body: `{"data":[{"id":1}],"meta":{"total":1}}`, data: `[{"id":1}]`, meta: `{"total":1}`},
		{name: "data only", body: `{"data":{"id":7}}`, data: `{"id":7}`},
		{name: "no envelope", body: `{"user":{"id":1},"token":"t"}`, data: `{"user":{"id":1},"token":"t"}`},
		{name: "array body", body: `[1,2]`, data: `[1,2]`},
		{name: "empty body", body: ``, data: `{}`},
		{name: "explicit null data", body: `{"data":null,"meta":{"total":0}}`, data: `null`, meta: `{"total":0}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			env, err := Split([]byte(tc.body))
			require.NoError(t, err)
			assert.JSONEq(t, tc.data, string(env.Data))
			if tc.meta == "" {
				assert.False(t, env.HasMeta())
			} else {
				assert.JSONEq(t, tc.meta, string(env.Meta))
			}
		})
	}
}

func TestSplitRejectsInvalidJSON(t *testing.T) {
	_, err := Split([]byte(`{"data":`))
	require.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	type item struct {
		ID int `json:"id"`
	}
	type meta struct {
		Total int `json:"total"`
	}

	data, m, err := DecodeBody[[]item, meta]([]byte(`{"data":[{"id":1}],"meta":{"total":1}}`))
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: 1}}, data)
	assert.Equal(t, meta{Total: 1}, m)

	data, m, err = DecodeBody[[]item, meta]([]byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Zero(t, m)

	_, _, err = DecodeBody[[]item, meta]([]byte(`{"data":"nope"}`))
	require.Error(t, err)
}

func TestParseError(t *testing.T) {
	body := []byte(`{"message":"Dados inválidos","code":"validation_error","action":"logout",
		"issues":[{"field":"email","message":"Email já cadastrado"},{"message":"geral"},"junk"]}`)

	got := ParseError(body)
	assert.Equal(t, "Dados inválidos", got.Message)
	assert.Equal(t, "validation_error", got.Code)
	assert.Equal(t, "logout", got.Action)
	assert.Equal(t, []Issue{
		{Field: "email", Message: "Email já cadastrado"},
		{Message: "geral"},
	}, got.Issues)

	assert.Equal(t, ErrorBody{}, ParseError([]byte("Internal Server Error")))
	assert.Equal(t, ErrorBody{}, ParseError(nil))
	assert.Equal(t, ErrorBody{}, ParseError([]byte(`["x"]`)))
	assert.Equal(t, ErrorBody{}, ParseError([]byte(`{"message":42}`)))
}

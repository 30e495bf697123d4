package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront/schema"
)

func TestSignInRules(t *testing.T) {
	assert.Nil(t, schema.Check(schema.SignIn{Email: "ana@vitrine.dev", Password: "Senha#123"}))

	cases := []struct {
		password string
		want     string
	}{
		{"S#1a", schema.MsgPasswordMin8},
		{"senha#123", schema.MsgPasswordUpper},
		{"SENHA#123", schema.MsgPasswordLower},
		{"Senha#abc", schema.MsgPasswordDigit},
		{"Senha1234", schema.MsgPasswordSpecial},
	}
	for _, tc := range cases {
		got := schema.Check(schema.SignIn{Email: "ana@vitrine.dev", Password: tc.password})
		assert.Equal(t, map[string]string{"password": tc.want}, got, tc.password)
	}

	got := schema.Check(schema.SignIn{Email: "not-an-email", Password: "Senha#123"})
	assert.Equal(t, map[string]string{"email": schema.MsgEmail}, got)

	got = schema.Check(schema.SignIn{Password: "Senha#123"})
	assert.Equal(t, map[string]string{"email": schema.MsgEmail}, got)
}

func TestSignUpRules(t *testing.T) {
	valid := schema.SignUp{
		Name:            "Ana",
		Email:           "ana@vitrine.dev",
		Password:        "123456",
		Role:            "seller",
		ConfirmPassword: "123456",
	}
	assert.Nil(t, schema.Check(valid))

	bad := valid
	bad.Name = "Al"
	bad.Password = "12345"
	bad.ConfirmPassword = "54321"
	bad.Role = "admin"
	got := schema.Check(bad)
	assert.Equal(t, schema.MsgNameMin3, got["name"])
	assert.Equal(t, schema.MsgPasswordMin6, got["password"])
	assert.Equal(t, schema.MsgRole, got["role"])
	assert.Equal(t, schema.MsgPasswordsDiffer, got["confirmPassword"])
}

func TestMessageFallbacks(t *testing.T) {
	assert.Equal(t, schema.MsgRequired, schema.Message("anything", "required", nil))
	assert.Equal(t, schema.MsgInvalid, schema.Message("anything", "uuid", nil))
	assert.Equal(t, schema.MsgProductName, schema.Message("name", "min", schema.ProductMessages))
	assert.Equal(t, schema.MsgNameMin3, schema.Message("name", "min", nil))
	assert.Equal(t, schema.MsgStock, schema.Message("products.0.stockQuantity", "gte", nil))
}

func TestPasswordClasses(t *testing.T) {
	assert.True(t, schema.ReSpecial.MatchString("a_b"))
	assert.True(t, schema.ReSpecial.MatchString("!"))
	assert.False(t, schema.ReSpecial.MatchString("abc123"))
}

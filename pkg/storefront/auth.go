package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/pkg/form"
	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
	"github.com/vitrine/storefront_sdk_go/pkg/query"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/schema"
)

// CodeInvalidCredentials is the API error code of a rejected sign-in.
const CodeInvalidCredentials = "invalid_credentials"

// IsInvalidCredentials reports whether err is a rejected sign-in.
func IsInvalidCredentials(err error) bool {
	apiErr, ok := gateway.AsAPIError(err)
	return ok && apiErr.Code == CodeInvalidCredentials
}

// SignInMutation posts credentials to /sign-in. On success the token and user
// are stored in the session, the expired flag is cleared and the cache is
// emptied.
func (c *Client) SignInMutation() *query.Mutation[schema.SignIn, AuthResult] {
	return query.NewMutation[schema.SignIn, AuthResult](c.gw, query.MutationOptions[schema.SignIn, AuthResult]{
		Method: http.MethodPost,
		Path:   "/sign-in",
		Callbacks: query.Callbacks[schema.SignIn, AuthResult]{
			OnSuccess: func(res AuthResult, _ schema.SignIn) {
				if err := c.gw.SetCredentials(res.Token, res.User); err != nil {
					c.logger.Warn("store credentials", zap.Error(err))
				}
				c.queries.Clear()
			},
		},
		Logger: c.logger,
	})
}

// SignIn authenticates and returns the signed-in user.
func (c *Client) SignIn(ctx context.Context, email, password string) (*session.User, error) {
	res, err := c.SignInMutation().MutateAsync(ctx, schema.SignIn{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("storefront: sign-in returned no token")
	}
	return &res.User, nil
}

// SignUpMutation posts a registration to /sign-up. The confirmation is never
// sent.
func (c *Client) SignUpMutation() *query.Mutation[schema.SignUp, json.RawMessage] {
	return query.NewMutation[schema.SignUp, json.RawMessage](c.gw, query.MutationOptions[schema.SignUp, json.RawMessage]{
		Method: http.MethodPost,
		Path:   "/sign-up",
		Body: func(s schema.SignUp) any {
			return map[string]any{
				"name":     s.Name,
				"email":    s.Email,
				"password": s.Password,
				"role":     s.Role,
			}
		},
		Logger: c.logger,
	})
}

// SignUp registers an account after checking the sign-up rules locally.
func (c *Client) SignUp(ctx context.Context, s schema.SignUp) error {
	if fields := schema.Check(s); fields != nil {
		return &form.ValidationError{Fields: fields}
	}
	_, err := c.SignUpMutation().MutateAsync(ctx, s)
	return err
}

// SignOut tears down the session and empties the cache.
func (c *Client) SignOut() error {
	err := c.gw.Logout()
	c.queries.Clear()
	return err
}

// SignInForm is the sign-in screen: email and password with the sign-in
// rules. A rejected login shows "Email ou senha inválidos" in the banner.
func (c *Client) SignInForm(opts form.Options) *form.Form {
	m := c.SignInMutation()
	f := form.New(form.SubmitterFunc(func(ctx context.Context, v form.Values) (json.RawMessage, error) {
		res, err := m.MutateAsync(ctx, schema.SignIn{
			Email:    stringValue(v["email"]),
			Password: stringValue(v["password"]),
		})
		if IsInvalidCredentials(err) {
			return nil, &form.ValidationError{Fields: map[string]string{"": schema.MsgInvalidLogin}}
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	}), withLogger(opts, c.logger))

	f.Field("email",
		form.Required(schema.MsgEmail),
		form.Tag("email", schema.MsgEmail))
	f.Field("password",
		form.MinLength(8, schema.MsgPasswordMin8),
		form.Matches(schema.ReUpper, schema.MsgPasswordUpper),
		form.Matches(schema.ReLower, schema.MsgPasswordLower),
		form.Matches(schema.ReDigit, schema.MsgPasswordDigit),
		form.Matches(schema.ReSpecial, schema.MsgPasswordSpecial))
	return f
}

// SignUpForm is the registration screen. The role defaults to customer.
func (c *Client) SignUpForm(opts form.Options) *form.Form {
	m := c.SignUpMutation()
	f := form.New(form.SubmitterFunc(func(ctx context.Context, v form.Values) (json.RawMessage, error) {
		return m.MutateAsync(ctx, schema.SignUp{
			Name:     stringValue(v["name"]),
			Email:    stringValue(v["email"]),
			Password: stringValue(v["password"]),
			Role:     stringValue(v["role"]),
		})
	}), withLogger(opts, c.logger))

	f.Field("name", form.MinLength(3, schema.MsgNameMin3))
	f.Field("email",
		form.Required(schema.MsgEmail),
		form.Tag("email", schema.MsgEmail))
	f.Field("password", form.MinLength(6, schema.MsgPasswordMin6))
	f.Field("role",
		form.Required(schema.MsgRole),
		form.Tag("oneof=seller customer", schema.MsgRole)).Set(session.RoleCustomer)
	f.Field("confirmPassword", form.Equals("password", schema.MsgPasswordsDiffer))
	return f
}

func withLogger(opts form.Options, l *zap.Logger) form.Options {
	if opts.Logger == nil {
		opts.Logger = l
	}
	return opts
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

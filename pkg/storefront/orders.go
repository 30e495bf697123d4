package storefront

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vitrine/storefront_sdk_go/pkg/query"
)

// OrdersQuery observes the orders of the signed-in customer.
func (c *Client) OrdersQuery() *query.Query[[]Order, json.RawMessage] {
	return query.NewQuery[[]Order, json.RawMessage](c.queries, c.read(query.Key{KeyOrders}, "/orders", nil))
}

// ListOrders reads the orders of the signed-in customer.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	orders, _, err := query.Fetch[[]Order, json.RawMessage](ctx, c.queries, c.read(query.Key{KeyOrders}, "/orders", nil))
	return orders, err
}

// CheckoutMutation turns the cart into an order. The cart and orders are
// invalidated.
func (c *Client) CheckoutMutation() *query.Mutation[struct{}, json.RawMessage] {
	return writer(c, query.MutationOptions[struct{}, json.RawMessage]{
		Method: http.MethodPost,
		Path:   "/orders",
	}, KeyCart, KeyOrders)
}

// Checkout places an order with the current cart.
func (c *Client) Checkout(ctx context.Context) error {
	_, err := c.CheckoutMutation().MutateAsync(ctx, struct{}{})
	return err
}

package storefront

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vitrine/storefront_sdk_go/pkg/query"
)

// CartLine identifies a product and quantity in cart writes.
type CartLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity,omitempty"`
}

// CartQuery observes the cart.
func (c *Client) CartQuery() *query.Query[Cart, json.RawMessage] {
	return query.NewQuery[Cart, json.RawMessage](c.queries, c.read(query.Key{KeyCart}, "/cart", nil))
}

// GetCart reads the cart.
func (c *Client) GetCart(ctx context.Context) (Cart, error) {
	cart, _, err := query.Fetch[Cart, json.RawMessage](ctx, c.queries, c.read(query.Key{KeyCart}, "/cart", nil))
	return cart, err
}

// AddToCartMutation posts {productId} to /cart.
func (c *Client) AddToCartMutation() *query.Mutation[int64, json.RawMessage] {
	return writer(c, query.MutationOptions[int64, json.RawMessage]{
		Method: http.MethodPost,
		Path:   "/cart",
		Body:   func(id int64) any { return CartLine{ProductID: id} },
	}, KeyCart)
}

// AddToCart adds one unit of a product.
func (c *Client) AddToCart(ctx context.Context, productID int64) error {
	_, err := c.AddToCartMutation().MutateAsync(ctx, productID)
	return err
}

// ChangeQuantityMutation puts {quantity, productId} to /cart.
func (c *Client) ChangeQuantityMutation() *query.Mutation[CartLine, json.RawMessage] {
	return writer(c, query.MutationOptions[CartLine, json.RawMessage]{
		Method: http.MethodPut,
		Path:   "/cart",
		Body: func(l CartLine) any {
			return map[string]any{"quantity": l.Quantity, "productId": l.ProductID}
		},
	}, KeyCart)
}

// ChangeQuantity sets the quantity of a cart line.
func (c *Client) ChangeQuantity(ctx context.Context, productID int64, quantity int) error {
	_, err := c.ChangeQuantityMutation().MutateAsync(ctx, CartLine{ProductID: productID, Quantity: quantity})
	return err
}

// RemoveFromCartMutation deletes {productId} from /cart.
func (c *Client) RemoveFromCartMutation() *query.Mutation[int64, json.RawMessage] {
	return writer(c, query.MutationOptions[int64, json.RawMessage]{
		Method: http.MethodDelete,
		Path:   "/cart",
		Body:   func(id int64) any { return CartLine{ProductID: id} },
	}, KeyCart)
}

// RemoveFromCart drops a product from the cart.
func (c *Client) RemoveFromCart(ctx context.Context, productID int64) error {
	_, err := c.RemoveFromCartMutation().MutateAsync(ctx, productID)
	return err
}

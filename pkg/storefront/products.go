package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vitrine/storefront_sdk_go/pkg/form"
	"github.com/vitrine/storefront_sdk_go/pkg/query"
)

// ProductsKey is the cache key of one listing page.
func ProductsKey(p ListParams) query.Key {
	p = p.Normalize()
	return query.Key{KeyProducts, p.Page, p.Search, p.OrderBy, p.OrderType, p.Size}
}

// ProductKey is the cache key of one product.
func ProductKey(id int64) query.Key {
	return query.Key{KeyProduct, id}
}

// Products observes a listing page. Move between pages with SetProductsPage.
func (c *Client) Products(p ListParams) *query.Query[[]Product, ListMeta] {
	return query.NewQuery[[]Product, ListMeta](c.queries, c.read(ProductsKey(p), "/products", p.Params()))
}

// SetProductsPage points q at another page or filter.
func SetProductsPage(q *query.Query[[]Product, ListMeta], p ListParams) {
	q.SetKey(ProductsKey(p), p.Params())
}

// ListProducts reads one listing page.
func (c *Client) ListProducts(ctx context.Context, p ListParams) ([]Product, ListMeta, error) {
	return query.Fetch[[]Product, ListMeta](ctx, c.queries, c.read(ProductsKey(p), "/products", p.Params()))
}

// ProductQuery observes one product.
func (c *Client) ProductQuery(id int64) *query.Query[Product, json.RawMessage] {
	return query.NewQuery[Product, json.RawMessage](c.queries, c.read(ProductKey(id), idPath("/products", id, ""), nil))
}

// GetProduct reads one product.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, _, err := query.Fetch[Product, json.RawMessage](ctx, c.queries, c.read(ProductKey(id), idPath("/products", id, ""), nil))
	return p, err
}

// CreateProductMutation posts one product.
func (c *Client) CreateProductMutation() *query.Mutation[NewProduct, Product] {
	return writer(c, query.MutationOptions[NewProduct, Product]{
		Method: http.MethodPost,
		Path:   "/products",
	}, KeyProducts, KeySellerProducts)
}

// CreateProduct validates and posts one product.
func (c *Client) CreateProduct(ctx context.Context, p NewProduct) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return c.CreateProductMutation().MutateAsync(ctx, p)
}

// CreateProductsMutation posts a batch as {"products": [...]}.
func (c *Client) CreateProductsMutation() *query.Mutation[[]NewProduct, json.RawMessage] {
	return writer(c, query.MutationOptions[[]NewProduct, json.RawMessage]{
		Method: http.MethodPost,
		Path:   "/products",
		Body: func(ps []NewProduct) any {
			return map[string]any{"products": ps}
		},
	}, KeyProducts, KeySellerProducts)
}

// CreateProducts validates every product and posts them in one request.
// Failures are reported per product as "products.<i>.<field>".
func (c *Client) CreateProducts(ctx context.Context, ps []NewProduct) error {
	if len(ps) == 0 {
		return nil
	}
	fields := map[string]string{}
	for i, p := range ps {
		var verr *form.ValidationError
		if errors.As(p.Validate(), &verr) {
			for name, msg := range verr.Fields {
				fields[fmt.Sprintf("products.%d.%s", i, name)] = msg
			}
		}
	}
	if len(fields) > 0 {
		return &form.ValidationError{Fields: fields}
	}
	_, err := c.CreateProductsMutation().MutateAsync(ctx, ps)
	return err
}

// UpdateProductVars are the variables of UpdateProductMutation.
type UpdateProductVars struct {
	ID      int64
	Product NewProduct
}

// UpdateProductMutation puts a product. Every cached read is invalidated.
func (c *Client) UpdateProductMutation() *query.Mutation[UpdateProductVars, Product] {
	return writer(c, query.MutationOptions[UpdateProductVars, Product]{
		Method:   http.MethodPut,
		PathFunc: func(v UpdateProductVars) string { return idPath("/products", v.ID, "") },
		Body:     func(v UpdateProductVars) any { return v.Product },
	})
}

// UpdateProduct validates and puts a product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, p NewProduct) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return c.UpdateProductMutation().MutateAsync(ctx, UpdateProductVars{ID: id, Product: p})
}

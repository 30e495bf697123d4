package storefront

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vitrine/storefront_sdk_go/pkg/query"
)

// FavoritesQuery observes the favorites of the signed-in user.
func (c *Client) FavoritesQuery() *query.Query[[]Favorite, json.RawMessage] {
	return query.NewQuery[[]Favorite, json.RawMessage](c.queries, c.read(query.Key{KeyFavorites}, "/favorites", nil))
}

// ListFavorites reads the favorites of the signed-in user.
func (c *Client) ListFavorites(ctx context.Context) ([]Favorite, error) {
	favs, _, err := query.Fetch[[]Favorite, json.RawMessage](ctx, c.queries, c.read(query.Key{KeyFavorites}, "/favorites", nil))
	return favs, err
}

func (c *Client) favoriteMutation(method string) *query.Mutation[int64, json.RawMessage] {
	return writer(c, query.MutationOptions[int64, json.RawMessage]{
		Method:   method,
		PathFunc: func(id int64) string { return idPath("/products", id, "favorites") },
		Body:     func(int64) any { return struct{}{} },
	}, KeyFavorites, KeyProduct, KeyProducts)
}

// AddFavoriteMutation posts to /products/{id}/favorites.
func (c *Client) AddFavoriteMutation() *query.Mutation[int64, json.RawMessage] {
	return c.favoriteMutation(http.MethodPost)
}

// RemoveFavoriteMutation deletes /products/{id}/favorites.
func (c *Client) RemoveFavoriteMutation() *query.Mutation[int64, json.RawMessage] {
	return c.favoriteMutation(http.MethodDelete)
}

// AddFavorite favorites a product.
func (c *Client) AddFavorite(ctx context.Context, productID int64) error {
	_, err := c.AddFavoriteMutation().MutateAsync(ctx, productID)
	return err
}

// RemoveFavorite unfavorites a product.
func (c *Client) RemoveFavorite(ctx context.Context, productID int64) error {
	_, err := c.RemoveFavoriteMutation().MutateAsync(ctx, productID)
	return err
}

// ToggleFavorite flips the favorite state of p and returns the new state.
func (c *Client) ToggleFavorite(ctx context.Context, p Product) (bool, error) {
	if p.IsFavorite() {
		return false, c.RemoveFavorite(ctx, p.ID)
	}
	return true, c.AddFavorite(ctx, p.ID)
}

package storefront_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

func TestListParamsNormalize(t *testing.T) {
	p := storefront.ListParams{Page: -3, Size: 7, Search: "  mesa ", OrderBy: "stock", OrderType: "up"}.Normalize()
	assert.Equal(t, storefront.ListParams{
		Page:      1,
		Size:      storefront.DefaultPageSize,
		Search:    "mesa",
		OrderBy:   storefront.OrderByCreatedAt,
		OrderType: storefront.OrderDesc,
	}, p)

	params := storefront.ListParams{Page: 2, Size: 50, OrderBy: storefront.OrderByPrice, OrderType: storefront.OrderAsc}.Params()
	assert.Equal(t, map[string]any{"page": 2, "size": 50, "orderBy": "price", "orderType": "asc"}, params)
	assert.NotContains(t, params, "search")
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, storefront.TotalPages(0, 10))
	assert.Equal(t, 1, storefront.TotalPages(10, 10))
	assert.Equal(t, 2, storefront.TotalPages(11, 10))
	assert.Equal(t, 3, storefront.TotalPages(21, 0))
}

func TestPagerStaysInRange(t *testing.T) {
	p := storefront.NewPager(storefront.ListParams{Size: 20}, 45)
	assert.Equal(t, 3, p.Pages())
	assert.False(t, p.HasPrev())
	assert.Equal(t, 1, p.Prev().Page)

	p = p.Next().Next()
	assert.Equal(t, 3, p.Page)
	assert.False(t, p.HasNext())
	assert.Equal(t, 3, p.Next().Page)
	assert.Equal(t, 1, p.First().Page)
	assert.Equal(t, 3, p.First().Last().Page)

	applied := p.Prev().Apply(storefront.ListParams{Search: "mesa"})
	assert.Equal(t, 2, applied.Page)
	assert.Equal(t, 20, applied.Size)
	assert.Equal(t, "mesa", applied.Search)
}

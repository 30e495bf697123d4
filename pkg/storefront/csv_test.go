package storefront_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

func TestCSVTemplateRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, storefront.WriteCSVTemplate(&buf))
	assert.Equal(t,
		"name,price,stockQuantity,isStockInfinite,description\nExemplo de Produto,99.90,10,false,Uma bela descrição\n",
		buf.String())

	products, err := storefront.ParseProductsCSV(&buf)
	require.NoError(t, err)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "Exemplo de Produto", p.Name)
	assert.Equal(t, "99.9", p.Price.String())
	assert.Equal(t, 10, p.StockQuantity)
	assert.False(t, p.Config.IsStockInfinite)
	assert.Equal(t, storefront.ProductActive, p.Status)
	assert.Empty(t, p.Images)
	assert.NoError(t, p.Validate())
}

func TestParseProductsCSVDefaults(t *testing.T) {
	in := "\ufeffdescription,image,name,price,stockQuantity,isStockInfinite,extra\n" +
		"Cadeira de madeira,https://img/1.png,Cadeira,\"12,50\",3,sim,x\n" +
		"\n" +
		",,,,,,\n" +
		"Só nome vazio,,,7,dez,true\n"

	products, err := storefront.ParseProductsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, products, 2)

	chair := products[0]
	assert.Equal(t, "Cadeira", chair.Name)
	assert.Equal(t, "12.5", chair.Price.String())
	assert.Equal(t, 3, chair.StockQuantity)
	assert.True(t, chair.Config.IsStockInfinite)
	require.Len(t, chair.Images, 1)
	assert.Equal(t, storefront.ProductImage{ImageURL: "https://img/1.png", IsCover: true}, chair.Images[0])

	unnamed := products[1]
	assert.Equal(t, storefront.CSVDefaultName, unnamed.Name)
	assert.Equal(t, "7", unnamed.Price.String())
	assert.Equal(t, 0, unnamed.StockQuantity)
	assert.True(t, unnamed.Config.IsStockInfinite)
}

func TestParseProductsCSVRejectsEmptyFile(t *testing.T) {
	_, err := storefront.ParseProductsCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, storefront.ErrInvalidCSV)

	_, err = storefront.ParseProductsCSV(strings.NewReader("name,price\n\"unterminated,1\n"))
	assert.ErrorIs(t, err, storefront.ErrInvalidCSV)
}

package storefront

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidCSV is returned when an import file cannot be read as CSV.
var ErrInvalidCSV = errors.New("storefront: invalid CSV")

// CSVHeader is the column order of the import template. An optional "image"
// column holds a cover image URL.
var CSVHeader = []string{"name", "price", "stockQuantity", "isStockInfinite", "description"}

// Defaults applied to incomplete CSV rows.
const (
	CSVDefaultName  = "Sem Nome"
	CSVTemplateName = "modelo_produtos.csv"
)

var csvTemplateRow = []string{"Exemplo de Produto", "99.90", "10", "false", "Uma bela descrição"}

// WriteCSVTemplate writes the header and one example row.
func WriteCSVTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	if err := cw.Write(csvTemplateRow); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ParseProductsCSV reads products from a CSV whose first row names the
// columns. Column order is free and unknown columns are ignored. Blank lines
// are skipped. Missing or unparsable cells fall back to defaults: name
// "Sem Nome", price and stock 0, finite stock. Every product is active and an
// "image" cell becomes its only, cover, image.
func ParseProductsCSV(r io.Reader) ([]NewProduct, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var out []NewProduct
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if blank(record) {
			continue
		}
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		p := NewProduct{
			Name:          cell("name"),
			Price:         parseMoney(cell("price")),
			StockQuantity: parseInt(cell("stockQuantity")),
			Description:   cell("description"),
			Config:        ProductConfig{IsStockInfinite: parseBool(cell("isStockInfinite"))},
			Status:        ProductActive,
			Images:        []ProductImage{},
		}
		if p.Name == "" {
			p.Name = CSVDefaultName
		}
		if img := cell("image"); img != "" {
			p.Images = []ProductImage{{ImageURL: img, IsCover: true, DisplayOrder: 0}}
		}
		out = append(out, p)
	}
	return out, nil
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func commaDecimal(s string) string {
	return strings.Replace(strings.TrimSpace(s), ",", ".", 1)
}

func parseMoney(s string) Money {
	m, err := NewMoney(commaDecimal(s))
	if err != nil {
		return Money{}
	}
	return m
}

func parseInt(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return strings.EqualFold(s, "sim")
	}
	return b
}

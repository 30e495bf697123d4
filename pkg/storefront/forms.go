package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vitrine/storefront_sdk_go/pkg/form"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/schema"
)

// Product form field names.
const (
	FieldName            = "name"
	FieldPrice           = "price"
	FieldStockQuantity   = "stockQuantity"
	FieldDescription     = "description"
	FieldIsStockInfinite = "isStockInfinite"
	FieldStatus          = "status"
	FieldImages          = "images"
)

// ProductForm is the product editor. With a nil existing product it creates
// one; otherwise it is prefilled and submits an update of that product.
func (c *Client) ProductForm(existing *Product, opts form.Options) *form.Form {
	draft := NewProduct{Config: ProductConfig{IsStockInfinite: true}, Images: []ProductImage{}}
	if existing != nil {
		draft = existing.Draft()
	}

	create := c.CreateProductMutation()
	update := c.UpdateProductMutation()
	f := form.New(form.SubmitterFunc(func(ctx context.Context, v form.Values) (json.RawMessage, error) {
		p, err := ProductFromValues(v)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		var saved Product
		if existing == nil {
			saved, err = create.MutateAsync(ctx, p)
		} else {
			saved, err = update.MutateAsync(ctx, UpdateProductVars{ID: existing.ID, Product: p})
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(saved)
	}), withLogger(opts, c.logger))

	f.Field(FieldName, form.MinLength(3, schema.MsgProductName)).Set(draft.Name)
	f.Field(FieldPrice, form.Func(nonNegative, schema.MsgPrice)).Set(draft.Price.String())
	f.Field(FieldStockQuantity, form.Func(nonNegative, schema.MsgStock)).Set(draft.StockQuantity)
	f.Field(FieldDescription, form.MinLength(3, schema.MsgDescription)).Set(draft.Description)
	f.Field(FieldIsStockInfinite).Set(draft.Config.IsStockInfinite)
	f.Field(FieldImages).Set(draft.Images)
	if existing != nil {
		f.Field(FieldStatus, form.Tag("oneof=active inactive", schema.MsgStatus)).Set(string(draft.Status))
	}
	return f
}

// ProductFromValues converts product form values. Numbers may be given as
// numbers or text, with "," accepted as the decimal separator.
func ProductFromValues(v form.Values) (NewProduct, error) {
	p := NewProduct{
		Name:        stringValue(v[FieldName]),
		Description: stringValue(v[FieldDescription]),
		Status:      ProductStatus(stringValue(v[FieldStatus])),
		Images:      []ProductImage{},
	}

	fields := map[string]string{}
	price, ok := number(v[FieldPrice])
	if !ok {
		fields[FieldPrice] = schema.MsgInvalid
	}
	p.Price = parseMoney(price)

	if stock, ok := number(v[FieldStockQuantity]); ok {
		p.StockQuantity = parseInt(stock)
	} else {
		fields[FieldStockQuantity] = schema.MsgInvalid
	}

	switch b := v[FieldIsStockInfinite].(type) {
	case bool:
		p.Config.IsStockInfinite = b
	case string:
		p.Config.IsStockInfinite = parseBool(b)
	}

	switch imgs := v[FieldImages].(type) {
	case nil:
	case []ProductImage:
		p.Images = append(p.Images, imgs...)
	default:
		raw, err := json.Marshal(imgs)
		if err == nil {
			err = json.Unmarshal(raw, &p.Images)
		}
		if err != nil {
			fields[FieldImages] = schema.MsgInvalid
		}
	}

	if len(fields) > 0 {
		return p, &form.ValidationError{Fields: fields}
	}
	return p, nil
}

func number(v any) (string, bool) {
	switch n := v.(type) {
	case nil:
		return "0", true
	case string:
		if n == "" {
			return "0", true
		}
		s := n
		if _, err := NewMoney(commaDecimal(s)); err != nil {
			return s, false
		}
		return commaDecimal(s), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case json.Number:
		return n.String(), true
	case Money:
		return n.String(), true
	default:
		return fmt.Sprint(n), false
	}
}

func nonNegative(v any) bool {
	s, ok := number(v)
	if !ok {
		return false
	}
	m, err := NewMoney(s)
	return err == nil && !m.IsNegative()
}

package storefront

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vitrine/storefront_sdk_go/pkg/form"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/schema"
)

// ProductStatus is the publication state of a product.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

// Account statuses accepted by SetUserStatus.
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// ProductImage is one picture of a product.
type ProductImage struct {
	ID           int64  `json:"id,omitempty"`
	ProductID    int64  `json:"productId,omitempty"`
	ImageURL     string `json:"imageUrl"`
	IsCover      bool   `json:"isCover"`
	DisplayOrder int    `json:"displayOrder" validate:"gte=0"`
}

// ProductConfig holds per-product switches.
type ProductConfig struct {
	IsStockInfinite bool `json:"isStockInfinite"`
}

// Product is a catalogue entry with its images.
type Product struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	SellerID        int64             `json:"sellerId"`
	CategoryID      *int64            `json:"categoryId"`
	Description     string            `json:"description"`
	Price           Money             `json:"price"`
	StockQuantity   int               `json:"stockQuantity"`
	IsStockInfinite bool              `json:"isStockInfinite"`
	Config          *ProductConfig    `json:"config,omitempty"`
	Status          ProductStatus     `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	PublishedAt     *time.Time        `json:"publishedAt"`
	Images          []ProductImage    `json:"images"`
	FavoritedBy     []json.RawMessage `json:"favoritedBy,omitempty"`
}

// InfiniteStock reports whether stock is not tracked.
func (p Product) InfiniteStock() bool {
	return p.IsStockInfinite || (p.Config != nil && p.Config.IsStockInfinite)
}

// OutOfStock reports whether a tracked stock is exhausted.
func (p Product) OutOfStock() bool {
	return !p.InfiniteStock() && p.StockQuantity <= 0
}

// Inactive reports whether the product is unpublished.
func (p Product) Inactive() bool {
	return p.Status == ProductInactive
}

// IsFavorite reports whether the signed-in user favorited the product. The
// API only lists the current user in favoritedBy.
func (p Product) IsFavorite() bool {
	return len(p.FavoritedBy) > 0
}

// OwnedBy reports whether u is the seller of p.
func (p Product) OwnedBy(u *session.User) bool {
	return u != nil && u.ID == p.SellerID
}

// Cover returns the cover image, falling back to the first one.
func (p Product) Cover() (ProductImage, bool) {
	for _, img := range p.Images {
		if img.IsCover {
			return img, true
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0], true
	}
	return ProductImage{}, false
}

// NewProduct is the payload of product creation and update.
type NewProduct struct {
	Name          string         `json:"name" validate:"min=3"`
	Price         Money          `json:"price" validate:"gte=0"`
	StockQuantity int            `json:"stockQuantity" validate:"gte=0"`
	Description   string         `json:"description" validate:"min=3"`
	Config        ProductConfig  `json:"config"`
	Status        ProductStatus  `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	Images        []ProductImage `json:"images" validate:"dive"`
}

// ValidationMessages gives product rules their screen wording.
func (NewProduct) ValidationMessages() map[string]string {
	return schema.ProductMessages
}

// Validate checks p against the product rules.
func (p NewProduct) Validate() error {
	if fields := schema.Check(p); fields != nil {
		return &form.ValidationError{Fields: fields}
	}
	return nil
}

// AddImage appends an image. The first image becomes the cover.
func (p *NewProduct) AddImage(url string) {
	p.Images = append(p.Images, ProductImage{
		ImageURL:     url,
		IsCover:      len(p.Images) == 0,
		DisplayOrder: len(p.Images),
	})
}

// SetCover makes image i the only cover.
func (p *NewProduct) SetCover(i int) error {
	if i < 0 || i >= len(p.Images) {
		return fmt.Errorf("storefront: image index %d out of range", i)
	}
	for j := range p.Images {
		p.Images[j].IsCover = j == i
	}
	return nil
}

// RemoveImage drops image i and renumbers the display order. When the cover
// is removed the first remaining image takes its place.
func (p *NewProduct) RemoveImage(i int) error {
	if i < 0 || i >= len(p.Images) {
		return fmt.Errorf("storefront: image index %d out of range", i)
	}
	wasCover := p.Images[i].IsCover
	p.Images = append(p.Images[:i], p.Images[i+1:]...)
	for j := range p.Images {
		p.Images[j].DisplayOrder = j
	}
	if wasCover && len(p.Images) > 0 {
		p.Images[0].IsCover = true
	}
	return nil
}

// Draft returns the editable form of an existing product.
func (p Product) Draft() NewProduct {
	images := make([]ProductImage, len(p.Images))
	copy(images, p.Images)
	return NewProduct{
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Description:   p.Description,
		Config:        ProductConfig{IsStockInfinite: p.InfiniteStock()},
		Status:        p.Status,
		Images:        images,
	}
}

// CartItem is one line of the cart.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cartId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
	Product   Product   `json:"product"`
}

// Subtotal is price × quantity.
func (c CartItem) Subtotal() Money {
	return c.Product.Price.Times(c.Quantity)
}

// Cart is the list returned by GET /cart.
type Cart []CartItem

// Subtotal sums every line.
func (c Cart) Subtotal() Money {
	total := Money{}
	for _, item := range c {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Units counts every unit in the cart.
func (c Cart) Units() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCanceled  OrderStatus = "canceled"
)

// Order is a checked-out cart.
type Order struct {
	ID          int64       `json:"id"`
	CustomerID  int64       `json:"customerId"`
	TotalAmount Money       `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	Items       []CartItem  `json:"items"`
}

// Favorite links a user to a product.
type Favorite struct {
	UserID    int64     `json:"userId"`
	ProductID int64     `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
	Product   Product   `json:"product"`
}

// DashboardPoint is one day of the seller dashboard.
type DashboardPoint struct {
	Date       string `json:"date"`
	FullDate   string `json:"fullDate"`
	Revenue    Money  `json:"revenue"`
	SalesCount int    `json:"salesCount"`
	Favorites  int    `json:"favorites"`
	InCarts    int    `json:"inCarts"`
}

// Dashboard is the seller's aggregate view.
type Dashboard struct {
	Chart      []DashboardPoint `json:"chart"`
	BestSeller *Product         `json:"bestSeller"`
}

// DashboardTotals sums the chart.
type DashboardTotals struct {
	Revenue   Money
	Sales     int
	Favorites int
	InCarts   int
}

// Totals sums every chart point.
func (d Dashboard) Totals() DashboardTotals {
	var t DashboardTotals
	for _, p := range d.Chart {
		t.Revenue = t.Revenue.Add(p.Revenue)
		t.Sales += p.SalesCount
		t.Favorites += p.Favorites
		t.InCarts += p.InCarts
	}
	return t
}

// ListMeta is the meta of paged lists.
type ListMeta struct {
	Total int `json:"total"`
}

// AuthResult is the body of a successful sign-in.
type AuthResult struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

// Package catalog keeps the merchant's product list. Prices are held in USD
// and every product carries a BCH price derived from the current exchange
// rate. A Catalog is not safe for concurrent use; the POS coordinator
// serializes access.
package catalog

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"nexuscash/core/money"
)

// UnlimitedStock is the stock sentinel for items that are never depleted.
const UnlimitedStock = 999

// MaxStock is the largest finite stock count kept as-is. Larger inputs are
// treated as unlimited.
const MaxStock = math.MaxInt32

var (
	ErrInvalidProduct  = errors.New("catalog: invalid product")
	ErrProductNotFound = errors.New("catalog: product not found")
)

// Category groups products on the register.
type Category string

const (
	CategoryFood     Category = "Food"
	CategoryBeverage Category = "Beverage"
)

// ParseCategory maps free text onto a category. Anything that is not Food is
// a Beverage.
func ParseCategory(raw string) Category {
	if strings.EqualFold(strings.TrimSpace(raw), string(CategoryFood)) {
		return CategoryFood
	}
	return CategoryBeverage
}

// Product is a sellable catalog item.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	SKU      string   `json:"sku"`
	PriceUSD float64  `json:"price"`
	PriceBCH float64  `json:"priceBch"`
	Stock    int      `json:"stock"`
	Category Category `json:"category"`
	Image    string   `json:"image"`
}

// Unlimited reports whether the product carries the unlimited stock sentinel.
func (p Product) Unlimited() bool { return p.Stock == UnlimitedStock }

// Available reports whether qty units can be sold.
func (p Product) Available(qty int) bool {
	return p.Unlimited() || qty <= p.Stock
}

// Input carries the fields accepted when creating a product.
type Input struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Price    float64 `json:"price"`
	Stock    float64 `json:"stock"`
	Category string  `json:"category"`
	Image    string  `json:"image"`
}

// Patch carries optional field updates. Nil fields are left untouched.
type Patch struct {
	Name     *string  `json:"name,omitempty"`
	SKU      *string  `json:"sku,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Stock    *float64 `json:"stock,omitempty"`
	Category *string  `json:"category,omitempty"`
	Image    *string  `json:"image,omitempty"`
}

// NormalizeStock keeps the unlimited sentinel and otherwise rounds to a
// non-negative integer. Counts beyond MaxStock, including +Inf, collapse to
// the sentinel so the conversion never overflows.
func NormalizeStock(stock float64) int {
	if math.IsNaN(stock) || stock < 0 {
		return 0
	}
	if stock == UnlimitedStock || stock > MaxStock {
		return UnlimitedStock
	}
	return int(math.Round(stock))
}

// NormalizePrice floors the price at zero and rounds it to cents.
func NormalizePrice(price float64) float64 {
	if !money.Finite(price) {
		return 0
	}
	return money.RoundUSD(math.Max(price, 0))
}

// Initials returns the two-letter tile label from image, or from name when
// image is blank.
func Initials(image, name string) string {
	source := strings.TrimSpace(image)
	if source == "" {
		source = strings.TrimSpace(name)
	}
	source = strings.ToUpper(source)
	if utf8.RuneCountInString(source) <= 2 {
		return source
	}
	runes := []rune(source)
	return string(runes[:2])
}

func normalize(in Input) Product {
	name := strings.TrimSpace(in.Name)
	return Product{
		Name:     name,
		SKU:      strings.ToUpper(strings.TrimSpace(in.SKU)),
		PriceUSD: NormalizePrice(in.Price),
		Stock:    NormalizeStock(in.Stock),
		Category: ParseCategory(in.Category),
		Image:    Initials(in.Image, name),
	}
}

func validate(p Product) error {
	if p.Name == "" || p.PriceUSD <= 0 {
		return ErrInvalidProduct
	}
	return nil
}

func (p Product) input() Input {
	return Input{
		Name:     p.Name,
		SKU:      p.SKU,
		Price:    p.PriceUSD,
		Stock:    float64(p.Stock),
		Category: string(p.Category),
		Image:    p.Image,
	}
}

// Apply merges the patch over the product's fields.
func (p Patch) Apply(base Product) Input {
	in := base.input()
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.SKU != nil {
		in.SKU = *p.SKU
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	if p.Stock != nil {
		in.Stock = *p.Stock
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Image != nil {
		in.Image = *p.Image
	}
	return in
}

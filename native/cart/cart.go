// Package cart tracks the register's open order. Quantities are validated
// against catalog stock on every change.
package cart

import (
	"errors"

	"nexuscash/core/money"
	"nexuscash/native/catalog"
)

var (
	ErrStockExceeded   = errors.New("cart: quantity exceeds available stock")
	ErrProductNotFound = errors.New("cart: product not found")
)

// Products resolves catalog entries by id.
type Products interface {
	Get(id string) (catalog.Product, bool)
}

// Line is a product and quantity pair.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ViewLine is a cart line priced against the catalog.
type ViewLine struct {
	Product      catalog.Product `json:"product"`
	Quantity     int             `json:"quantity"`
	LineTotalUSD float64         `json:"lineTotalUsd"`
	LineTotalBCH float64         `json:"lineTotalBch"`
}

// Summary is the derived cart view.
type Summary struct {
	Lines          []ViewLine `json:"lines"`
	Count          int        `json:"count"`
	TotalUSD       float64    `json:"totalUsd"`
	TotalBCH       float64    `json:"totalBch"`
	CustomerWallet string     `json:"customerWallet"`
}

// Cart is an ordered set of lines. Not safe for concurrent use.
type Cart struct {
	lines    []Line
	customer string
}

// New returns an empty cart for the given customer wallet.
func New(customer string) *Cart {
	return &Cart{customer: customer}
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Customer returns the wallet the order is attributed to.
func (c *Cart) Customer() string { return c.customer }

// SetCustomer records the customer wallet.
func (c *Cart) SetCustomer(wallet string) { c.customer = wallet }

func (c *Cart) index(id string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == id {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for id.
func (c *Cart) Quantity(id string) int {
	if i := c.index(id); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Add increments the line for id by one.
func (c *Cart) Add(id string, products Products) error {
	product, ok := products.Get(id)
	if !ok {
		return ErrProductNotFound
	}
	i := c.index(id)
	next := 1
	if i >= 0 {
		next = c.lines[i].Quantity + 1
	}
	if !product.Available(next) {
		return ErrStockExceeded
	}
	if i >= 0 {
		c.lines[i].Quantity = next
		return nil
	}
	c.lines = append(c.lines, Line{ProductID: id, Quantity: next})
	return nil
}

// SetQuantity sets the quantity for id, clamped to stock. A quantity of zero or
// less, or a product missing from the catalog, removes the line.
func (c *Cart) SetQuantity(id string, qty int, products Products) {
	product, ok := products.Get(id)
	if qty <= 0 || !ok {
		c.Remove(id)
		return
	}
	if !product.Unlimited() && qty > product.Stock {
		qty = product.Stock
	}
	if qty <= 0 {
		c.Remove(id)
		return
	}
	if i := c.index(id); i >= 0 {
		c.lines[i].Quantity = qty
		return
	}
	c.lines = append(c.lines, Line{ProductID: id, Quantity: qty})
}

// Reconcile clamps the line for product to its current stock.
func (c *Cart) Reconcile(product catalog.Product) {
	i := c.index(product.ID)
	if i < 0 || product.Unlimited() {
		return
	}
	if product.Stock <= 0 {
		c.Remove(product.ID)
		return
	}
	if c.lines[i].Quantity > product.Stock {
		c.lines[i].Quantity = product.Stock
	}
}

// Remove drops the line for id.
func (c *Cart) Remove(id string) {
	if i := c.index(id); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() { c.lines = nil }

// View prices the cart at rate. Lines whose product has disappeared are
// skipped.
func (c *Cart) View(products Products, rate float64) Summary {
	summary := Summary{Lines: make([]ViewLine, 0, len(c.lines)), CustomerWallet: c.customer}
	usd := make([]float64, 0, len(c.lines))
	for _, line := range c.lines {
		product, ok := products.Get(line.ProductID)
		if !ok {
			continue
		}
		view := ViewLine{
			Product:      product,
			Quantity:     line.Quantity,
			LineTotalUSD: money.Mul(product.PriceUSD, float64(line.Quantity), money.USDPlaces),
			LineTotalBCH: money.Mul(product.PriceBCH, float64(line.Quantity), money.BCHPlaces),
		}
		summary.Lines = append(summary.Lines, view)
		summary.Count += line.Quantity
		usd = append(usd, view.LineTotalUSD)
	}
	summary.TotalUSD = money.Sum(usd, money.USDPlaces)
	summary.TotalBCH = money.ToBch(summary.TotalUSD, rate)
	return summary
}

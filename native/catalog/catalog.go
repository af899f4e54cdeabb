package catalog

import (
	"strconv"

	"nexuscash/core/money"
)

// Catalog is an ordered product list, newest first.
type Catalog struct {
	products []Product
}

// New builds a catalog from the supplied products, normalizing each and
// pricing it at rate.
func New(products []Product, rate float64) *Catalog {
	c := &Catalog{products: make([]Product, 0, len(products))}
	for _, p := range products {
		id := p.ID
		p = normalize(p.input())
		p.ID = id
		p.PriceBCH = money.ToBch(p.PriceUSD, rate)
		c.products = append(c.products, p)
	}
	return c
}

// List returns a copy of the products in display order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get looks up a product by id.
func (c *Catalog) Get(id string) (Product, bool) {
	if i := c.index(id); i >= 0 {
		return c.products[i], true
	}
	return Product{}, false
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }

func (c *Catalog) index(id string) int {
	for i := range c.products {
		if c.products[i].ID == id {
			return i
		}
	}
	return -1
}

// NextID returns one more than the largest numeric id in the catalog.
func (c *Catalog) NextID() string {
	highest := 0
	for _, p := range c.products {
		if n, err := strconv.Atoi(p.ID); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

// Create normalizes and prepends a new product.
func (c *Catalog) Create(in Input, rate float64) (Product, error) {
	p := normalize(in)
	if err := validate(p); err != nil {
		return Product{}, err
	}
	p.ID = c.NextID()
	p.PriceBCH = money.ToBch(p.PriceUSD, rate)
	c.products = append([]Product{p}, c.products...)
	return p, nil
}

// Update merges patch into the product and re-derives its BCH price.
func (c *Catalog) Update(id string, patch Patch, rate float64) (Product, error) {
	i := c.index(id)
	if i < 0 {
		return Product{}, ErrProductNotFound
	}
	next := normalize(patch.Apply(c.products[i]))
	if err := validate(next); err != nil {
		return Product{}, err
	}
	next.ID = id
	next.PriceBCH = money.ToBch(next.PriceUSD, rate)
	c.products[i] = next
	return next, nil
}

// Delete removes the product.
func (c *Catalog) Delete(id string) (Product, error) {
	i := c.index(id)
	if i < 0 {
		return Product{}, ErrProductNotFound
	}
	removed := c.products[i]
	c.products = append(c.products[:i], c.products[i+1:]...)
	return removed, nil
}

// Reprice re-derives every BCH price at rate.
func (c *Catalog) Reprice(rate float64) {
	for i := range c.products {
		c.products[i].PriceBCH = money.ToBch(c.products[i].PriceUSD, rate)
	}
}

// DecrementStock removes qty units from finite stock, floored at zero.
// Unknown and unlimited products are ignored.
func (c *Catalog) DecrementStock(id string, qty int) {
	i := c.index(id)
	if i < 0 || c.products[i].Unlimited() {
		return
	}
	remaining := c.products[i].Stock - qty
	if remaining < 0 {
		remaining = 0
	}
	c.products[i].Stock = remaining
}

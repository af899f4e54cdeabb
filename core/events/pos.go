package events

import (
	"strconv"
	"time"
)

const (
	// TypeCheckoutStatus is emitted for every checkout session transition.
	TypeCheckoutStatus = "checkout.status"
	// TypeTreasurySweep is emitted when hot wallet funds move to cold storage.
	TypeTreasurySweep = "treasury.sweep"
	// TypeRateSync is emitted after the exchange rate is refreshed.
	TypeRateSync = "rate.sync"
	// TypeCatalogChange is emitted when a product is created, updated or
	// deleted.
	TypeCatalogChange = "catalog.change"
)

// CheckoutStatus records a checkout session reaching a new status.
type CheckoutStatus struct {
	TxID      string
	Status    string
	AmountUSD float64
	AmountBCH float64
	Reason    string
	Tokens    int64
	At        time.Time
}

func (CheckoutStatus) EventType() string { return TypeCheckoutStatus }

// Event renders the checkout transition.
func (e CheckoutStatus) Event() *Record {
	attrs := map[string]string{
		"txId":      e.TxID,
		"status":    e.Status,
		"amountUsd": formatAmount(e.AmountUSD, 2),
		"amountBch": formatAmount(e.AmountBCH, 4),
	}
	setIfPresent(attrs, "reason", e.Reason)
	if e.Tokens > 0 {
		attrs["tokens"] = strconv.FormatInt(e.Tokens, 10)
	}
	setIfPresent(attrs, "at", formatTime(e.At))
	return &Record{Type: TypeCheckoutStatus, Attributes: attrs}
}

// TreasurySweep records a hot to cold wallet transfer.
type TreasurySweep struct {
	ID        string
	Trigger   string
	AmountBCH float64
	HotAfter  float64
	ColdAfter float64
}

func (TreasurySweep) EventType() string { return TypeTreasurySweep }

// Event renders the sweep.
func (e TreasurySweep) Event() *Record {
	return &Record{Type: TypeTreasurySweep, Attributes: map[string]string{
		"id":        e.ID,
		"trigger":   e.Trigger,
		"amountBch": formatAmount(e.AmountBCH, 4),
		"hotAfter":  formatAmount(e.HotAfter, 4),
		"coldAfter": formatAmount(e.ColdAfter, 4),
	}}
}

// RateSync records an exchange-rate refresh.
type RateSync struct {
	Previous float64
	Rate     float64
	At       time.Time
}

func (RateSync) EventType() string { return TypeRateSync }

// Event renders the rate refresh.
func (e RateSync) Event() *Record {
	attrs := map[string]string{
		"previous": formatAmount(e.Previous, 2),
		"rate":     formatAmount(e.Rate, 2),
	}
	setIfPresent(attrs, "at", formatTime(e.At))
	return &Record{Type: TypeRateSync, Attributes: attrs}
}

const (
	// CatalogActionCreate marks a newly created product.
	CatalogActionCreate = "create"
	// CatalogActionUpdate marks an edited product.
	CatalogActionUpdate = "update"
	// CatalogActionDelete marks a removed product.
	CatalogActionDelete = "delete"
)

// CatalogChange records a product mutation.
type CatalogChange struct {
	ProductID string
	Action    string
}

func (CatalogChange) EventType() string { return TypeCatalogChange }

// Event renders the product mutation.
func (e CatalogChange) Event() *Record {
	return &Record{Type: TypeCatalogChange, Attributes: map[string]string{
		"productId": e.ProductID,
		"action":    e.Action,
	}}
}

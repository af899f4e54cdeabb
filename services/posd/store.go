// Package posd runs the NexusCash register: catalog, cart, checkout lifecycle,
// sales ledger and treasury are owned by one Store and mutated under a single
// lock, including from timer callbacks.
package posd

import (
	"log/slog"
	"sync"
	"time"

	"nexuscash/config"
	"nexuscash/core/events"
	"nexuscash/core/money"
	"nexuscash/core/random"
	"nexuscash/core/timer"
	"nexuscash/native/cart"
	"nexuscash/native/catalog"
	"nexuscash/native/checkout"
	"nexuscash/native/rate"
	"nexuscash/native/sales"
	"nexuscash/native/treasury"
	"nexuscash/observability"
	"nexuscash/observability/logging"
)

// UnknownCustomer is recorded when checkout starts without a customer wallet.
const UnknownCustomer = "bitcoincash:qunknown"

// Settings tunes the register.
type Settings struct {
	MerchantAddress    string
	CustomerWallet     string
	Expiry             time.Duration
	BroadcastDelay     time.Duration
	ConfirmBaseDelay   time.Duration
	ConfirmJitter      time.Duration
	ConfirmProbability float64
	InitialRate        float64
	Treasury           treasury.Config
}

// DefaultSettings returns the demo register settings.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// SettingsFromConfig maps a loaded daemon configuration onto register settings.
func SettingsFromConfig(cfg config.Config) Settings {
	cold := config.DefaultColdWallet
	if cfg.Treasury.ColdWallet != nil {
		cold = *cfg.Treasury.ColdWallet
	}
	return Settings{
		MerchantAddress:    cfg.MerchantAddress,
		CustomerWallet:     cfg.CustomerWallet,
		Expiry:             cfg.Checkout.Expiry.Duration,
		BroadcastDelay:     cfg.Checkout.BroadcastDelay.Duration,
		ConfirmBaseDelay:   cfg.Checkout.ConfirmBaseDelay.Duration,
		ConfirmJitter:      cfg.Checkout.ConfirmJitter.Duration,
		ConfirmProbability: cfg.Checkout.Probability(),
		InitialRate:        cfg.Rate.Initial,
		Treasury: treasury.Config{
			HotWalletBCH:      cfg.Treasury.HotWallet,
			ColdWalletBCH:     cold,
			SweepThresholdBCH: cfg.Treasury.SweepThreshold,
			AutoMint:          cfg.Treasury.AutoMintEnabled(),
			AutoSweep:         cfg.Treasury.AutoSweep,
		},
	}
}

// Update is pushed to subscribers whenever the checkout session changes. A
// nil Session means the session was cleared.
type Update struct {
	Session *checkout.Session `json:"session"`
}

// sessionTimers holds the pending callbacks of the active session.
type sessionTimers struct {
	expiry    timer.Handle
	broadcast timer.Handle
	settle    timer.Handle
}

func (t *sessionTimers) stopExpiry() {
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
}

func (t *sessionTimers) stop() {
	t.stopExpiry()
	if t.broadcast != nil {
		t.broadcast.Stop()
		t.broadcast = nil
	}
	if t.settle != nil {
		t.settle.Stop()
		t.settle = nil
	}
}

// Store owns the register state.
type Store struct {
	settings Settings
	sched    timer.Scheduler
	rand     random.Source
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *observability.POSMetrics

	seedProducts []catalog.Product
	seedHistory  []sales.Transaction
	seeded       bool

	mu         sync.Mutex
	rates      *rate.Engine
	catalog    *catalog.Catalog
	cart       *cart.Cart
	ledger     *sales.Ledger
	treasury   *treasury.Treasury
	session    *checkout.Session
	generation uint64
	timers     sessionTimers

	subMu       sync.Mutex
	nextSub     int
	subscribers map[int]chan Update
}

// Option customises the store.
type Option func(*Store)

// WithSettings overrides the register settings.
func WithSettings(settings Settings) Option {
	return func(s *Store) { s.settings = settings }
}

// WithScheduler supplies the clock and timer source.
func WithScheduler(sched timer.Scheduler) Option {
	return func(s *Store) { s.sched = sched }
}

// WithRandom supplies the randomness used for drift, outcomes and ids.
func WithRandom(src random.Source) Option {
	return func(s *Store) { s.rand = src }
}

// WithEmitter routes domain events to e.
func WithEmitter(e events.Emitter) Option {
	return func(s *Store) { s.emitter = e }
}

// WithLogger overrides the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics overrides the metrics registry.
func WithMetrics(m *observability.POSMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithSeed replaces the demo catalog and transaction history.
func WithSeed(products []catalog.Product, history []sales.Transaction) Option {
	return func(s *Store) {
		s.seedProducts = products
		s.seedHistory = history
		s.seeded = true
	}
}

// NewStore builds a register populated with the demo catalog and history
// unless WithSeed supplies other data.
func NewStore(opts ...Option) *Store {
	s := &Store{
		settings:    DefaultSettings(),
		emitter:     events.NoopEmitter{},
		subscribers: make(map[int]chan Update),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.sched = timer.NewWall()
	}
	if s.rand == nil {
		s.rand = random.NewSource(0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observability.POS()
	}
	if !s.seeded {
		s.seedProducts = catalog.SeedProducts()
		s.seedHistory = sales.SeedTransactions(s.sched.Now())
	}
	s.rates = rate.NewEngine(s.settings.InitialRate, rate.WithClock(s.sched.Now), rate.WithRandom(s.rand))
	s.catalog = catalog.New(s.seedProducts, s.rates.Rate())
	s.cart = cart.New(s.settings.CustomerWallet)
	s.ledger = sales.NewLedger(s.seedHistory)
	s.treasury = treasury.New(s.settings.Treasury, treasury.WithClock(s.sched.Now), treasury.WithRandom(s.rand))
	s.seedProducts, s.seedHistory = nil, nil

	s.metrics.SetExchangeRate(s.rates.Rate())
	s.observeTreasuryLocked()
	return s
}

func (s *Store) emit(evt events.Event) {
	if s.emitter != nil {
		s.emitter.Emit(evt)
	}
}

func (s *Store) reject(op string, err error, attrs ...any) error {
	s.metrics.RecordRejection(op)
	s.logger.Debug("operation rejected", append([]any{"op", op, "error", err}, attrs...)...)
	return err
}

func (s *Store) observeTreasuryLocked() {
	s.metrics.SetTreasury(s.treasury.HotWallet(), s.treasury.ColdWallet(), s.treasury.Available(s.ledger.TokensGiven()))
}

// Products lists the catalog, newest first.
func (s *Store) Products() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.List()
}

// CreateProduct validates and adds a product.
func (s *Store) CreateProduct(in catalog.Input) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, err := s.catalog.Create(in, s.rates.Rate())
	if err != nil {
		return catalog.Product{}, s.reject("create_product", err)
	}
	s.logger.Info("product created", "productId", product.ID, "sku", product.SKU)
	s.emit(events.CatalogChange{ProductID: product.ID, Action: events.CatalogActionCreate})
	return product, nil
}

// UpdateProduct applies patch and clamps the matching cart line to the new
// stock.
func (s *Store) UpdateProduct(id string, patch catalog.Patch) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, err := s.catalog.Update(id, patch, s.rates.Rate())
	if err != nil {
		return catalog.Product{}, s.reject("update_product", err, "productId", id)
	}
	s.cart.Reconcile(product)
	s.logger.Info("product updated", "productId", product.ID, "stock", product.Stock)
	s.emit(events.CatalogChange{ProductID: product.ID, Action: events.CatalogActionUpdate})
	return product, nil
}

// DeleteProduct removes a product from the catalog, the cart and the active
// session's order lines. The session itself is left running.
func (s *Store) DeleteProduct(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.catalog.Delete(id); err != nil {
		return s.reject("delete_product", err, "productId", id)
	}
	s.cart.Remove(id)
	if s.session != nil {
		next := checkout.DropProduct(*s.session, id)
		s.session = &next
		s.publishLocked()
	}
	s.logger.Info("product deleted", "productId", id)
	s.emit(events.CatalogChange{ProductID: id, Action: events.CatalogActionDelete})
	return nil
}

// Rate returns the current exchange-rate quote.
func (s *Store) Rate() rate.Quote {
	return s.rates.Quote()
}

// SyncRate applies a random drift to the exchange rate and reprices the
// catalog.
func (s *Store) SyncRate() rate.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, next := s.rates.Sync()
	s.catalog.Reprice(next)
	quote := s.rates.Quote()
	s.metrics.SetExchangeRate(next)
	s.logger.Info("exchange rate synced", "previous", previous, "rate", next)
	s.emit(events.RateSync{Previous: previous, Rate: next, At: quote.SyncedAt})
	return quote
}

// SetRate pins the exchange rate to value, rounded to cents, and reprices the
// catalog. The band enforced by SyncRate does not apply to a pinned rate.
func (s *Store) SetRate(value float64) (rate.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.rates.Rate()
	if err := s.rates.Set(value); err != nil {
		return s.rates.Quote(), s.reject("set_rate", err, "rate", value)
	}
	quote := s.rates.Quote()
	s.catalog.Reprice(quote.Rate)
	s.metrics.SetExchangeRate(quote.Rate)
	s.logger.Info("exchange rate pinned", "previous", previous, "rate", quote.Rate)
	s.emit(events.RateSync{Previous: previous, Rate: quote.Rate, At: quote.SyncedAt})
	return quote, nil
}

// Cart prices the cart at the current rate.
func (s *Store) Cart() cart.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.View(s.catalog, s.rates.Rate())
}

// AddToCart adds one unit of the product.
func (s *Store) AddToCart(productID string) (cart.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.Add(productID, s.catalog); err != nil {
		return s.cart.View(s.catalog, s.rates.Rate()), s.reject("add_to_cart", err, "productId", productID)
	}
	return s.cart.View(s.catalog, s.rates.Rate()), nil
}

// SetCartQuantity sets a line's quantity, clamped to stock; zero removes it.
func (s *Store) SetCartQuantity(productID string, qty int) cart.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetQuantity(productID, qty, s.catalog)
	return s.cart.View(s.catalog, s.rates.Rate())
}

// ClearCart empties the cart.
func (s *Store) ClearCart() cart.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	return s.cart.View(s.catalog, s.rates.Rate())
}

// SetCustomerWallet records the wallet of the customer at the register.
func (s *Store) SetCustomerWallet(wallet string) cart.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetCustomer(wallet)
	return s.cart.View(s.catalog, s.rates.Rate())
}

// Transactions lists the ledger filtered by f, newest first.
func (s *Store) Transactions(f sales.Filter) []sales.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Apply(s.ledger.List())
}

// Transaction looks up a single transaction.
func (s *Store) Transaction(id string) (sales.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(id)
}

// DashboardRecent is the number of transactions shown on the dashboard.
const DashboardRecent = 5

// DashboardView is the dashboard read model.
type DashboardView struct {
	Metrics  sales.Metrics       `json:"metrics"`
	Treasury treasury.Snapshot   `json:"treasury"`
	Rate     float64             `json:"rate"`
	Recent   []sales.Transaction `json:"recent"`
	Display  DashboardDisplay    `json:"display"`
}

// DashboardDisplay carries the headline figures formatted for the UI.
type DashboardDisplay struct {
	TotalBCH      string `json:"totalBch"`
	TotalUSD      string `json:"totalUsd"`
	HotWalletBCH  string `json:"hotWalletBch"`
	ColdWalletBCH string `json:"coldWalletBch"`
	Rate          string `json:"rate"`
}

// DashboardView captures metrics, treasury, rate and the newest transactions
// in one consistent snapshot.
func (s *Store) DashboardView() DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.ledger.List()
	recent := sales.Filter{}.Apply(txs)
	if len(recent) > DashboardRecent {
		recent = recent[:DashboardRecent]
	}
	current := s.rates.Rate()
	metrics := sales.ComputeMetrics(txs)
	snapshot := s.treasury.Snapshot(s.ledger.TokensGiven())
	return DashboardView{
		Metrics:  metrics,
		Treasury: snapshot,
		Rate:     current,
		Recent:   recent,
		Display: DashboardDisplay{
			TotalBCH:      money.FormatBCH(metrics.TotalBCH),
			TotalUSD:      money.FormatUSD(metrics.TotalBCH * current),
			HotWalletBCH:  money.FormatBCH(snapshot.HotWalletBCH),
			ColdWalletBCH: money.FormatBCH(snapshot.ColdWalletBCH),
			Rate:          money.FormatUSD(current),
		},
	}
}

func maskedCustomer(wallet string) slog.Attr {
	return logging.MaskWallet("customer", wallet)
}

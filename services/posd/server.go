package posd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nexuscash/gateway/middleware"
	"nexuscash/integrations/exports"
	"nexuscash/native/cart"
	"nexuscash/native/catalog"
	"nexuscash/native/checkout"
	"nexuscash/native/rate"
	"nexuscash/native/sales"
	"nexuscash/native/treasury"
)

const maxBodyBytes = 1 << 16

// Server exposes the register over HTTP.
type Server struct {
	store   *Store
	auth    *Auth
	logger  *slog.Logger
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
	cors    middleware.CORSConfig
	metrics http.Handler
	now     func() time.Time
}

// ServerOption customises the HTTP server.
type ServerOption func(*Server)

// WithRateLimiter throttles every /v1 route group.
func WithRateLimiter(l *middleware.RateLimiter) ServerOption {
	return func(s *Server) { s.limiter = l }
}

// WithObservability records request metrics and spans.
func WithObservability(o *middleware.Observability) ServerOption {
	return func(s *Server) { s.obs = o }
}

// WithCORS overrides the cross-origin policy.
func WithCORS(cfg middleware.CORSConfig) ServerOption {
	return func(s *Server) { s.cors = cfg }
}

// WithMetricsHandler overrides the /metrics handler.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// WithServerLogger overrides the request logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithServerClock sets the clock used to stamp export filenames.
func WithServerClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer wires the store and login session into an HTTP API.
func NewServer(store *Store, auth *Auth, opts ...ServerOption) *Server {
	s := &Server{store: store, auth: auth, logger: slog.Default(), metrics: promhttp.Handler(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(s.cors))
	var root chi.Router = r
	if s.obs != nil {
		root = r.With(s.obs.Middleware("root"))
	}
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Handle("/metrics", s.metrics)

	r.Route("/v1", func(v1 chi.Router) {
		s.group(v1, "products", func(g chi.Router) {
			g.Get("/products", s.handleListProducts)
			g.Post("/products", s.handleCreateProduct)
			g.Patch("/products/{id}", s.handleUpdateProduct)
			g.Delete("/products/{id}", s.handleDeleteProduct)
		})
		s.group(v1, "rate", func(g chi.Router) {
			g.Get("/rate", s.handleRate)
			g.Put("/rate", s.handleSetRate)
			g.Post("/rate/sync", s.handleSyncRate)
		})
		s.group(v1, "cart", func(g chi.Router) {
			g.Get("/cart", s.handleCart)
			g.Post("/cart/items", s.handleAddToCart)
			g.Put("/cart/items/{id}", s.handleSetQuantity)
			g.Delete("/cart", s.handleClearCart)
			g.Put("/cart/customer", s.handleSetCustomer)
		})
		s.group(v1, "checkout", func(g chi.Router) {
			g.Get("/checkout", s.handleSession)
			g.Post("/checkout", s.handleStartCheckout)
			g.Delete("/checkout", s.handleClearSession)
			g.Post("/checkout/pay", s.handleSubmitPayment)
			g.Get("/checkout/stream", s.handleStream)
		})
		s.group(v1, "transactions", func(g chi.Router) {
			g.Get("/transactions", s.handleTransactions)
			g.Get("/transactions/export", s.handleExport)
		})
		s.group(v1, "treasury", func(g chi.Router) {
			g.Get("/treasury", s.handleTreasury)
			g.Put("/treasury/settings", s.handleTreasurySettings)
			g.Post("/treasury/sweep", s.handleSweep)
			g.Post("/treasury/burn", s.handleBurn)
			g.Post("/treasury/mint/{txId}", s.handleMint)
			g.Get("/treasury/sweeps", s.handleSweeps)
			g.Get("/treasury/pending-mints", s.handlePendingMints)
		})
		s.group(v1, "dashboard", func(g chi.Router) {
			g.Get("/dashboard", s.handleDashboard)
		})
		s.group(v1, "auth", func(g chi.Router) {
			g.Get("/auth", s.handleAuthSession)
			g.Delete("/auth", s.handleLogout)
			g.Post("/auth/google", s.handleConnectGoogle)
			g.Post("/auth/wallet", s.handleConnectWallet)
			g.Post("/auth/demo", s.handleDemoLogin)
		})
	})
	return r
}

func (s *Server) group(r chi.Router, name string, routes func(chi.Router)) {
	r.Group(func(g chi.Router) {
		if s.limiter != nil {
			g.Use(s.limiter.Middleware("api"))
		}
		if s.obs != nil {
			g.Use(s.obs.Middleware(name))
		}
		routes(g)
	})
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Products())
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.Input
	if !s.decode(w, r, &in) {
		return
	}
	product, err := s.store.CreateProduct(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch catalog.Patch
	if !s.decode(w, r, &patch) {
		return
	}
	product, err := s.store.UpdateProduct(chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProduct(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Rate())
}

type setRateRequest struct {
	Rate float64 `json:"rate"`
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	var req setRateRequest
	if !s.decode(w, r, &req) {
		return
	}
	quote, err := s.store.SetRate(req.Rate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleSyncRate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.SyncRate())
}

func (s *Server) handleCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Cart())
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !s.decode(w, r, &req) {
		return
	}
	summary, err := s.store.AddToCart(req.ProductID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.SetCartQuantity(chi.URLParam(r, "id"), req.Quantity))
}

func (s *Server) handleClearCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ClearCart())
}

type customerRequest struct {
	Wallet string `json:"wallet"`
}

func (s *Server) handleSetCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.SetCustomerWallet(req.Wallet))
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	session, ok := s.store.Session()
	if !ok {
		writeJSON(w, http.StatusOK, Update{})
		return
	}
	writeJSON(w, http.StatusOK, Update{Session: &session})
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, _ *http.Request) {
	session, err := s.store.StartCheckout()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleClearSession(w http.ResponseWriter, _ *http.Request) {
	s.store.ClearCheckoutSession()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, _ *http.Request) {
	session, err := s.store.SubmitPayment()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session)
}

func filterFromQuery(r *http.Request) sales.Filter {
	q := r.URL.Query()
	status := strings.ToLower(strings.TrimSpace(q.Get("status")))
	if status == "all" {
		status = ""
	}
	return sales.Filter{
		Status: sales.Status(status),
		Query:  q.Get("q"),
		Date:   strings.TrimSpace(q.Get("date")),
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Transactions(filterFromQuery(r)))
}

type exporter struct {
	ext         string
	contentType string
	encode      func([]sales.Transaction) ([]byte, string, error)
}

var exporters = map[string]exporter{
	"csv":     {ext: "csv", contentType: "text/csv; charset=utf-8", encode: exports.TransactionsCSV},
	"jsonl":   {ext: "jsonl", contentType: "application/x-ndjson", encode: exports.TransactionsJSONL},
	"parquet": {ext: "parquet", contentType: "application/vnd.apache.parquet", encode: exports.TransactionsParquet},
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	exp, ok := exporters[format]
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}
	payload, checksum, err := exp.encode(s.store.Transactions(filterFromQuery(r)))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", exp.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exports.Filename(s.now(), exp.ext)))
	w.Header().Set("X-Checksum-SHA256", checksum)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleTreasury(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Treasury())
}

func (s *Server) handleTreasurySettings(w http.ResponseWriter, r *http.Request) {
	var req TreasurySettings
	if !s.decode(w, r, &req) {
		return
	}
	snapshot, err := s.store.UpdateTreasurySettings(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type amountRequest struct {
	Amount *float64 `json:"amount"`
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	evt, err := s.store.SweepToColdWallet(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

type burnResponse struct {
	Burned   int64             `json:"burned"`
	Treasury treasury.Snapshot `json:"treasury"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Amount == nil {
		s.writeError(w, treasury.ErrInvalidAmount)
		return
	}
	burned, err := s.store.BurnTokens(*req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, burnResponse{Burned: burned, Treasury: s.store.Treasury()})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.MintPendingReward(chi.URLParam(r, "txId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleSweeps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Sweeps())
}

func (s *Server) handlePendingMints(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.PendingMints())
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.DashboardView())
}

func (s *Server) handleAuthSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.Session())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type googleRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleConnectGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, err := s.auth.ConnectGoogle(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type walletRequest struct {
	Wallet string `json:"wallet"`
}

func (s *Server) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, err := s.auth.ConnectWallet(r.Context(), req.Wallet)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDemoLogin(w http.ResponseWriter, r *http.Request) {
	session, err := s.auth.QuickDemoLogin(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, rate.ErrInvalidRate),
		errors.Is(err, treasury.ErrInvalidAmount),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidWallet):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, sales.ErrTransactionNotFound),
		errors.Is(err, checkout.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrStockExceeded),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrSessionNotAwaiting),
		errors.Is(err, checkout.ErrSessionMismatch),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, treasury.ErrReserveViolation),
		errors.Is(err, treasury.ErrBurnExceedsAvailable),
		errors.Is(err, treasury.ErrNotConfirmed),
		errors.Is(err, treasury.ErrAlreadyMinted),
		errors.Is(err, treasury.ErrSupplyDepleted),
		errors.Is(err, exports.ErrNoTransactions):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeErrorMessage(w, status, err.Error())
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

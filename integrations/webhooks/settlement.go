// Package webhooks pushes signed settlement notifications to a merchant
// endpoint.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nexuscash/core/events"
)

// EventType represents the logical webhook topic.
type EventType string

const (
	// EventCheckoutSettled is sent when a checkout reaches confirmed, failed
	// or expired.
	EventCheckoutSettled EventType = "checkout.settled"
	// EventTreasurySwept is sent after hot wallet funds move to cold storage.
	EventTreasurySwept EventType = "treasury.swept"

	// Header names carried on every delivery.
	HeaderEvent     = "X-NexusCash-Event"
	HeaderSignature = "X-NexusCash-Signature"
	HeaderDelivery  = "X-NexusCash-Delivery"

	defaultMaxAttempts = 5
	defaultMinBackoff  = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
	defaultQueue       = 32
)

var (
	// ErrQueueFull is returned when the delivery backlog is saturated.
	ErrQueueFull = errors.New("webhook: delivery queue full")
	// ErrClosed is returned once the dispatcher has been closed.
	ErrClosed = errors.New("webhook: dispatcher closed")
)

// SettlementPayload describes a finished checkout.
type SettlementPayload struct {
	Type       EventType `json:"type"`
	TxID       string    `json:"txId"`
	Status     string    `json:"status"`
	AmountUSD  float64   `json:"amountUsd"`
	AmountBCH  float64   `json:"amountBch"`
	Tokens     int64     `json:"tokens,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	SettledAt  time.Time `json:"settledAt"`
	DeliveryID string    `json:"deliveryId"`
}

// SweepPayload describes a treasury sweep.
type SweepPayload struct {
	Type       EventType `json:"type"`
	SweepID    string    `json:"sweepId"`
	Trigger    string    `json:"trigger"`
	AmountBCH  float64   `json:"amountBch"`
	HotAfter   float64   `json:"hotAfter"`
	ColdAfter  float64   `json:"coldAfter"`
	SweptAt    time.Time `json:"sweptAt"`
	DeliveryID string    `json:"deliveryId"`
}

// Dispatcher delivers webhook payloads with retry and exponential backoff.
// It satisfies events.Emitter so it can sit next to the other event sinks.
type Dispatcher struct {
	endpoint    string
	secret      []byte
	client      *http.Client
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan delivery
	wg     sync.WaitGroup
}

type delivery struct {
	id        string
	eventType EventType
	body      []byte
}

// Option mutates dispatcher configuration.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithRetryPolicy overrides the retry configuration.
func WithRetryPolicy(maxAttempts int, minBackoff, maxBackoff time.Duration) Option {
	return func(d *Dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			d.minBackoff = minBackoff
		}
		if maxBackoff >= minBackoff && maxBackoff > 0 {
			d.maxBackoff = maxBackoff
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher constructs a dispatcher and spawns the worker goroutine.
func NewDispatcher(endpoint string, secret []byte, opts ...Option) (*Dispatcher, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("webhook: endpoint required")
	}
	if len(secret) == 0 {
		return nil, errors.New("webhook: secret required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := &Dispatcher{
		endpoint:    endpoint,
		secret:      append([]byte(nil), secret...),
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      slog.Default(),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan delivery, defaultQueue),
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	dispatcher.wg.Add(1)
	go dispatcher.worker()
	return dispatcher, nil
}

// Close stops the dispatcher and waits for the inflight delivery to finish.
// Queued deliveries that have not started are dropped.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// Emit implements events.Emitter. Only terminal checkout transitions and
// sweeps are forwarded. It never blocks: a saturated queue drops the
// notification and logs it.
func (d *Dispatcher) Emit(evt events.Event) {
	var err error
	switch e := evt.(type) {
	case events.CheckoutStatus:
		if !terminal(e.Status) {
			return
		}
		err = d.EnqueueSettlement(SettlementPayload{
			TxID:      e.TxID,
			Status:    e.Status,
			AmountUSD: e.AmountUSD,
			AmountBCH: e.AmountBCH,
			Tokens:    e.Tokens,
			Reason:    e.Reason,
			SettledAt: e.At,
		})
	case events.TreasurySweep:
		err = d.EnqueueSweep(SweepPayload{
			SweepID:   e.ID,
			Trigger:   e.Trigger,
			AmountBCH: e.AmountBCH,
			HotAfter:  e.HotAfter,
			ColdAfter: e.ColdAfter,
		})
	default:
		return
	}
	if err != nil {
		d.logger.Warn("webhook notification dropped", "type", evt.EventType(), "error", err)
	}
}

func terminal(status string) bool {
	switch status {
	case "confirmed", "failed", "expired":
		return true
	}
	return false
}

// EnqueueSettlement queues a settlement notification.
func (d *Dispatcher) EnqueueSettlement(payload SettlementPayload) error {
	payload.Type = EventCheckoutSettled
	if payload.SettledAt.IsZero() {
		payload.SettledAt = d.now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = uuid.NewString()
	}
	return d.enqueue(payload.DeliveryID, payload.Type, payload)
}

// EnqueueSweep queues a sweep notification.
func (d *Dispatcher) EnqueueSweep(payload SweepPayload) error {
	payload.Type = EventTreasurySwept
	if payload.SweptAt.IsZero() {
		payload.SweptAt = d.now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = uuid.NewString()
	}
	return d.enqueue(payload.DeliveryID, payload.Type, payload)
}

func (d *Dispatcher) enqueue(id string, eventType EventType, body any) error {
	if d == nil {
		return errors.New("webhook: dispatcher not initialised")
	}
	if d.ctx.Err() != nil {
		return ErrClosed
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	select {
	case d.queue <- delivery{id: id, eventType: eventType, body: data}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.process(job)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(job delivery) {
	backoff := d.minBackoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(d.ctx, d.client.Timeout)
		err := d.send(ctx, job)
		cancel()
		if err == nil {
			return
		}
		if attempt >= d.maxAttempts {
			d.logger.Warn("webhook delivery abandoned",
				"event", job.eventType,
				"deliveryId", job.id,
				"attempts", attempt,
				"error", err)
			return
		}
		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, d.maxBackoff)
	}
}

func (d *Dispatcher) send(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, string(job.eventType))
	req.Header.Set(HeaderDelivery, job.id)
	req.Header.Set(HeaderSignature, Sign(d.secret, job.body))
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook: delivery failed with status %d", resp.StatusCode)
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
func Verify(secret, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max || next < current {
		return max
	}
	return next
}

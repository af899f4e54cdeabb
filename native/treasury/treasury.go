// Package treasury keeps the loyalty token supply and the merchant's hot and
// cold BCH wallets. Supply figures are derived from the sales ledger on
// demand so they can never drift from the recorded rewards.
package treasury

import (
	"math"
	"strconv"
	"time"

	"nexuscash/core/money"
	"nexuscash/core/random"
)

const (
	// TotalSupply is the fixed loyalty token supply.
	TotalSupply int64 = 100000
	// BaseDistributed is the supply distributed before the register's history.
	BaseDistributed int64 = 44717
	// BaseBurned is the supply burned before the register's history.
	BaseBurned int64 = 20000

	// MinHotReserve is the BCH the hot wallet always keeps back.
	MinHotReserve = 0.2
	// MaxSweepThreshold caps the auto-sweep threshold.
	MaxSweepThreshold = 25.0

	// DefaultHotWallet and DefaultColdWallet are the demo balances.
	DefaultHotWallet  = 0.842
	DefaultColdWallet = 2.4
	// DefaultSweepThreshold is the auto-sweep trigger balance.
	DefaultSweepThreshold = 1.0

	// sweepLogSize bounds the retained sweep history.
	sweepLogSize = 30
)

// Trigger identifies what initiated a sweep.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// SweepEvent is one hot to cold transfer.
type SweepEvent struct {
	ID                 string    `json:"id"`
	Trigger            Trigger   `json:"trigger"`
	AmountBCH          float64   `json:"amountBch"`
	CreatedAt          time.Time `json:"createdAt"`
	HotWalletAfterBCH  float64   `json:"hotWalletAfterBch"`
	ColdWalletAfterBCH float64   `json:"coldWalletAfterBch"`
}

// Config seeds the ledger.
type Config struct {
	HotWalletBCH      float64
	ColdWalletBCH     float64
	SweepThresholdBCH float64
	AutoMint          bool
	AutoSweep         bool
}

// DefaultConfig returns the demo treasury: auto-mint on, auto-sweep off.
func DefaultConfig() Config {
	return Config{
		HotWalletBCH:      DefaultHotWallet,
		ColdWalletBCH:     DefaultColdWallet,
		SweepThresholdBCH: DefaultSweepThreshold,
		AutoMint:          true,
	}
}

// Snapshot is the derived treasury view.
type Snapshot struct {
	TotalSupply             int64   `json:"totalSupply"`
	DistributedSupply       int64   `json:"distributedSupply"`
	BurnedSupply            int64   `json:"burnedSupply"`
	AvailableSupply         int64   `json:"availableSupply"`
	HotWalletBCH            float64 `json:"hotWalletBch"`
	ColdWalletBCH           float64 `json:"coldWalletBch"`
	SweepThresholdBCH       float64 `json:"sweepThresholdBch"`
	AutoMintEnabled         bool    `json:"autoMintEnabled"`
	AutoSweepEnabled        bool    `json:"autoSweepEnabled"`
	ProjectedSweepAmountBCH float64 `json:"projectedSweepAmountBch"`
}

// Treasury is the mutable ledger. Not safe for concurrent use.
type Treasury struct {
	additionalBurned int64
	hot              float64
	cold             float64
	threshold        float64
	autoMint         bool
	autoSweep        bool
	sweeps           []SweepEvent

	now  func() time.Time
	rand random.Source
}

// Option customises the ledger.
type Option func(*Treasury)

// WithClock sets the function used to stamp sweep events.
func WithClock(clock func() time.Time) Option {
	return func(t *Treasury) { t.now = clock }
}

// WithRandom sets the source for sweep id suffixes.
func WithRandom(src random.Source) Option {
	return func(t *Treasury) { t.rand = src }
}

// New builds a ledger from cfg.
func New(cfg Config, opts ...Option) *Treasury {
	t := &Treasury{
		hot:       money.RoundBCH(math.Max(cfg.HotWalletBCH, 0)),
		cold:      money.RoundBCH(math.Max(cfg.ColdWalletBCH, 0)),
		threshold: ClampThreshold(cfg.SweepThresholdBCH),
		autoMint:  cfg.AutoMint,
		autoSweep: cfg.AutoSweep,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rand == nil {
		t.rand = random.NewSource(0)
	}
	return t
}

// Supply derives the distributed, burned and available token figures from the
// tokens credited across all transactions.
func Supply(tokensGiven, additionalBurned int64) (distributed, burned, available int64) {
	distributed = min(TotalSupply, max(0, BaseDistributed+tokensGiven))
	burned = min(TotalSupply-distributed, max(0, BaseBurned+additionalBurned))
	available = max(TotalSupply-distributed-burned, 0)
	return distributed, burned, available
}

// Snapshot derives the treasury view.
func (t *Treasury) Snapshot(tokensGiven int64) Snapshot {
	distributed, burned, available := Supply(tokensGiven, t.additionalBurned)
	return Snapshot{
		TotalSupply:             TotalSupply,
		DistributedSupply:       distributed,
		BurnedSupply:            burned,
		AvailableSupply:         available,
		HotWalletBCH:            t.hot,
		ColdWalletBCH:           t.cold,
		SweepThresholdBCH:       t.threshold,
		AutoMintEnabled:         t.autoMint,
		AutoSweepEnabled:        t.autoSweep,
		ProjectedSweepAmountBCH: t.projectedSweep(),
	}
}

// Available returns the unminted, unburned supply.
func (t *Treasury) Available(tokensGiven int64) int64 {
	_, _, available := Supply(tokensGiven, t.additionalBurned)
	return available
}

// AutoMint reports whether settled checkouts mint their reward immediately.
func (t *Treasury) AutoMint() bool { return t.autoMint }

// AutoSweep reports whether settled checkouts may trigger a sweep.
func (t *Treasury) AutoSweep() bool { return t.autoSweep }

// SetAutoMint toggles automatic reward minting.
func (t *Treasury) SetAutoMint(enabled bool) { t.autoMint = enabled }

// SetAutoSweep toggles automatic sweeping.
func (t *Treasury) SetAutoSweep(enabled bool) { t.autoSweep = enabled }

// HotWallet returns the hot wallet balance.
func (t *Treasury) HotWallet() float64 { return t.hot }

// ColdWallet returns the cold wallet balance.
func (t *Treasury) ColdWallet() float64 { return t.cold }

// Sweeps returns the retained sweep log, newest first.
func (t *Treasury) Sweeps() []SweepEvent {
	out := make([]SweepEvent, len(t.sweeps))
	copy(out, t.sweeps)
	return out
}

// ClampThreshold bounds a threshold to [MinHotReserve, MaxSweepThreshold] and
// rounds it to three decimals.
func ClampThreshold(value float64) float64 {
	if !money.Finite(value) {
		value = DefaultSweepThreshold
	}
	return money.Round(money.Clamp(value, MinHotReserve, MaxSweepThreshold), 3)
}

// SetSweepThreshold validates and stores a new threshold, returning the value
// actually applied.
func (t *Treasury) SetSweepThreshold(value float64) (float64, error) {
	if !money.Finite(value) {
		return t.threshold, ErrInvalidAmount
	}
	t.threshold = ClampThreshold(value)
	return t.threshold, nil
}

func (t *Treasury) sweepable() float64 {
	return money.RoundBCH(math.Max(t.hot-MinHotReserve, 0))
}

func (t *Treasury) projectedSweep() float64 {
	if !t.autoSweep || t.hot < t.threshold {
		return 0
	}
	return t.sweepable()
}

// Sweep moves funds from the hot to the cold wallet, never dipping below the
// reserve. A nil amount sweeps everything above the reserve; an explicit
// amount is clamped to what is sweepable.
func (t *Treasury) Sweep(amount *float64) (SweepEvent, error) {
	sweepable := t.sweepable()
	if sweepable <= 0 {
		return SweepEvent{}, ErrReserveViolation
	}
	requested := sweepable
	if amount != nil {
		if !money.Finite(*amount) {
			return SweepEvent{}, ErrInvalidAmount
		}
		requested = money.RoundBCH(math.Max(*amount, 0))
	}
	final := math.Min(requested, sweepable)
	if final <= 0 {
		return SweepEvent{}, ErrInvalidAmount
	}
	return t.move(final, TriggerManual), nil
}

// Credit adds a settled payment to the hot wallet. When auto-sweep is on and
// the new balance meets the threshold, the excess is swept and the resulting
// event returned.
func (t *Treasury) Credit(amountBCH float64) (*SweepEvent, bool) {
	t.hot = money.Add(t.hot, amountBCH, money.BCHPlaces)
	if !t.autoSweep || t.hot < t.threshold {
		return nil, false
	}
	sweepable := t.sweepable()
	if sweepable <= 0 {
		return nil, false
	}
	evt := t.move(sweepable, TriggerAuto)
	return &evt, true
}

func (t *Treasury) move(amount float64, trigger Trigger) SweepEvent {
	t.hot = money.Sub(t.hot, amount, money.BCHPlaces)
	t.cold = money.Add(t.cold, amount, money.BCHPlaces)
	created := t.now()
	evt := SweepEvent{
		ID:                 "SWP-" + strconv.FormatInt(created.UnixMilli(), 10) + "-" + random.Base36(t.rand, 6),
		Trigger:            trigger,
		AmountBCH:          amount,
		CreatedAt:          created,
		HotWalletAfterBCH:  t.hot,
		ColdWalletAfterBCH: t.cold,
	}
	t.sweeps = append([]SweepEvent{evt}, t.sweeps...)
	if len(t.sweeps) > sweepLogSize {
		t.sweeps = t.sweeps[:sweepLogSize]
	}
	return evt
}

// Burn permanently removes whole tokens from the available supply. The
// amount is floored; it must be positive and within what is available.
func (t *Treasury) Burn(amount float64, tokensGiven int64) (int64, error) {
	if !money.Finite(amount) {
		return 0, ErrInvalidAmount
	}
	whole := int64(math.Floor(amount))
	if whole <= 0 {
		return 0, ErrInvalidAmount
	}
	if whole > t.Available(tokensGiven) {
		return 0, ErrBurnExceedsAvailable
	}
	t.additionalBurned += whole
	return whole, nil
}

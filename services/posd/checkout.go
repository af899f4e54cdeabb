package posd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nexuscash/core/events"
	"nexuscash/core/money"
	"nexuscash/core/random"
	"nexuscash/native/checkout"
	"nexuscash/native/sales"
)

const (
	blockHeightBase   int64 = 831200
	blockHeightSpread       = 500
	networkRefLength        = 6
	timeOfDayLayout         = "15:04"
)

// Session returns a copy of the active checkout session.
func (s *Store) Session() (checkout.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return checkout.Session{}, false
	}
	return s.session.Clone(), true
}

// StartCheckout freezes the cart into a pending transaction and opens a
// session awaiting payment. Any previous session is replaced and its timers
// cancelled.
func (s *Store) StartCheckout() (checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := s.cart.View(s.catalog, s.rates.Rate())
	if len(summary.Lines) == 0 {
		return checkout.Session{}, s.reject("start_checkout", checkout.ErrEmptyCart)
	}

	s.timers.stop()
	s.generation++
	gen := s.generation

	now := s.sched.Now()
	txID := s.ledger.NextID()
	customer := strings.TrimSpace(summary.CustomerWallet)
	if customer == "" {
		customer = UnknownCustomer
	}

	items := make([]string, 0, len(summary.Lines))
	lines := make([]checkout.OrderLine, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		items = append(items, sales.ItemLabel(line.Product.Name, line.Quantity))
		lines = append(lines, checkout.OrderLine{
			ProductID:    line.Product.ID,
			Name:         line.Product.Name,
			Quantity:     line.Quantity,
			UnitPriceUSD: line.Product.PriceUSD,
		})
	}

	s.ledger.Record(sales.Transaction{
		ID:        txID,
		Customer:  customer,
		Items:     items,
		AmountBCH: summary.TotalBCH,
		AmountUSD: summary.TotalUSD,
		Status:    sales.StatusPending,
		Date:      now.Format(sales.DateLayout),
		Time:      now.Format(timeOfDayLayout),
		Source:    sales.SourceLive,
	})

	session := checkout.New(checkout.Params{
		TxID:           txID,
		Customer:       customer,
		AmountUSD:      summary.TotalUSD,
		AmountBCH:      summary.TotalBCH,
		PaymentAddress: s.settings.MerchantAddress,
		TokenReward:    sales.RewardFor(summary.TotalUSD),
		ReceiptID:      sales.ReceiptID(txID),
		OrderLines:     lines,
		CreatedAt:      now,
		TTL:            s.settings.Expiry,
	})
	s.session = &session
	s.cart.Clear()
	s.armExpiryLocked(gen, txID, session.ExpiresAt)

	s.metrics.RecordCheckoutStarted()
	s.logger.Info("checkout started",
		"txid", txID,
		"total", money.FormatUSD(session.AmountUSD),
		"amountBch", money.FormatBCH(session.AmountBCH),
		maskedCustomer(customer))
	s.emitStatusLocked(session)
	s.publishLocked()
	return session.Clone(), nil
}

// SubmitPayment records the customer's payment against the active session
// and schedules broadcast and settlement. A session past its deadline is
// expired instead.
func (s *Store) SubmitPayment() (checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return checkout.Session{}, s.reject("submit_payment", checkout.ErrNoActiveSession)
	}
	current := *s.session
	now := s.sched.Now()
	ref := fmt.Sprintf("mempool-%s-%s", strings.ToLower(current.TxID), random.Base36(s.rand, networkRefLength))
	next, err := checkout.Submit(current, current.TxID, now, ref)
	if err != nil {
		return current.Clone(), s.reject("submit_payment", err, "txid", current.TxID, "status", current.Status)
	}

	if next.Status == checkout.StatusExpired {
		s.failTransactionLocked(next.TxID)
		s.finishLocked(next, now)
		return next.Clone(), nil
	}

	s.timers.stopExpiry()
	s.session = &next
	gen := s.generation
	txID := next.TxID
	s.timers.broadcast = s.sched.AfterFunc(s.settings.BroadcastDelay, func() {
		_ = s.broadcast(gen, txID)
	})
	jitter := time.Duration(s.rand.Float64() * float64(s.settings.ConfirmJitter))
	settleIn := s.settings.BroadcastDelay + s.settings.ConfirmBaseDelay + jitter
	s.timers.settle = s.sched.AfterFunc(settleIn, func() {
		_ = s.settle(gen, txID)
	})

	s.logger.Info("payment submitted", "txid", txID, "networkRef", ref, "settleIn", settleIn.String())
	s.emitStatusLocked(next)
	s.publishLocked()
	return next.Clone(), nil
}

// ClearCheckoutSession discards the active session and cancels its timers.
// The transaction it created is left as is.
func (s *Store) ClearCheckoutSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers.stop()
	s.generation++
	if s.session == nil {
		return false
	}
	s.logger.Info("checkout session cleared", "txid", s.session.TxID, "status", s.session.Status)
	s.session = nil
	s.publishLocked()
	return true
}

// current validates that a timer callback still targets the live session.
func (s *Store) current(gen uint64, txID string) (checkout.Session, error) {
	if s.session == nil {
		return checkout.Session{}, checkout.ErrNoActiveSession
	}
	if s.generation != gen || s.session.TxID != txID {
		return checkout.Session{}, checkout.ErrSessionMismatch
	}
	return *s.session, nil
}

func (s *Store) armExpiryLocked(gen uint64, txID string, at time.Time) {
	delay := at.Sub(s.sched.Now())
	if delay < 0 {
		delay = 0
	}
	s.timers.expiry = s.sched.AfterFunc(delay, func() {
		_ = s.expire(gen, txID)
	})
}

func (s *Store) expire(gen uint64, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.current(gen, txID)
	if err != nil {
		return s.stale("expire", txID, err)
	}
	now := s.sched.Now()
	next, err := checkout.Expire(current, txID, now)
	if errors.Is(err, checkout.ErrNotExpired) {
		s.timers.stopExpiry()
		s.armExpiryLocked(gen, txID, current.ExpiresAt)
		return err
	}
	if err != nil {
		return s.stale("expire", txID, err)
	}
	s.timers.expiry = nil
	s.failTransactionLocked(txID)
	s.finishLocked(next, now)
	return nil
}

func (s *Store) broadcast(gen uint64, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.current(gen, txID)
	if err != nil {
		return s.stale("broadcast", txID, err)
	}
	s.timers.broadcast = nil
	next, err := checkout.Broadcasted(current, txID)
	if err != nil {
		return s.stale("broadcast", txID, err)
	}
	s.session = &next
	s.logger.Info("payment broadcast", "txid", txID, "networkRef", next.NetworkRef)
	s.emitStatusLocked(next)
	s.publishLocked()
	return nil
}

func (s *Store) settle(gen uint64, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.current(gen, txID)
	if err != nil {
		return s.stale("settle", txID, err)
	}
	s.timers.settle = nil
	if current.Status != checkout.StatusBroadcasting && current.Status != checkout.StatusConfirming {
		return s.stale("settle", txID, checkout.ErrInvalidTransition)
	}
	now := s.sched.Now()
	switch checkout.Outcome(current, now, s.rand.Float64(), s.settings.ConfirmProbability) {
	case checkout.StatusConfirmed:
		return s.confirmLocked(current, now)
	case checkout.StatusExpired:
		return s.failLocked(current, now, checkout.StatusExpired, checkout.ReasonWindowExpired)
	default:
		return s.failLocked(current, now, checkout.StatusFailed, checkout.ReasonNetworkTimeout)
	}
}

func (s *Store) confirmLocked(current checkout.Session, now time.Time) error {
	var minted int64
	var note string
	if s.treasury.AutoMint() {
		minted = min(current.RequestedTokenReward, s.treasury.Available(s.ledger.TokensGiven()))
		if minted <= 0 {
			minted = 0
			note = checkout.NoteSupplyDepleted
		}
	} else {
		note = checkout.NoteAutoMintOff
	}

	next, err := checkout.Confirm(current, current.TxID, now, minted, note)
	if err != nil {
		return s.stale("settle", current.TxID, err)
	}

	height := blockHeightBase + int64(s.rand.IntN(blockHeightSpread))
	_, err = s.ledger.Settle(current.TxID, func(tx *sales.Transaction) {
		tx.Status = sales.StatusConfirmed
		tx.NFTMinted = minted > 0
		tx.TokensGiven = minted
		tx.BlockHeight = &height
		if minted > 0 {
			tx.ReceiptID = current.ReceiptID
		} else {
			tx.ReceiptID = ""
		}
	})
	switch {
	case err == nil:
		for _, line := range current.OrderLines {
			s.catalog.DecrementStock(line.ProductID, line.Quantity)
			if product, ok := s.catalog.Get(line.ProductID); ok {
				s.cart.Reconcile(product)
			}
		}
		if minted > 0 {
			s.metrics.RecordTokens("mint", minted)
			s.emit(events.TokenSupply{
				Token:     "NCASH",
				Available: s.treasury.Available(s.ledger.TokensGiven()),
				Delta:     -minted,
				Reason:    events.SupplyReasonMint,
				TxID:      current.TxID,
			})
		}
		if sweep, ok := s.treasury.Credit(current.AmountBCH); ok {
			s.metrics.RecordSweep(string(sweep.Trigger), sweep.AmountBCH)
			s.logger.Info("treasury auto sweep", "id", sweep.ID, "amountBch", sweep.AmountBCH)
			s.emit(events.TreasurySweep{
				ID:        sweep.ID,
				Trigger:   string(sweep.Trigger),
				AmountBCH: sweep.AmountBCH,
				HotAfter:  sweep.HotWalletAfterBCH,
				ColdAfter: sweep.ColdWalletAfterBCH,
			})
		}
		s.observeTreasuryLocked()
	case errors.Is(err, sales.ErrAlreadySettled), errors.Is(err, sales.ErrTransactionNotFound):
		s.logger.Warn("transaction missing or already settled", "txid", current.TxID, "error", err)
	}

	s.finishLocked(next, now)
	return nil
}

func (s *Store) failLocked(current checkout.Session, now time.Time, status checkout.Status, reason string) error {
	next, err := checkout.Fail(current, current.TxID, status, reason)
	if err != nil {
		return s.stale("settle", current.TxID, err)
	}
	s.failTransactionLocked(current.TxID)
	s.finishLocked(next, now)
	return nil
}

func (s *Store) failTransactionLocked(txID string) {
	_, err := s.ledger.Settle(txID, func(tx *sales.Transaction) {
		tx.Status = sales.StatusFailed
		tx.TokensGiven = 0
		tx.NFTMinted = false
		tx.BlockHeight = nil
	})
	if err != nil {
		s.logger.Warn("transaction missing or already settled", "txid", txID, "error", err)
	}
}

// finishLocked installs a terminal session and records the outcome.
func (s *Store) finishLocked(next checkout.Session, now time.Time) {
	s.timers.stop()
	s.session = &next
	var sincePaid time.Duration
	if next.PaidAt != nil {
		sincePaid = now.Sub(*next.PaidAt)
	}
	s.metrics.RecordSettlement(string(next.Status), sincePaid)
	s.logger.Info("checkout settled",
		"txid", next.TxID,
		"status", next.Status,
		"amountBch", money.FormatBCH(next.AmountBCH),
		"tokens", next.TokenReward,
		"reason", next.FailureReason)
	s.emitStatusLocked(next)
	s.publishLocked()
}

func (s *Store) stale(op, txID string, err error) error {
	s.logger.Debug("checkout callback ignored", "op", op, "txid", txID, "error", err)
	return err
}

func (s *Store) emitStatusLocked(session checkout.Session) {
	evt := events.CheckoutStatus{
		TxID:      session.TxID,
		Status:    string(session.Status),
		AmountUSD: session.AmountUSD,
		AmountBCH: session.AmountBCH,
		Reason:    session.FailureReason,
		At:        s.sched.Now(),
	}
	if session.Status == checkout.StatusConfirmed {
		evt.Tokens = session.TokenReward
	}
	s.emit(evt)
}

// Subscribe registers for session updates. The returned function
// unsubscribes and closes the channel. Slow subscribers miss updates rather
// than block the register.
func (s *Store) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Update, buffer)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once bool
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Store) publishLocked() {
	var update Update
	if s.session != nil {
		clone := s.session.Clone()
		update.Session = &clone
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}

package posd

import (
	"nexuscash/core/events"
	"nexuscash/native/checkout"
	"nexuscash/native/sales"
	"nexuscash/native/treasury"
)

// TreasurySettings carries optional treasury flag and threshold changes.
type TreasurySettings struct {
	AutoMint          *bool    `json:"autoMintEnabled,omitempty"`
	AutoSweep         *bool    `json:"autoSweepEnabled,omitempty"`
	SweepThresholdBCH *float64 `json:"sweepThresholdBch,omitempty"`
}

// Treasury returns the derived treasury view.
func (s *Store) Treasury() treasury.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.treasury.Snapshot(s.ledger.TokensGiven())
}

// UpdateTreasurySettings applies the non-nil fields of in. A rejected
// threshold leaves every setting untouched.
func (s *Store) UpdateTreasurySettings(in TreasurySettings) (treasury.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.SweepThresholdBCH != nil {
		applied, err := s.treasury.SetSweepThreshold(*in.SweepThresholdBCH)
		if err != nil {
			return s.treasury.Snapshot(s.ledger.TokensGiven()), s.reject("set_sweep_threshold", err)
		}
		s.logger.Info("sweep threshold set", "thresholdBch", applied)
	}
	if in.AutoMint != nil {
		s.treasury.SetAutoMint(*in.AutoMint)
		s.logger.Info("auto mint toggled", "enabled", *in.AutoMint)
	}
	if in.AutoSweep != nil {
		s.treasury.SetAutoSweep(*in.AutoSweep)
		s.logger.Info("auto sweep toggled", "enabled", *in.AutoSweep)
	}
	return s.treasury.Snapshot(s.ledger.TokensGiven()), nil
}

// SweepToColdWallet moves hot wallet funds above the reserve to cold
// storage. A nil amount sweeps everything sweepable.
func (s *Store) SweepToColdWallet(amount *float64) (treasury.SweepEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt, err := s.treasury.Sweep(amount)
	if err != nil {
		return treasury.SweepEvent{}, s.reject("sweep", err)
	}
	s.metrics.RecordSweep(string(evt.Trigger), evt.AmountBCH)
	s.observeTreasuryLocked()
	s.logger.Info("treasury sweep", "id", evt.ID, "amountBch", evt.AmountBCH, "hotAfter", evt.HotWalletAfterBCH)
	s.emit(events.TreasurySweep{
		ID:        evt.ID,
		Trigger:   string(evt.Trigger),
		AmountBCH: evt.AmountBCH,
		HotAfter:  evt.HotWalletAfterBCH,
		ColdAfter: evt.ColdWalletAfterBCH,
	})
	return evt, nil
}

// BurnTokens removes whole tokens from the available supply.
func (s *Store) BurnTokens(amount float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokensGiven := s.ledger.TokensGiven()
	burned, err := s.treasury.Burn(amount, tokensGiven)
	if err != nil {
		return 0, s.reject("burn", err, "amount", amount)
	}
	available := s.treasury.Available(tokensGiven)
	s.metrics.RecordTokens("burn", burned)
	s.observeTreasuryLocked()
	s.logger.Info("tokens burned", "amount", burned, "available", available)
	s.emit(events.TokenSupply{Token: "NCASH", Available: available, Delta: -burned, Reason: events.SupplyReasonBurn})
	return burned, nil
}

// MintPendingReward credits the reward of a confirmed transaction that settled
// without one, updating the active session when it belongs to that
// transaction.
func (s *Store) MintPendingReward(txID string) (sales.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, minted, err := s.treasury.MintPending(s.ledger, txID)
	if err != nil {
		return tx, s.reject("mint_pending", err, "txid", txID)
	}
	if s.session != nil && s.session.TxID == txID {
		if next, err := checkout.Minted(*s.session, txID, minted); err == nil {
			s.session = &next
			s.publishLocked()
		}
	}
	available := s.treasury.Available(s.ledger.TokensGiven())
	s.metrics.RecordTokens("mint", minted)
	s.observeTreasuryLocked()
	s.logger.Info("pending reward minted", "txid", txID, "tokens", minted, "available", available)
	s.emit(events.TokenSupply{Token: "NCASH", Available: available, Delta: -minted, Reason: events.SupplyReasonMint, TxID: txID})
	return tx, nil
}

// Sweeps lists the sweep log, newest first.
func (s *Store) Sweeps() []treasury.SweepEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.treasury.Sweeps()
}

// PendingMints lists confirmed transactions still owed a reward.
func (s *Store) PendingMints() []sales.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.PendingMint()
}

// Package checkout models a single payment attempt from QR issue to
// settlement. Every transition is a pure function from one session value to
// the next; timers and side effects belong to the caller.
package checkout

import (
	"strconv"
	"time"
)

// Status captures the lifecycle state of a checkout session.
type Status string

const (
	// StatusAwaitingPayment marks a session showing its payment QR.
	StatusAwaitingPayment Status = "awaiting_payment"
	// StatusBroadcasting marks a payment that was submitted to the mempool.
	StatusBroadcasting Status = "broadcasting"
	// StatusConfirming marks a payment waiting for its block.
	StatusConfirming Status = "confirming"
	// StatusConfirmed marks a settled payment.
	StatusConfirmed Status = "confirmed"
	// StatusFailed marks a payment the network rejected.
	StatusFailed Status = "failed"
	// StatusExpired marks a session whose payment window closed.
	StatusExpired Status = "expired"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

const (
	ReasonRequestExpired = "Payment request expired. Generate a new QR."
	ReasonWindowExpired  = "Payment window expired before block confirmation."
	ReasonNetworkTimeout = "Network timeout while waiting for confirmation."

	NoteAutoMintOff    = "Auto-mint OFF. Mint this reward from CashToken Treasury."
	NoteSupplyDepleted = "Treasury supply is depleted. Reward cannot be minted."
)

// OrderLine is a cart line frozen at checkout time.
type OrderLine struct {
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitPriceUSD float64 `json:"unitPriceUsd"`
}

// Session is the state of one payment attempt.
type Session struct {
	TxID                 string      `json:"txId"`
	Customer             string      `json:"customer"`
	AmountUSD            float64     `json:"amountUsd"`
	AmountBCH            float64     `json:"amountBch"`
	PaymentAddress       string      `json:"paymentAddress"`
	PaymentURI           string      `json:"paymentUri"`
	Status               Status      `json:"status"`
	RequestedTokenReward int64       `json:"requestedTokenReward"`
	TokenReward          int64       `json:"tokenReward"`
	ReceiptID            string      `json:"receiptNftId"`
	OrderLines           []OrderLine `json:"orderLines"`
	CreatedAt            time.Time   `json:"createdAt"`
	ExpiresAt            time.Time   `json:"expiresAt"`
	PaidAt               *time.Time  `json:"paidAt,omitempty"`
	ConfirmedAt          *time.Time  `json:"confirmedAt,omitempty"`
	NetworkRef           string      `json:"networkRef,omitempty"`
	FailureReason        string      `json:"failureReason,omitempty"`
	MintNote             string      `json:"mintNote,omitempty"`
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	clone := s
	clone.OrderLines = append([]OrderLine(nil), s.OrderLines...)
	if s.PaidAt != nil {
		at := *s.PaidAt
		clone.PaidAt = &at
	}
	if s.ConfirmedAt != nil {
		at := *s.ConfirmedAt
		clone.ConfirmedAt = &at
	}
	return clone
}

// Expired reports whether the payment window has closed at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PaymentURI renders the synthetic payment request for address and amount.
func PaymentURI(address string, amountBCH float64) string {
	return address + "?amount=" + strconv.FormatFloat(amountBCH, 'f', -1, 64)
}

// Params describes a new session.
type Params struct {
	TxID           string
	Customer       string
	AmountUSD      float64
	AmountBCH      float64
	PaymentAddress string
	TokenReward    int64
	ReceiptID      string
	OrderLines     []OrderLine
	CreatedAt      time.Time
	TTL            time.Duration
}

// New opens a session awaiting payment.
func New(p Params) Session {
	return Session{
		TxID:                 p.TxID,
		Customer:             p.Customer,
		AmountUSD:            p.AmountUSD,
		AmountBCH:            p.AmountBCH,
		PaymentAddress:       p.PaymentAddress,
		PaymentURI:           PaymentURI(p.PaymentAddress, p.AmountBCH),
		Status:               StatusAwaitingPayment,
		RequestedTokenReward: p.TokenReward,
		TokenReward:          p.TokenReward,
		ReceiptID:            p.ReceiptID,
		OrderLines:           append([]OrderLine(nil), p.OrderLines...),
		CreatedAt:            p.CreatedAt,
		ExpiresAt:            p.CreatedAt.Add(p.TTL),
	}
}

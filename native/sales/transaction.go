// Package sales holds the register's transaction history.
package sales

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"nexuscash/core/money"
)

var (
	ErrTransactionNotFound = errors.New("sales: transaction not found")
	ErrAlreadySettled      = errors.New("sales: transaction already settled")
)

// Status is the settlement state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Source distinguishes demo history from register activity.
type Source string

const (
	SourceSeed Source = "seed"
	SourceLive Source = "live"
)

// Transaction is a recorded sale.
type Transaction struct {
	ID          string   `json:"id"`
	Customer    string   `json:"customer"`
	Items       []string `json:"items"`
	AmountBCH   float64  `json:"bch"`
	AmountUSD   float64  `json:"fiat"`
	Status      Status   `json:"status"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	NFTMinted   bool     `json:"nftMinted"`
	TokensGiven int64    `json:"tokensGiven"`
	BlockHeight *int64   `json:"blockHeight"`
	ReceiptID   string   `json:"receiptNftId,omitempty"`
	Source      Source   `json:"source"`
}

// Clone returns a deep copy.
func (t Transaction) Clone() Transaction {
	clone := t
	clone.Items = append([]string(nil), t.Items...)
	if t.BlockHeight != nil {
		height := *t.BlockHeight
		clone.BlockHeight = &height
	}
	return clone
}

// ItemLabel renders an order line the way it is stored on a transaction.
func ItemLabel(name string, qty int) string {
	return fmt.Sprintf("%s x%d", name, qty)
}

var txIDPattern = regexp.MustCompile(`^TX-(\d+)$`)

// Number returns the numeric suffix of a TX-nnnn id.
func Number(id string) (int, bool) {
	m := txIDPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatID renders n as a TX id padded to four digits.
func FormatID(n int) string {
	return fmt.Sprintf("TX-%04d", n)
}

// ReceiptID derives the NFT receipt id for a transaction id.
func ReceiptID(txID string) string {
	suffix := strings.TrimPrefix(strings.TrimSpace(txID), "TX-")
	return "NFT-RCP-" + suffix
}

// RewardFor computes the loyalty reward for a fiat amount: eight tokens per
// dollar, never fewer than five.
func RewardFor(usd float64) int64 {
	reward := int64(money.Round(usd*8, 0))
	if reward < 5 {
		return 5
	}
	return reward
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// DeepLink returns the app link that opens the transaction on a handset.
func DeepLink(tx Transaction) string {
	clean := unsafeIDChars.ReplaceAllString(tx.ID, "")
	return fmt.Sprintf("nexuscash://tx/%s?amount=%s&status=%s",
		clean, strconv.FormatFloat(tx.AmountBCH, 'f', -1, 64), url.QueryEscape(string(tx.Status)))
}

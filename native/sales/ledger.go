package sales

import (
	"sort"
	"strings"

	"nexuscash/core/money"
)

// minTransactionNumber is the floor applied when allocating new ids so live
// sales always follow the demo history.
const minTransactionNumber = 40

// Ledger stores transactions newest first. Not safe for concurrent use.
type Ledger struct {
	txs []Transaction
}

// NewLedger seeds the ledger with history, kept in the order given.
func NewLedger(history []Transaction) *Ledger {
	l := &Ledger{txs: make([]Transaction, 0, len(history))}
	for _, tx := range history {
		l.txs = append(l.txs, tx.Clone())
	}
	return l
}

// List returns copies of every transaction.
func (l *Ledger) List() []Transaction {
	out := make([]Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		out = append(out, tx.Clone())
	}
	return out
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len() int { return len(l.txs) }

// Get looks up a transaction.
func (l *Ledger) Get(id string) (Transaction, bool) {
	if i := l.index(id); i >= 0 {
		return l.txs[i].Clone(), true
	}
	return Transaction{}, false
}

func (l *Ledger) index(id string) int {
	for i := range l.txs {
		if l.txs[i].ID == id {
			return i
		}
	}
	return -1
}

// NextID allocates the id following the highest TX number on record.
func (l *Ledger) NextID() string {
	highest := minTransactionNumber
	for _, tx := range l.txs {
		if n, ok := Number(tx.ID); ok && n > highest {
			highest = n
		}
	}
	return FormatID(highest + 1)
}

// Record prepends tx.
func (l *Ledger) Record(tx Transaction) {
	l.txs = append([]Transaction{tx.Clone()}, l.txs...)
}

// Settle applies the single terminal mutation of a pending transaction.
func (l *Ledger) Settle(id string, fn func(*Transaction)) (Transaction, error) {
	i := l.index(id)
	if i < 0 {
		return Transaction{}, ErrTransactionNotFound
	}
	if l.txs[i].Status != StatusPending {
		return l.txs[i].Clone(), ErrAlreadySettled
	}
	fn(&l.txs[i])
	return l.txs[i].Clone(), nil
}

// Update mutates a transaction in place regardless of status.
func (l *Ledger) Update(id string, fn func(*Transaction)) (Transaction, error) {
	i := l.index(id)
	if i < 0 {
		return Transaction{}, ErrTransactionNotFound
	}
	fn(&l.txs[i])
	return l.txs[i].Clone(), nil
}

// TokensGiven sums the loyalty tokens credited across all transactions.
func (l *Ledger) TokensGiven() int64 {
	var total int64
	for _, tx := range l.txs {
		total += tx.TokensGiven
	}
	return total
}

// PendingMint lists confirmed transactions that have not yet received their
// loyalty reward, newest first.
func (l *Ledger) PendingMint() []Transaction {
	out := make([]Transaction, 0)
	for _, tx := range l.txs {
		if tx.Status == StatusConfirmed && tx.TokensGiven == 0 {
			out = append(out, tx.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timestampKey(out[i]) > timestampKey(out[j])
	})
	return out
}

func timestampKey(tx Transaction) string {
	return tx.Date + "T" + tx.Time
}

// Metrics summarises the ledger for the dashboard.
type Metrics struct {
	TotalBCH          float64 `json:"totalBch"`
	TotalTransactions int     `json:"totalTransactions"`
	MintedTokens      int64   `json:"mintedTokens"`
	ActiveCustomers   int     `json:"activeCustomers"`
}

// ComputeMetrics derives dashboard metrics from txs.
func ComputeMetrics(txs []Transaction) Metrics {
	customers := make(map[string]struct{}, len(txs))
	amounts := make([]float64, 0, len(txs))
	var minted int64
	for _, tx := range txs {
		amounts = append(amounts, tx.AmountBCH)
		minted += tx.TokensGiven
		customers[tx.Customer] = struct{}{}
	}
	return Metrics{
		TotalBCH:          money.Sum(amounts, money.BCHPlaces),
		TotalTransactions: len(txs),
		MintedTokens:      minted,
		ActiveCustomers:   len(customers),
	}
}

// Filter narrows a transaction listing.
type Filter struct {
	Status Status
	Query  string
	Date   string
}

// Match reports whether tx passes the filter. Query matches the id, the
// customer wallet or any item label, case-insensitively.
func (f Filter) Match(tx Transaction) bool {
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.Date != "" && tx.Date != f.Date {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(tx.ID), q) || strings.Contains(strings.ToLower(tx.Customer), q) {
		return true
	}
	for _, item := range tx.Items {
		if strings.Contains(strings.ToLower(item), q) {
			return true
		}
	}
	return false
}

// Apply returns the transactions that pass the filter.
func (f Filter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

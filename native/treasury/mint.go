package treasury

import (
	"nexuscash/native/sales"
)

// MintPending credits the loyalty reward of a confirmed transaction that
// settled without one. It returns the updated transaction and the number of
// tokens minted.
func (t *Treasury) MintPending(ledger *sales.Ledger, txID string) (sales.Transaction, int64, error) {
	tx, ok := ledger.Get(txID)
	if !ok {
		return sales.Transaction{}, 0, sales.ErrTransactionNotFound
	}
	if tx.Status != sales.StatusConfirmed {
		return tx, 0, ErrNotConfirmed
	}
	if tx.TokensGiven != 0 {
		return tx, 0, ErrAlreadyMinted
	}
	mintable := min(sales.RewardFor(tx.AmountUSD), t.Available(ledger.TokensGiven()))
	if mintable <= 0 {
		return tx, 0, ErrSupplyDepleted
	}
	updated, err := ledger.Update(txID, func(tx *sales.Transaction) {
		tx.NFTMinted = true
		tx.TokensGiven = mintable
		if tx.ReceiptID == "" {
			tx.ReceiptID = sales.ReceiptID(tx.ID)
		}
	})
	if err != nil {
		return tx, 0, err
	}
	return updated, mintable, nil
}

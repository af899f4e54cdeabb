package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"nexuscash/native/sales"
)

// TransactionsJSONL builds a JSON Lines export and returns the serialised
// payload alongside a checksum. Each line also carries the handset deep link.
func TransactionsJSONL(txs []sales.Transaction) ([]byte, string, error) {
	if len(txs) == 0 {
		return nil, "", ErrNoTransactions
	}
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, tx := range txs {
		payload := map[string]interface{}{
			"tx_id":           tx.ID,
			"status":          string(tx.Status),
			"source":          string(tx.Source),
			"customer_wallet": tx.Customer,
			"items":           tx.Items,
			"amount_bch":      tx.AmountBCH,
			"amount_usd":      tx.AmountUSD,
			"date":            tx.Date,
			"time":            tx.Time,
			"block_height":    tx.BlockHeight,
			"nft_minted":      tx.NFTMinted,
			"receipt_nft_id":  tx.ReceiptID,
			"tokens_given":    tx.TokensGiven,
			"deep_link":       sales.DeepLink(tx),
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

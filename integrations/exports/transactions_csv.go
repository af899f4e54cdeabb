package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"nexuscash/native/sales"
)

// ErrNoTransactions is returned when an export would contain no rows.
var ErrNoTransactions = errors.New("exports: no transactions to export")

const utf8BOM = "\ufeff"

var transactionColumns = []string{
	"tx_id",
	"status",
	"source",
	"customer_wallet",
	"items",
	"amount_bch",
	"amount_usd",
	"date",
	"time",
	"block_height",
	"nft_minted",
	"receipt_nft_id",
	"tokens_given",
}

func transactionRecord(tx sales.Transaction) []string {
	block := ""
	if tx.BlockHeight != nil {
		block = strconv.FormatInt(*tx.BlockHeight, 10)
	}
	minted := "no"
	if tx.NFTMinted {
		minted = "yes"
	}
	return []string{
		tx.ID,
		string(tx.Status),
		string(tx.Source),
		tx.Customer,
		strings.Join(tx.Items, " | "),
		strconv.FormatFloat(tx.AmountBCH, 'f', 4, 64),
		strconv.FormatFloat(tx.AmountUSD, 'f', 2, 64),
		tx.Date,
		tx.Time,
		block,
		minted,
		tx.ReceiptID,
		strconv.FormatInt(tx.TokensGiven, 10),
	}
}

// TransactionsCSV builds a spreadsheet-friendly CSV export prefixed with a
// UTF-8 byte order mark and returns the serialised data alongside a SHA-256
// checksum of the payload.
func TransactionsCSV(txs []sales.Transaction) ([]byte, string, error) {
	if len(txs) == 0 {
		return nil, "", ErrNoTransactions
	}
	buffer := &bytes.Buffer{}
	buffer.WriteString(utf8BOM)
	writer := csv.NewWriter(buffer)
	if err := writer.Write(transactionColumns); err != nil {
		return nil, "", err
	}
	for _, tx := range txs {
		if err := writer.Write(transactionRecord(tx)); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

// Filename returns the download name for an export generated at ts.
func Filename(ts time.Time, ext string) string {
	return "transactions-" + ts.Format("20060102-150405") + "." + strings.TrimPrefix(ext, ".")
}

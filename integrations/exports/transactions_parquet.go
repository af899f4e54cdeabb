package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"nexuscash/native/sales"
)

type parquetRow struct {
	TxID           string  `parquet:"name=tx_id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Status         string  `parquet:"name=status, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Source         string  `parquet:"name=source, type=UTF8, encoding=PLAIN_DICTIONARY"`
	CustomerWallet string  `parquet:"name=customer_wallet, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Items          string  `parquet:"name=items, type=UTF8, encoding=PLAIN_DICTIONARY"`
	AmountBCH      float64 `parquet:"name=amount_bch, type=DOUBLE"`
	AmountUSD      float64 `parquet:"name=amount_usd, type=DOUBLE"`
	Date           string  `parquet:"name=date, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Time           string  `parquet:"name=time, type=UTF8, encoding=PLAIN_DICTIONARY"`
	BlockHeight    int64   `parquet:"name=block_height, type=INT64"`
	NFTMinted      bool    `parquet:"name=nft_minted, type=BOOLEAN"`
	ReceiptNFTID   string  `parquet:"name=receipt_nft_id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	TokensGiven    int64   `parquet:"name=tokens_given, type=INT64"`
}

// TransactionsParquet builds a SNAPPY-compressed Parquet export for analytics
// tooling. Missing block heights are written as zero.
func TransactionsParquet(txs []sales.Transaction) ([]byte, string, error) {
	if len(txs) == 0 {
		return nil, "", ErrNoTransactions
	}
	buffer := &bytes.Buffer{}
	fw := writerfile.NewWriterFile(buffer)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		return nil, "", fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, tx := range txs {
		row := &parquetRow{
			TxID:           tx.ID,
			Status:         string(tx.Status),
			Source:         string(tx.Source),
			CustomerWallet: tx.Customer,
			Items:          strings.Join(tx.Items, " | "),
			AmountBCH:      tx.AmountBCH,
			AmountUSD:      tx.AmountUSD,
			Date:           tx.Date,
			Time:           tx.Time,
			NFTMinted:      tx.NFTMinted,
			ReceiptNFTID:   tx.ReceiptID,
			TokensGiven:    tx.TokensGiven,
		}
		if tx.BlockHeight != nil {
			row.BlockHeight = *tx.BlockHeight
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, "", fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, "", fmt.Errorf("exports: parquet flush: %w", err)
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

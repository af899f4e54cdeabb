package exports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"

	"nexuscash/native/sales"
)

func sampleTransactions() []sales.Transaction {
	return sales.SeedTransactions(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
}

func TestTransactionsCSV(t *testing.T) {
	data, checksum, err := TransactionsCSV(sampleTransactions())
	require.NoError(t, err)
	require.NotEmpty(t, checksum)
	require.True(t, bytes.HasPrefix(data, []byte("\ufeff")))

	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(string(data), "\ufeff"), "\n"), "\n")
	require.Len(t, lines, 9)
	require.Equal(t, "tx_id,status,source,customer_wallet,items,amount_bch,amount_usd,date,time,block_height,nft_minted,receipt_nft_id,tokens_given", lines[0])
	require.Equal(t, "TX-0042,confirmed,seed,bitcoincash:qz3f...8a2c,Americano Coffee x2 | Butter Croissant x1,0.0152,4.56,2026-10-14,14:32,831204,yes,NFT-RCP-0042,46", lines[1])
	require.Equal(t, "TX-0040,pending,seed,bitcoincash:qa1x...9f3b,Classic Burger x1 | Fresh Orange Juice x2 | Carbonara Pasta x1 | Cheesecake Slice x1,0.0328,9.84,2026-10-13,13:55,,no,,0", lines[3])
}

func TestTransactionsCSVEscapesCells(t *testing.T) {
	data, _, err := TransactionsCSV([]sales.Transaction{{
		ID:     "TX-0050",
		Items:  []string{`Tea, "large" x1`},
		Status: sales.StatusPending,
		Source: sales.SourceLive,
	}})
	require.NoError(t, err)
	require.Contains(t, string(data), `"Tea, ""large"" x1"`)
}

func TestTransactionsJSONL(t *testing.T) {
	data, checksum, err := TransactionsJSONL(sampleTransactions()[:1])
	require.NoError(t, err)
	require.NotEmpty(t, checksum)
	output := string(data)
	require.Contains(t, output, `"tx_id":"TX-0042"`)
	require.Contains(t, output, `"deep_link":"nexuscash://tx/TX-0042?amount=0.0152&status=confirmed"`)
	require.Contains(t, output, `"block_height":831204`)
}

func TestTransactionsParquet(t *testing.T) {
	data, checksum, err := TransactionsParquet(sampleTransactions())
	require.NoError(t, err)
	require.NotEmpty(t, checksum)
	require.True(t, bytes.HasPrefix(data, []byte("PAR1")))
	require.True(t, bytes.HasSuffix(data, []byte("PAR1")))
}

func TestTransactionsParquetReadBack(t *testing.T) {
	txs := sampleTransactions()
	data, _, err := TransactionsParquet(txs)
	require.NoError(t, err)

	pr, err := reader.NewParquetReader(buffer.NewBufferFileFromBytes(data), new(parquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.EqualValues(t, len(txs), pr.GetNumRows())

	rows := make([]parquetRow, len(txs))
	require.NoError(t, pr.Read(&rows))
	require.Equal(t, "TX-0042", rows[0].TxID)
	require.Equal(t, "confirmed", rows[0].Status)
	require.Equal(t, "Americano Coffee x2 | Butter Croissant x1", rows[0].Items)
	require.EqualValues(t, 831204, rows[0].BlockHeight)
	require.True(t, rows[0].NFTMinted)
	require.Equal(t, "TX-0040", rows[2].TxID)
	require.Zero(t, rows[2].BlockHeight)
}

func TestEmptyExports(t *testing.T) {
	_, _, err := TransactionsCSV(nil)
	require.ErrorIs(t, err, ErrNoTransactions)
	_, _, err = TransactionsJSONL(nil)
	require.ErrorIs(t, err, ErrNoTransactions)
	_, _, err = TransactionsParquet(nil)
	require.ErrorIs(t, err, ErrNoTransactions)
}

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 10, 14, 7, 5, 9, 0, time.UTC)
	require.Equal(t, "transactions-20261014-070509.csv", Filename(ts, "csv"))
	require.Equal(t, "transactions-20261014-070509.parquet", Filename(ts, ".parquet"))
}

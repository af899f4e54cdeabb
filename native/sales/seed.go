package sales

import "time"

type seedRow struct {
	id        string
	customer  string
	items     []string
	bch       float64
	fiat      float64
	status    Status
	tokens    int64
	block     int64
	dayOffset int
	clock     string
}

var seedRows = []seedRow{
	{"TX-0042", "bitcoincash:qz3f...8a2c", []string{"Americano Coffee x2", "Butter Croissant x1"}, 0.0152, 4.56, StatusConfirmed, 46, 831204, 0, "14:32"},
	{"TX-0041", "bitcoincash:qp7b...1d4e", []string{"Matcha Latte x1"}, 0.0071, 2.13, StatusConfirmed, 21, 831203, 0, "14:24"},
	{"TX-0040", "bitcoincash:qa1x...9f3b", []string{"Classic Burger x1", "Fresh Orange Juice x2", "Carbonara Pasta x1", "Cheesecake Slice x1"}, 0.0328, 9.84, StatusPending, 0, 0, 1, "13:55"},
	{"TX-0039", "bitcoincash:qc8m...2e7a", []string{"Special Fried Rice x1", "Americano Coffee x1"}, 0.0134, 4.02, StatusConfirmed, 40, 831201, 2, "13:15"},
	{"TX-0038", "bitcoincash:q5dr...4c1f", []string{"Carbonara Pasta x2"}, 0.0214, 6.42, StatusFailed, 0, 0, 3, "12:48"},
	{"TX-0037", "bitcoincash:qe9k...7b5d", []string{"Cheesecake Slice x3"}, 0.0186, 5.58, StatusConfirmed, 56, 831198, 4, "12:20"},
	{"TX-0036", "bitcoincash:qf2n...3a8e", []string{"Americano Coffee x1", "Matcha Latte x1"}, 0.0127, 3.81, StatusConfirmed, 38, 831195, 5, "11:42"},
	{"TX-0035", "bitcoincash:qg6p...9d2c", []string{"Classic Burger x2", "Fresh Orange Juice x2"}, 0.0274, 8.22, StatusConfirmed, 82, 831192, 6, "10:18"},
}

// DateLayout is the calendar date format stored on transactions.
const DateLayout = "2006-01-02"

// SeedTransactions returns the demo history dated relative to today.
func SeedTransactions(today time.Time) []Transaction {
	out := make([]Transaction, 0, len(seedRows))
	for _, row := range seedRows {
		tx := Transaction{
			ID:          row.id,
			Customer:    row.customer,
			Items:       append([]string(nil), row.items...),
			AmountBCH:   row.bch,
			AmountUSD:   row.fiat,
			Status:      row.status,
			Date:        today.AddDate(0, 0, -row.dayOffset).Format(DateLayout),
			Time:        row.clock,
			TokensGiven: row.tokens,
			Source:      SourceSeed,
		}
		if row.status == StatusConfirmed {
			height := row.block
			tx.BlockHeight = &height
			tx.NFTMinted = true
			tx.ReceiptID = ReceiptID(row.id)
		}
		out = append(out, tx)
	}
	return out
}

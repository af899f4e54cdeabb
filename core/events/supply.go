package events

import (
	"strconv"
	"strings"
)

const (
	// TypeTokenSupply is emitted whenever the loyalty token supply changes.
	TypeTokenSupply = "treasury.supply"

	// SupplyReasonMint identifies mint driven supply decreases of the
	// available pool.
	SupplyReasonMint = "mint"
	// SupplyReasonBurn identifies burn driven supply decreases.
	SupplyReasonBurn = "burn"
)

// TokenSupply captures a change to the available loyalty token supply.
type TokenSupply struct {
	Token     string
	Available int64
	Delta     int64
	Reason    string
	TxID      string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event renders the structured supply change event for downstream consumers.
func (e TokenSupply) Event() *Record {
	attrs := map[string]string{}
	token := strings.ToUpper(strings.TrimSpace(e.Token))
	if token == "" {
		token = "UNKNOWN"
	}
	attrs["token"] = token
	attrs["available"] = strconv.FormatInt(e.Available, 10)
	if e.Delta != 0 {
		attrs["delta"] = strconv.FormatInt(e.Delta, 10)
	}
	setIfPresent(attrs, "reason", e.Reason)
	setIfPresent(attrs, "txId", e.TxID)
	return &Record{Type: TypeTokenSupply, Attributes: attrs}
}

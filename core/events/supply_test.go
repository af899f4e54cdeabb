package events

import (
	"testing"
	"time"
)

func TestTokenSupplyEvent(t *testing.T) {
	evt := TokenSupply{
		Token:     "ncash",
		Available: 34750,
		Delta:     -250,
		Reason:    SupplyReasonBurn,
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeTokenSupply {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["token"] != "NCASH" {
		t.Fatalf("unexpected token attr: %s", evt.Attributes["token"])
	}
	if evt.Attributes["available"] != "34750" || evt.Attributes["delta"] != "-250" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["reason"] != SupplyReasonBurn {
		t.Fatalf("unexpected reason: %s", evt.Attributes["reason"])
	}
	if _, ok := evt.Attributes["txId"]; ok {
		t.Fatalf("txId should be omitted when empty")
	}
}

func TestCheckoutStatusEvent(t *testing.T) {
	evt := CheckoutStatus{
		TxID:      "TX-0043",
		Status:    "failed",
		AmountUSD: 1.68,
		AmountBCH: 0.0056,
		Reason:    "Network timeout while waiting for confirmation.",
		At:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}.Event()
	if evt.Attributes["amountBch"] != "0.0056" || evt.Attributes["amountUsd"] != "1.68" {
		t.Fatalf("unexpected amounts: %+v", evt.Attributes)
	}
	if evt.Attributes["at"] != "2026-03-01T09:00:00Z" {
		t.Fatalf("unexpected timestamp: %s", evt.Attributes["at"])
	}
	if _, ok := evt.Attributes["tokens"]; ok {
		t.Fatalf("tokens should be omitted when zero")
	}
}

type captureEmitter struct{ events []Event }

func (c *captureEmitter) Emit(e Event) { c.events = append(c.events, e) }

func TestMultiEmitter(t *testing.T) {
	a, b := &captureEmitter{}, &captureEmitter{}
	Multi{a, nil, b, NoopEmitter{}}.Emit(RateSync{Previous: 300, Rate: 301.5})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected fan-out to both emitters")
	}
	if a.events[0].EventType() != TypeRateSync {
		t.Fatalf("unexpected type %s", a.events[0].EventType())
	}
}

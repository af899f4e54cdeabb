package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nexuscash/core/events"
)

type received struct {
	event     string
	signature string
	delivery  string
	body      []byte
}

func capture(t *testing.T) (*httptest.Server, <-chan received) {
	t.Helper()
	ch := make(chan received, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- received{
			event:     r.Header.Get(HeaderEvent),
			signature: r.Header.Get(HeaderSignature),
			delivery:  r.Header.Get(HeaderDelivery),
			body:      body,
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server, ch
}

func next(t *testing.T, ch <-chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no webhook delivered")
		return received{}
	}
}

func TestDispatcherSignsSettlement(t *testing.T) {
	server, ch := capture(t)
	secret := []byte("s3cret")
	dispatcher, err := NewDispatcher(server.URL, secret)
	require.NoError(t, err)
	defer dispatcher.Close()

	settled := time.Date(2026, 3, 14, 9, 30, 5, 0, time.UTC)
	dispatcher.Emit(events.CheckoutStatus{TxID: "TX-0043", Status: "confirmed", AmountUSD: 1.68, AmountBCH: 0.0056, Tokens: 13, At: settled})

	got := next(t, ch)
	require.Equal(t, string(EventCheckoutSettled), got.event)
	require.NotEmpty(t, got.delivery)
	require.True(t, Verify(secret, got.body, got.signature))
	require.False(t, Verify([]byte("other"), got.body, got.signature))

	var payload SettlementPayload
	require.NoError(t, json.Unmarshal(got.body, &payload))
	require.Equal(t, "TX-0043", payload.TxID)
	require.Equal(t, int64(13), payload.Tokens)
	require.True(t, settled.Equal(payload.SettledAt))
	require.Equal(t, got.delivery, payload.DeliveryID)
}

func TestDispatcherSkipsNonTerminalEvents(t *testing.T) {
	server, ch := capture(t)
	dispatcher, err := NewDispatcher(server.URL, []byte("s3cret"))
	require.NoError(t, err)
	defer dispatcher.Close()

	dispatcher.Emit(events.CheckoutStatus{TxID: "TX-0043", Status: "broadcasting"})
	dispatcher.Emit(events.RateSync{Rate: 306})
	dispatcher.Emit(events.TreasurySweep{ID: "SWP-1", Trigger: "manual", AmountBCH: 0.5})

	got := next(t, ch)
	require.Equal(t, string(EventTreasurySwept), got.event)
	var payload SweepPayload
	require.NoError(t, json.Unmarshal(got.body, &payload))
	require.Equal(t, "SWP-1", payload.SweepID)
	require.Empty(t, ch)
}

func TestDispatcherRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"), WithRetryPolicy(5, 10*time.Millisecond, 20*time.Millisecond))
	require.NoError(t, err)
	defer dispatcher.Close()

	require.NoError(t, dispatcher.EnqueueSettlement(SettlementPayload{TxID: "TX-0038", Status: "failed"}))
	require.Eventually(t, func() bool { return attempts.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	_, err := NewDispatcher(" ", []byte("secret"))
	require.Error(t, err)
	_, err = NewDispatcher("http://merchant.example", nil)
	require.Error(t, err)

	dispatcher, err := NewDispatcher("http://merchant.example", []byte("secret"))
	require.NoError(t, err)
	dispatcher.Close()
	require.ErrorIs(t, dispatcher.EnqueueSweep(SweepPayload{SweepID: "SWP-2"}), ErrClosed)
}

func TestNextBackoffCaps(t *testing.T) {
	require.Equal(t, 4*time.Second, nextBackoff(2*time.Second, 30*time.Second))
	require.Equal(t, 30*time.Second, nextBackoff(20*time.Second, 30*time.Second))
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"nexuscash/core/events"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("nexuscashd", "test", WithWriter(&buf), WithLevel(slog.LevelDebug))
	logger.Debug("checkout started", slog.String("txId", "TX-0043"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "checkout started", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "nexuscashd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "TX-0043", line["txId"])
	require.Contains(t, line, "timestamp")
}

func TestSetupRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("nexuscashd", "", WithWriter(&buf))
	logger.Debug("hidden")
	require.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMaskWallet(t *testing.T) {
	attr := MaskWallet("customer", "bitcoincash:qz3fabcdefgh8a2c")
	require.Equal(t, "bitcoincash:qz3f...8a2c", attr.Value.String())

	short := MaskWallet("customer", "bitcoincash:qshort")
	require.Equal(t, RedactedValue, short.Value.String())

	require.Equal(t, "", MaskWallet("customer", "").Value.String())
}

func TestMaskFieldAllowlist(t *testing.T) {
	require.Equal(t, "TX-0001", MaskField("txId", "TX-0001").Value.String())
	require.Equal(t, RedactedValue, MaskField("email", "demo.ncash@gmail.com").Value.String())
	require.Contains(t, RedactionAllowlist(), "txid")
}

func TestEventLoggerWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("nexuscashd", "test", WithWriter(&buf), WithLevel(slog.LevelDebug))
	EventLogger{Logger: logger, Level: slog.LevelInfo}.Emit(events.RateSync{Rate: 306, Previous: 300})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "domain event", line["message"])
	require.Equal(t, events.TypeRateSync, line["type"])
	attrs, ok := line["attributes"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "306.00", attrs["rate"])
}

func TestEventLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("nexuscashd", "test", WithWriter(&buf))
	EventLogger{Logger: logger, Level: slog.LevelDebug}.Emit(events.RateSync{Rate: 306})
	require.Zero(t, buf.Len())
}

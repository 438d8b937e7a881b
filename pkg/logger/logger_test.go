package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketdash/pkg/config"
)

// capture returns a debug-level logger and a function decoding its last line
func capture(t *testing.T) (*Logger, func() map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug"}, &buf)

	return log, func() map[string]interface{} {
		t.Helper()
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
		buf.Reset()
		return entry
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestNewWithWriter_SetsGlobalLevel(t *testing.T) {
	var buf bytes.Buffer

	NewWithWriter(&config.Config{LogLevel: "warn"}, &buf).Info("dropped")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.Empty(t, buf.String())
}

func TestLevels(t *testing.T) {
	log, last := capture(t)

	tests := []struct {
		level string
		emit  func(string)
	}{
		{"debug", log.Debug},
		{"info", log.Info},
		{"warn", log.Warn},
		{"error", log.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			tt.emit("fetch done")
			entry := last()
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "fetch done", entry["message"])
			assert.Equal(t, ServiceName, entry["service"])
			assert.Equal(t, "development", entry["env"])
		})
	}
}

func TestDomainFields(t *testing.T) {
	log, last := capture(t)

	log.WithComponent("marketdata").WithAsset("BTC").Info("cache hit")
	entry := last()
	assert.Equal(t, "marketdata", entry[FieldComponent])
	assert.Equal(t, "BTC", entry[FieldAsset])

	log.WithJob("daily_report").WithError(errors.New("no data")).Error("job failed")
	entry = last()
	assert.Equal(t, "daily_report", entry[FieldJob])
	assert.Equal(t, "no data", entry["error"])
}

func TestWithFields(t *testing.T) {
	log, last := capture(t)

	log.WithFields(map[string]interface{}{
		"period":   "7d",
		"interval": "5m",
		"bars":     2016,
	}).WithField("outcome", "fetched").Debug("frame loaded")

	entry := last()
	assert.Equal(t, "7d", entry["period"])
	assert.Equal(t, "5m", entry["interval"])
	assert.Equal(t, float64(2016), entry["bars"])
	assert.Equal(t, "fetched", entry["outcome"])
}

func TestIsConsole(t *testing.T) {
	assert.True(t, isConsole("console"))
	assert.True(t, isConsole("Pretty"))
	assert.False(t, isConsole("json"))
	assert.False(t, isConsole(""))
}

func TestNop(t *testing.T) {
	log := Nop()
	require.NotNil(t, log)

	// must not panic or write anywhere
	log.WithAsset("ETH").WithError(errors.New("boom")).Error("ignored")
}

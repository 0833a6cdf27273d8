package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: barberq
  environment: test
database:
  path: /tmp/barberq-test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "08:00", cfg.Queue.BusinessStart)
	assert.Equal(t, "19:30", cfg.Queue.BusinessEnd)
	assert.Equal(t, 30, cfg.Queue.SlotInterval)
	assert.Equal(t, 9, cfg.Queue.PeakMorningStart)
	assert.Equal(t, 11, cfg.Queue.PeakMorningEnd)
	assert.Equal(t, 16, cfg.Queue.PeakAfternoonStart)
	assert.Equal(t, 19, cfg.Queue.PeakAfternoonEnd)
	assert.Equal(t, 45, cfg.Queue.ServiceEstimate)
	assert.Equal(t, 5, cfg.Queue.GridWaitPerCustomer)
	assert.Equal(t, 30*time.Second, cfg.Queue.SweepIntervalDuration())
	assert.Equal(t, 3, cfg.Queue.SweepAttempts)
	assert.Equal(t, 2*time.Second, cfg.Queue.SweepRetryDelayDuration())
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "55", cfg.Messaging.CountryCode)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("BARBERQ_DB_PATH", "/tmp/expanded.db")

	path := writeConfig(t, `
database:
  path: ${BARBERQ_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded.db", cfg.Database.Path)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing database path",
			content: "app:\n  name: x\n",
		},
		{
			name: "end before start",
			content: `
database:
  path: /tmp/x.db
queue:
  business_start: "18:00"
  business_end: "09:00"
`,
		},
		{
			name: "bad clock value",
			content: `
database:
  path: /tmp/x.db
queue:
  business_start: "late"
`,
		},
		{
			name: "inverted peak window",
			content: `
database:
  path: /tmp/x.db
queue:
  peak_morning_start: 11
  peak_morning_end: 9
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("19:30")
	require.NoError(t, err)
	assert.Equal(t, 19*60+30, minutes)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("nope")
	assert.Error(t, err)
}

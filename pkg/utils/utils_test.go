package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string    `validate:"required"`
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"`
	Cost  float64   `validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		input   sample
		wantErr []string
	}{
		{"valid", sample{Name: "trip", Start: now, End: now.Add(time.Hour)}, nil},
		{"missing name", sample{Start: now, End: now}, []string{"Name failed required"}},
		{"end before start", sample{Name: "trip", Start: now, End: now.Add(-time.Hour)}, []string{"End failed gtefield=Start"}},
		{"zero dates and negative cost", sample{Name: "trip", Cost: -1}, []string{"Start failed required", "End failed required", "Cost failed gte=0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.wantErr {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(1250.5))
	assert.Error(t, ValidateAmount(-0.01))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "line one\nline two\tend", SanitizeString("line\x00 one\nline two\tend\x7f"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: "stderr", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	fallback, err := NewLogger(LoggerConfig{Level: "nonsense", Format: "console"})
	require.NoError(t, err)
	assert.False(t, fallback.Core().Enabled(-1), "unknown level falls back to info")
}

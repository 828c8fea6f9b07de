package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedError string
		expectedStart time.Time
		expectedEnd   time.Time
	}{
		{
			name:          "whole month",
			input:         "2026-07",
			expectedStart: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "december rolls into next year",
			input:         "2025-12",
			expectedStart: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "explicit range",
			input:         "2026-07-15:2026-08-15",
			expectedStart: time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "inverted range",
			input:         "2026-08-15:2026-07-15",
			expectedError: "must precede",
		},
		{
			name:          "garbage",
			input:         "last-tuesday",
			expectedError: "bad period",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			period, err := parsePeriod(tt.input)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.True(t, period.Start.Equal(tt.expectedStart), "start = %v", period.Start)
			assert.True(t, period.End.Equal(tt.expectedEnd), "end = %v", period.End)
		})
	}
}

func TestParsePeriodDefaultsToPreviousMonth(t *testing.T) {
	period, err := parsePeriod("")
	require.NoError(t, err)

	assert.Equal(t, 1, period.Start.Day())
	assert.True(t, period.Start.Before(period.End))
	assert.True(t, period.End.Sub(period.Start) >= 28*24*time.Hour)
	assert.False(t, time.Now().UTC().Before(period.End))
}

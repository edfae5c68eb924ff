package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dispatcher/pkg/errors"
)

func TestFreshnessGate_IsTooOld(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	gate := NewFreshnessGate(10 * time.Minute)
	gate.now = func() time.Time { return now }

	tests := []struct {
		name string
		ts   string
		want bool
	}{
		{"empty", "", false},
		{"fresh", "2024-03-01T11:55:00Z", false},
		{"fresh with microseconds", "2024-03-01T11:55:00.123456Z", false},
		{"at the limit", "2024-03-01T11:50:00Z", false},
		{"stale", "2024-03-01T11:49:59Z", true},
		{"stale with microseconds", "2024-03-01T10:00:00.000001Z", true},
		{"offset", "2024-03-01T13:55:00+02:00", false},
		{"future", "2024-03-02T12:00:00Z", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.IsTooOld(tt.ts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFreshnessGate_InvalidTimestamp(t *testing.T) {
	gate := NewFreshnessGate(time.Minute)

	_, err := gate.IsTooOld("yesterday")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"every 10 minutes", Every10Minutes, false},
		{"daily at 3am", EveryDay3AM, false},
		{"midnight", EveryDayMidnight, false},
		{"list", "0,30 * * * *", false},
		{"range", "0 9-17 * * *", false},
		{"too few fields", "* * * *", true},
		{"out of range minute", "61 * * * *", true},
		{"bad step", "*/0 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCronExpression(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCronExpression_Next(t *testing.T) {
	ce, err := ParseCronExpression("0 3 * * *")
	require.NoError(t, err)

	after := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	next := ce.Next(after)

	assert.Equal(t, time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC), next)
}

func TestCronExpression_NextSkipsCurrentMinute(t *testing.T) {
	ce, err := ParseCronExpression("*/10 * * * *")
	require.NoError(t, err)

	after := time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC)
	next := ce.Next(after)

	assert.Equal(t, time.Date(2025, 6, 1, 12, 20, 0, 0, time.UTC), next)
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Minute), s.Next(now))
	assert.Equal(t, "@every 5m0s", s.String())
}

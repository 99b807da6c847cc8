package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandName(t *testing.T) {
	t.Parallel()

	name := RandName()
	assert.Len(t, name, randomNameLength)
	assert.NotEqual(t, name, RandName())

	for _, r := range name {
		assert.Contains(t, string(letters), string(r))
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"zero", 0, "0 seconds"},
		{"one second", time.Second, "1 second"},
		{"minutes and seconds", 2*time.Minute + 30*time.Second, "2 minutes, 30 seconds"},
		{"exact hour", time.Hour, "1 hour"},
		{"full breakdown", time.Hour + time.Minute + time.Second, "1 hour, 1 minute, 1 second"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, test.want, FormatDuration(test.duration))
		})
	}
}

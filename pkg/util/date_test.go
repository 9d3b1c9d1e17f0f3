package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	unix := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-10-10T10:10:10Z", unix, true},
		{" 2024-10-10T10:10:10Z ", unix, true},
		{"2024-10-10T10:10:10", unix, true},
		{"2024-10-10", time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), true},
		{strconv.FormatInt(unix.Unix(), 10), unix, true},
		{"", time.Time{}, false},
		{"-5", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.True(t, got.Equal(tt.want), "%q: got %v", tt.in, got)
		}
	}
}

func TestResolveRange(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	from, to := ResolveRange("", "", now, 24*time.Hour)
	assert.Equal(t, now.Add(-24*time.Hour), from)
	assert.Equal(t, now, to)

	from, to = ResolveRange("2024-05-02", "2024-04-01", now, time.Hour)
	assert.True(t, from.Before(to))
	assert.Equal(t, 4, int(from.Month()))

	from, _ = ResolveRange("garbage", "2024-04-01T00:00:00Z", now, time.Hour)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC), from)
}

func TestParseBirthdate(t *testing.T) {
	y, m, d, err := ParseBirthdate("1990-07-04")
	require.NoError(t, err)
	assert.Equal(t, []int{1990, 7, 4}, []int{y, m, d})

	for _, bad := range []string{"1990-02-30", "04/07/1990", ""} {
		_, _, _, err := ParseBirthdate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseBirthtime(t *testing.T) {
	h, m, err := ParseBirthtime("08:05")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseBirthtime("25:00")
	assert.Error(t, err)
}

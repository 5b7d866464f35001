package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimezoneLocationIANA(t *testing.T) {
	loc, err := parseTimezoneLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	if _, tzErr := time.LoadLocation("Asia/Kolkata"); tzErr != nil {
		t.Skip("no tzdata on this machine")
	}
	loc, err = parseTimezoneLocation("Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestParseTimezoneLocationFixedOffset(t *testing.T) {
	loc, err := parseTimezoneLocation("+05:30")
	require.NoError(t, err)
	_, offset := time.Now().In(loc).Zone()
	assert.Equal(t, 5*3600+30*60, offset)

	loc, err = parseTimezoneLocation("-08:00")
	require.NoError(t, err)
	_, offset = time.Now().In(loc).Zone()
	assert.Equal(t, -8*3600, offset)
}

func TestParseTimezoneLocationEmptyFallsBackToLocal(t *testing.T) {
	loc, err := parseTimezoneLocation("  ")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestParseTimezoneLocationRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"Mars/Olympus", "+5:30", "+99:00", "05:30"} {
		_, err := parseTimezoneLocation(raw)
		assert.Error(t, err, raw)
	}
}

func TestHumanizeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m0s"},
		{61 * time.Minute, "1h0m0s"},
		{26 * time.Hour, "24h0m0s"},
		{3*24*time.Hour + 5*time.Hour, "72h0m0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanizeDuration(tt.in))
	}
}

func TestHTTPCacheSkipPaths(t *testing.T) {
	paths := httpCacheSkipPaths("/api")
	assert.Contains(t, paths, "/api/uptime")
	assert.Contains(t, paths, "/api/server-time")
	assert.Contains(t, paths, "/api/gateway/stats")

	// A blank prefix falls back to /api, a trailing slash is trimmed.
	assert.Equal(t, httpCacheSkipPaths(""), httpCacheSkipPaths("/api/"))
}

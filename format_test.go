package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"negative", -time.Second, "-"},
		{"zero", 0, "0s"},
		{"seconds", 45*time.Second + 300*time.Millisecond, "45s"},
		{"minutes", 12*time.Minute + 59*time.Second, "12m"},
		{"whole hours", 3 * time.Hour, "3h"},
		{"hours and minutes", 3*time.Hour + 5*time.Minute, "3h5m"},
		{"whole days", 48 * time.Hour, "2d"},
		{"days and hours", 52*time.Hour + 30*time.Minute, "2d4h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAge(tt.d))
		})
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "-", formatSince(now, time.Time{}))
	assert.Equal(t, "1h30m", formatSince(now, now.Add(-90*time.Minute)))
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.Local)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.Local)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "25")
		assert.Contains(t, result, "2020")
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"TAB", "STATE", "IDLE"}
	rows := [][]string{
		{"5F2A9C0D1E", "frozen", "2h"},
		{"AB12", "active", "3s"},
	}

	printTable(&buf, headers, rows)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "TAB         STATE   IDLE", lines[0])
	assert.Equal(t, "5F2A9C0D1E  frozen  2h", lines[1])
	assert.Equal(t, "AB12        active  3s", lines[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo w...", truncate("héllo wörld!", 10))
}

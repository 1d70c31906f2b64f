package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TableHeaderIsRejected(t *testing.T) {
	path := writeTestConfig(t, "[lifecycle]\nfreeze_after_seconds = 3\n")

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "lifecycle"`)
}

func TestLoad_UnknownKey_MultipleReported(t *testing.T) {
	path := writeTestConfig(t, "ping_rat = 3\nlog_levle = \"debug\"\n")

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "ping_rate"`)
	assert.Contains(t, err.Error(), `did you mean "log_level"`)
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"log_level", "log_level", 0},
		{"log_levl", "log_level", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestClosestMatch_Found(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cdp_url", closestMatch("cdp_ur", knownGlobalKeysList))
}

func TestClosestMatch_NotFound(t *testing.T) {
	t.Parallel()

	assert.Empty(t, closestMatch("zzzzzzzzzzzz", knownGlobalKeysList))
}

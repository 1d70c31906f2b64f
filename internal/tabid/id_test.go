package tabid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Normalizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase hex", "a1b2c3", "A1B2C3"},
		{"already upper", "A1B2C3", "A1B2C3"},
		{"numeric", "42", "42"},
		{"whitespace", "  7f  ", "7F"},
		{"empty", "", ""},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, New(tt.raw).String())
		})
	}
}

func TestID_IsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, ID{}.IsZero())
	assert.True(t, New("").IsZero())
	assert.False(t, New("1").IsZero())
}

func TestID_MapKeyEquality(t *testing.T) {
	t.Parallel()

	m := map[ID]int{New("abc"): 1}
	_, ok := m[New("ABC")]
	assert.True(t, ok, "differently-cased raw IDs must map to the same key")
}

func TestID_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	type payload struct {
		TabID ID `json:"tabId"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"tabId":"dead01"}`), &p))
	assert.Equal(t, New("DEAD01"), p.TabID)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tabId":"DEAD01"}`, string(out))
}

func TestID_Compare(t *testing.T) {
	t.Parallel()

	assert.Negative(t, New("A").Compare(New("B")))
	assert.Zero(t, New("a").Compare(New("A")))
	assert.Positive(t, New("C").Compare(New("B")))
}

func TestID_UnmarshalJSON_NumericID(t *testing.T) {
	t.Parallel()

	var p struct {
		TabID ID `json:"tabId"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"tabId":1234}`), &p))
	assert.Equal(t, "1234", p.TabID.String())

	require.NoError(t, json.Unmarshal([]byte(`{"tabId":null}`), &p))
	assert.True(t, p.TabID.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"tabId":1.5}`), &p))
}

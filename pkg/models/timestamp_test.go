package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_JSON(t *testing.T) {
	t.Parallel()

	ts := NewTimestamp(time.Date(2025, 3, 21, 21, 10, 48, 999, time.Local))

	data, err := ts.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-21 21:10:48"`, string(data))

	var parsed Timestamp
	require.NoError(t, parsed.UnmarshalJSON(data))
	assert.True(t, ts.Equal(parsed.Time))

	zero, err := Timestamp{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(zero))

	require.NoError(t, parsed.UnmarshalJSON([]byte("null")))
	assert.True(t, parsed.IsZero())

	assert.Error(t, parsed.UnmarshalJSON([]byte("12")))
	assert.Error(t, parsed.UnmarshalJSON([]byte(`"yesterday"`)))
}

func TestTimestamp_Scan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  interface{}
		want string
	}{
		{"string", "2024-01-02 03:04:05", "2024-01-02 03:04:05"},
		{"bytes", []byte("2024-01-02 03:04:05"), "2024-01-02 03:04:05"},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 600, time.Local), "2024-01-02 03:04:05"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var ts Timestamp
			require.NoError(t, ts.Scan(tt.src))
			assert.Equal(t, tt.want, ts.String())
		})
	}

	var ts Timestamp
	assert.Error(t, ts.Scan(42))
}

func TestTimestamp_ValueSortsLexically(t *testing.T) {
	t.Parallel()

	earlier, err := NewTimestamp(time.Date(2024, 9, 30, 23, 0, 0, 0, time.Local)).Value()
	require.NoError(t, err)
	later, err := NewTimestamp(time.Date(2024, 10, 1, 1, 0, 0, 0, time.Local)).Value()
	require.NoError(t, err)

	assert.Less(t, earlier.(string), later.(string))

	nilValue, err := Timestamp{}.Value()
	require.NoError(t, err)
	assert.Nil(t, nilValue)
}

func TestBook_EffectiveDate(t *testing.T) {
	t.Parallel()

	created := NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	updated := NewTimestamp(time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local))

	assert.Equal(t, updated, (&Book{CreatedAt: created, UpdatedAt: updated}).EffectiveDate())
	assert.Equal(t, created, (&Book{CreatedAt: created}).EffectiveDate())
}

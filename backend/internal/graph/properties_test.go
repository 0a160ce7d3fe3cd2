package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{3, int64(3)},
		{int32(4), int64(4)},
		{float32(0.5), float64(0.5)},
		{"x", "x"},
		{true, true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Normalize([]string{"a"})
	assert.Error(t, err)
}

func TestProperties_LegacyCoercion(t *testing.T) {
	props := Properties{
		"clicks_native": int64(3),
		"clicks_text":   "7",
		"clicks_float":  float64(2),
		"score_text":    "1.5",
		"score_int":     int64(2),
		"bad":           "seven",
	}

	i, err := props.Int("clicks_text")
	require.NoError(t, err)
	assert.Equal(t, int64(7), i)

	i, err = props.Int("clicks_float")
	require.NoError(t, err)
	assert.Equal(t, int64(2), i)

	f, err := props.Float("score_text")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	f, err = props.Float("score_int")
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	i, err = props.Int("missing")
	require.NoError(t, err)
	assert.Zero(t, i)

	_, err = props.Int("bad")
	assert.Error(t, err)

	assert.Equal(t, "3", props.Text("clicks_native"))
}

func TestProperties_NormalizedRejectsBadKeys(t *testing.T) {
	_, err := Properties{"name; DROP": "x"}.Normalized()
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

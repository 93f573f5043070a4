package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 100},
		{"blank and empty", "  ", "", 100},
		{"empty vs value", "", "Cafe Sol", 0},
		{"value vs empty", "Cafe Sol", "", 0},
		{"identical", "Cafe Sol", "Cafe Sol", 100},
		{"case insensitive", "CAFE SOL", "cafe sol", 100},
		{"trimmed", "  Cafe Sol ", "Cafe Sol", 100},
		{"accent is one edit", "Café Sol", "Cafe Sol", 87.5},
		{"completely different", "abc", "xyz", 0},
		{"one substitution in four", "abcd", "abce", 75},
		{"kitten sitting", "kitten", "sitting", 100 * (1 - 3.0/7.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatio_Symmetric(t *testing.T) {
	pairs := [][2]string{{"Tacos El Güero", "Tacos el Guero"}, {"Panadería", "Panaderia La Paz"}, {"a", "ab"}}
	for _, p := range pairs {
		assert.Equal(t, Ratio(p[0], p[1]), Ratio(p[1], p[0]))
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "café sol", Normalize("  CAFÉ Sol "))
}

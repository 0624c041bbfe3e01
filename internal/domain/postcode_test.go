package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePostcode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"canonical", "BS1 4DJ", "BS1 4DJ"},
		{"lowercase no space", "bs14dj", "BS1 4DJ"},
		{"mixed case", "Bs1 4dJ", "BS1 4DJ"},
		{"surrounding whitespace", "  SW1A 1AA  ", "SW1A 1AA"},
		{"extra internal spaces", "SW1A   1AA", "SW1A 1AA"},
		{"space in wrong place", "SW 1A1AA", "SW1A 1AA"},
		{"tab", "sw1a\t1aa", "SW1A 1AA"},
		{"short outward", "m11ae", "M1 1AE"},
		{"letter district suffix", "ec1v9lb", "EC1V 9LB"},
		{"two digit district", "CR26XH", "CR2 6XH"},
		{"single letter area two digits", "B338TH", "B33 8TH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePostcode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizePostcode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"word", "INVALID"},
		{"empty", ""},
		{"whitespace only", "   "},
		{"inward only", "4DJ"},
		{"numeric", "12345"},
		{"inward code wrong shape", "BS1 DJ4"},
		{"too long", "BS1A1 4DJ"},
		{"three area letters", "ABC1 4DJ"},
		{"punctuation", "BS1-4DJ"},
		{"non-ascii", "BŞ1 4DJ"},
		{"long s folds to S", "bſ14dj"},
		{"dotless i folds to I", "ıG1 1AA"},
		{"kelvin sign folds to K", "\u212a\u212a1 1AA"},
		{"non-breaking space", "BS1\u00a04DJ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePostcode(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestNormalizePostcode_Idempotent(t *testing.T) {
	for _, raw := range []string{"bs14dj", "SW1A1AA", " m1 1ae ", "ec1v 9lb", "W1A0AX"} {
		once, err := NormalizePostcode(raw)
		require.NoError(t, err)
		twice, err := NormalizePostcode(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, raw)
	}
}

func TestNormalizePostcode_SpacingAndCaseInsensitive(t *testing.T) {
	variants := []string{"SW1A 1AA", "sw1a1aa", "Sw1A 1aA", " SW1A1AA", "s w 1 a 1 a a"}
	for _, v := range variants {
		got, err := NormalizePostcode(v)
		require.NoError(t, err, v)
		assert.Equal(t, "SW1A 1AA", got, v)
	}
}

func TestNormalizePostcodes(t *testing.T) {
	t.Run("dedupes preserving order", func(t *testing.T) {
		got, err := NormalizePostcodes([]string{"sw1a1aa", "BS1 4DJ", "SW1A 1AA", "bs14dj", "M1 1AE"})
		require.NoError(t, err)
		assert.Equal(t, []string{"SW1A 1AA", "BS1 4DJ", "M1 1AE"}, got)
	})

	t.Run("fails on first invalid", func(t *testing.T) {
		_, err := NormalizePostcodes([]string{"BS1 4DJ", "nope"})
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := NormalizePostcodes(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSplitPostcode(t *testing.T) {
	outward, inward := SplitPostcode("BS1 4DJ")
	assert.Equal(t, "BS1", outward)
	assert.Equal(t, "4DJ", inward)
}

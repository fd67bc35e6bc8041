package money_test

import (
	"testing"

	"wallet-api/internal/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	money.Init()
	m.Run()
}

func TestParseFixedRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		scale int32
		want  string
	}{
		{"cents", "100.00", money.ScaleCents, "100.00"},
		{"pads scale", "10", money.ScaleCents, "10.00"},
		{"interest scale", "10000.00000000", money.ScaleInterest, "10000.00000000"},
		{"rate scale", "0.275", money.ScaleRate, "0.275000"},
		{"zero", "0", money.ScaleCents, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := money.Parse(tt.input)
			require.NoError(t, err)
			got := money.Fixed(d, tt.scale)
			assert.Equal(t, tt.want, got)

			// Persisted canonical form must parse back to the same value.
			back, err := money.Parse(got)
			require.NoError(t, err)
			assert.True(t, d.Round(tt.scale).Equal(back))
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2.3", "1,000.00"} {
		_, err := money.Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestDivisionPrecision(t *testing.T) {
	annual := money.MustParse("0.275")
	days := money.MustParse("365")

	rate := annual.Div(days)
	// 0.275/365 carried to 20 digits, half-up on the last.
	assert.Equal(t, "0.00075342465753424658", rate.String())
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		input string
		scale int32
		want  string
	}{
		{"2.345", 2, "2.35"},
		{"2.344", 2, "2.34"},
		{"7.534246575342465753", 8, "7.53424658"},
		{"0.000000005", 8, "0.00000001"},
		{"1.999999995", 8, "2.00000000"},
	}

	for _, tt := range tests {
		d := money.MustParse(tt.input)
		assert.Equal(t, tt.want, money.Fixed(money.Round(d, tt.scale), tt.scale), "round %s to %d", tt.input, tt.scale)
	}
}

func TestSignHelpers(t *testing.T) {
	assert.True(t, money.IsNegative(money.MustParse("-0.01")))
	assert.False(t, money.IsNegative(money.MustParse("0")))
	assert.True(t, money.IsPositive(money.MustParse("0.01")))
	assert.False(t, money.IsPositive(money.MustParse("0")))
}

package money

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name  string
		gross string
		bps   int64
		fee   string
		net   string
	}{
		{"zero gross", "0", 300, "0", "0"},
		{"one unit floors fee", "1", 300, "0", "1"},
		{"ten thousand", "10000", 300, "300", "9700"},
		{"rounding floors", "12345", 300, "370", "11975"},
		{"no fee", "500", 0, "0", "500"},
		{"full fee", "500", 10000, "500", "0"},
		{"beyond int64", "123456789012345678901234567890", 300, "3703703670370370367037037036", "119753085341975308534197530854"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross, err := ParseMinor(tt.gross)
			require.NoError(t, err)

			split, err := SplitFee(gross, tt.bps)
			require.NoError(t, err)

			g, f, n := split.Strings()
			assert.Equal(t, tt.gross, g)
			assert.Equal(t, tt.fee, f)
			assert.Equal(t, tt.net, n)

			sum := new(big.Int).Add(split.Fee, split.Net)
			assert.Zero(t, sum.Cmp(split.Gross), "gross must equal fee + net")
		})
	}
}

func TestSplitFeeConservesAcrossRange(t *testing.T) {
	for g := int64(0); g < 2000; g++ {
		split, err := SplitFee(big.NewInt(g), DefaultFeeBPS)
		require.NoError(t, err)
		assert.Equal(t, g, split.Fee.Int64()+split.Net.Int64())
		assert.True(t, split.Fee.Sign() >= 0 && split.Net.Sign() >= 0)
	}
}

func TestSplitFeeRejectsBadInput(t *testing.T) {
	_, err := SplitFee(big.NewInt(-1), 300)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = SplitFee(big.NewInt(10), 10001)
	assert.ErrorIs(t, err, ErrInvalidFeeBPS)

	_, err = SplitFee(nil, 300)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseMinor(t *testing.T) {
	for _, bad := range []string{"", "-1", "1.5", "1e3", "abc", " "} {
		_, err := ParseMinor(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}

	v, err := ParseMinor(" 0042 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "12.99", CentsToUSD(1299))
	assert.Equal(t, "0.05", CentsToUSD(5))
	assert.Equal(t, "10.00", CentsToUSD(1000))

	assert.Equal(t, "9.700000", FormatMinor(big.NewInt(9700000), 6))
	assert.Equal(t, "0.000001", FormatMinor(big.NewInt(1), 6))
	assert.Equal(t, "42", FormatMinor(big.NewInt(42), 0))
}

func TestDollarsToCents(t *testing.T) {
	cases := map[string]int64{
		"12.99": 1299,
		"$5":    500,
		"7.5":   750,
		"0.01":  1,
	}
	for in, want := range cases {
		got, err := DollarsToCents(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "1.999", "-3", "abc", "1."} {
		_, err := DollarsToCents(bad)
		assert.Error(t, err, bad)
	}
}

package usecases

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"abc":           "",
		".5":            "0.5",
		"-5":            "5",
		"1.1234567":     "1.123456",
		"1.23456789":    "1.234567",
		"1..2.3":        "1.23",
		"12a3.4b5":      "123.45",
		"0.":            "0.",
		".":             "0.",
		"1,000.50 USDC": "1000.50",
		"007":           "007",
		"1e5":           "15",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeAmount(in, TokenDecimals), "input %q", in)
	}

	require.Equal(t, "3", NormalizeAmount("3.99", 0))
	require.Equal(t, "3.9", NormalizeAmount("3.99", 1))
}

func TestNormalizeAmount_Idempotent(t *testing.T) {
	inputs := []string{"", ".", "..", ".5.", "-1.2345678", "1..2..3", "abc.def", "0001.000000009", " 12 . 34 ", "٣.٥", "1.2.3.4.5.6.7.8.9"}
	for _, in := range inputs {
		for _, dec := range []int{0, 1, 6, 18} {
			once := NormalizeAmount(in, dec)
			require.Equal(t, once, NormalizeAmount(once, dec), "input %q decimals %d", in, dec)
		}
	}
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("123", TokenDecimals)
	require.NoError(t, err)
	require.Equal(t, "123000000", v.String())

	v, err = ParseUnits("1.1234567", TokenDecimals)
	require.NoError(t, err)
	require.Equal(t, "1123456", v.String())

	v, err = ParseUnits("0.01", NativeDecimals)
	require.NoError(t, err)
	require.Equal(t, "10000000000000000", v.String())

	v, err = ParseUnits(".5", TokenDecimals)
	require.NoError(t, err)
	require.Equal(t, "500000", v.String())

	v, err = ParseUnits("0", TokenDecimals)
	require.NoError(t, err)
	require.Zero(t, v.Sign())

	_, err = ParseUnits("", TokenDecimals)
	require.Error(t, err)

	_, err = ParseUnits("-5", TokenDecimals)
	require.Error(t, err)

	_, err = ParseUnits("1e18", TokenDecimals)
	require.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "1000.000000", FormatUnits(big.NewInt(1_000_000_000), TokenDecimals))
	require.Equal(t, "0.000123", FormatUnits(big.NewInt(123), TokenDecimals))
	require.Equal(t, "0.000000", FormatUnits(nil, TokenDecimals))
	require.Equal(t, "0.010000000000000000", FormatUnits(big.NewInt(10_000_000_000_000_000), NativeDecimals))
	require.Equal(t, "-1.500000", FormatUnits(big.NewInt(-1_500_000), TokenDecimals))
	require.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
}

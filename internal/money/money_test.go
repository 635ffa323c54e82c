package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTransferFee(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"100", "2.00"},
		{"400", "2.00"},
		{"1000", "5.00"},
		{"1234.56", "6.17"},
		{"10000", "50.00"},
		{"20000", "50.00"},
		{"0.01", "2.00"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			fee := TransferFee(decimal.RequireFromString(tt.amount))

			require.True(t, decimal.RequireFromString(tt.want).Equal(fee), "fee for %s should be %s, got %s", tt.amount, tt.want, fee)
		})
	}

	t.Run("fee always within bounds", func(t *testing.T) {
		for _, a := range []int64{1, 7, 399, 401, 9999, 10001, 1_000_000} {
			fee := TransferFee(decimal.NewFromInt(a))

			require.True(t, fee.GreaterThanOrEqual(MinTransferFee))
			require.True(t, fee.LessThanOrEqual(MaxTransferFee))
		}
	})
}

func TestMaskCardNumber(t *testing.T) {
	require.Equal(t, "****3456", MaskCardNumber("6222021234567893456"))
	require.Equal(t, "****1234", MaskCardNumber("1234"))
	require.Equal(t, "123", MaskCardNumber("123"))
	require.Equal(t, "", MaskCardNumber(""))
}

func TestRound(t *testing.T) {
	require.Equal(t, "10.01", Round(decimal.RequireFromString("10.005")).StringFixed(2))
	require.Equal(t, "-10.01", Round(decimal.RequireFromString("-10.005")).StringFixed(2))
	require.Equal(t, "10.00", Round(decimal.RequireFromString("10.004")).StringFixed(2))
}

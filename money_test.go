package payface

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeToCents(t *testing.T) {
	cases := []struct {
		fee   string
		cents int64
	}{
		{"0.01", 1},
		{"0.1", 10},
		{"1", 100},
		{"1.00", 100},
		{"19.99", 1999},
		// 二进制浮点下0.29*100 == 28.999...，decimal必须精确
		{"0.29", 29},
		{"49.00", 4900},
		{"12345678.90", 1234567890},
	}
	for _, c := range cases {
		fee, err := decimal.NewFromString(c.fee)
		require.NoError(t, err)
		assert.Equal(t, c.cents, FeeToCents(fee), "fee %s", c.fee)
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	// 任意两位小数金额：元 -> 分 -> 元 必须无损
	for _, s := range []string{"0.01", "0.10", "1.00", "0.29", "19.99", "4900.00"} {
		fee, err := decimal.NewFromString(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatFee(CentsToFee(FeeToCents(fee))))
	}
}

func TestFormatFee(t *testing.T) {
	assert.Equal(t, "0.10", FormatFee(decimal.RequireFromString("0.1")))
	assert.Equal(t, "1.00", FormatFee(decimal.NewFromInt(1)))
	assert.Equal(t, "49.00", FormatFee(CentsToFee(4900)))
}

func TestParseFee(t *testing.T) {
	fee, err := ParseFee("0.20")
	require.NoError(t, err)
	assert.Equal(t, "0.20", FormatFee(fee))

	_, err = ParseFee("not-a-number")
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestRequireFee(t *testing.T) {
	assert.NoError(t, requireFee(decimal.RequireFromString("0.01")))

	var argErr *ArgumentError
	assert.ErrorAs(t, requireFee(decimal.Zero), &argErr)
	assert.ErrorAs(t, requireFee(decimal.NewFromInt(-1)), &argErr)
}

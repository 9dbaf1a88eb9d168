package payface

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dummy适配器承载接口契约测试：任何适配器都应满足这些共性
func TestDummyPay(t *testing.T) {
	pf := NewDummy("https://example.com/pay")
	ctx := context.Background()

	r, err := pf.PayQrcode(ctx, &PayRequest{Fee: decimal.RequireFromString("0.1")})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/pay", r.Url)

	r, err = pf.PayMobileWeb(ctx, &PayRequest{Fee: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Url)

	app, err := pf.PayApp(ctx, &PayRequest{Fee: decimal.NewFromInt(1), Unique: "order_1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", app.PrepayId)
	assert.NotEmpty(t, app.NonceStr)

	// 金额非正数必须在本地被拒绝
	var argErr *ArgumentError
	_, err = pf.PayQrcode(ctx, &PayRequest{})
	require.ErrorAs(t, err, &argErr)
	_, err = pf.PayQrcode(ctx, &PayRequest{Fee: decimal.NewFromInt(-1)})
	assert.ErrorAs(t, err, &argErr)
}

func TestDummyQueryVerify(t *testing.T) {
	pf := NewDummy("")
	ctx := context.Background()

	r, err := pf.Query(ctx, &QueryRequest{Unique: "order_1"})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Ok)
	assert.Equal(t, "order_1", r.Unique)

	// 无单号时按无此订单处理
	r, err = pf.Query(ctx, &QueryRequest{})
	require.NoError(t, err)
	assert.Nil(t, r)

	var verifyErr *VerificationError
	_, err = pf.Verify(ctx, &QueryRequest{})
	assert.ErrorAs(t, err, &verifyErr)

	got, err := pf.Verify(ctx, &QueryRequest{Unique: "order_1"})
	require.NoError(t, err)
	assert.True(t, got.Ok)
}

func TestDummyNotifyRefundTransfer(t *testing.T) {
	pf := NewDummy("")
	ctx := context.Background()

	_, ok := pf.VerifyNotify(ctx, nil)
	assert.False(t, ok)
	nr, ok := pf.VerifyNotify(ctx, &Notification{Body: []byte("payload")})
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", nr.TradeState)

	require.NoError(t, pf.Transfer(ctx, &TransferRequest{Fee: decimal.NewFromInt(1)}))
	require.NoError(t, pf.Refund(ctx, &RefundRequest{Fee: decimal.NewFromInt(1)}))

	record, err := pf.RefundQuery(ctx, &RefundRequest{Fee: decimal.RequireFromString("0.3")})
	require.NoError(t, err)
	assert.True(t, record.Ok)
	assert.Equal(t, "0.30", record.Refund)
}

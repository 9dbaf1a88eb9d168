// Package payface 统一支付网关门面
package payface

import (
	"context"
	"time"
)

// Dummy 虚拟支付适配器
// 用于测试和本地开发：所有操作立即成功，不发起任何网络调用
type Dummy struct {
	ReturnUrl string // 模拟的支付URL
}

// NewDummy 创建虚拟支付适配器实例
func NewDummy(returnUrl string) *Dummy {
	return &Dummy{ReturnUrl: returnUrl}
}

// PayQrcode 模拟扫码支付
func (d *Dummy) PayQrcode(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}
	return &PayUrl{Url: d.ReturnUrl}, nil
}

// PayMobileWeb 模拟手机浏览器支付
func (d *Dummy) PayMobileWeb(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	return d.PayQrcode(ctx, req)
}

// PayApp 模拟APP支付
func (d *Dummy) PayApp(ctx context.Context, req *PayRequest) (*AppPayParams, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}
	return &AppPayParams{
		PrepayId:  uniqueOr(req.Unique),
		NonceStr:  RandomUnique(),
		OrderInfo: d.ReturnUrl,
	}, nil
}

// VerifyNotify 模拟回调验签，始终通过
func (d *Dummy) VerifyNotify(ctx context.Context, n *Notification) (*NotifyResult, bool) {
	if n == nil || len(n.Body) == 0 {
		return nil, false
	}
	return &NotifyResult{TradeState: "SUCCESS", Raw: string(n.Body)}, true
}

// Query 模拟订单查询，任何订单都视为已支付
func (d *Dummy) Query(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	if req.Unique == "" {
		return nil, nil
	}
	return &Receipt{
		Ok:        true,
		Unique:    req.Unique,
		Fee:       "0.00",
		CreatedAt: time.Now(),
		PaidAt:    time.Now(),
	}, nil
}

// Verify 模拟订单校验
func (d *Dummy) Verify(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	r, err := d.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if r == nil || !r.Ok {
		return nil, &VerificationError{Receipt: r}
	}
	return r, nil
}

// Transfer 模拟转账，始终成功
func (d *Dummy) Transfer(ctx context.Context, req *TransferRequest) error {
	return requireFee(req.Fee)
}

// Refund 模拟退款，始终受理
func (d *Dummy) Refund(ctx context.Context, req *RefundRequest) error {
	return requireFee(req.Fee)
}

// RefundQuery 模拟退款对账
func (d *Dummy) RefundQuery(ctx context.Context, req *RefundRequest) (*RefundRecord, error) {
	return &RefundRecord{Ok: true, Refund: FormatFee(req.Fee)}, nil
}

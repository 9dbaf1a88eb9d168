// Package payface 统一支付网关门面
package payface

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v74"
	stripeCheckout "github.com/stripe/stripe-go/v74/checkout/session"
	stripeIntent "github.com/stripe/stripe-go/v74/paymentintent"
	stripeRefund "github.com/stripe/stripe-go/v74/refund"
	stripeTransfer "github.com/stripe/stripe-go/v74/transfer"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/zap"
)

// StripeConfig Stripe适配器配置结构体
type StripeConfig struct {
	SecretKey     string // 秘密密钥（sk_...）
	WebhookSecret string // Webhook签名密钥（whsec_...），验证回调用
	Currency      string // 货币代码，默认"cny"
	ReturnUrl     string // 支付完成/取消后的跳转URL（必填）

	Logger *zap.Logger // 可选日志器，默认不输出
}

// Stripe Stripe适配器
// 实现Payface接口；商户订单号写入PaymentIntent的metadata，
// 查询与退款都以metadata反查
type Stripe struct {
	cfg    *StripeConfig
	logger *zap.Logger
}

// NewStripe 创建Stripe适配器实例
func NewStripe(cfg *StripeConfig) (*Stripe, error) {
	if err := requireAll(map[string]string{
		"secret_key": cfg.SecretKey,
		"return_url": cfg.ReturnUrl,
	}); err != nil {
		return nil, newConfigError("stripe", err)
	}

	stripe.Key = cfg.SecretKey
	if cfg.Currency == "" {
		cfg.Currency = "cny"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stripe{cfg: cfg, logger: logger}, nil
}

// checkout 创建结账会话
// 扫码与手机浏览器两种场景共用，二维码内容即会话URL
func (s *Stripe) checkout(req *PayRequest) (*PayUrl, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}

	unique := uniqueOr(req.Unique)
	returnUrl := req.ReturnUrl
	if returnUrl == "" {
		returnUrl = s.cfg.ReturnUrl
	}

	checkoutParams := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.cfg.Currency),
					UnitAmount: stripe.Int64(FeeToCents(req.Fee)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(subjectOr(req.Subject)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(returnUrl),
		CancelURL:         stripe.String(returnUrl),
		ClientReferenceID: stripe.String(unique),
		ExpiresAt:         stripe.Int64(time.Now().Add(30 * time.Minute).Unix()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"unique": unique},
		},
	}

	sCheckout, err := stripeCheckout.New(checkoutParams)
	if err != nil {
		return nil, stripeClassify("stripe checkout", err)
	}
	s.logger.Debug("stripe checkout session", zap.Any("raw", sCheckout))

	return &PayUrl{Url: sCheckout.URL, Raw: sCheckout}, nil
}

// PayQrcode 发起扫码支付
// 返回可生成二维码的结账会话URL
func (s *Stripe) PayQrcode(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	return s.checkout(req)
}

// PayMobileWeb 发起手机浏览器支付
func (s *Stripe) PayMobileWeb(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	return s.checkout(req)
}

// PayApp 发起APP内支付
// 直接创建PaymentIntent，客户端SDK凭client_secret完成确认
func (s *Stripe) PayApp(ctx context.Context, req *PayRequest) (*AppPayParams, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}

	unique := uniqueOr(req.Unique)
	intentParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(FeeToCents(req.Fee)),
		Currency: stripe.String(s.cfg.Currency),
	}
	intentParams.AddMetadata("unique", unique)

	pi, err := stripeIntent.New(intentParams)
	if err != nil {
		return nil, stripeClassify("stripe payment intent", err)
	}

	return &AppPayParams{
		PrepayId:  pi.ID,
		OrderInfo: pi.ClientSecret,
		Raw:       pi,
	}, nil
}

// VerifyNotify 验证Stripe Webhook事件
// 签名来自Stripe-Signature请求头，经Notification.Signature传入；
// 签名不符或载荷畸形返回(nil, false)
func (s *Stripe) VerifyNotify(ctx context.Context, n *Notification) (*NotifyResult, bool) {
	if n == nil || len(n.Body) == 0 || s.cfg.WebhookSecret == "" {
		return nil, false
	}

	event, err := webhook.ConstructEvent(n.Body, n.Signature, s.cfg.WebhookSecret)
	if err != nil {
		return nil, false
	}

	result := &NotifyResult{TradeState: string(event.Type), Raw: event}
	if event.Type == "checkout.session.completed" {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, false
		}
		result.Unique = session.ClientReferenceID
		result.Fee = FormatFee(CentsToFee(session.AmountTotal))
		result.TradeState = string(session.PaymentStatus)
		result.Raw = &session
	}
	return result, true
}

// findIntent 按商户订单号反查PaymentIntent
// 未命中返回(nil, nil)
func (s *Stripe) findIntent(unique string) (*stripe.PaymentIntent, error) {
	searchParams := &stripe.PaymentIntentSearchParams{
		SearchParams: stripe.SearchParams{
			Query: `metadata["unique"]:"` + unique + `"`,
		},
	}
	iter := stripeIntent.Search(searchParams)
	for iter.Next() {
		return iter.PaymentIntent(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, stripeClassify("stripe payment intent search", err)
	}
	return nil, nil
}

// Query 查询订单结算状态
// Ok只认PaymentIntent状态为succeeded
func (s *Stripe) Query(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	if err := requireAll(map[string]string{"unique": req.Unique}); err != nil {
		return nil, err
	}

	pi, err := s.findIntent(req.Unique)
	if err != nil {
		return nil, err
	}
	if pi == nil {
		return nil, nil
	}

	receipt := &Receipt{Raw: pi}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return receipt, nil
	}

	receipt.Ok = true
	receipt.Unique = req.Unique
	receipt.Fee = FormatFee(CentsToFee(pi.Amount))
	receipt.CreatedAt = time.Unix(pi.Created, 0).UTC()
	receipt.PaidAt = receipt.CreatedAt
	return receipt, nil
}

// Verify 查询并校验订单
func (s *Stripe) Verify(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	r, err := s.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if r == nil || !r.Ok {
		return nil, &VerificationError{Receipt: r}
	}
	return r, nil
}

// Transfer 向关联账户转账
// AccountId为Stripe连接账户ID（acct_...）
func (s *Stripe) Transfer(ctx context.Context, req *TransferRequest) error {
	if err := requireFee(req.Fee); err != nil {
		return err
	}
	if err := requireAll(map[string]string{"account_id": req.AccountId}); err != nil {
		return err
	}

	transferParams := &stripe.TransferParams{
		Amount:      stripe.Int64(FeeToCents(req.Fee)),
		Currency:    stripe.String(s.cfg.Currency),
		Destination: stripe.String(req.AccountId),
	}
	if _, err := stripeTransfer.New(transferParams); err != nil {
		return stripeClassify("stripe transfer", err)
	}
	return nil
}

// Refund 发起退款
// 先按订单号反查PaymentIntent，退款单号写入metadata供对账
func (s *Stripe) Refund(ctx context.Context, req *RefundRequest) error {
	if err := requireFee(req.Fee); err != nil {
		return err
	}
	if err := requireAll(map[string]string{"unique": req.Unique}); err != nil {
		return err
	}

	pi, err := s.findIntent(req.Unique)
	if err != nil {
		return err
	}
	if pi == nil {
		return &APIError{Msg: "no payment intent for unique: " + req.Unique}
	}

	refundParams := &stripe.RefundParams{
		PaymentIntent: stripe.String(pi.ID),
		Amount:        stripe.Int64(FeeToCents(req.Fee)),
	}
	refundParams.AddMetadata("refund_unique", uniqueOr(req.RefundUnique))

	r, err := stripeRefund.New(refundParams)
	if err != nil {
		return stripeClassify("stripe refund", err)
	}
	switch r.Status {
	case stripe.RefundStatusSucceeded, stripe.RefundStatusPending:
		return nil
	default:
		return &APIError{Msg: "refund not accepted, status: " + string(r.Status), Raw: r}
	}
}

// RefundQuery 退款对账
// 遍历PaymentIntent下的退款记录，按退款单号匹配
func (s *Stripe) RefundQuery(ctx context.Context, req *RefundRequest) (*RefundRecord, error) {
	if err := requireAll(map[string]string{
		"unique":        req.Unique,
		"refund_unique": req.RefundUnique,
	}); err != nil {
		return nil, err
	}

	pi, err := s.findIntent(req.Unique)
	if err != nil {
		return nil, err
	}
	if pi == nil {
		return nil, &APIError{Msg: "no payment intent for unique: " + req.Unique}
	}

	listParams := &stripe.RefundListParams{PaymentIntent: stripe.String(pi.ID)}
	iter := stripeRefund.List(listParams)
	for iter.Next() {
		r := iter.Refund()
		if r.Metadata["refund_unique"] != req.RefundUnique {
			continue
		}
		record := &RefundRecord{Raw: r}
		switch r.Status {
		case stripe.RefundStatusSucceeded:
			record.Ok = true
		case stripe.RefundStatusPending:
			record.Pending = true
		}
		record.Refund = FormatFee(CentsToFee(r.Amount))
		return record, nil
	}
	if err := iter.Err(); err != nil {
		return nil, stripeClassify("stripe refund list", err)
	}
	return nil, &APIError{Msg: "no refund for refund_unique: " + req.RefundUnique}
}

// stripeClassify 区分业务拒绝与传输层错误
func stripeClassify(op string, err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return &APIError{Msg: stripeErr.Msg, Raw: stripeErr}
	}
	return &TransportError{Op: op, Err: err}
}

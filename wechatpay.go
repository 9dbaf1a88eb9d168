// Package payface 统一支付网关门面
package payface

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-pay/gopay"
	"github.com/go-pay/gopay/wechat/v3"
	"go.uber.org/zap"
)

// 微信支付交易/退款状态常量
const (
	wechatTradeSuccess     = "SUCCESS"          // 支付成功
	wechatRefundProcessing = "PROCESSING"       // 退款处理中
	wechatOrderNotExists   = "ORDER_NOT_EXISTS" // 订单不存在
)

// WechatpayConfig 微信支付适配器配置结构体
// 参考文档: https://pay.weixin.qq.com/docs/merchant/products/native-payment/preparation.html
type WechatpayConfig struct {
	AppId      string // 应用ID（公众号/小程序/APP的appid）
	MchId      string // 商户号
	SerialNo   string // 商户证书序列号
	ApiV3Key   string // APIv3密钥，回调解密也用它
	PrivateKey string // 商户私钥（apiclient_key.pem内容）
	NotifyUrl  string // 异步通知URL（必填）

	Logger *zap.Logger // 可选日志器，默认不输出
}

// wechatGateway 微信支付SDK的窄接口
// 四种支付场景共用同一套下单参数，只是调用的交易接口不同
type wechatGateway interface {
	V3TransactionNative(ctx context.Context, bm gopay.BodyMap) (*wechat.NativeRsp, error)
	V3TransactionH5(ctx context.Context, bm gopay.BodyMap) (*wechat.H5Rsp, error)
	V3TransactionApp(ctx context.Context, bm gopay.BodyMap) (*wechat.PrepayRsp, error)
	V3TransactionJsapi(ctx context.Context, bm gopay.BodyMap) (*wechat.PrepayRsp, error)
	PaySignOfApp(appid, prepayid string) (*wechat.AppPayParams, error)
	PaySignOfJSAPI(appid, prepayid string) (*wechat.JSAPIPayParams, error)
	V3TransactionQueryOrder(ctx context.Context, orderNoType wechat.OrderNoType, orderNo string) (*wechat.QueryOrderRsp, error)
	V3Refund(ctx context.Context, bm gopay.BodyMap) (*wechat.RefundRsp, error)
	V3RefundQuery(ctx context.Context, outRefundNo string, bm gopay.BodyMap) (*wechat.RefundQueryRsp, error)
	V3Transfer(ctx context.Context, bm gopay.BodyMap) (*wechat.TransferRsp, error)
}

// Wechatpay 微信支付适配器
// 实现Payface接口，可被并发使用
type Wechatpay struct {
	gateway wechatGateway
	cfg     *WechatpayConfig
	logger  *zap.Logger
}

// NewWechatpay 创建微信支付适配器实例
// 校验凭证后加载并固定最新平台证书，任何一步失败返回*ConfigError
func NewWechatpay(cfg *WechatpayConfig) (*Wechatpay, error) {
	if err := requireAll(map[string]string{
		"app_id":      cfg.AppId,
		"mch_id":      cfg.MchId,
		"serial_no":   cfg.SerialNo,
		"api_v3_key":  cfg.ApiV3Key,
		"private_key": cfg.PrivateKey,
		"notify_url":  cfg.NotifyUrl,
	}); err != nil {
		return nil, newConfigError("wechatpay", err)
	}

	clientV3, err := wechat.NewClientV3(cfg.MchId, cfg.SerialNo, cfg.ApiV3Key, cfg.PrivateKey)
	if err != nil {
		return nil, &ConfigError{Provider: "wechatpay", Reason: err.Error()}
	}
	platformCert, serialNo, err := clientV3.GetAndSelectNewestCert()
	if err != nil {
		return nil, &ConfigError{Provider: "wechatpay", Reason: "load platform cert: " + err.Error()}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wechatpay{
		gateway: clientV3.SetPlatformCert([]byte(platformCert), serialNo),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// buildPayBody 构造下单公共参数
// 金额走decimal换算为分，绝不经过float64
func (w *Wechatpay) buildPayBody(req *PayRequest) gopay.BodyMap {
	bm := gopay.BodyMap{}
	bm.Set("appid", w.cfg.AppId)
	bm.Set("out_trade_no", uniqueOr(req.Unique))
	bm.Set("description", subjectOr(req.Subject))
	bm.Set("notify_url", w.cfg.NotifyUrl)
	bm.SetBodyMap("amount", func(bm gopay.BodyMap) {
		bm.Set("total", FeeToCents(req.Fee))
		bm.Set("currency", "CNY")
	})
	if req.ClientIp != "" {
		bm.SetBodyMap("scene_info", func(bm gopay.BodyMap) {
			bm.Set("payer_client_ip", req.ClientIp)
		})
	}
	for k, v := range req.Extra {
		bm.Set(k, v)
	}
	return bm
}

// PayQrcode 发起Native扫码支付
// 返回二维码内容URL（weixin://wxpay/bizpayurl?...）
func (w *Wechatpay) PayQrcode(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}

	rsp, err := w.gateway.V3TransactionNative(ctx, w.buildPayBody(req))
	if err != nil {
		return nil, &TransportError{Op: "wechatpay native", Err: err}
	}
	if rsp.Code != wechat.Success {
		return nil, &APIError{Msg: rsp.Error, Raw: rsp}
	}
	w.logger.Debug("wechatpay transactions native", zap.Any("raw", rsp))

	return &PayUrl{Url: rsp.Response.CodeUrl, Raw: rsp}, nil
}

// PayMobileWeb 发起H5支付
// 手机浏览器场景要求payer_client_ip与h5_info场景信息
func (w *Wechatpay) PayMobileWeb(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}
	if err := requireAll(map[string]string{"client_ip": req.ClientIp}); err != nil {
		return nil, err
	}

	bm := w.buildPayBody(req)
	bm.SetBodyMap("scene_info", func(bm gopay.BodyMap) {
		bm.Set("payer_client_ip", req.ClientIp)
		bm.SetBodyMap("h5_info", func(bm gopay.BodyMap) {
			bm.Set("type", "Wap")
		})
	})

	rsp, err := w.gateway.V3TransactionH5(ctx, bm)
	if err != nil {
		return nil, &TransportError{Op: "wechatpay h5", Err: err}
	}
	if rsp.Code != wechat.Success {
		return nil, &APIError{Msg: rsp.Error, Raw: rsp}
	}

	return &PayUrl{Url: rsp.Response.H5Url, Raw: rsp}, nil
}

// PayApp 发起APP支付
// 预下单取得prepay_id后用RSA256二次签名，返回客户端SDK调起参数
func (w *Wechatpay) PayApp(ctx context.Context, req *PayRequest) (*AppPayParams, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}

	rsp, err := w.gateway.V3TransactionApp(ctx, w.buildPayBody(req))
	if err != nil {
		return nil, &TransportError{Op: "wechatpay app", Err: err}
	}
	if rsp.Code != wechat.Success {
		return nil, &APIError{Msg: rsp.Error, Raw: rsp}
	}

	params, err := w.gateway.PaySignOfApp(w.cfg.AppId, rsp.Response.PrepayId)
	if err != nil {
		return nil, &TransportError{Op: "wechatpay app paysign", Err: err}
	}

	return &AppPayParams{
		AppId:         params.Appid,
		PartnerId:     params.Partnerid,
		PrepayId:      params.Prepayid,
		NonceStr:      params.Noncestr,
		TimestampSign: params.Timestamp,
		Sign:          params.Sign,
		Package:       params.Package,
		Raw:           rsp,
	}, nil
}

// PayJsapi 发起JSAPI支付
// 微信内置浏览器场景，必须携带付款人openid；
// 账户经微信注册时PayerId即为OpenId，如：oxW9O1ZDvgreSHuBSQDiQ2F055PI
func (w *Wechatpay) PayJsapi(ctx context.Context, req *PayRequest) (*AppPayParams, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}
	if err := requireAll(map[string]string{"payer_id": req.PayerId}); err != nil {
		return nil, err
	}

	bm := w.buildPayBody(req)
	bm.SetBodyMap("payer", func(bm gopay.BodyMap) {
		bm.Set("openid", req.PayerId)
	})

	rsp, err := w.gateway.V3TransactionJsapi(ctx, bm)
	if err != nil {
		return nil, &TransportError{Op: "wechatpay jsapi", Err: err}
	}
	if rsp.Code != wechat.Success {
		return nil, &APIError{Msg: rsp.Error, Raw: rsp}
	}

	params, err := w.gateway.PaySignOfJSAPI(w.cfg.AppId, rsp.Response.PrepayId)
	if err != nil {
		return nil, &TransportError{Op: "wechatpay jsapi paysign", Err: err}
	}

	return &AppPayParams{
		AppId:         params.AppId,
		PrepayId:      rsp.Response.PrepayId,
		NonceStr:      params.NonceStr,
		TimestampSign: params.TimeStamp,
		Sign:          params.PaySign,
		Package:       params.Package,
		Raw:           rsp,
	}, nil
}

// VerifyNotify 验证微信支付异步通知
// 通知信封携带AEAD加密的resource块，先用APIv3密钥解密才能读取
// 交易状态；结构合法但解不开的信封一律视为验证失败，不会panic
func (w *Wechatpay) VerifyNotify(ctx context.Context, n *Notification) (*NotifyResult, bool) {
	if n == nil || len(n.Body) == 0 {
		return nil, false
	}

	var notify wechat.V3NotifyReq
	if err := json.Unmarshal(n.Body, &notify); err != nil {
		return nil, false
	}
	if notify.Resource == nil || notify.Resource.Ciphertext == "" {
		return nil, false
	}

	result, err := wechat.V3DecryptNotifyCipherText(
		notify.Resource.Ciphertext,
		notify.Resource.Nonce,
		notify.Resource.AssociatedData,
		w.cfg.ApiV3Key,
	)
	if err != nil {
		return nil, false
	}

	nr := &NotifyResult{
		Unique:     result.OutTradeNo,
		TradeState: result.TradeState,
		Raw:        result,
	}
	if result.Amount != nil {
		nr.Fee = FormatFee(CentsToFee(int64(result.Amount.Total)))
	}
	return nr, true
}

// Query 查询订单结算状态
// 订单不存在返回(nil, nil)；Ok只认trade_state严格等于SUCCESS，
// NOTPAY、USERPAYING、REVERSED等一律视为未成功
func (w *Wechatpay) Query(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	if err := requireAll(map[string]string{"unique": req.Unique}); err != nil {
		return nil, err
	}

	rsp, err := w.gateway.V3TransactionQueryOrder(ctx, wechat.OutTradeNo, req.Unique)
	if err != nil {
		return nil, &TransportError{Op: "wechatpay query order", Err: err}
	}
	if rsp.Code != wechat.Success {
		if strings.Contains(rsp.Error, wechatOrderNotExists) {
			return nil, nil
		}
		return nil, &APIError{Msg: rsp.Error, Raw: rsp}
	}
	w.logger.Debug("wechatpay query order", zap.Any("raw", rsp))

	receipt := &Receipt{Raw: rsp}
	if rsp.Response.TradeState != wechatTradeSuccess {
		return receipt, nil
	}

	if rsp.Response.Amount == nil {
		return nil, &APIError{Msg: "missing amount in query response", Raw: rsp}
	}
	paidAt, err := time.Parse(time.RFC3339, rsp.Response.SuccessTime)
	if err != nil {
		return nil, &APIError{Msg: "unparseable success_time: " + rsp.Response.SuccessTime, Raw: rsp}
	}

	receipt.Ok = true
	receipt.Unique = rsp.Response.OutTradeNo
	receipt.Fee = FormatFee(CentsToFee(int64(rsp.Response.Amount.Total)))
	receipt.CreatedAt = paidAt
	receipt.PaidAt = paidAt
	return receipt, nil
}

// Verify 查询并校验订单
// 回执缺失或未成功时返回*VerificationError
func (w *Wechatpay) Verify(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	r, err := w.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if r == nil || !r.Ok {
		return nil, &VerificationError{Receipt: r}
	}
	return r, nil
}

// Transfer 商家转账到零钱
// 以单笔明细的转账批次提交；仅在受理成功时返回nil
func (w *Wechatpay) Transfer(ctx context.Context, req *TransferRequest) error {
	if err := requireFee(req.Fee); err != nil {
		return err
	}
	if err := requireAll(map[string]string{"account_id": req.AccountId}); err != nil {
		return err
	}

	remark := req.Subject
	if remark == "" {
		remark = "Direct Transfer"
	}
	cents := FeeToCents(req.Fee)

	detail := gopay.BodyMap{}
	detail.Set("out_detail_no", RandomUnique())
	detail.Set("transfer_amount", cents)
	detail.Set("transfer_remark", remark)
	detail.Set("openid", req.AccountId)
	if req.LegalName != "" {
		detail.Set("user_name", req.LegalName)
	}

	bm := gopay.BodyMap{}
	bm.Set("appid", w.cfg.AppId)
	bm.Set("out_batch_no", uniqueOr(req.Unique))
	bm.Set("batch_name", remark)
	bm.Set("batch_remark", remark)
	bm.Set("total_amount", cents)
	bm.Set("total_num", 1)
	bm.Set("transfer_detail_list", []gopay.BodyMap{detail})

	rsp, err := w.gateway.V3Transfer(ctx, bm)
	if err != nil {
		return &TransportError{Op: "wechatpay transfer", Err: err}
	}
	if rsp.Code != wechat.Success {
		return &APIError{Msg: rsp.Error, Raw: rsp}
	}
	return nil
}

// refundBody 构造退款请求参数
func (w *Wechatpay) refundBody(req *RefundRequest) gopay.BodyMap {
	total := req.Total
	if !total.IsPositive() {
		total = req.Fee
	}

	bm := gopay.BodyMap{}
	bm.Set("out_trade_no", req.Unique)
	bm.Set("out_refund_no", uniqueOr(req.RefundUnique))
	bm.Set("notify_url", w.cfg.NotifyUrl)
	if req.Reason != "" {
		bm.Set("reason", req.Reason)
	}
	bm.SetBodyMap("amount", func(bm gopay.BodyMap) {
		bm.Set("refund", FeeToCents(req.Fee))
		bm.Set("total", FeeToCents(total))
		bm.Set("currency", "CNY")
	})
	return bm
}

// Refund 发起退款
// 仅在微信受理（SUCCESS或PROCESSING）时返回nil，其余状态
// 视为提供商拒绝
func (w *Wechatpay) Refund(ctx context.Context, req *RefundRequest) error {
	if err := requireFee(req.Fee); err != nil {
		return err
	}
	if err := requireAll(map[string]string{"unique": req.Unique}); err != nil {
		return err
	}

	rsp, err := w.gateway.V3Refund(ctx, w.refundBody(req))
	if err != nil {
		return &TransportError{Op: "wechatpay refund", Err: err}
	}
	if rsp.Code != wechat.Success {
		return &APIError{Msg: rsp.Error, Raw: rsp}
	}
	w.logger.Debug("wechatpay refund", zap.Any("raw", rsp))

	switch rsp.Response.Status {
	case wechatTradeSuccess, wechatRefundProcessing:
		return nil
	default:
		return &APIError{Msg: "refund not accepted, status: " + rsp.Response.Status, Raw: rsp}
	}
}

// RefundQuery 退款对账
// 与支付宝不同，微信提供独立的退款单查询接口，按out_refund_no
// 查询而非重放退款请求
func (w *Wechatpay) RefundQuery(ctx context.Context, req *RefundRequest) (*RefundRecord, error) {
	if err := requireAll(map[string]string{"refund_unique": req.RefundUnique}); err != nil {
		return nil, err
	}

	rsp, err := w.gateway.V3RefundQuery(ctx, req.RefundUnique, nil)
	if err != nil {
		return nil, &TransportError{Op: "wechatpay refund query", Err: err}
	}
	if rsp.Code != wechat.Success {
		return nil, &APIError{Msg: rsp.Error, Raw: rsp}
	}

	record := &RefundRecord{Raw: rsp}
	switch rsp.Response.Status {
	case wechatTradeSuccess:
		record.Ok = true
	case wechatRefundProcessing:
		record.Pending = true
	}
	if rsp.Response.Amount != nil {
		record.Refund = FormatFee(CentsToFee(int64(rsp.Response.Amount.Refund)))
	}
	return record, nil
}

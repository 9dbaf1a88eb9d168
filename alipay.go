// Package payface 统一支付网关门面
package payface

import (
	"context"
	"net/url"
	"time"

	"github.com/go-pay/gopay"
	"github.com/go-pay/gopay/alipay"
	"go.uber.org/zap"
)

// AlipayAuthType 支付宝认证方式
type AlipayAuthType string

// 支付宝认证方式常量定义
const (
	AlipayAuthSecret AlipayAuthType = "secret" // 公钥模式
	AlipayAuthCert   AlipayAuthType = "cert"   // 证书模式
)

// 支付宝交易状态与业务错误码
const (
	alipayTradeSuccess  = "TRADE_SUCCESS"       // 交易支付成功
	alipayTradeFinished = "TRADE_FINISHED"      // 交易结束，不可退款
	alipayTradeNotExist = "ACQ.TRADE_NOT_EXIST" // 交易不存在
)

// 支付宝时间字段格式（东八区，如"2019-02-13 19:20:44"）
const alipayTimeLayout = "2006-01-02 15:04:05"

var alipayTimeZone = time.FixedZone("CST", 8*3600)

// AlipayConfig 支付宝适配器配置结构体
// 构造时一次性校验，适配器生命周期内不可变
type AlipayConfig struct {
	AppId      string         // 应用ID
	PrivateKey string         // 应用私钥
	AuthType   AlipayAuthType // 认证方式：secret或cert
	NotifyUrl  string         // 异步通知URL（必填）
	ReturnUrl  string         // 同步跳转URL
	IsProd     bool           // 是否为生产环境

	// 公钥模式
	AlipayPublicKey string // 支付宝公钥

	// 证书模式
	AlipayRootCert   string // 支付宝根证书内容
	AlipayPublicCert string // 支付宝公钥证书内容
	AppCert          string // 应用证书内容

	Logger *zap.Logger // 可选日志器，默认不输出
}

// alipayGateway 支付宝SDK的窄接口
// 适配器只通过这组操作访问SDK，便于单元测试注入假网关
type alipayGateway interface {
	TradePrecreate(ctx context.Context, bm gopay.BodyMap) (*alipay.TradePrecreateResponse, error)
	TradeWapPay(ctx context.Context, bm gopay.BodyMap) (string, error)
	TradeAppPay(ctx context.Context, bm gopay.BodyMap) (string, error)
	TradeQuery(ctx context.Context, bm gopay.BodyMap) (*alipay.TradeQueryResponse, error)
	TradeRefund(ctx context.Context, bm gopay.BodyMap) (*alipay.TradeRefundResponse, error)
	FundTransUniTransfer(ctx context.Context, bm gopay.BodyMap) (*alipay.FundTransUniTransferResponse, error)
	PostAliPayAPISelfV2(ctx context.Context, bm gopay.BodyMap, method string, aliRsp interface{}) error
}

// Alipay 支付宝适配器
// 实现Payface接口，可被并发使用
type Alipay struct {
	gateway alipayGateway
	cfg     *AlipayConfig
	logger  *zap.Logger
}

// NewAlipay 创建支付宝适配器实例
// 按认证方式校验凭证组合，缺失或未知方式返回*ConfigError
func NewAlipay(cfg *AlipayConfig) (*Alipay, error) {
	if err := requireAll(map[string]string{
		"app_id":      cfg.AppId,
		"private_key": cfg.PrivateKey,
		"notify_url":  cfg.NotifyUrl,
	}); err != nil {
		return nil, newConfigError("alipay", err)
	}

	switch cfg.AuthType {
	case AlipayAuthSecret:
		if err := requireAll(map[string]string{
			"alipay_public_key": cfg.AlipayPublicKey,
		}); err != nil {
			return nil, newConfigError("alipay", err)
		}
	case AlipayAuthCert:
		if err := requireAll(map[string]string{
			"alipay_root_cert":   cfg.AlipayRootCert,
			"alipay_public_cert": cfg.AlipayPublicCert,
			"app_cert":           cfg.AppCert,
		}); err != nil {
			return nil, newConfigError("alipay", err)
		}
	default:
		return nil, &ConfigError{
			Provider: "alipay",
			Reason:   `unknown auth_type "` + string(cfg.AuthType) + `", should be one of: ["secret","cert"]`,
		}
	}

	client, err := alipay.NewClient(cfg.AppId, cfg.PrivateKey, cfg.IsProd)
	if err != nil {
		return nil, &ConfigError{Provider: "alipay", Reason: err.Error()}
	}
	if cfg.AuthType == AlipayAuthCert {
		err = client.SetCertSnByContent([]byte(cfg.AppCert), []byte(cfg.AlipayRootCert), []byte(cfg.AlipayPublicCert))
		if err != nil {
			return nil, &ConfigError{Provider: "alipay", Reason: err.Error()}
		}
	}
	client.SetNotifyUrl(cfg.NotifyUrl)
	if cfg.ReturnUrl != "" {
		client.SetReturnUrl(cfg.ReturnUrl)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alipay{gateway: client, cfg: cfg, logger: logger}, nil
}

// buildPayBody 构造下单公共参数
func (a *Alipay) buildPayBody(req *PayRequest) gopay.BodyMap {
	bm := gopay.BodyMap{}
	bm.Set("out_trade_no", uniqueOr(req.Unique))
	bm.Set("total_amount", FormatFee(req.Fee))
	bm.Set("subject", subjectOr(req.Subject))
	if req.ReturnUrl != "" {
		bm.Set("return_url", req.ReturnUrl)
	}
	for k, v := range req.Extra {
		bm.Set(k, v)
	}
	return bm
}

// PayQrcode 发起扫码支付
// 预下单后返回二维码内容URL
func (a *Alipay) PayQrcode(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}

	rsp, err := a.gateway.TradePrecreate(ctx, a.buildPayBody(req))
	if err != nil {
		return nil, a.classify("alipay.trade.precreate", err)
	}
	a.logger.Debug("alipay trade precreate", zap.Any("raw", rsp))

	return &PayUrl{Url: rsp.Response.QrCode, Raw: rsp}, nil
}

// PayMobileWeb 发起手机网站支付
// 返回手机浏览器跳转URL
func (a *Alipay) PayMobileWeb(ctx context.Context, req *PayRequest) (*PayUrl, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}

	bm := a.buildPayBody(req)
	bm.Set("product_code", "QUICK_WAP_WAY")
	payUrl, err := a.gateway.TradeWapPay(ctx, bm)
	if err != nil {
		return nil, a.classify("alipay.trade.wap.pay", err)
	}

	return &PayUrl{Url: payUrl}, nil
}

// PayApp 发起APP支付
// 走SDK底层签名路径取原始订单串，由客户端SDK调起支付；
// 不能使用浏览器跳转的URL拼接方式
func (a *Alipay) PayApp(ctx context.Context, req *PayRequest) (*AppPayParams, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}

	bm := a.buildPayBody(req)
	bm.Set("product_code", "QUICK_MSECURITY_PAY")
	payParam, err := a.gateway.TradeAppPay(ctx, bm)
	if err != nil {
		return nil, a.classify("alipay.trade.app.pay", err)
	}

	return &AppPayParams{
		AppId:     a.cfg.AppId,
		OrderInfo: payParam,
	}, nil
}

// VerifyNotify 验证支付宝异步通知签名
// 载荷为form编码的通知请求体；解析或验签失败一律返回(nil, false)
func (a *Alipay) VerifyNotify(ctx context.Context, n *Notification) (*NotifyResult, bool) {
	if n == nil || len(n.Body) == 0 {
		return nil, false
	}
	values, err := url.ParseQuery(string(n.Body))
	if err != nil {
		return nil, false
	}
	bm := gopay.BodyMap{}
	for k := range values {
		bm.Set(k, values.Get(k))
	}

	var ok bool
	switch a.cfg.AuthType {
	case AlipayAuthCert:
		ok, err = alipay.VerifySignWithCert([]byte(a.cfg.AlipayPublicCert), bm)
	default:
		ok, err = alipay.VerifySign(a.cfg.AlipayPublicKey, bm)
	}
	if err != nil || !ok {
		return nil, false
	}

	result := &NotifyResult{
		Unique:     bm.GetString("out_trade_no"),
		TradeState: bm.GetString("trade_status"),
		Raw:        bm,
	}
	if fee, err := ParseFee(bm.GetString("total_amount")); err == nil {
		result.Fee = FormatFee(fee)
	}
	return result, true
}

// Query 查询订单结算状态
// 交易不存在返回(nil, nil)；Ok要求业务受理成功且交易状态
// 为TRADE_SUCCESS或TRADE_FINISHED，仅有受理码不代表钱已到账
func (a *Alipay) Query(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	if err := requireAll(map[string]string{"unique": req.Unique}); err != nil {
		return nil, err
	}

	bm := gopay.BodyMap{}
	bm.Set("out_trade_no", req.Unique)
	rsp, err := a.gateway.TradeQuery(ctx, bm)
	if err != nil {
		if bizErr, isBiz := alipay.IsBizError(err); isBiz {
			if bizErr.SubCode == alipayTradeNotExist {
				return nil, nil
			}
			return nil, &APIError{Msg: bizErr.Error(), Raw: bizErr}
		}
		return nil, &TransportError{Op: "alipay.trade.query", Err: err}
	}
	a.logger.Debug("alipay trade query", zap.Any("raw", rsp))

	receipt := &Receipt{Raw: rsp}
	status := rsp.Response.TradeStatus
	if status != alipayTradeSuccess && status != alipayTradeFinished {
		return receipt, nil
	}

	fee, err := ParseFee(rsp.Response.TotalAmount)
	if err != nil {
		return nil, &APIError{Msg: "unparseable total_amount: " + rsp.Response.TotalAmount, Raw: rsp}
	}
	paidAt, err := time.ParseInLocation(alipayTimeLayout, rsp.Response.SendPayDate, alipayTimeZone)
	if err != nil {
		return nil, &APIError{Msg: "unparseable send_pay_date: " + rsp.Response.SendPayDate, Raw: rsp}
	}

	receipt.Ok = true
	receipt.Unique = rsp.Response.OutTradeNo
	receipt.Fee = FormatFee(fee)
	receipt.CreatedAt = paidAt
	receipt.PaidAt = paidAt
	return receipt, nil
}

// Verify 查询并校验订单
// 回执缺失或未成功时返回*VerificationError
func (a *Alipay) Verify(ctx context.Context, req *QueryRequest) (*Receipt, error) {
	r, err := a.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if r == nil || !r.Ok {
		return nil, &VerificationError{Receipt: r}
	}
	return r, nil
}

// Transfer 单笔转账到支付宝账户
// 可用于给用户提现；仅在返回SUCCESS时视为成功
func (a *Alipay) Transfer(ctx context.Context, req *TransferRequest) error {
	if err := requireFee(req.Fee); err != nil {
		return err
	}
	if err := requireAll(map[string]string{"account_id": req.AccountId}); err != nil {
		return err
	}

	bm := gopay.BodyMap{}
	bm.Set("out_biz_no", uniqueOr(req.Unique))
	bm.Set("trans_amount", FormatFee(req.Fee))
	bm.Set("product_code", "TRANS_ACCOUNT_NO_PWD")
	bm.Set("biz_scene", "DIRECT_TRANSFER")
	if req.Subject != "" {
		bm.Set("order_title", req.Subject)
	} else {
		bm.Set("order_title", "Direct Transfer")
	}
	bm.SetBodyMap("payee_info", func(bm gopay.BodyMap) {
		bm.Set("identity_type", "ALIPAY_LOGON_ID")
		bm.Set("identity", req.AccountId)
		bm.Set("name", req.LegalName)
	})

	rsp, err := a.gateway.FundTransUniTransfer(ctx, bm)
	if err != nil {
		return a.classify("alipay.fund.trans.uni.transfer", err)
	}
	if rsp.Response.Status != "SUCCESS" {
		return &APIError{Msg: "transfer not in SUCCESS status: " + rsp.Response.Status, Raw: rsp}
	}
	return nil
}

// refundBody 构造退款请求参数
// 退款与退款对账共用：同一out_request_no重复提交是幂等的
func (a *Alipay) refundBody(req *RefundRequest) gopay.BodyMap {
	bm := gopay.BodyMap{}
	bm.Set("out_trade_no", req.Unique)
	bm.Set("refund_amount", FormatFee(req.Fee))
	bm.Set("out_request_no", uniqueOr(req.RefundUnique))
	if req.Reason != "" {
		bm.Set("refund_reason", req.Reason)
	}
	return bm
}

// Refund 发起退款
// 仅在支付宝受理成功时返回nil
func (a *Alipay) Refund(ctx context.Context, req *RefundRequest) error {
	if err := requireFee(req.Fee); err != nil {
		return err
	}
	if err := requireAll(map[string]string{"unique": req.Unique}); err != nil {
		return err
	}

	rsp, err := a.gateway.TradeRefund(ctx, a.refundBody(req))
	if err != nil {
		return a.classify("alipay.trade.refund", err)
	}
	a.logger.Debug("alipay trade refund", zap.Any("raw", rsp))
	return nil
}

// RefundQuery 退款对账
// 支付宝退款接口按out_request_no幂等，重放原请求即可取回
// 实际退款金额；退款同步到账，不存在Pending状态
func (a *Alipay) RefundQuery(ctx context.Context, req *RefundRequest) (*RefundRecord, error) {
	if err := requireFee(req.Fee); err != nil {
		return nil, err
	}
	if err := requireAll(map[string]string{
		"unique":        req.Unique,
		"refund_unique": req.RefundUnique,
	}); err != nil {
		return nil, err
	}

	rsp, err := a.gateway.TradeRefund(ctx, a.refundBody(req))
	if err != nil {
		return nil, a.classify("alipay.trade.refund", err)
	}

	record := &RefundRecord{Ok: true, Raw: rsp}
	if fee, err := ParseFee(rsp.Response.RefundFee); err == nil {
		record.Refund = FormatFee(fee)
	} else {
		record.Refund = FormatFee(req.Fee)
	}
	return record, nil
}

// AlipayBalance 账户余额结构体
type AlipayBalance struct {
	Total     string // 账户总额（元）
	Available string // 可用余额（元）
	Frozen    string // 冻结金额（元）
}

// alipayBalanceRsp 余额查询响应
// SDK未内置该接口，走自调用通道
type alipayBalanceRsp struct {
	Response struct {
		Code            string `json:"code"`
		Msg             string `json:"msg"`
		SubCode         string `json:"sub_code"`
		SubMsg          string `json:"sub_msg"`
		TotalAmount     string `json:"total_amount"`
		AvailableAmount string `json:"available_amount"`
		FreezeAmount    string `json:"freeze_amount"`
	} `json:"alipay_data_bill_balance_query_response"`
}

// GetBalance 查询商户账户余额
func (a *Alipay) GetBalance(ctx context.Context) (*AlipayBalance, error) {
	var rsp alipayBalanceRsp
	err := a.gateway.PostAliPayAPISelfV2(ctx, gopay.BodyMap{}, "alipay.data.bill.balance.query", &rsp)
	if err != nil {
		return nil, &TransportError{Op: "alipay.data.bill.balance.query", Err: err}
	}
	if rsp.Response.Code != "10000" {
		return nil, &APIError{Msg: "balance query rejected: " + rsp.Response.SubMsg, Raw: rsp}
	}
	return &AlipayBalance{
		Total:     rsp.Response.TotalAmount,
		Available: rsp.Response.AvailableAmount,
		Frozen:    rsp.Response.FreezeAmount,
	}, nil
}

// classify 区分业务拒绝与传输层错误
func (a *Alipay) classify(op string, err error) error {
	if bizErr, isBiz := alipay.IsBizError(err); isBiz {
		return &APIError{Msg: bizErr.Error(), Raw: bizErr}
	}
	return &TransportError{Op: op, Err: err}
}

// subjectOr 返回商品标题，为空时使用默认值
func subjectOr(subject string) string {
	if subject == "" {
		return "Quick pay"
	}
	return subject
}

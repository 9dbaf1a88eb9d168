// Package payface 统一支付网关门面
// 为支付宝、微信支付、Stripe等多种支付提供商提供一致的
// 下单、查询、验证、转账、退款接口
package payface

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PayRequest 支付请求结构体
// 发起一笔支付所需的全部参数，Fee必须为正数
type PayRequest struct {
	Fee       decimal.Decimal   // 支付金额（元）
	Unique    string            // 商户订单号（幂等标识），为空时自动生成
	Subject   string            // 商品标题
	ReturnUrl string            // 支付完成后的跳转URL（覆盖适配器默认值）
	ClientIp  string            // 付款人客户端IP（H5/APP场景必填）
	PayerId   string            // 付款人标识（微信OpenId等）
	Extra     map[string]string // 提供商特有的扩展字段
}

// QueryRequest 订单查询请求结构体
type QueryRequest struct {
	Unique string // 商户订单号
}

// TransferRequest 转账请求结构体
type TransferRequest struct {
	Fee       decimal.Decimal // 转账金额（元）
	Unique    string          // 商户转账单号，为空时自动生成
	AccountId string          // 收款账户标识（支付宝登录号、微信OpenId等）
	LegalName string          // 收款人真实姓名
	Subject   string          // 转账备注
}

// RefundRequest 退款请求结构体
type RefundRequest struct {
	Fee          decimal.Decimal // 退款金额（元）
	Total        decimal.Decimal // 原订单总金额（元），未填时按全额退款处理
	Unique       string          // 原商户订单号
	RefundUnique string          // 商户退款单号，为空时自动生成
	Reason       string          // 退款原因
}

// PayUrl 支付链接结果结构体
type PayUrl struct {
	Url string      // 支付URL（二维码内容或跳转地址）
	Raw interface{} // 提供商原始响应
}

// AppPayParams APP支付调起参数结构体
// 原生APP内调起支付SDK所需的签名字段集合
type AppPayParams struct {
	AppId         string      // 应用ID
	PartnerId     string      // 商户号
	PrepayId      string      // 预支付交易会话ID
	NonceStr      string      // 随机字符串
	TimestampSign string      // 参与签名的时间戳
	Sign          string      // 签名
	Package       string      // 扩展字段（如"Sign=WXPay"）
	OrderInfo     string      // 完整签名订单串（网关一次性下发时使用）
	Raw           interface{} // 提供商原始响应
}

// Notification 支付回调通知结构体
// Body为回调请求体原文，Signature为传输层签名头（仅部分提供商使用）
type Notification struct {
	Body      []byte // 通知请求体
	Signature string // 签名请求头（如Stripe-Signature）
}

// NotifyResult 回调验签结果结构体
type NotifyResult struct {
	Unique     string      // 商户订单号
	Fee        string      // 金额（元，两位小数）
	TradeState string      // 提供商交易状态原文
	Raw        interface{} // 验签/解密后的载荷
}

// Receipt 标准化对账回执结构体
// Ok为true时Unique、Fee、CreatedAt必然有值；
// Ok为false时不得信任其余字段
type Receipt struct {
	Ok        bool        // 提供商是否确认交易成功
	Unique    string      // 商户订单号（提供商回传）
	Fee       string      // 交易金额（元，两位小数）
	CreatedAt time.Time   // 交易完成时间
	PaidAt    time.Time   // 付款时间
	Raw       interface{} // 提供商原始响应（审计用）
}

// RefundRecord 退款对账记录结构体
// Ok与Pending互斥：Ok表示退款已到账，Pending表示提供商已受理未结算
type RefundRecord struct {
	Ok      bool        // 退款已完成
	Pending bool        // 退款处理中
	Refund  string      // 实际退款金额（元，两位小数）
	Raw     interface{} // 提供商原始响应
}

// Payface 支付提供商统一接口
// 调用方只持有该接口，不感知具体提供商；
// 各适配器的凭证在构造时一次性校验，实例可被并发使用
type Payface interface {
	// PayQrcode 发起扫码支付
	// 返回可生成二维码的支付URL
	PayQrcode(ctx context.Context, req *PayRequest) (*PayUrl, error)

	// PayMobileWeb 发起手机浏览器支付
	// 返回跳转URL
	PayMobileWeb(ctx context.Context, req *PayRequest) (*PayUrl, error)

	// PayApp 发起原生APP支付
	// 返回APP端调起支付所需的签名参数
	PayApp(ctx context.Context, req *PayRequest) (*AppPayParams, error)

	// VerifyNotify 验证回调通知是否确实来自提供商
	// 处于未认证的网络边界上，任何畸形、伪造或无法解密的
	// 载荷都返回(nil, false)，绝不panic或返回error
	VerifyNotify(ctx context.Context, n *Notification) (*NotifyResult, bool)

	// Query 查询订单结算状态
	// 提供商完全没有该订单记录时返回(nil, nil)；
	// 订单存在但未支付时返回Ok=false的回执
	Query(ctx context.Context, req *QueryRequest) (*Receipt, error)

	// Verify 查询并校验订单
	// 回执缺失或Ok=false时返回*VerificationError，
	// 业务方应以此方法作为放行依据
	Verify(ctx context.Context, req *QueryRequest) (*Receipt, error)

	// Transfer 向外部账户转账
	// 仅在提供商确认成功时返回nil
	Transfer(ctx context.Context, req *TransferRequest) error

	// Refund 发起退款
	// 仅在提供商受理（成功或处理中）时返回nil，不会静默丢弃
	Refund(ctx context.Context, req *RefundRequest) error

	// RefundQuery 退款对账
	// 按退款单号查询先前退款的实际状态与金额
	RefundQuery(ctx context.Context, req *RefundRequest) (*RefundRecord, error)
}

// 编译期接口断言
var (
	_ Payface = (*Alipay)(nil)
	_ Payface = (*Wechatpay)(nil)
	_ Payface = (*Stripe)(nil)
	_ Payface = (*Dummy)(nil)
)

// Package payface 统一支付网关门面
package payface

import (
	"github.com/shopspring/decimal"
)

// 金额换算统一走decimal，两个适配器共享同一套舍入行为；
// 禁止用float64参与金额运算，0.1元这类值在二进制浮点下不精确

var centsPerYuan = decimal.NewFromInt(100)

// FeeToCents 将金额（元）转换为最小货币单位（分）
// 乘以100后四舍五入取整
func FeeToCents(fee decimal.Decimal) int64 {
	return fee.Mul(centsPerYuan).Round(0).IntPart()
}

// CentsToFee 将最小货币单位（分）转换为金额（元）
func CentsToFee(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsPerYuan)
}

// FormatFee 将金额格式化为两位小数的字符串
// 如：0.1 => "0.10"
func FormatFee(fee decimal.Decimal) string {
	return fee.StringFixed(2)
}

// ParseFee 解析金额字符串
func ParseFee(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ArgumentError{Reason: "unparseable fee: " + s}
	}
	return d, nil
}

// requireFee 校验金额为正数
// 所有资金操作发起网络调用前的统一入口检查
func requireFee(fee decimal.Decimal) error {
	if !fee.IsPositive() {
		return &ArgumentError{Reason: "fee must be a positive decimal, got: " + fee.String()}
	}
	return nil
}

// Package payface 统一支付网关门面
package payface

import (
	"strings"

	"github.com/google/uuid"
)

// RandomUnique 生成商户订单号（幂等标识）
// 基于UUIDv4去掉连字符，32位十六进制，满足各提供商
// out_trade_no/out_biz_no对字符集和长度的限制
func RandomUnique() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// uniqueOr 返回调用方指定的订单号，为空时生成一个
func uniqueOr(unique string) string {
	if unique == "" {
		return RandomUnique()
	}
	return unique
}

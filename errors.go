// Package payface 统一支付网关门面
package payface

import (
	"errors"
	"fmt"
)

// ArgumentError 参数错误
// 调用方缺少必填参数或参数非法，在任何网络调用之前抛出
type ArgumentError struct {
	Missing []string // 缺失的参数名
	Reason  string   // 其他参数问题描述
}

func (e *ArgumentError) Error() string {
	if len(e.Missing) > 0 {
		return "payface: missing required arguments: " + invalidList(e.Missing)
	}
	return "payface: invalid argument: " + e.Reason
}

// ConfigError 配置错误
// 适配器构造时凭证不完整或互相矛盾，该实例不可用
type ConfigError struct {
	Provider string // 提供商名称
	Reason   string // 配置问题描述
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("payface: invalid %s config: %s", e.Provider, e.Reason)
}

// APIError 提供商拒绝错误
// 请求已被提供商处理但返回失败，Raw保留原始响应供排查
type APIError struct {
	Msg string      // 错误描述
	Raw interface{} // 提供商原始响应
}

func (e *APIError) Error() string {
	return "payface: rejected by provider: " + e.Msg
}

// VerificationError 验证失败错误
// 订单不存在或未处于成功状态，属于"未支付完成"的正常业务结果；
// Receipt为查询到的回执，可能为nil
type VerificationError struct {
	Receipt *Receipt
}

func (e *VerificationError) Error() string {
	if e.Receipt == nil {
		return "payface: failed to verify payment: no such order"
	}
	return "payface: failed to verify payment: trade not in success state"
}

// TransportError 传输层错误
// 网络中断、超时或SDK内部错误，包装底层原因
type TransportError struct {
	Op  string // 出错的操作名
	Err error  // 底层错误
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("payface: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// newConfigError 将构造期的参数校验失败转换为配置错误
func newConfigError(provider string, err error) error {
	var ae *ArgumentError
	if errors.As(err, &ae) && len(ae.Missing) > 0 {
		return &ConfigError{Provider: provider, Reason: "missing " + invalidList(ae.Missing)}
	}
	return &ConfigError{Provider: provider, Reason: err.Error()}
}

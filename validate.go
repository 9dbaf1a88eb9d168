// Package payface 统一支付网关门面
package payface

import (
	"fmt"
	"sort"
	"strings"
)

// requireAll 校验一组具名参数全部非空
// 有缺失时返回列出全部缺失项的*ArgumentError，否则返回nil
func requireAll(args map[string]string) error {
	var lack []string
	for key, value := range args {
		if value == "" {
			lack = append(lack, key)
		}
	}
	if len(lack) > 0 {
		sort.Strings(lack)
		return &ArgumentError{Missing: lack}
	}
	return nil
}

// invalidList 渲染参数名列表，如：["a","b"]
func invalidList(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = `"` + k + `"`
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// invalidMap 渲染键值对诊断信息，如：a=11, b="bb"
func invalidMap(args map[string]interface{}) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := args[k].(type) {
		case string:
			pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
		default:
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(pairs, ", ")
}

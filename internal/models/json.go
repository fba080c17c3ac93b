// 本文件用于详情字段的 JSON 安全处理
package models

import (
	"encoding/json"
	"math"
	"time"
)

// JSONSafeFloat 将浮点值转换为可被 JSON 序列化的值
// 时延的 +Inf 哨兵值无法直接编码 统一转换为字符串 "inf"
func JSONSafeFloat(v float64) interface{} {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	if math.IsNaN(v) {
		return "nan"
	}
	return v
}

// JSONSafeFloats 批量转换浮点切片
func JSONSafeFloats(values []float64) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, JSONSafeFloat(v))
	}
	return out
}

// MarshalJSON 输出面板与 CLI 使用的 snake_case 结构
// 时延的 +Inf 哨兵值经安全转换 避免编码失败
func (r StatusRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"timestamp":   r.Timestamp.UTC().Format(time.RFC3339),
		"target":      r.Target,
		"target_type": r.TargetType,
		"latency":     JSONSafeFloat(r.LatencyMs),
		"packet_loss": r.PacketLossPct,
		"status":      r.Status,
		"details":     r.Details,
	})
}

// MarshalJSON 输出面板与 CLI 使用的 snake_case 结构
func (a Alert) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"id":          a.ID,
		"timestamp":   a.Timestamp.UTC().Format(time.RFC3339),
		"rule_name":   a.RuleName,
		"target":      a.Target,
		"target_type": a.TargetType,
		"severity":    a.Severity,
		"message":     a.Message,
		"details":     a.Details,
		"resolved":    a.Resolved,
	}
	if a.ResolvedAt != nil {
		out["resolved_at"] = a.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

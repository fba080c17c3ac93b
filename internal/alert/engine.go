// 本文件用于对状态记录执行告警规则评估
package alert

import (
	"fmt"
	"time"

	"net-monitor/internal/logger"
	"net-monitor/internal/models"
)

// Engine 负责用规则集评估状态记录
type Engine struct {
	rules *RuleSet
	now   func() time.Time
}

// NewEngine 创建告警评估引擎
func NewEngine(rules *RuleSet) *Engine {
	return &Engine{
		rules: rules,
		now:   time.Now,
	}
}

// Rules 返回引擎持有的规则集
func (e *Engine) Rules() *RuleSet {
	return e.rules
}

// Evaluate 按声明顺序评估启用的规则 返回本次触发的全部告警
// 评估遍历的是规则快照 与并发的规则变更互不干扰
func (e *Engine) Evaluate(record models.StatusRecord) []models.Alert {
	snapshot := e.rules.Snapshot()
	now := e.now()

	alerts := make([]models.Alert, 0)
	for _, rule := range snapshot {
		if !rule.IsEnabled() {
			continue
		}
		if !rule.matchesTarget(record.TargetType) {
			continue
		}
		// 目前只有阈值条件有评估语义 其余类型在配置阶段已被拒绝
		if rule.Condition != ConditionThreshold {
			continue
		}
		if record.PacketLossPct < rule.Threshold {
			continue
		}
		if !e.rules.allowFire(rule.Name, record.Target, now) {
			logger.Debug("告警被抑制: rule=%s target=%s", rule.Name, record.Target)
			continue
		}
		alerts = append(alerts, buildAlert(rule, record, now))
	}
	return alerts
}

func buildAlert(rule Rule, record models.StatusRecord, now time.Time) models.Alert {
	return models.Alert{
		Timestamp:  now,
		RuleName:   rule.Name,
		Target:     record.Target,
		TargetType: record.TargetType,
		Severity:   rule.Severity,
		Message:    fmt.Sprintf("%s: %s packet loss %.1f%%", rule.Name, record.Target, record.PacketLossPct),
		Details: map[string]interface{}{
			"packet_loss": record.PacketLossPct,
			"latency":     models.JSONSafeFloat(record.LatencyMs),
			"threshold":   rule.Threshold,
			"target_type": string(record.TargetType),
		},
	}
}

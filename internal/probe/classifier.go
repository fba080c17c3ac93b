// 本文件用于根据丢包率判定目标健康状态
package probe

import (
	"net-monitor/internal/models"
)

// 状态判定阈值是分类器的固定常量 与告警规则的阈值体系相互独立
const (
	degradedLossThreshold = 20.0
	downLossThreshold     = 100.0
)

// Classify 根据平均丢包率判定健康状态
func Classify(lossPct float64) models.HealthStatus {
	switch {
	case lossPct >= downLossThreshold:
		return models.StatusDown
	case lossPct >= degradedLossThreshold:
		return models.StatusDegraded
	default:
		return models.StatusOperational
	}
}

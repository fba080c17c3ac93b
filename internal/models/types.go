// 本文件用于定义网络监控的配置与业务模型
package models

import (
	"time"
)

// TargetType 表示监控目标的分类
type TargetType string

const (
	// TargetCable 表示海缆登陆点
	TargetCable TargetType = "cable"
	// TargetISP 表示运营商网关
	TargetISP TargetType = "isp"
	// TargetCloud 表示云服务商区域节点
	TargetCloud TargetType = "cloud"
)

// ParseTargetType 解析目标类型
func ParseTargetType(raw string) (TargetType, bool) {
	switch TargetType(raw) {
	case TargetCable, TargetISP, TargetCloud:
		return TargetType(raw), true
	default:
		return "", false
	}
}

// HealthStatus 表示单个目标的健康状态
type HealthStatus string

const (
	// StatusOperational 表示链路正常
	StatusOperational HealthStatus = "operational"
	// StatusDegraded 表示链路劣化
	StatusDegraded HealthStatus = "degraded"
	// StatusDown 表示链路完全不可达
	StatusDown HealthStatus = "down"
)

// Severity 表示告警级别 由低到高排序
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity 解析告警级别
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(raw) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(raw), true
	default:
		return "", false
	}
}

// StatusRecord 表示一次探测聚合后的状态记录
// 由监控周期创建 写入存储后不再修改
type StatusRecord struct {
	Timestamp     time.Time
	Target        string
	TargetType    TargetType
	LatencyMs     float64 // 全部采样失败时为 +Inf
	PacketLossPct float64 // 取值范围 [0,100]
	Status        HealthStatus
	Details       map[string]interface{}
}

// Alert 表示一条由规则评估产生的告警
// ID 由存储层在首次落库时分配
type Alert struct {
	ID         int64
	Timestamp  time.Time
	RuleName   string
	Target     string
	TargetType TargetType
	Severity   Severity
	Message    string
	Details    map[string]interface{}
	Resolved   bool
	ResolvedAt *time.Time
}

// StatusSummary 表示按目标类型与状态分组的计数
type StatusSummary map[TargetType]map[HealthStatus]int

// NewStatusSummary 创建一个三类目标全零的汇总
func NewStatusSummary() StatusSummary {
	summary := StatusSummary{}
	for _, targetType := range []TargetType{TargetCable, TargetISP, TargetCloud} {
		summary[targetType] = map[HealthStatus]int{
			StatusOperational: 0,
			StatusDegraded:    0,
			StatusDown:        0,
		}
	}
	return summary
}

// AlertStatistics 表示时间窗口内的告警统计
type AlertStatistics struct {
	Total      int                `json:"total"`
	Resolved   int                `json:"resolved"`
	Active     int                `json:"active"`
	BySeverity map[Severity]int   `json:"bySeverity"`
	ByType     map[TargetType]int `json:"byType"`
}

// 本文件用于定义告警规则与规则文件解析
package alert

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"net-monitor/internal/models"
)

// Condition 表示规则的触发条件类型
type Condition string

const (
	// ConditionThreshold 表示丢包率阈值条件
	ConditionThreshold Condition = "threshold"
	// ConditionPercentage 与 ConditionConsecutiveFailures 属于规则词汇表
	// 但没有定义评估语义 配置阶段直接拒绝 避免静默不生效
	ConditionPercentage          Condition = "percentage"
	ConditionConsecutiveFailures Condition = "consecutive_failures"
)

// 规则的目标类型过滤支持三类目标或 all
const TargetAll = "all"

// Rule 表示一条告警规则
type Rule struct {
	Name       string          `yaml:"name" json:"name"`
	Condition  Condition       `yaml:"condition" json:"condition"`
	Threshold  float64         `yaml:"threshold" json:"threshold"`
	TargetType string          `yaml:"target_type" json:"target_type"`
	Severity   models.Severity `yaml:"severity" json:"severity"`
	Enabled    *bool           `yaml:"enabled" json:"enabled"`
}

// IsEnabled 返回规则是否启用 缺省为启用
func (r Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// matchesTarget 判断规则是否适用于指定目标类型
func (r Rule) matchesTarget(targetType models.TargetType) bool {
	return r.TargetType == TargetAll || r.TargetType == string(targetType)
}

// DefaultRules 返回五条内置默认规则
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "High Packet Loss Alert",
			Condition:  ConditionThreshold,
			Threshold:  20.0,
			TargetType: TargetAll,
			Severity:   models.SeverityMedium,
		},
		{
			Name:       "Complete Outage Alert",
			Condition:  ConditionThreshold,
			Threshold:  100.0,
			TargetType: TargetAll,
			Severity:   models.SeverityHigh,
		},
		{
			Name:       "Submarine Cable System Anomaly",
			Condition:  ConditionThreshold,
			Threshold:  10.0,
			TargetType: string(models.TargetCable),
			Severity:   models.SeverityHigh,
		},
		{
			Name:       "ISP Connection Anomaly",
			Condition:  ConditionThreshold,
			Threshold:  15.0,
			TargetType: string(models.TargetISP),
			Severity:   models.SeverityMedium,
		},
		{
			Name:       "Cloud Service Anomaly",
			Condition:  ConditionThreshold,
			Threshold:  25.0,
			TargetType: string(models.TargetCloud),
			Severity:   models.SeverityMedium,
		},
	}
}

// validateRule 校验单条规则 非阈值条件在配置阶段拒绝
func validateRule(rule Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("告警规则名称不能为空")
	}
	switch rule.Condition {
	case ConditionThreshold:
	case ConditionPercentage, ConditionConsecutiveFailures:
		return fmt.Errorf("告警规则 %s 的条件类型 %s 未定义评估语义", rule.Name, rule.Condition)
	default:
		return fmt.Errorf("告警规则 %s 的条件类型无效: %s", rule.Name, rule.Condition)
	}
	if rule.Threshold < 0 {
		return fmt.Errorf("告警规则 %s 的阈值不能为负数", rule.Name)
	}
	if rule.TargetType != TargetAll {
		if _, ok := models.ParseTargetType(rule.TargetType); !ok {
			return fmt.Errorf("告警规则 %s 的目标类型无效: %s", rule.Name, rule.TargetType)
		}
	}
	if _, ok := models.ParseSeverity(string(rule.Severity)); !ok {
		return fmt.Errorf("告警规则 %s 的告警级别无效: %s", rule.Name, rule.Severity)
	}
	return nil
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules 读取并校验规则文件
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取告警规则失败: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析告警规则失败: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("告警规则不能为空")
	}
	for i := range file.Rules {
		rule := &file.Rules[i]
		rule.Name = strings.TrimSpace(rule.Name)
		rule.TargetType = strings.ToLower(strings.TrimSpace(rule.TargetType))
		if rule.TargetType == "" {
			rule.TargetType = TargetAll
		}
		rule.Severity = models.Severity(strings.ToUpper(strings.TrimSpace(string(rule.Severity))))
		if err := validateRule(*rule); err != nil {
			return nil, err
		}
	}
	return file.Rules, nil
}

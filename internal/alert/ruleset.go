// 本文件用于规则集的并发安全管理
// 评估侧读取不可变快照 变更侧整体替换切片 避免读到改一半的规则
package alert

import (
	"fmt"
	"sync"
	"time"

	"net-monitor/internal/models"
)

// RulePatch 表示一次规则更新 只枚举允许修改的字段
// 未出现的字段保持原值
type RulePatch struct {
	Threshold *float64         `json:"threshold,omitempty"`
	Severity  *models.Severity `json:"severity,omitempty"`
	Enabled   *bool            `json:"enabled,omitempty"`
}

// RuleSet 维护进程级的告警规则集
type RuleSet struct {
	mu             sync.RWMutex
	rules          []Rule // 视为不可变 变更时整体替换
	suppressWindow time.Duration
	lastFired      map[string]time.Time // 键为 规则名|目标地址
}

// NewRuleSet 创建规则集 suppressWindow 为 0 时关闭告警抑制
func NewRuleSet(rules []Rule, suppressWindow time.Duration) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("告警规则不能为空")
	}
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if err := validateRule(rule); err != nil {
			return nil, err
		}
		if _, ok := seen[rule.Name]; ok {
			return nil, fmt.Errorf("告警规则名称重复: %s", rule.Name)
		}
		seen[rule.Name] = struct{}{}
	}
	return &RuleSet{
		rules:          append([]Rule(nil), rules...),
		suppressWindow: suppressWindow,
		lastFired:      make(map[string]time.Time),
	}, nil
}

// Snapshot 返回当前规则快照 调用方只读 不得修改
func (s *RuleSet) Snapshot() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Add 新增规则 名称必须唯一
func (s *RuleSet) Add(rule Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rules {
		if existing.Name == rule.Name {
			return fmt.Errorf("告警规则已存在: %s", rule.Name)
		}
	}
	next := make([]Rule, 0, len(s.rules)+1)
	next = append(next, s.rules...)
	next = append(next, rule)
	s.rules = next
	return nil
}

// Remove 按名称移除规则
func (s *RuleSet) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Rule, 0, len(s.rules))
	found := false
	for _, rule := range s.rules {
		if rule.Name == name {
			found = true
			continue
		}
		next = append(next, rule)
	}
	if !found {
		return fmt.Errorf("告警规则不存在: %s", name)
	}
	s.rules = next
	return nil
}

// Update 按名称应用类型化补丁
func (s *RuleSet) Update(name string, patch RulePatch) error {
	if patch.Severity != nil {
		if _, ok := models.ParseSeverity(string(*patch.Severity)); !ok {
			return fmt.Errorf("告警级别无效: %s", *patch.Severity)
		}
	}
	if patch.Threshold != nil && *patch.Threshold < 0 {
		return fmt.Errorf("告警阈值不能为负数")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]Rule(nil), s.rules...)
	for i := range next {
		if next[i].Name != name {
			continue
		}
		if patch.Threshold != nil {
			next[i].Threshold = *patch.Threshold
		}
		if patch.Severity != nil {
			next[i].Severity = *patch.Severity
		}
		if patch.Enabled != nil {
			enabled := *patch.Enabled
			next[i].Enabled = &enabled
		}
		s.rules = next
		return nil
	}
	return fmt.Errorf("告警规则不存在: %s", name)
}

// ReplaceAll 整体替换规则集 用于规则文件热加载
func (s *RuleSet) ReplaceAll(rules []Rule) error {
	replacement, err := NewRuleSet(rules, 0)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rules = replacement.rules
	s.lastFired = make(map[string]time.Time)
	s.mu.Unlock()
	return nil
}

// allowFire 判断规则对目标是否处于抑制窗口之外
// 窗口为 0 时始终放行 评估结果保持幂等
func (s *RuleSet) allowFire(ruleName, target string, now time.Time) bool {
	if s.suppressWindow <= 0 {
		return true
	}
	key := ruleName + "|" + target
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastFired[key]; ok && now.Sub(last) < s.suppressWindow {
		return false
	}
	s.lastFired[key] = now
	return true
}

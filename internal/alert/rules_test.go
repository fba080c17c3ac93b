// 本文件用于告警规则解析的单元测试
package alert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"net-monitor/internal/models"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	if len(rules) != 5 {
		t.Fatalf("期望 5 条内置规则，实际 %d 条", len(rules))
	}
	wantThresholds := map[string]float64{
		"High Packet Loss Alert":         20.0,
		"Complete Outage Alert":          100.0,
		"Submarine Cable System Anomaly": 10.0,
		"ISP Connection Anomaly":         15.0,
		"Cloud Service Anomaly":          25.0,
	}
	for _, rule := range rules {
		want, ok := wantThresholds[rule.Name]
		if !ok {
			t.Fatalf("未知的内置规则: %s", rule.Name)
		}
		if rule.Threshold != want {
			t.Fatalf("规则 %s 阈值期望 %.1f，实际 %.1f", rule.Name, want, rule.Threshold)
		}
		if !rule.IsEnabled() {
			t.Fatalf("内置规则 %s 应默认启用", rule.Name)
		}
	}
}

func TestLoadRules_Valid(t *testing.T) {
	content := `rules:
  - name: Custom Loss Alert
    condition: threshold
    threshold: 30
    target_type: CABLE
    severity: high
  - name: Fallback Alert
    condition: threshold
    threshold: 50
    severity: LOW
`
	path := writeRulesFile(t, content)
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("加载规则文件失败: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("期望 2 条规则，实际 %d 条", len(rules))
	}
	// 目标类型与级别大小写应归一化
	if rules[0].TargetType != "cable" || rules[0].Severity != models.SeverityHigh {
		t.Fatalf("规则归一化失败: %s %s", rules[0].TargetType, rules[0].Severity)
	}
	// 缺省目标类型按 all 处理
	if rules[1].TargetType != TargetAll {
		t.Fatalf("缺省目标类型应为 all，实际 %s", rules[1].TargetType)
	}
}

func TestLoadRules_InvalidYaml(t *testing.T) {
	path := writeRulesFile(t, "::::")
	if _, err := LoadRules(path); err == nil {
		t.Fatal("无效 YAML 应该返回错误")
	}
}

func TestLoadRules_EmptyRules(t *testing.T) {
	path := writeRulesFile(t, "rules: []\n")
	if _, err := LoadRules(path); err == nil || !strings.Contains(err.Error(), "告警规则不能为空") {
		t.Fatalf("期望告警规则不能为空错误，实际: %v", err)
	}
}

// percentage 与 consecutive_failures 没有评估语义 配置阶段直接拒绝
func TestLoadRules_RejectsUndefinedConditions(t *testing.T) {
	for _, condition := range []string{"percentage", "consecutive_failures"} {
		content := `rules:
  - name: test
    condition: ` + condition + `
    threshold: 10
    severity: LOW
`
		path := writeRulesFile(t, content)
		if _, err := LoadRules(path); err == nil || !strings.Contains(err.Error(), "未定义评估语义") {
			t.Fatalf("条件 %s 应被拒绝，实际: %v", condition, err)
		}
	}
}

func TestLoadRules_InvalidSeverity(t *testing.T) {
	content := `rules:
  - name: test
    condition: threshold
    threshold: 10
    severity: urgent
`
	path := writeRulesFile(t, content)
	if _, err := LoadRules(path); err == nil || !strings.Contains(err.Error(), "告警级别无效") {
		t.Fatalf("期望告警级别无效错误，实际: %v", err)
	}
}

func TestLoadRules_InvalidTargetType(t *testing.T) {
	content := `rules:
  - name: test
    condition: threshold
    threshold: 10
    target_type: satellite
    severity: LOW
`
	path := writeRulesFile(t, content)
	if _, err := LoadRules(path); err == nil || !strings.Contains(err.Error(), "目标类型无效") {
		t.Fatalf("期望目标类型无效错误，实际: %v", err)
	}
}

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入规则文件失败: %v", err)
	}
	return path
}

// 本文件用于规则文件热加载的单元测试
package rulewatch

import (
	"os"
	"path/filepath"
	"testing"

	"net-monitor/internal/alert"
)

const validRules = `rules:
  - name: Reloaded Rule
    condition: threshold
    threshold: 30
    severity: LOW
`

func newTestWatcher(t *testing.T, content string) (*RuleWatcher, *alert.RuleSet) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入规则文件失败: %v", err)
	}
	rules, err := alert.NewRuleSet(alert.DefaultRules(), 0)
	if err != nil {
		t.Fatalf("创建规则集失败: %v", err)
	}
	watcher, err := NewRuleWatcher(path, rules)
	if err != nil {
		t.Fatalf("创建规则监听器失败: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })
	return watcher, rules
}

func TestReload_ReplacesRules(t *testing.T) {
	watcher, rules := newTestWatcher(t, validRules)

	watcher.reload()

	snapshot := rules.Snapshot()
	if len(snapshot) != 1 || snapshot[0].Name != "Reloaded Rule" {
		t.Fatalf("规则集应被文件内容替换: %+v", snapshot)
	}
}

// 非法规则文件保留现有规则
func TestReload_InvalidFileKeepsOldRules(t *testing.T) {
	watcher, rules := newTestWatcher(t, "rules: []\n")

	watcher.reload()

	if len(rules.Snapshot()) != 5 {
		t.Fatalf("非法文件不应改变规则集，实际 %d 条", len(rules.Snapshot()))
	}
}

func TestReload_MissingFileKeepsOldRules(t *testing.T) {
	watcher, rules := newTestWatcher(t, validRules)
	if err := os.Remove(watcher.rulePath); err != nil {
		t.Fatalf("删除规则文件失败: %v", err)
	}

	watcher.reload()

	if len(rules.Snapshot()) != 5 {
		t.Fatalf("文件缺失不应改变规则集，实际 %d 条", len(rules.Snapshot()))
	}
}

func TestStart_WatchesRuleDirectory(t *testing.T) {
	watcher, _ := newTestWatcher(t, validRules)
	if err := watcher.Start(); err != nil {
		t.Fatalf("启动规则监听失败: %v", err)
	}
}

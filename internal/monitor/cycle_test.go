// 本文件用于监控周期执行逻辑的单元测试
package monitor

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"net-monitor/internal/alert"
	"net-monitor/internal/metrics"
	"net-monitor/internal/models"
	"net-monitor/internal/notify"
	"net-monitor/internal/probe"
	"net-monitor/internal/store"
)

// fakeProber 按目标返回预置的探测结果
type fakeProber struct {
	loss map[string]float64
}

func (f *fakeProber) Probe(ctx context.Context, target string) (float64, float64, []probe.Sample) {
	loss := f.loss[target]
	latency := 20.0
	if loss >= 100.0 {
		latency = math.Inf(1)
	}
	return latency, loss, []probe.Sample{{LatencyMs: latency, LossPct: loss}}
}

func newTestCycle(t *testing.T, prober endpointProber, groups []targetGroup) (*Cycle, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	rules, err := alert.NewRuleSet(alert.DefaultRules(), 0)
	if err != nil {
		t.Fatalf("创建规则集失败: %v", err)
	}
	return &Cycle{
		prober:     prober,
		engine:     alert.NewEngine(rules),
		store:      st,
		dispatcher: notify.NewDispatcher(nil),
		groups:     groups,
		stats:      metrics.NewCollector(),
	}, st
}

func staticGroup(targetType models.TargetType, targets ...string) targetGroup {
	endpoints := make([]endpoint, 0, len(targets))
	for _, target := range targets {
		endpoints = append(endpoints, endpoint{target: target, details: map[string]any{}})
	}
	return targetGroup{
		Type:      targetType,
		Endpoints: func() ([]endpoint, error) { return endpoints, nil },
	}
}

func TestCycleRun_AllGroupsHealthy(t *testing.T) {
	prober := &fakeProber{loss: map[string]float64{}}
	cycle, st := newTestCycle(t, prober, []targetGroup{
		staticGroup(models.TargetCable, "203.208.60.1", "203.208.60.2"),
		staticGroup(models.TargetISP, "202.96.209.5"),
		staticGroup(models.TargetCloud, "8.8.8.8"),
	})

	records, err := cycle.Run(context.Background())
	if err != nil {
		t.Fatalf("周期执行失败: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("期望 4 条记录，实际 %d 条", len(records))
	}
	for _, record := range records {
		if record.Status != models.StatusOperational {
			t.Fatalf("零丢包目标状态应为 operational，实际 %s", record.Status)
		}
	}

	summary, err := st.StatusSummary(time.Hour)
	if err != nil {
		t.Fatalf("查询状态汇总失败: %v", err)
	}
	total := 0
	for _, byStatus := range summary {
		for _, count := range byStatus {
			total += count
		}
	}
	if total != 4 {
		t.Fatalf("全部记录都应落库，实际 %d 条", total)
	}
}

// 丢包目标在周期内完成 落库 评估 告警落库 的完整流程
func TestCycleRun_LossyTargetProducesStoredAlerts(t *testing.T) {
	prober := &fakeProber{loss: map[string]float64{"203.208.60.1": 25.0}}
	cycle, st := newTestCycle(t, prober, []targetGroup{
		staticGroup(models.TargetCable, "203.208.60.1"),
	})

	records, err := cycle.Run(context.Background())
	if err != nil {
		t.Fatalf("周期执行失败: %v", err)
	}
	if len(records) != 1 || records[0].Status != models.StatusDegraded {
		t.Fatalf("25%% 丢包应判定为 degraded: %+v", records)
	}

	alerts, err := st.RecentAlerts(time.Hour, true)
	if err != nil {
		t.Fatalf("查询告警失败: %v", err)
	}
	// 通用丢包规则与海缆专属规则各触发一条
	if len(alerts) != 2 {
		t.Fatalf("期望落库 2 条告警，实际 %d 条", len(alerts))
	}
}

// 单个目标组失败不影响其余组的探测与落库
func TestCycleRun_GroupFailureIsolation(t *testing.T) {
	prober := &fakeProber{loss: map[string]float64{}}
	broken := targetGroup{
		Type:      models.TargetISP,
		Endpoints: func() ([]endpoint, error) { return nil, fmt.Errorf("目标配置损坏") },
	}
	cycle, _ := newTestCycle(t, prober, []targetGroup{
		staticGroup(models.TargetCable, "203.208.60.1"),
		broken,
		staticGroup(models.TargetCloud, "8.8.8.8"),
	})

	records, err := cycle.Run(context.Background())
	if err == nil {
		t.Fatal("失败的目标组应让周期返回错误")
	}
	if len(records) != 2 {
		t.Fatalf("成功组的记录应保留，期望 2 条，实际 %d 条", len(records))
	}
	for _, record := range records {
		if record.TargetType == models.TargetISP {
			t.Fatal("失败组不应产出记录")
		}
	}
}

// 目标组内部 panic 只记为该组失败
func TestCycleRun_GroupPanicIsolation(t *testing.T) {
	prober := &fakeProber{loss: map[string]float64{}}
	panicking := targetGroup{
		Type:      models.TargetCloud,
		Endpoints: func() ([]endpoint, error) { panic("配置解析崩溃") },
	}
	cycle, _ := newTestCycle(t, prober, []targetGroup{
		staticGroup(models.TargetCable, "203.208.60.1"),
		panicking,
	})

	records, err := cycle.Run(context.Background())
	if err == nil {
		t.Fatal("panic 的目标组应让周期返回错误")
	}
	if len(records) != 1 {
		t.Fatalf("其余组应正常产出，期望 1 条记录，实际 %d 条", len(records))
	}
}

func TestBuildGroups_ExpandsConfig(t *testing.T) {
	cfg := &models.Config{
		SubmarineCable: map[string]models.CableConfig{
			"TPE": {Endpoints: []string{"203.208.60.1", "203.208.60.2"}},
		},
		ISPs: map[string]models.ISPConfig{
			"ChinaTelecom": {Endpoints: []string{"202.96.209.5"}},
		},
		CloudProviders: map[string]models.CloudProvider{
			"aws": {Regions: []models.CloudRegion{{Name: "ap-east-1", Endpoint: "ec2.ap-east-1.amazonaws.com"}}},
		},
	}
	groups := buildGroups(cfg)
	if len(groups) != 3 {
		t.Fatalf("期望 3 个目标组，实际 %d 个", len(groups))
	}

	counts := map[models.TargetType]int{}
	for _, group := range groups {
		endpoints, err := group.Endpoints()
		if err != nil {
			t.Fatalf("展开目标组失败: %v", err)
		}
		counts[group.Type] = len(endpoints)
	}
	if counts[models.TargetCable] != 2 || counts[models.TargetISP] != 1 || counts[models.TargetCloud] != 1 {
		t.Fatalf("端点计数不符: %+v", counts)
	}

	// 云目标的详情应带上服务商与区域
	for _, group := range groups {
		if group.Type != models.TargetCloud {
			continue
		}
		endpoints, _ := group.Endpoints()
		if endpoints[0].details["provider"] != "aws" || endpoints[0].details["region"] != "ap-east-1" {
			t.Fatalf("云目标详情不符: %+v", endpoints[0].details)
		}
	}
}

func TestLifecycle(t *testing.T) {
	lifecycle := NewLifecycle()
	if lifecycle.Running() {
		t.Fatal("初始状态不应为运行中")
	}
	if err := lifecycle.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	if err := lifecycle.Start(); err == nil {
		t.Fatal("重复启动应返回错误")
	}
	lifecycle.Stop()
	if lifecycle.Running() {
		t.Fatal("停止后不应为运行中")
	}
	// 重复停止无害
	lifecycle.Stop()

	select {
	case <-lifecycle.StopC():
	default:
		t.Fatal("停止后 StopC 应已关闭")
	}
}

func TestRunner_StopsBetweenCycles(t *testing.T) {
	prober := &fakeProber{loss: map[string]float64{}}
	cycle, _ := newTestCycle(t, prober, []targetGroup{
		staticGroup(models.TargetCable, "203.208.60.1"),
	})
	lifecycle := NewLifecycle()
	runner := NewRunner(cycle, lifecycle, 50*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	lifecycle.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("停止请求后应正常退出: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("停止请求后运行循环没有退出")
	}
}

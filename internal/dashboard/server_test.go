// 本文件用于面板 REST 接口的单元测试
package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"net-monitor/internal/alert"
	"net-monitor/internal/models"
	"net-monitor/internal/store"
	"net-monitor/internal/sysinfo"
)

func newTestHandler(t *testing.T) (*handler, *store.Store) {
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
	return &handler{
		store:   st,
		rules:   rules,
		sysinfo: sysinfo.NewCollector(),
		started: time.Now(),
	}, st
}

func TestSummaryEndpoint(t *testing.T) {
	h, st := newTestHandler(t)
	if err := st.WriteStatus(models.StatusRecord{
		Timestamp:     time.Now(),
		Target:        "203.208.60.1",
		TargetType:    models.TargetCable,
		LatencyMs:     20.0,
		PacketLossPct: 0.0,
		Status:        models.StatusOperational,
	}); err != nil {
		t.Fatalf("写入状态失败: %v", err)
	}

	recorder := httptest.NewRecorder()
	h.summary(recorder, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", recorder.Code)
	}

	var summary map[string]map[string]int
	if err := json.NewDecoder(recorder.Body).Decode(&summary); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if summary["cable"]["operational"] != 1 {
		t.Fatalf("汇总不符: %+v", summary)
	}
	// 没有记录的类型也应出现
	if _, ok := summary["cloud"]; !ok {
		t.Fatalf("缺少云服务类型: %+v", summary)
	}
}

func TestSummaryEndpoint_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	recorder := httptest.NewRecorder()
	h.summary(recorder, httptest.NewRequest(http.MethodPost, "/api/summary", nil))
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("期望 405，实际 %d", recorder.Code)
	}
}

func TestAlertsEndpoint_UnresolvedFilter(t *testing.T) {
	h, st := newTestHandler(t)
	id, err := st.WriteAlert(models.Alert{
		Timestamp:  time.Now(),
		RuleName:   "High Packet Loss Alert",
		Target:     "203.208.60.1",
		TargetType: models.TargetCable,
		Severity:   models.SeverityHigh,
		Message:    "High Packet Loss Alert: 203.208.60.1 packet loss 25.0%",
	})
	if err != nil {
		t.Fatalf("写入告警失败: %v", err)
	}
	if _, err := st.WriteAlert(models.Alert{
		Timestamp:  time.Now(),
		RuleName:   "ISP Connection Anomaly",
		Target:     "202.96.209.5",
		TargetType: models.TargetISP,
		Severity:   models.SeverityMedium,
		Message:    "ISP Connection Anomaly: 202.96.209.5 packet loss 16.0%",
	}); err != nil {
		t.Fatalf("写入告警失败: %v", err)
	}
	if err := st.ResolveAlert(id); err != nil {
		t.Fatalf("解决告警失败: %v", err)
	}

	recorder := httptest.NewRecorder()
	h.alerts(recorder, httptest.NewRequest(http.MethodGet, "/api/alerts?unresolved=true", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", recorder.Code)
	}
	var alerts []map[string]any
	if err := json.NewDecoder(recorder.Body).Decode(&alerts); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(alerts) != 1 || alerts[0]["target"] != "202.96.209.5" {
		t.Fatalf("未解决过滤不符: %+v", alerts)
	}
}

func TestResolveAlertEndpoint(t *testing.T) {
	h, st := newTestHandler(t)
	id, err := st.WriteAlert(models.Alert{
		Timestamp: time.Now(),
		RuleName:  "Complete Outage Alert",
		Target:    "8.8.8.8",
		Severity:  models.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("写入告警失败: %v", err)
	}

	recorder := httptest.NewRecorder()
	body := strings.NewReader(`{"id": ` + strconv.FormatInt(id, 10) + `}`)
	h.resolveAlert(recorder, httptest.NewRequest(http.MethodPost, "/api/alerts/resolve", body))
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = httptest.NewRecorder()
	h.resolveAlert(recorder, httptest.NewRequest(http.MethodPost, "/api/alerts/resolve", strings.NewReader(`{"id": 0}`)))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("非法 ID 期望 400，实际 %d", recorder.Code)
	}
}

func TestPatchRuleEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := httptest.NewRecorder()
	body := strings.NewReader(`{"name": "High Packet Loss Alert", "threshold": 35, "severity": "HIGH"}`)
	request := httptest.NewRequest(http.MethodPatch, "/api/rules", body)
	h.handleRules(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", recorder.Code, recorder.Body.String())
	}

	for _, rule := range h.rules.Snapshot() {
		if rule.Name == "High Packet Loss Alert" {
			if rule.Threshold != 35.0 || rule.Severity != models.SeverityHigh {
				t.Fatalf("规则未按补丁更新: %+v", rule)
			}
		}
	}
}

// 拼错字段名的补丁直接拒绝 不允许静默丢失
func TestPatchRuleEndpoint_UnknownFieldRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := httptest.NewRecorder()
	body := strings.NewReader(`{"name": "High Packet Loss Alert", "treshold": 35}`)
	h.handleRules(recorder, httptest.NewRequest(http.MethodPatch, "/api/rules", body))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("未知字段期望 400，实际 %d", recorder.Code)
	}
}

func TestPatchRuleEndpoint_InvalidSeverity(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := httptest.NewRecorder()
	body := strings.NewReader(`{"name": "High Packet Loss Alert", "severity": "URGENT"}`)
	h.handleRules(recorder, httptest.NewRequest(http.MethodPatch, "/api/rules", body))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("非法级别期望 400，实际 %d", recorder.Code)
	}
}

func TestRulesEndpoint_List(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := httptest.NewRecorder()
	h.handleRules(recorder, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", recorder.Code)
	}
	var rules []map[string]any
	if err := json.NewDecoder(recorder.Body).Decode(&rules); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(rules) != 5 {
		t.Fatalf("期望 5 条规则，实际 %d 条", len(rules))
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := httptest.NewRecorder()
	h.health(recorder, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", recorder.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("健康状态不符: %+v", payload)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := httptest.NewRecorder()
	h.prometheus(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "netmon_probes_total") {
		t.Fatalf("指标导出缺少计数器:\n%s", recorder.Body.String())
	}
}

func TestIndexEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := httptest.NewRecorder()
	h.index(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Network Monitoring Dashboard") {
		t.Fatal("首页应返回面板页面")
	}

	recorder = httptest.NewRecorder()
	h.index(recorder, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("未知路径期望 404，实际 %d", recorder.Code)
	}
}

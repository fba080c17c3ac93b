// 本文件用于运行期指标聚合 以 Prometheus 文本格式导出
package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector 聚合监控运行指标
type Collector struct {
	probesTotal        atomic.Uint64
	probeFailuresTotal atomic.Uint64
	cyclesTotal        atomic.Uint64
	cycleFailuresTotal atomic.Uint64
	statusTotal        atomic.Uint64

	mu               sync.RWMutex
	alertsBySeverity map[string]uint64
	notifyByOutcome  map[string]uint64 // 键为 通道:结果
	cycleDurationSec *histogram
}

type histogram struct {
	buckets []float64
	counts  []uint64 // 累计桶计数
	count   uint64
	sum     float64
}

var globalCollector = NewCollector()

// Global 返回进程级全局指标收集器。
func Global() *Collector {
	return globalCollector
}

// NewCollector 创建指标收集器。
func NewCollector() *Collector {
	return &Collector{
		alertsBySeverity: make(map[string]uint64),
		notifyByOutcome:  make(map[string]uint64),
		cycleDurationSec: newHistogram([]float64{1, 2, 5, 10, 30, 60, 120, 300}),
	}
}

func newHistogram(buckets []float64) *histogram {
	clean := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket <= 0 {
			continue
		}
		clean = append(clean, bucket)
	}
	sort.Float64s(clean)
	return &histogram{
		buckets: clean,
		counts:  make([]uint64, len(clean)),
	}
}

func (h *histogram) observe(v float64) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		if v <= bound {
			h.counts[idx]++
		}
	}
	h.count++
	h.sum += v
}

// IncProbe 记录一次端点探测。
func (c *Collector) IncProbe(failed bool) {
	if c == nil {
		return
	}
	c.probesTotal.Add(1)
	if failed {
		c.probeFailuresTotal.Add(1)
	}
}

// IncStatusRecord 记录一条状态记录产出。
func (c *Collector) IncStatusRecord() {
	if c == nil {
		return
	}
	c.statusTotal.Add(1)
}

// ObserveCycle 记录一次监控周期与耗时。
func (c *Collector) ObserveCycle(duration time.Duration, failed bool) {
	if c == nil {
		return
	}
	c.cyclesTotal.Add(1)
	if failed {
		c.cycleFailuresTotal.Add(1)
	}
	c.mu.Lock()
	c.cycleDurationSec.observe(duration.Seconds())
	c.mu.Unlock()
}

// IncAlert 按级别记录一条告警。
func (c *Collector) IncAlert(severity string) {
	if c == nil {
		return
	}
	key := normalizeLabel(severity)
	c.mu.Lock()
	c.alertsBySeverity[key]++
	c.mu.Unlock()
}

// IncNotify 按通道与结果记录一次通知发送。
func (c *Collector) IncNotify(channel string, ok bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	key := normalizeLabel(channel) + ":" + outcome
	c.mu.Lock()
	c.notifyByOutcome[key]++
	c.mu.Unlock()
}

// Render 输出 Prometheus 文本格式。
func (c *Collector) Render() string {
	if c == nil {
		return ""
	}
	builder := &strings.Builder{}

	writeCounter(builder, "netmon_probes_total", c.probesTotal.Load())
	writeCounter(builder, "netmon_probe_failures_total", c.probeFailuresTotal.Load())
	writeCounter(builder, "netmon_status_records_total", c.statusTotal.Load())
	writeCounter(builder, "netmon_cycles_total", c.cyclesTotal.Load())
	writeCounter(builder, "netmon_cycle_failures_total", c.cycleFailuresTotal.Load())

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, key := range sortedKeys(c.alertsBySeverity) {
		builder.WriteString("netmon_alerts_total{severity=\"")
		builder.WriteString(key)
		builder.WriteString("\"} ")
		builder.WriteString(strconv.FormatUint(c.alertsBySeverity[key], 10))
		builder.WriteByte('\n')
	}
	for _, key := range sortedKeys(c.notifyByOutcome) {
		parts := strings.SplitN(key, ":", 2)
		builder.WriteString("netmon_notifications_total{channel=\"")
		builder.WriteString(parts[0])
		builder.WriteString("\",outcome=\"")
		builder.WriteString(parts[1])
		builder.WriteString("\"} ")
		builder.WriteString(strconv.FormatUint(c.notifyByOutcome[key], 10))
		builder.WriteByte('\n')
	}

	writeHistogram(builder, "netmon_cycle_duration_seconds", c.cycleDurationSec)
	return builder.String()
}

func writeCounter(builder *strings.Builder, metric string, value uint64) {
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatUint(value, 10))
	builder.WriteByte('\n')
}

func writeHistogram(builder *strings.Builder, metric string, h *histogram) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		builder.WriteString(metric)
		builder.WriteString("_bucket{le=\"")
		builder.WriteString(trimFloat(bound))
		builder.WriteString("\"} ")
		builder.WriteString(strconv.FormatUint(h.counts[idx], 10))
		builder.WriteByte('\n')
	}
	builder.WriteString(metric)
	builder.WriteString("_bucket{le=\"+Inf\"} ")
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_sum ")
	builder.WriteString(trimFloat(h.sum))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_count ")
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeLabel(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, cleaned)
}

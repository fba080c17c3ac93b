// 本文件用于执行单个监控周期 三类目标组并发探测 组内端点顺序探测
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"net-monitor/internal/alert"
	"net-monitor/internal/logger"
	"net-monitor/internal/metrics"
	"net-monitor/internal/models"
	"net-monitor/internal/notify"
	"net-monitor/internal/probe"
	"net-monitor/internal/store"
)

// endpoint 表示一个待探测端点及其来源描述
type endpoint struct {
	target  string
	details map[string]any
}

// targetGroup 表示一类监控目标
// Endpoints 延迟求值 便于测试注入失败的目标组
type targetGroup struct {
	Type      models.TargetType
	Endpoints func() ([]endpoint, error)
}

// endpointProber 抽象端点探测 便于测试注入假探测器
type endpointProber interface {
	Probe(ctx context.Context, target string) (float64, float64, []probe.Sample)
}

// Cycle 执行一轮完整的监控
type Cycle struct {
	prober     endpointProber
	engine     *alert.Engine
	store      *store.Store
	dispatcher *notify.Dispatcher
	groups     []targetGroup
	stats      *metrics.Collector
}

// NewCycle 根据配置组装监控周期
func NewCycle(cfg *models.Config, engine *alert.Engine, st *store.Store, dispatcher *notify.Dispatcher) *Cycle {
	return &Cycle{
		prober: probe.NewProber(
			time.Duration(cfg.Monitoring.Timeout)*time.Second,
			cfg.Monitoring.RetryCount,
		),
		engine:     engine,
		store:      st,
		dispatcher: dispatcher,
		groups:     buildGroups(cfg),
		stats:      metrics.Global(),
	}
}

// buildGroups 从配置展开三类目标组
// 遍历 map 前先对键排序 保证组内端点顺序稳定可复现
func buildGroups(cfg *models.Config) []targetGroup {
	return []targetGroup{
		{
			Type: models.TargetCable,
			Endpoints: func() ([]endpoint, error) {
				out := make([]endpoint, 0)
				for _, name := range sortedNames(cfg.SubmarineCable) {
					for _, target := range cfg.SubmarineCable[name].Endpoints {
						out = append(out, endpoint{
							target:  target,
							details: map[string]any{"cable_system": name},
						})
					}
				}
				return out, nil
			},
		},
		{
			Type: models.TargetISP,
			Endpoints: func() ([]endpoint, error) {
				out := make([]endpoint, 0)
				for _, name := range sortedNames(cfg.ISPs) {
					for _, target := range cfg.ISPs[name].Endpoints {
						out = append(out, endpoint{
							target:  target,
							details: map[string]any{"isp": name},
						})
					}
				}
				return out, nil
			},
		},
		{
			Type: models.TargetCloud,
			Endpoints: func() ([]endpoint, error) {
				out := make([]endpoint, 0)
				for _, name := range sortedNames(cfg.CloudProviders) {
					for _, region := range cfg.CloudProviders[name].Regions {
						out = append(out, endpoint{
							target: region.Endpoint,
							details: map[string]any{
								"provider": name,
								"region":   region.Name,
							},
						})
					}
				}
				return out, nil
			},
		},
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run 并发执行全部目标组并返回产出的状态记录
// 单个目标组失败不影响其余组 返回成功组记录的并集与失败组错误的聚合
func (c *Cycle) Run(ctx context.Context) ([]models.StatusRecord, error) {
	started := time.Now()

	type groupResult struct {
		records []models.StatusRecord
		err     error
	}
	results := make([]groupResult, len(c.groups))

	var wg sync.WaitGroup
	for idx, group := range c.groups {
		wg.Add(1)
		go func(idx int, group targetGroup) {
			defer wg.Done()
			// 目标组内部 panic 只记为该组失败 不拖垮整个周期
			defer func() {
				if r := recover(); r != nil {
					results[idx].err = fmt.Errorf("目标组 %s 异常退出: %v", group.Type, r)
				}
			}()
			records, err := c.runGroup(ctx, group)
			results[idx] = groupResult{records: records, err: err}
		}(idx, group)
	}
	wg.Wait()

	records := make([]models.StatusRecord, 0)
	groupErrs := make([]error, 0)
	for idx, result := range results {
		records = append(records, result.records...)
		if result.err != nil {
			logger.Error("目标组 %s 本周期失败: %v", c.groups[idx].Type, result.err)
			groupErrs = append(groupErrs, result.err)
		}
	}

	err := errors.Join(groupErrs...)
	c.stats.ObserveCycle(time.Since(started), err != nil)
	logger.Info("监控周期完成: 记录 %d 条 耗时 %s", len(records), time.Since(started).Round(time.Millisecond))
	return records, err
}

// runGroup 顺序探测一个目标组内的全部端点
func (c *Cycle) runGroup(ctx context.Context, group targetGroup) ([]models.StatusRecord, error) {
	endpoints, err := group.Endpoints()
	if err != nil {
		return nil, fmt.Errorf("展开目标组 %s 失败: %w", group.Type, err)
	}

	records := make([]models.StatusRecord, 0, len(endpoints))
	for _, ep := range endpoints {
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		record := c.probeEndpoint(ctx, group.Type, ep)
		c.handleRecord(ctx, record)
		records = append(records, record)
	}
	return records, nil
}

// probeEndpoint 探测单个端点并产出状态记录
func (c *Cycle) probeEndpoint(ctx context.Context, targetType models.TargetType, ep endpoint) models.StatusRecord {
	avgLatency, avgLoss, samples := c.prober.Probe(ctx, ep.target)
	c.stats.IncProbe(avgLoss >= 100.0)

	details := make(map[string]any, len(ep.details)+2)
	for key, value := range ep.details {
		details[key] = value
	}
	minLatency, maxLatency := latencyBounds(samples)
	details["min_latency"] = models.JSONSafeFloat(minLatency)
	details["max_latency"] = models.JSONSafeFloat(maxLatency)

	status := probe.Classify(avgLoss)
	logger.Debug("探测完成: target=%s type=%s latency=%.1fms loss=%.1f%% status=%s",
		ep.target, targetType, avgLatency, avgLoss, status)

	return models.StatusRecord{
		Timestamp:     time.Now(),
		Target:        ep.target,
		TargetType:    targetType,
		LatencyMs:     avgLatency,
		PacketLossPct: avgLoss,
		Status:        status,
		Details:       details,
	}
}

// latencyBounds 返回采样中的时延上下界 全部失败时为 +Inf
func latencyBounds(samples []probe.Sample) (float64, float64) {
	minLatency := math.Inf(1)
	maxLatency := math.Inf(1)
	finiteMax := math.Inf(-1)
	for _, sample := range samples {
		if math.IsInf(sample.LatencyMs, 0) {
			continue
		}
		if sample.LatencyMs < minLatency {
			minLatency = sample.LatencyMs
		}
		if sample.LatencyMs > finiteMax {
			finiteMax = sample.LatencyMs
		}
	}
	if !math.IsInf(finiteMax, -1) {
		maxLatency = finiteMax
	}
	return minLatency, maxLatency
}

// handleRecord 对单条记录执行 落库 评估 告警分发 的完整流程
// 持久化失败只记录日志 告警评估照常进行
func (c *Cycle) handleRecord(ctx context.Context, record models.StatusRecord) {
	c.stats.IncStatusRecord()
	if err := c.store.WriteStatus(record); err != nil {
		logger.Error("状态记录落库失败 target=%s: %v", record.Target, err)
	}

	alerts := c.engine.Evaluate(record)
	for _, item := range alerts {
		c.stats.IncAlert(string(item.Severity))
		id, err := c.store.WriteAlert(item)
		if err != nil {
			logger.Error("告警落库失败 rule=%s target=%s: %v", item.RuleName, item.Target, err)
		} else {
			item.ID = id
		}
		logger.Warn("触发告警: [%s] %s", item.Severity, item.Message)
		c.dispatcher.Dispatch(ctx, item)
	}
}

// 本文件用于对单个端点执行 ICMP 探测并聚合采样结果
package probe

import (
	"context"
	"fmt"
	"math"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"net-monitor/internal/logger"
)

// 采样之间固定等待 1 秒 避免对目标造成突发压力
const sampleInterval = 1 * time.Second

// Sample 表示单次 ping 采样结果
type Sample struct {
	LatencyMs float64 `json:"latency_ms"`
	LossPct   float64 `json:"loss_pct"`
}

// PingFunc 执行一次 ping 返回往返时延
// 超时或不可达返回错误 由上层折算为 100% 丢包
type PingFunc func(ctx context.Context, target string, timeout time.Duration) (time.Duration, error)

// Prober 负责按配置的采样次数探测端点
type Prober struct {
	timeout    time.Duration
	retryCount int
	ping       PingFunc
	interval   time.Duration
}

// NewProber 创建探测器
func NewProber(timeout time.Duration, retryCount int) *Prober {
	if retryCount <= 0 {
		retryCount = 1
	}
	return &Prober{
		timeout:    timeout,
		retryCount: retryCount,
		ping:       pingOnce,
		interval:   sampleInterval,
	}
}

// Probe 对目标执行多次采样并返回平均时延与丢包率
// 单次采样失败不作为错误上抛 只折算为该次采样 100% 丢包
// 任一采样失败都会让平均时延变为 +Inf 表示没有可用的时延测量
func (p *Prober) Probe(ctx context.Context, target string) (float64, float64, []Sample) {
	samples := make([]Sample, 0, p.retryCount)
	latencySum := 0.0
	lossSum := 0.0

	for i := 0; i < p.retryCount; i++ {
		latencyMs, lossPct := p.sampleOnce(ctx, target)
		samples = append(samples, Sample{LatencyMs: latencyMs, LossPct: lossPct})
		latencySum += latencyMs
		lossSum += lossPct

		// 末次采样后不再等待
		if i < p.retryCount-1 {
			if !sleepContext(ctx, p.interval) {
				break
			}
		}
	}

	count := float64(len(samples))
	return latencySum / count, lossSum / count, samples
}

func (p *Prober) sampleOnce(ctx context.Context, target string) (float64, float64) {
	rtt, err := p.ping(ctx, target, p.timeout)
	if err != nil {
		logger.Debug("探测 %s 失败: %v", target, err)
		return math.Inf(1), 100.0
	}
	return float64(rtt) / float64(time.Millisecond), 0.0
}

// pingOnce 基于 pro-bing 发送单个 ICMP 探测包
func pingOnce(ctx context.Context, target string, timeout time.Duration) (time.Duration, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return 0, fmt.Errorf("创建 pinger 失败: %w", err)
	}

	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("探测超时")
	}
	return stats.AvgRtt, nil
}

// sleepContext 等待指定时长 上下文取消时返回 false
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

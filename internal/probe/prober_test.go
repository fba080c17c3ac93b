// 本文件用于端点探测聚合逻辑的单元测试
package probe

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"
)

// newTestProber 注入可控的 ping 实现并去掉采样等待
func newTestProber(t *testing.T, retryCount int, ping PingFunc) *Prober {
	t.Helper()
	prober := NewProber(time.Second, retryCount)
	prober.ping = ping
	prober.interval = 0
	return prober
}

func TestProbe_AllSamplesSucceed(t *testing.T) {
	latencies := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	calls := 0
	prober := newTestProber(t, 3, func(ctx context.Context, target string, timeout time.Duration) (time.Duration, error) {
		rtt := latencies[calls]
		calls++
		return rtt, nil
	})

	avgLatency, avgLoss, samples := prober.Probe(context.Background(), "198.51.100.1")
	if calls != 3 {
		t.Fatalf("期望采样 3 次，实际 %d 次", calls)
	}
	if len(samples) != 3 {
		t.Fatalf("期望 3 条采样记录，实际 %d 条", len(samples))
	}
	if math.Abs(avgLatency-20.0) > 1e-9 {
		t.Fatalf("期望平均时延 20.0ms，实际 %.4f", avgLatency)
	}
	if avgLoss != 0.0 {
		t.Fatalf("期望平均丢包率 0，实际 %.1f", avgLoss)
	}
}

func TestProbe_SingleFailureMakesLatencyInf(t *testing.T) {
	calls := 0
	prober := newTestProber(t, 3, func(ctx context.Context, target string, timeout time.Duration) (time.Duration, error) {
		calls++
		if calls == 2 {
			return 0, fmt.Errorf("探测超时")
		}
		return 15 * time.Millisecond, nil
	})

	avgLatency, avgLoss, samples := prober.Probe(context.Background(), "198.51.100.1")
	if !math.IsInf(avgLatency, 1) {
		t.Fatalf("任一采样失败后平均时延应为 +Inf，实际 %.4f", avgLatency)
	}
	// 三次采样中一次失败 丢包率 100/3
	if math.Abs(avgLoss-100.0/3.0) > 1e-9 {
		t.Fatalf("期望平均丢包率 %.4f，实际 %.4f", 100.0/3.0, avgLoss)
	}
	if !math.IsInf(samples[1].LatencyMs, 1) || samples[1].LossPct != 100.0 {
		t.Fatalf("失败采样应折算为 (+Inf, 100)，实际 (%.1f, %.1f)", samples[1].LatencyMs, samples[1].LossPct)
	}
}

func TestProbe_AllSamplesFail(t *testing.T) {
	prober := newTestProber(t, 2, func(ctx context.Context, target string, timeout time.Duration) (time.Duration, error) {
		return 0, fmt.Errorf("host unreachable")
	})

	avgLatency, avgLoss, _ := prober.Probe(context.Background(), "203.0.113.9")
	if !math.IsInf(avgLatency, 1) {
		t.Fatalf("全部失败时平均时延应为 +Inf，实际 %.4f", avgLatency)
	}
	if avgLoss != 100.0 {
		t.Fatalf("全部失败时平均丢包率应为 100，实际 %.1f", avgLoss)
	}
}

func TestProbe_ContextCancelStopsSampling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	prober := newTestProber(t, 5, func(pingCtx context.Context, target string, timeout time.Duration) (time.Duration, error) {
		calls++
		cancel()
		return 10 * time.Millisecond, nil
	})
	prober.interval = 10 * time.Millisecond

	_, _, samples := prober.Probe(ctx, "198.51.100.1")
	if calls != 1 {
		t.Fatalf("取消后应停止采样，期望 1 次，实际 %d 次", calls)
	}
	if len(samples) != 1 {
		t.Fatalf("期望 1 条采样记录，实际 %d 条", len(samples))
	}
}

func TestNewProber_RetryCountFloor(t *testing.T) {
	prober := NewProber(time.Second, 0)
	if prober.retryCount != 1 {
		t.Fatalf("采样次数应至少为 1，实际 %d", prober.retryCount)
	}
}

// 本文件用于采集监控面板展示的主机资源快照
package sysinfo

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

const defaultCacheTTL = 1 * time.Second

// HostSnapshot 表示一次主机资源采样
type HostSnapshot struct {
	Hostname      string  `json:"hostname"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	Load15        float64 `json:"load15"`
}

// Collector 带短缓存的主机信息采集器
// 面板多个客户端同时刷新时避免重复采样
type Collector struct {
	mu       sync.Mutex
	cacheTTL time.Duration

	lastSnapshot   HostSnapshot
	lastSnapshotAt time.Time
}

// NewCollector 创建主机信息采集器
func NewCollector() *Collector {
	return &Collector{cacheTTL: defaultCacheTTL}
}

// Snapshot 返回主机资源快照
// 单项指标采集失败不阻断整体 对应字段保持零值
func (c *Collector) Snapshot() HostSnapshot {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSnapshotAt) < c.cacheTTL {
		return c.lastSnapshot
	}

	snapshot := HostSnapshot{}
	if info, err := host.Info(); err == nil {
		snapshot.Hostname = info.Hostname
		snapshot.UptimeSeconds = info.Uptime
	}
	// 取一个极短采样窗口的整体 CPU 占用
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot.MemoryPercent = vm.UsedPercent
		snapshot.MemoryUsedMB = vm.Used / 1024 / 1024
		snapshot.MemoryTotalMB = vm.Total / 1024 / 1024
	}
	if avg, err := load.Avg(); err == nil {
		snapshot.Load1 = avg.Load1
		snapshot.Load5 = avg.Load5
		snapshot.Load15 = avg.Load15
	}

	c.lastSnapshot = snapshot
	c.lastSnapshotAt = now
	return snapshot
}

// 本文件用于驱动持续监控循环
package monitor

import (
	"context"
	"time"

	"net-monitor/internal/logger"
)

// 周期出错后退避等待 避免紧循环刷错误日志
const errorCooldown = 10 * time.Second

// Runner 以固定间隔驱动监控周期
type Runner struct {
	cycle     *Cycle
	lifecycle *Lifecycle
	interval  time.Duration
	cooldown  time.Duration
}

// NewRunner 创建监控驱动器
func NewRunner(cycle *Cycle, lifecycle *Lifecycle, interval time.Duration) *Runner {
	return &Runner{
		cycle:     cycle,
		lifecycle: lifecycle,
		interval:  interval,
		cooldown:  errorCooldown,
	}
}

// Run 持续执行监控周期直到收到停止请求或上下文取消
// 停止只在两个周期之间检查 进行中的周期总是跑完
func (r *Runner) Run(ctx context.Context) error {
	if err := r.lifecycle.Start(); err != nil {
		return err
	}
	defer r.lifecycle.Stop()
	logger.Info("监控循环启动: 周期间隔 %s", r.interval)

	for {
		_, err := r.cycle.Run(ctx)

		wait := r.interval
		if err != nil {
			// 周期失败后用固定冷却时间退避
			logger.Error("监控周期出错 %s 后重试: %v", r.cooldown, err)
			wait = r.cooldown
		}

		select {
		case <-ctx.Done():
			logger.Info("监控循环因上下文取消而退出")
			return ctx.Err()
		case <-r.lifecycle.StopC():
			logger.Info("监控循环收到停止请求后退出")
			return nil
		case <-time.After(wait):
		}
	}
}

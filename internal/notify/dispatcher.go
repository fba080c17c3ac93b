// 本包负责告警通知分发 按级别路由到邮件 Webhook 与 Slack 通道
package notify

import (
	"context"
	"sync"
	"time"

	"net-monitor/internal/logger"
	"net-monitor/internal/metrics"
	"net-monitor/internal/models"
)

// 单通道发送超时, 慢通道不能拖垮整个分发
const channelTimeout = 10 * time.Second

// Sender 表示一个通知通道。
type Sender interface {
	Name() string
	Send(ctx context.Context, alert models.Alert) error
}

// ChannelResult 记录单个通道的发送结果。
type ChannelResult struct {
	Channel string
	Err     error
}

// Dispatcher 按告警级别将告警路由到已配置的通道并发发送。
type Dispatcher struct {
	channels []Sender
	timeout  time.Duration
	stats    *metrics.Collector
}

// NewDispatcher 根据配置构建分发器, 未配置的通道不参与路由。
func NewDispatcher(cfg *models.Config) *Dispatcher {
	dispatcher := &Dispatcher{
		timeout: channelTimeout,
		stats:   metrics.Global(),
	}
	if cfg == nil {
		return dispatcher
	}
	if cfg.Email != nil {
		dispatcher.channels = append(dispatcher.channels, NewEmailSender(cfg.Email))
	}
	if cfg.Webhook != nil {
		dispatcher.channels = append(dispatcher.channels, NewWebhookSender(cfg.Webhook))
	}
	if cfg.Slack != nil {
		dispatcher.channels = append(dispatcher.channels, NewSlackSender(cfg.Slack))
	}
	return dispatcher
}

// newDispatcherWithChannels 供同包测试注入假通道。
func newDispatcherWithChannels(timeout time.Duration, channels ...Sender) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		timeout:  timeout,
		stats:    metrics.NewCollector(),
	}
}

// channelsFor 返回该级别应通知的通道名集合。
func channelsFor(severity models.Severity) map[string]bool {
	switch severity {
	case models.SeverityHigh, models.SeverityCritical:
		return map[string]bool{"email": true, "webhook": true, "slack": true}
	case models.SeverityMedium:
		return map[string]bool{"webhook": true, "slack": true}
	case models.SeverityLow:
		return map[string]bool{"slack": true}
	default:
		return nil
	}
}

// Dispatch 并发发送告警到路由命中的通道, 单通道失败只记录不影响其它通道。
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) []ChannelResult {
	if d == nil || len(d.channels) == 0 {
		return nil
	}

	wanted := channelsFor(alert.Severity)
	selected := make([]Sender, 0, len(d.channels))
	for _, channel := range d.channels {
		if wanted[channel.Name()] {
			selected = append(selected, channel)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	results := make([]ChannelResult, len(selected))
	var wg sync.WaitGroup
	for idx, channel := range selected {
		wg.Add(1)
		go func(idx int, channel Sender) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			err := channel.Send(sendCtx, alert)
			results[idx] = ChannelResult{Channel: channel.Name(), Err: err}
			d.stats.IncNotify(channel.Name(), err == nil)
			if err != nil {
				logger.Error("通知通道 %s 发送失败: %v", channel.Name(), err)
			} else {
				logger.Info("通知通道 %s 发送成功: %s", channel.Name(), alert.RuleName)
			}
		}(idx, channel)
	}
	wg.Wait()
	return results
}

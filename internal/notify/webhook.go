// 本文件实现通用 Webhook 通知通道 向配置地址 POST 告警 JSON
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"net-monitor/internal/models"
)

// WebhookSender 向自定义 Webhook 地址推送告警
type WebhookSender struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// webhookPayload 是推送给 Webhook 的 JSON 结构
type webhookPayload struct {
	Timestamp  string         `json:"timestamp"`
	RuleName   string         `json:"rule_name"`
	Target     string         `json:"target"`
	TargetType string         `json:"target_type"`
	Severity   string         `json:"severity"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details"`
}

// NewWebhookSender 创建 Webhook 发送器
func NewWebhookSender(cfg *models.WebhookConfig) *WebhookSender {
	sender := &WebhookSender{
		client: &http.Client{Timeout: channelTimeout},
	}
	if cfg == nil {
		return sender
	}
	sender.url = strings.TrimSpace(cfg.URL)
	sender.headers = cfg.Headers
	return sender
}

// Name 返回通道名
func (s *WebhookSender) Name() string { return "webhook" }

// Send 将告警序列化后 POST 到 Webhook 地址
func (s *WebhookSender) Send(ctx context.Context, alert models.Alert) error {
	if s == nil || s.url == "" {
		return fmt.Errorf("webhook url is empty")
	}

	payload := webhookPayload{
		Timestamp:  alert.Timestamp.UTC().Format(time.RFC3339),
		RuleName:   alert.RuleName,
		Target:     alert.Target,
		TargetType: string(alert.TargetType),
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		Details:    alert.Details,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化 webhook 消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// 配置里的自定义头可以覆盖默认 Content-Type
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook HTTP 状态码异常: %d", resp.StatusCode)
	}
	return nil
}

// 本文件实现 Slack 通知通道 以 attachment 形式推送告警卡片
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"net-monitor/internal/models"
)

// SlackSender 通过 incoming webhook 推送 Slack 告警卡片
type SlackSender struct {
	webhookURL string
	client     *http.Client
}

type slackMessage struct {
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// 各级别对应的卡片颜色
var slackSeverityColors = map[models.Severity]string{
	models.SeverityLow:      "#36a64f",
	models.SeverityMedium:   "#ff9500",
	models.SeverityHigh:     "#ff0000",
	models.SeverityCritical: "#8b0000",
}

// NewSlackSender 创建 Slack 发送器
func NewSlackSender(cfg *models.SlackConfig) *SlackSender {
	sender := &SlackSender{
		client: &http.Client{Timeout: channelTimeout},
	}
	if cfg == nil {
		return sender
	}
	sender.webhookURL = strings.TrimSpace(cfg.WebhookURL)
	return sender
}

// Name 返回通道名
func (s *SlackSender) Name() string { return "slack" }

// Send 组装 Slack attachment 并推送
func (s *SlackSender) Send(ctx context.Context, alert models.Alert) error {
	if s == nil || s.webhookURL == "" {
		return fmt.Errorf("slack webhook url is empty")
	}

	body, err := json.Marshal(buildSlackMessage(alert))
	if err != nil {
		return fmt.Errorf("序列化 slack 消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Slack 在 body 里带简短错误文本
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack HTTP 状态码异常: %d %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func buildSlackMessage(alert models.Alert) slackMessage {
	color, ok := slackSeverityColors[alert.Severity]
	if !ok {
		color = "#808080"
	}
	return slackMessage{
		Attachments: []slackAttachment{{
			Color: color,
			Title: fmt.Sprintf("Network Monitoring Alert - %s", alert.Severity),
			Text:  alert.Message,
			Fields: []slackField{
				{Title: "Target Address", Value: alert.Target, Short: true},
				{Title: "Target Type", Value: string(alert.TargetType), Short: true},
				{Title: "Alert Rule", Value: alert.RuleName, Short: true},
				{Title: "Time", Value: alert.Timestamp.Local().Format("2006-01-02 15:04:05"), Short: true},
			},
			Footer: "Network Monitoring System",
		}},
	}
}

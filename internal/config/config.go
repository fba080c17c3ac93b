// 本文件用于加载与校验配置文件
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"net-monitor/internal/models"
)

// LoadConfig 加载配置文件并填充默认值
func LoadConfig(configFile string) (*models.Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var file models.ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	config := file.NetworkMonitoring

	// 设置默认值
	if config.Monitoring.PingInterval <= 0 {
		config.Monitoring.PingInterval = 60
	}
	if config.Monitoring.Timeout <= 0 {
		config.Monitoring.Timeout = 5
	}
	if config.Monitoring.RetryCount <= 0 {
		config.Monitoring.RetryCount = 3
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return &config, nil
}

// ValidateConfig 验证配置
func ValidateConfig(config *models.Config) error {
	if config == nil {
		return fmt.Errorf("配置为空")
	}
	if config.Database.Path == "" {
		return fmt.Errorf("数据库路径不能为空")
	}
	if countEndpoints(config) == 0 {
		return fmt.Errorf("监控端点不能为空")
	}
	if _, err := ParseSuppressWindow(config); err != nil {
		return err
	}
	if config.Webhook != nil && config.Webhook.URL == "" {
		return fmt.Errorf("Webhook URL不能为空")
	}
	if config.Slack != nil && config.Slack.WebhookURL == "" {
		return fmt.Errorf("Slack Webhook URL不能为空")
	}
	if config.Email != nil {
		if config.Email.SMTPServer == "" {
			return fmt.Errorf("SMTP服务器不能为空")
		}
		if config.Email.From == "" || config.Email.To == "" {
			return fmt.Errorf("邮件收发地址不能为空")
		}
	}
	return nil
}

// ParseSuppressWindow 解析告警抑制窗口 空值表示关闭
func ParseSuppressWindow(config *models.Config) (time.Duration, error) {
	raw := config.Monitoring.AlertSuppressWindow
	if raw == "" || raw == "0" {
		return 0, nil
	}
	window, err := time.ParseDuration(raw)
	if err != nil || window < 0 {
		return 0, fmt.Errorf("告警抑制窗口无效: %s", raw)
	}
	return window, nil
}

func countEndpoints(config *models.Config) int {
	count := 0
	for _, cable := range config.SubmarineCable {
		count += len(cable.Endpoints)
	}
	for _, isp := range config.ISPs {
		count += len(isp.Endpoints)
	}
	for _, provider := range config.CloudProviders {
		count += len(provider.Regions)
	}
	return count
}

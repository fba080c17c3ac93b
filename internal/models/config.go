// 本文件用于定义配置文件结构
package models

// ConfigFile 表示配置文件的顶层结构
type ConfigFile struct {
	NetworkMonitoring Config `yaml:"network_monitoring"`
}

// Config 表示网络监控配置
type Config struct {
	Monitoring     MonitoringConfig         `yaml:"monitoring"`
	Database       DatabaseConfig           `yaml:"database"`
	Logging        LoggingConfig            `yaml:"logging"`
	SubmarineCable map[string]CableConfig   `yaml:"submarine_cables"`
	ISPs           map[string]ISPConfig     `yaml:"isps"`
	CloudProviders map[string]CloudProvider `yaml:"cloud_providers"`
	Email          *EmailConfig             `yaml:"email"`
	Webhook        *WebhookConfig           `yaml:"webhook"`
	Slack          *SlackConfig             `yaml:"slack"`
}

// MonitoringConfig 表示探测调度配置
type MonitoringConfig struct {
	PingInterval       int    `yaml:"ping_interval"` // 周期间隔 单位秒
	Timeout            int    `yaml:"timeout"`       // 单次探测超时 单位秒
	RetryCount         int    `yaml:"retry_count"`   // 每个目标的采样次数
	AlertSuppressWindow string `yaml:"alert_suppress_window"` // 告警抑制窗口 空值或 0 表示关闭
	AlertRulesFile     string `yaml:"alert_rules_file"`       // 可选的规则文件 覆盖内置默认规则
}

// DatabaseConfig 表示存储配置
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig 表示日志配置
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// CableConfig 表示一条海缆系统的探测端点
type CableConfig struct {
	Endpoints []string `yaml:"endpoints"`
}

// ISPConfig 表示一家运营商的探测端点
type ISPConfig struct {
	Endpoints []string `yaml:"endpoints"`
}

// CloudProvider 表示一家云服务商的区域列表
type CloudProvider struct {
	Regions []CloudRegion `yaml:"regions"`
}

// CloudRegion 表示云服务商的单个区域节点
type CloudRegion struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
}

// EmailConfig 表示邮件通知配置 缺省时邮件通道不生效
type EmailConfig struct {
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	UseTLS     *bool  `yaml:"use_tls"` // 缺省为 true
}

// WebhookConfig 表示 Webhook 通知配置
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// SlackConfig 表示 Slack 通知配置
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// 本文件实现邮件通知通道 通过 SMTP 发送告警邮件
package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"net-monitor/internal/models"
)

// EmailSender 通过 SMTP 发送告警邮件
type EmailSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
	useTLS   bool // 465 端口直连 TLS 其余端口走 STARTTLS
}

// NewEmailSender 根据邮件配置创建发送器
func NewEmailSender(cfg *models.EmailConfig) *EmailSender {
	sender := &EmailSender{}
	if cfg == nil {
		return sender
	}
	sender.host = strings.TrimSpace(cfg.SMTPServer)
	sender.port = cfg.SMTPPort
	sender.user = strings.TrimSpace(cfg.Username)
	sender.password = cfg.Password
	sender.from = strings.TrimSpace(cfg.From)
	// to 为逗号分隔的收件人列表
	sender.to = cleanRecipients(strings.Split(cfg.To, ","))
	// use_tls 未配置时默认开启
	sender.useTLS = cfg.UseTLS == nil || *cfg.UseTLS
	return sender
}

// Name 返回通道名
func (s *EmailSender) Name() string { return "email" }

// Send 组装告警邮件并发送
func (s *EmailSender) Send(ctx context.Context, alert models.Alert) error {
	// 参数校验提前做, 避免建连后才失败
	if s == nil {
		return fmt.Errorf("email sender is nil")
	}
	if s.host == "" {
		return fmt.Errorf("smtp host is empty")
	}
	if s.port <= 0 {
		return fmt.Errorf("smtp port is invalid")
	}
	if s.from == "" {
		return fmt.Errorf("smtp from is empty")
	}
	if len(s.to) == 0 {
		return fmt.Errorf("smtp recipients are empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	subject := fmt.Sprintf("[Network Monitoring] %s Level Alert", alert.Severity)
	body := buildEmailBody(alert)

	// 先建立 TCP 连接, 再根据端口与配置决定 TLS 或 STARTTLS
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	dialer := net.Dialer{Timeout: channelTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	// ctx 的截止时间同步到连接读写
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var client *smtp.Client
	if s.useTLS && s.port == 465 {
		// 465 端口走 SMTPS 直连 TLS
		tlsConn := tls.Client(conn, &tls.Config{ServerName: s.host})
		if err := tlsConn.Handshake(); err != nil {
			_ = conn.Close()
			return fmt.Errorf("smtp tls handshake failed: %w", err)
		}
		client, err = smtp.NewClient(tlsConn, s.host)
	} else {
		client, err = smtp.NewClient(conn, s.host)
	}
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client init failed: %w", err)
	}
	defer client.Close()

	// 非 465 端口时升级为 STARTTLS
	if s.useTLS && s.port != 465 {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("smtp server does not support STARTTLS")
		}
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("smtp starttls failed: %w", err)
		}
	}

	// 配置了账号才做 AUTH 认证
	if s.user != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return fmt.Errorf("smtp server does not support AUTH")
		}
		auth := smtp.PlainAuth("", s.user, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from failed: %w", err)
	}
	for _, rcpt := range s.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt to %s failed: %w", rcpt, err)
		}
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data failed: %w", err)
	}
	if _, err := writer.Write([]byte(buildEmailMessage(s.from, s.to, subject, body))); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp data close failed: %w", err)
	}
	// QUIT 失败不影响邮件已发送成功的事实
	_ = client.Quit()
	return nil
}

// buildEmailBody 组装纯文本告警正文
func buildEmailBody(alert models.Alert) string {
	lines := []string{
		fmt.Sprintf("Alert Time: %s", alert.Timestamp.Local().Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Alert Rule: %s", alert.RuleName),
		fmt.Sprintf("Target Address: %s", alert.Target),
		fmt.Sprintf("Target Type: %s", alert.TargetType),
		fmt.Sprintf("Severity: %s", alert.Severity),
		fmt.Sprintf("Alert Message: %s", alert.Message),
		"",
		"Details:",
	}
	if detail, err := json.MarshalIndent(alert.Details, "", "  "); err == nil {
		lines = append(lines, string(detail))
	}
	return strings.Join(lines, "\n")
}

// buildEmailMessage 组装标准 SMTP 文本邮件内容
// 不引入复杂 MIME, 保证告警通知稳定可用
func buildEmailMessage(from string, to []string, subject, body string) string {
	// Subject 去除换行避免头注入
	cleanSubject := strings.NewReplacer("\r", "", "\n", "").Replace(subject)
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", strings.Join(to, ", ")),
		fmt.Sprintf("Subject: %s", cleanSubject),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + normalizeLineEndings(body) + "\r\n"
}

// normalizeLineEndings 统一换行符为 CRLF 满足 SMTP 协议要求
func normalizeLineEndings(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return strings.ReplaceAll(body, "\n", "\r\n")
}

// cleanRecipients 清理收件人列表中的空项与多余空格
func cleanRecipients(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// 本文件用于监控状态与告警的 SQLite 持久化存储。
// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"net-monitor/internal/models"
)

// storeTimeLayout 固定九位小数的 UTC 时间格式
// 宽度固定后 TEXT 列的字符串比较与时间先后一致 窗口过滤与排序才可靠
const storeTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store 封装 SQLite 持久化层
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open 打开数据库并执行幂等迁移
func Open(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	// 启动时确保目录存在，避免数据库文件无法创建导致监控整体不可用
	if dir := filepath.Dir(trimmed); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir failed: %w", err)
		}
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}
	// WAL 兼顾写入吞吐与崩溃恢复，适合监控周期内高频插入场景
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set sqlite wal failed: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dbPath: trimmed}, nil
}

// Close 关闭底层数据库
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DBPath 返回数据库文件路径
func (s *Store) DBPath() string {
	if s == nil {
		return ""
	}
	return s.dbPath
}

// migrate 负责表结构与索引的幂等迁移
// 迁移分步执行 便于增量升级时逐条定位失败语句
func migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite is nil")
	}
	// 迁移语句保持幂等，服务重启时重复执行不会破坏现有数据
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS network_status (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			target TEXT NOT NULL,
			target_type TEXT NOT NULL,
			latency REAL,
			packet_loss REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			details_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_network_status_time
			ON network_status(timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_network_status_type_time
			ON network_status(target_type, timestamp DESC);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			target TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			resolved INTEGER NOT NULL DEFAULT 0,
			details_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			resolved_at TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_time
			ON alerts(timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_resolved_time
			ON alerts(resolved, timestamp DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate sqlite failed: %w", err)
		}
	}
	return nil
}

// WriteStatus 落库一条状态记录
// 延迟为 Inf 时写 NULL 列，JSON 详情里则以字符串 "inf" 表示
func (s *Store) WriteStatus(record models.StatusRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	detailsJSON, err := marshalDetails(record.Details)
	if err != nil {
		return fmt.Errorf("marshal status details failed: %w", err)
	}
	var latency any
	if !math.IsInf(record.LatencyMs, 0) && !math.IsNaN(record.LatencyMs) {
		latency = record.LatencyMs
	}
	_, err = s.db.Exec(`
		INSERT INTO network_status (
			timestamp, target, target_type, latency, packet_loss, status, details_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		formatStoreTime(record.Timestamp),
		record.Target,
		string(record.TargetType),
		latency,
		record.PacketLossPct,
		string(record.Status),
		detailsJSON,
		formatStoreTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert network status failed: %w", err)
	}
	return nil
}

// WriteAlert 落库一条告警并返回行 ID
// 表结构没有 target_type 列，类型信息保存在 details_json 里
func (s *Store) WriteAlert(alert models.Alert) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store is not open")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// 拷贝一份详情再补充类型信息 不改动调用方持有的 map
	details := make(map[string]any, len(alert.Details)+1)
	for k, v := range alert.Details {
		details[k] = v
	}
	if _, ok := details["target_type"]; !ok {
		details["target_type"] = string(alert.TargetType)
	}
	detailsJSON, err := marshalDetails(details)
	if err != nil {
		return 0, fmt.Errorf("marshal alert details failed: %w", err)
	}
	result, err := s.db.Exec(`
		INSERT INTO alerts (
			timestamp, target, alert_type, message, severity, resolved, details_json, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, 0, ?, ?, '')
	`,
		formatStoreTime(alert.Timestamp),
		alert.Target,
		alert.RuleName,
		alert.Message,
		string(alert.Severity),
		detailsJSON,
		formatStoreTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert alert failed: %w", err)
	}
	return result.LastInsertId()
}

// ResolveAlert 将告警标记为已解决
func (s *Store) ResolveAlert(id int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE alerts SET resolved = 1, resolved_at = ?
		WHERE id = ? AND resolved = 0
	`, formatStoreTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("resolve alert failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve alert rows failed: %w", err)
	}
	// 重复解决同一条告警按幂等处理，只有完全不存在才报错
	if affected == 0 {
		var exists int
		if err := s.db.QueryRow(`SELECT COUNT(1) FROM alerts WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("resolve alert lookup failed: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("alert %d not found", id)
		}
	}
	return nil
}

// StatusSummary 统计时间窗口内各类型目标的状态分布
func (s *Store) StatusSummary(window time.Duration) (models.StatusSummary, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	cutoff := formatStoreTime(time.Now().Add(-window))

	rows, err := s.db.Query(`
		SELECT target_type, status, COUNT(1)
		FROM network_status
		WHERE timestamp >= ?
		GROUP BY target_type, status
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query status summary failed: %w", err)
	}
	defer rows.Close()

	// 全量类型与状态先置零，保证窗口内没有记录的组合也出现在结果里
	summary := models.NewStatusSummary()
	for rows.Next() {
		var targetType, status string
		var count int
		if err := rows.Scan(&targetType, &status, &count); err != nil {
			return nil, err
		}
		if byStatus, ok := summary[models.TargetType(targetType)]; ok {
			byStatus[models.HealthStatus(status)] = count
		}
	}
	return summary, rows.Err()
}

// RecentAlerts 返回时间窗口内的告警，按时间倒序
func (s *Store) RecentAlerts(window time.Duration, onlyUnresolved bool) ([]models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	cutoff := formatStoreTime(time.Now().Add(-window))

	query := `
		SELECT id, timestamp, target, alert_type, message, severity, resolved, details_json, resolved_at
		FROM alerts
		WHERE timestamp >= ?
	`
	if onlyUnresolved {
		query += ` AND resolved = 0`
	}
	query += ` ORDER BY timestamp DESC`

	rows, err := s.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query alerts failed: %w", err)
	}
	defer rows.Close()

	out := make([]models.Alert, 0)
	for rows.Next() {
		var (
			item                     models.Alert
			timestampRaw, severity   string
			resolvedInt              int
			detailsJSON, resolvedRaw string
		)
		if err := rows.Scan(
			&item.ID,
			&timestampRaw,
			&item.Target,
			&item.RuleName,
			&item.Message,
			&severity,
			&resolvedInt,
			&detailsJSON,
			&resolvedRaw,
		); err != nil {
			return nil, err
		}
		item.Timestamp = parseStoreTime(timestampRaw)
		item.Severity = models.Severity(severity)
		item.Resolved = resolvedInt != 0
		item.Details = parseDetails(detailsJSON)
		// target_type 从 details_json 还原
		if raw, ok := item.Details["target_type"].(string); ok {
			item.TargetType = models.TargetType(raw)
		}
		// resolved_at 允许为空字符串，代表告警尚未解决
		if strings.TrimSpace(resolvedRaw) != "" {
			resolvedAt := parseStoreTime(resolvedRaw)
			item.ResolvedAt = &resolvedAt
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// AlertStatistics 统计时间窗口内的告警分布
func (s *Store) AlertStatistics(window time.Duration) (models.AlertStatistics, error) {
	stats := models.AlertStatistics{
		BySeverity: make(map[models.Severity]int),
		ByType:     make(map[models.TargetType]int),
	}
	if s == nil || s.db == nil {
		return stats, fmt.Errorf("store is not open")
	}
	cutoff := formatStoreTime(time.Now().Add(-window))

	if err := s.db.QueryRow(`
		SELECT COUNT(1), COALESCE(SUM(resolved), 0)
		FROM alerts WHERE timestamp >= ?
	`, cutoff).Scan(&stats.Total, &stats.Resolved); err != nil {
		return stats, fmt.Errorf("query alert totals failed: %w", err)
	}
	stats.Active = stats.Total - stats.Resolved

	rows, err := s.db.Query(`
		SELECT severity, COUNT(1) FROM alerts
		WHERE timestamp >= ? GROUP BY severity
	`, cutoff)
	if err != nil {
		return stats, fmt.Errorf("query alert severities failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return stats, err
		}
		stats.BySeverity[models.Severity(severity)] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	// 目标类型保存在 details_json 里，用 JSON1 扩展直接分组
	typeRows, err := s.db.Query(`
		SELECT COALESCE(json_extract(details_json, '$.target_type'), ''), COUNT(1)
		FROM alerts WHERE timestamp >= ?
		GROUP BY json_extract(details_json, '$.target_type')
	`, cutoff)
	if err != nil {
		return stats, fmt.Errorf("query alert types failed: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var targetType string
		var count int
		if err := typeRows.Scan(&targetType, &count); err != nil {
			return stats, err
		}
		if targetType == "" {
			continue
		}
		stats.ByType[models.TargetType(targetType)] = count
	}
	return stats, typeRows.Err()
}

// marshalDetails 序列化详情, 非法浮点值转成字符串避免 JSON 编码失败
func marshalDetails(details map[string]any) (string, error) {
	if len(details) == 0 {
		return "{}", nil
	}
	safe := make(map[string]any, len(details))
	for key, value := range details {
		switch v := value.(type) {
		case float64:
			safe[key] = models.JSONSafeFloat(v)
		case []float64:
			safe[key] = models.JSONSafeFloats(v)
		default:
			safe[key] = value
		}
	}
	raw, err := json.Marshal(safe)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseDetails(raw string) map[string]any {
	out := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return out
	}
	// 历史数据里可能有坏 JSON，解析失败时返回空详情而不是报错
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func formatStoreTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storeTimeLayout)
}

func parseStoreTime(raw string) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}
	}
	// 先按固定宽度解析 再兼容变长纳秒与 RFC3339 老格式 保证历史数据可读
	if t, err := time.Parse(storeTimeLayout, trimmed); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

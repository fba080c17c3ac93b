// 本文件用于监控面板的 HTTP 服务与 REST 接口
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"net-monitor/internal/alert"
	"net-monitor/internal/logger"
	"net-monitor/internal/metrics"
	"net-monitor/internal/models"
	"net-monitor/internal/store"
	"net-monitor/internal/sysinfo"
)

const defaultWindowHours = 24

// Server 封装监控面板的 HTTP 服务
type Server struct {
	httpServer *http.Server
}

type handler struct {
	store   *store.Store
	rules   *alert.RuleSet
	sysinfo *sysinfo.Collector
	started time.Time
}

// NewServer 创建监控面板服务并注册全部路由
func NewServer(addr string, st *store.Store, rules *alert.RuleSet) *Server {
	h := &handler{
		store:   st,
		rules:   rules,
		sysinfo: sysinfo.NewCollector(),
		started: time.Now(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.index)
	mux.HandleFunc("/api/summary", h.summary)
	mux.HandleFunc("/api/alerts", h.alerts)
	mux.HandleFunc("/api/alerts/resolve", h.resolveAlert)
	mux.HandleFunc("/api/stats", h.stats)
	mux.HandleFunc("/api/rules", h.handleRules)
	mux.HandleFunc("/api/health", h.health)
	mux.HandleFunc("/metrics", h.prometheus)
	mux.HandleFunc("/ws", h.websocket)

	srv := &http.Server{
		Addr:        addr,
		Handler:     withCORS(mux),
		ReadTimeout: 5 * time.Second,
	}
	return &Server{httpServer: srv}
}

// Start 异步启动面板服务
func (s *Server) Start() {
	go func() {
		logger.Info("面板服务监听 %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("面板服务异常退出: %v", err)
		}
	}()
}

// Shutdown 优雅停止面板服务
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

// windowFromQuery 解析 hours 查询参数 缺省 24 小时
func windowFromQuery(r *http.Request) time.Duration {
	hours := defaultWindowHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			hours = parsed
		}
	}
	return time.Duration(hours) * time.Hour
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	summary, err := h.store.StatusSummary(windowFromQuery(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	onlyUnresolved := r.URL.Query().Get("unresolved") == "true"
	alerts, err := h.store.RecentAlerts(windowFromQuery(r), onlyUnresolved)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.store.ResolveAlert(req.ID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": req.ID})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats, err := h.store.AlertStatistics(windowFromQuery(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.rules.Snapshot())
	case http.MethodPatch:
		h.patchRule(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// patchRule 对单条规则做部分更新
// 请求体里出现未知字段直接拒绝 避免拼错字段名的更新静默丢失
func (h *handler) patchRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string   `json:"name"`
		Threshold *float64 `json:"threshold"`
		Severity  *string  `json:"severity"`
		Enabled   *bool    `json:"enabled"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	patch := alert.RulePatch{
		Threshold: req.Threshold,
		Enabled:   req.Enabled,
	}
	if req.Severity != nil {
		severity, ok := models.ParseSeverity(*req.Severity)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown severity: %s", *req.Severity)})
			return
		}
		patch.Severity = &severity
	}
	if err := h.rules.Update(req.Name, patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": req.Name})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"database":       h.store.DBPath(),
	})
}

func (h *handler) prometheus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(metrics.Global().Render()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

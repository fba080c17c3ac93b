// 本文件用于面板的 WebSocket 实时推送
package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"net-monitor/internal/logger"
)

const (
	// 推送间隔
	pushInterval = 5 * time.Second
	// 单次写超时
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 面板自身允许跨域访问 与 REST 接口的 CORS 策略保持一致
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSnapshot 是推送给面板客户端的聚合快照
type wsSnapshot struct {
	Summary any    `json:"summary"`
	Alerts  any    `json:"alerts"`
	Sysinfo any    `json:"sysinfo"`
	At      string `json:"at"`
}

// websocket 每 5 秒向客户端推送一次聚合快照
func (h *handler) websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()
	logger.Debug("面板 WebSocket 客户端接入: %s", r.RemoteAddr)

	// 读协程只负责感知客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	// 接入后先推一帧 不让客户端空等一个周期
	if err := h.pushSnapshot(conn); err != nil {
		return
	}
	for {
		select {
		case <-done:
			logger.Debug("面板 WebSocket 客户端断开: %s", r.RemoteAddr)
			return
		case <-ticker.C:
			if err := h.pushSnapshot(conn); err != nil {
				logger.Debug("面板 WebSocket 推送失败: %v", err)
				return
			}
		}
	}
}

func (h *handler) pushSnapshot(conn *websocket.Conn) error {
	snapshot := wsSnapshot{
		Sysinfo: h.sysinfo.Snapshot(),
		At:      time.Now().UTC().Format(time.RFC3339),
	}
	// 查询失败的部分推空值 面板显示上一帧数据即可
	if summary, err := h.store.StatusSummary(time.Duration(defaultWindowHours) * time.Hour); err == nil {
		snapshot.Summary = summary
	}
	if alerts, err := h.store.RecentAlerts(time.Duration(defaultWindowHours)*time.Hour, true); err == nil {
		snapshot.Alerts = alerts
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snapshot)
}

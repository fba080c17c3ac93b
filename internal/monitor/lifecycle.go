// 本文件用于监控循环的启停状态管理
package monitor

import (
	"fmt"
	"sync"
)

// Lifecycle 管理监控循环的运行状态
// 停止请求只在两个周期之间生效 不会打断进行中的周期
type Lifecycle struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewLifecycle 创建生命周期控制器
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Start 进入运行态 重复启动返回错误
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("monitor is already running")
	}
	l.running = true
	l.stop = make(chan struct{})
	return nil
}

// Stop 请求停止 幂等 重复调用无害
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	close(l.stop)
}

// Running 返回当前是否处于运行态
func (l *Lifecycle) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// StopC 返回停止信号通道 供运行循环在周期间隙监听
func (l *Lifecycle) StopC() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.stop
}

// 本文件用于监听告警规则文件变更并热加载
package rulewatch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"net-monitor/internal/alert"
	"net-monitor/internal/logger"
)

// 规则文件写入往往是多次事件 合并一小段时间内的变更再加载
const reloadDebounce = 500 * time.Millisecond

// RuleWatcher 监听规则文件变更并替换规则集
type RuleWatcher struct {
	watcher  *fsnotify.Watcher
	rules    *alert.RuleSet
	rulePath string

	stateMutex  sync.Mutex
	reloadTimer *time.Timer
	done        chan struct{}
}

// NewRuleWatcher 创建规则文件监听器
func NewRuleWatcher(rulePath string, rules *alert.RuleSet) (*RuleWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &RuleWatcher{
		watcher:  watcher,
		rules:    rules,
		rulePath: filepath.Clean(rulePath),
		done:     make(chan struct{}),
	}, nil
}

// Start 启动规则文件监听
// 监听所在目录而不是文件本身 编辑器原子替换会让文件级监听失效
func (rw *RuleWatcher) Start() error {
	if err := rw.watcher.Add(filepath.Dir(rw.rulePath)); err != nil {
		logger.Error("添加规则文件监听失败: %v", err)
		return err
	}
	go rw.handleEvents()
	logger.Info("规则文件热加载已启用: %s", rw.rulePath)
	return nil
}

// Close 停止监听
func (rw *RuleWatcher) Close() error {
	rw.stateMutex.Lock()
	if rw.reloadTimer != nil {
		rw.reloadTimer.Stop()
		rw.reloadTimer = nil
	}
	rw.stateMutex.Unlock()

	close(rw.done)
	return rw.watcher.Close()
}

func (rw *RuleWatcher) handleEvents() {
	for {
		select {
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			rw.handleEvent(event)
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("规则文件监听错误: %v", err)
		case <-rw.done:
			return
		}
	}
}

func (rw *RuleWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != rw.rulePath {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	logger.Debug("收到规则文件事件: %s, 操作: %s", event.Name, event.Op.String())

	rw.stateMutex.Lock()
	defer rw.stateMutex.Unlock()
	if rw.reloadTimer != nil {
		rw.reloadTimer.Stop()
	}
	rw.reloadTimer = time.AfterFunc(reloadDebounce, rw.reload)
}

// reload 重新加载规则文件并整体替换规则集
// 文件非法时保留旧规则 只记录错误
func (rw *RuleWatcher) reload() {
	rules, err := alert.LoadRules(rw.rulePath)
	if err != nil {
		logger.Error("规则文件加载失败 保留现有规则: %v", err)
		return
	}
	if err := rw.rules.ReplaceAll(rules); err != nil {
		logger.Error("规则替换失败 保留现有规则: %v", err)
		return
	}
	logger.Info("告警规则已热加载: %d 条规则", len(rules))
}

// 本文件用于程序启动入口
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"net-monitor/internal/alert"
	"net-monitor/internal/analyzer"
	"net-monitor/internal/config"
	"net-monitor/internal/dashboard"
	"net-monitor/internal/logger"
	"net-monitor/internal/models"
	"net-monitor/internal/monitor"
	"net-monitor/internal/notify"
	"net-monitor/internal/rulewatch"
	"net-monitor/internal/store"
)

var (
	flagConfig  string
	flagMode    string
	flagTargets []string
	flagHours   int
	flagHost    string
	flagPort    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "net-monitor",
		Short:        "网络端点监控与告警引擎",
		Long:         "对海缆、运营商与云服务端点做周期性 ICMP 探测, 按规则触发分级告警通知。",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.Flags().StringVar(&flagConfig, "config", "config.yaml", "配置文件路径")
	rootCmd.Flags().StringVar(&flagMode, "mode", "monitor", "运行模式: monitor|single|analyze|status|stats|dashboard")
	rootCmd.Flags().StringSliceVar(&flagTargets, "targets", nil, "analyze 模式的目标地址列表")
	rootCmd.Flags().IntVar(&flagHours, "hours", 24, "status/stats 模式的统计窗口 单位小时")
	rootCmd.Flags().StringVar(&flagHost, "host", "0.0.0.0", "面板监听地址")
	rootCmd.Flags().IntVar(&flagPort, "port", 8080, "面板监听端口")

	if err := rootCmd.Execute(); err != nil {
		log.Printf("程序退出: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// analyze 模式不依赖配置里的监控目标, 但仍复用日志配置
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.Logging); err != nil {
		return err
	}
	defer logger.Close()

	switch flagMode {
	case "monitor":
		return runMonitor(cfg)
	case "single":
		return runSingle(cfg)
	case "analyze":
		return runAnalyze()
	case "status":
		return runStatus(cfg)
	case "stats":
		return runStats(cfg)
	case "dashboard":
		return runDashboard(cfg)
	default:
		return fmt.Errorf("未知运行模式: %s", flagMode)
	}
}

// buildEngine 组装告警规则集与评估引擎
// 配置了规则文件就用文件内容覆盖内置默认规则
func buildEngine(cfg *models.Config) (*alert.Engine, *alert.RuleSet, error) {
	suppressWindow, err := config.ParseSuppressWindow(cfg)
	if err != nil {
		return nil, nil, err
	}

	rules := alert.DefaultRules()
	if cfg.Monitoring.AlertRulesFile != "" {
		loaded, err := alert.LoadRules(cfg.Monitoring.AlertRulesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("加载规则文件失败: %w", err)
		}
		rules = loaded
	}
	ruleSet, err := alert.NewRuleSet(rules, suppressWindow)
	if err != nil {
		return nil, nil, err
	}
	return alert.NewEngine(ruleSet), ruleSet, nil
}

func runMonitor(cfg *models.Config) error {
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	// 存储打不开直接失败退出 监控没有落库就失去意义
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("打开数据库失败: %v", err)
		return err
	}
	defer st.Close()

	engine, ruleSet, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	// 配置了规则文件时启用热加载
	var ruleWatcher *rulewatch.RuleWatcher
	if cfg.Monitoring.AlertRulesFile != "" {
		ruleWatcher, err = rulewatch.NewRuleWatcher(cfg.Monitoring.AlertRulesFile, ruleSet)
		if err != nil {
			logger.Warn("创建规则文件监听失败 热加载不可用: %v", err)
		} else if err := ruleWatcher.Start(); err != nil {
			logger.Warn("启动规则文件监听失败 热加载不可用: %v", err)
		}
	}
	if ruleWatcher != nil {
		defer ruleWatcher.Close()
	}

	dispatcher := notify.NewDispatcher(cfg)
	cycle := monitor.NewCycle(cfg, engine, st, dispatcher)
	lifecycle := monitor.NewLifecycle()
	runner := monitor.NewRunner(cycle, lifecycle, time.Duration(cfg.Monitoring.PingInterval)*time.Second)

	// 监控模式同时提供面板服务
	server := dashboard.NewServer(fmt.Sprintf("%s:%d", flagHost, flagPort), st, ruleSet)
	server.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 退出信号只请求停止 进行中的周期跑完再退出
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		logger.Info("收到退出信号, 正在停止监控...")
		lifecycle.Stop()
	}()

	err = runner.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("关闭面板服务失败: %v", shutdownErr)
	}
	logger.Info("程序已退出")
	return err
}

// runSingle 执行单个监控周期后退出 便于配置验证与排障
func runSingle(cfg *models.Config) error {
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("打开数据库失败: %v", err)
		return err
	}
	defer st.Close()

	engine, _, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	cycle := monitor.NewCycle(cfg, engine, st, notify.NewDispatcher(cfg))

	records, err := cycle.Run(context.Background())
	if printErr := printJSON(records); printErr != nil {
		return printErr
	}
	return err
}

func runAnalyze() error {
	if len(flagTargets) == 0 {
		return fmt.Errorf("analyze 模式需要 --targets 指定至少一个目标")
	}
	routeAnalyzer := analyzer.NewAnalyzer()
	results := make([]analyzer.RouteAnalysis, 0, len(flagTargets))
	for _, target := range flagTargets {
		analysis, err := routeAnalyzer.Analyze(context.Background(), target)
		if err != nil {
			logger.Error("路由分析失败 target=%s: %v", target, err)
			continue
		}
		results = append(results, analysis)
	}
	if len(results) == 0 {
		return fmt.Errorf("全部目标路由分析失败")
	}
	return printJSON(results)
}

// statusReport 是 status 模式的输出 状态汇总外加最近五条未解决告警
type statusReport struct {
	Summary      models.StatusSummary `json:"summary"`
	ActiveAlerts int                  `json:"active_alerts"`
	Alerts       []models.Alert       `json:"alerts"`
}

func buildStatusReport(st *store.Store, window time.Duration) (statusReport, error) {
	summary, err := st.StatusSummary(window)
	if err != nil {
		return statusReport{}, err
	}
	alerts, err := st.RecentAlerts(window, true)
	if err != nil {
		return statusReport{}, err
	}
	report := statusReport{
		Summary:      summary,
		ActiveAlerts: len(alerts),
		Alerts:       alerts,
	}
	if len(report.Alerts) > 5 {
		report.Alerts = report.Alerts[:5]
	}
	return report, nil
}

func runStatus(cfg *models.Config) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := buildStatusReport(st, time.Duration(flagHours)*time.Hour)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runStats(cfg *models.Config) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.AlertStatistics(time.Duration(flagHours) * time.Hour)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runDashboard(cfg *models.Config) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	_, ruleSet, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	server := dashboard.NewServer(fmt.Sprintf("%s:%d", flagHost, flagPort), st, ruleSet)
	server.Start()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	<-signalChan
	logger.Info("收到退出信号, 正在关闭面板服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func printJSON(payload any) error {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

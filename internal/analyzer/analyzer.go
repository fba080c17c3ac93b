// 本文件用于路由路径分析 调用 traceroute 并结合 BGP 数据定位瓶颈
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"net-monitor/internal/logger"
)

const (
	tracerouteTimeout = 60 * time.Second
	asnLookupTimeout  = 5 * time.Second
	// 瓶颈判定 跳点时延超过全路径平均值的倍数
	bottleneckFactor = 2.0
)

// traceroute -n 输出里的跳点行 形如 " 3  203.0.113.1  12.345 ms"
var hopLinePattern = regexp.MustCompile(`^\s*(\d+)\s+(\S+)\s+([\d.]+)\s+ms`)

// Hop 表示路由路径上的一跳
type Hop struct {
	Number    int     `json:"number"`
	Address   string  `json:"address"`
	LatencyMs float64 `json:"latency_ms"`
	ASN       string  `json:"asn,omitempty"`
	ASName    string  `json:"as_name,omitempty"`
}

// RouteAnalysis 表示一次完整的路由分析结果
type RouteAnalysis struct {
	Target       string   `json:"target"`
	Hops         []Hop    `json:"hops"`
	TotalHops    int      `json:"total_hops"`
	AvgLatencyMs float64  `json:"avg_latency_ms"`
	MaxLatencyMs float64  `json:"max_latency_ms"`
	MinLatencyMs float64  `json:"min_latency_ms"`
	ASPath       []string `json:"as_path"`
	Bottlenecks  []Hop    `json:"bottlenecks"`
}

// asnInfo 是单个地址的归属查询结果
type asnInfo struct {
	ASN  string
	Name string
}

// Analyzer 执行路由路径分析
// runTraceroute 与 lookupASN 可由同包测试替换
type Analyzer struct {
	client        *http.Client
	runTraceroute func(ctx context.Context, target string) (string, error)
	lookupASN     func(ctx context.Context, address string) (asnInfo, error)
}

// NewAnalyzer 创建路由分析器
func NewAnalyzer() *Analyzer {
	a := &Analyzer{
		client: &http.Client{Timeout: asnLookupTimeout},
	}
	a.runTraceroute = a.execTraceroute
	a.lookupASN = a.queryASN
	return a
}

// Analyze 对目标执行 traceroute 并汇总路径信息
func (a *Analyzer) Analyze(ctx context.Context, target string) (RouteAnalysis, error) {
	analysis := RouteAnalysis{Target: target}
	if strings.TrimSpace(target) == "" {
		return analysis, fmt.Errorf("analyze target is empty")
	}

	output, err := a.runTraceroute(ctx, target)
	if err != nil {
		return analysis, fmt.Errorf("traceroute %s failed: %w", target, err)
	}

	analysis.Hops = parseTraceroute(output)
	analysis.TotalHops = len(analysis.Hops)
	if analysis.TotalHops == 0 {
		return analysis, fmt.Errorf("traceroute %s produced no hops", target)
	}

	// 逐跳查询归属 AS 查询失败只影响该跳的标注
	for idx := range analysis.Hops {
		hop := &analysis.Hops[idx]
		if net.ParseIP(hop.Address) == nil {
			continue
		}
		info, err := a.lookupASN(ctx, hop.Address)
		if err != nil {
			logger.Debug("查询 %s 归属失败: %v", hop.Address, err)
			continue
		}
		hop.ASN = info.ASN
		hop.ASName = info.Name
	}

	summarize(&analysis)
	return analysis, nil
}

// execTraceroute 以子进程方式执行 traceroute
func (a *Analyzer) execTraceroute(ctx context.Context, target string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, tracerouteTimeout)
	defer cancel()

	// -n 跳过反向解析 -w 2 单跳等待 2 秒 -q 1 每跳一个探测包
	cmd := exec.CommandContext(runCtx, "traceroute", "-n", "-w", "2", "-q", "1", target)
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// parseTraceroute 从 traceroute 输出中提取应答的跳点
// 没有应答的跳 (星号行) 直接跳过
func parseTraceroute(output string) []Hop {
	hops := make([]Hop, 0)
	for _, line := range strings.Split(output, "\n") {
		match := hopLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		latency, err := strconv.ParseFloat(match[3], 64)
		if err != nil {
			continue
		}
		hops = append(hops, Hop{
			Number:    number,
			Address:   match[2],
			LatencyMs: latency,
		})
	}
	return hops
}

// summarize 计算路径统计 AS 路径与瓶颈跳点
func summarize(analysis *RouteAnalysis) {
	sum := 0.0
	minLatency := analysis.Hops[0].LatencyMs
	maxLatency := analysis.Hops[0].LatencyMs
	for _, hop := range analysis.Hops {
		sum += hop.LatencyMs
		if hop.LatencyMs < minLatency {
			minLatency = hop.LatencyMs
		}
		if hop.LatencyMs > maxLatency {
			maxLatency = hop.LatencyMs
		}
	}
	avg := sum / float64(len(analysis.Hops))
	analysis.AvgLatencyMs = avg
	analysis.MinLatencyMs = minLatency
	analysis.MaxLatencyMs = maxLatency

	// AS 路径按首次出现顺序去重
	seen := make(map[string]bool)
	for _, hop := range analysis.Hops {
		if hop.ASN == "" || seen[hop.ASN] {
			continue
		}
		seen[hop.ASN] = true
		analysis.ASPath = append(analysis.ASPath, hop.ASN)
	}

	// 时延显著高于路径均值的跳点视为瓶颈
	for _, hop := range analysis.Hops {
		if avg > 0 && hop.LatencyMs > avg*bottleneckFactor {
			analysis.Bottlenecks = append(analysis.Bottlenecks, hop)
		}
	}
}

// bgpViewResponse 是归属查询接口响应中我们关心的字段
type bgpViewResponse struct {
	Data struct {
		Prefixes []struct {
			ASN struct {
				ASN  int    `json:"asn"`
				Name string `json:"name"`
			} `json:"asn"`
		} `json:"prefixes"`
	} `json:"data"`
}

// queryASN 查询地址的归属 AS
func (a *Analyzer) queryASN(ctx context.Context, address string) (asnInfo, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, asnLookupTimeout)
	defer cancel()

	url := fmt.Sprintf("https://api.bgpview.io/ip/%s", address)
	req, err := http.NewRequestWithContext(lookupCtx, http.MethodGet, url, nil)
	if err != nil {
		return asnInfo{}, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return asnInfo{}, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return asnInfo{}, fmt.Errorf("归属查询 HTTP 状态码异常: %d", resp.StatusCode)
	}

	var body bgpViewResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return asnInfo{}, fmt.Errorf("解析归属查询响应失败: %w", err)
	}
	if len(body.Data.Prefixes) == 0 {
		return asnInfo{}, fmt.Errorf("地址 %s 没有归属信息", address)
	}
	first := body.Data.Prefixes[0].ASN
	return asnInfo{
		ASN:  fmt.Sprintf("AS%d", first.ASN),
		Name: first.Name,
	}, nil
}

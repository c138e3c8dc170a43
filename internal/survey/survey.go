// Package survey 把“巡天服务差异”限制在各子包内部；核心流程只依赖
// 统一接口与稳定的 Result。
package survey

import (
	"context"
	"fmt"
	"strings"

	"github.com/John-Robertt/RSQ/internal/domain"
)

// Request 是一次抓取调用的全部输入，调用结束即丢弃。
type Request struct {
	Coord domain.SkyCoord
	// SizeArcmin 是切图边长（角分）。VLASS 取整幅镶嵌图，忽略该值。
	SizeArcmin float64
	Overwrite  bool
	// DryRun 只执行“定位 + 守卫判断”，不做任何网络与写盘。
	DryRun bool
}

// Result 描述一次抓取的结局与细节。
//
// 约束：
// - Path 在没有可落盘文件时为空（no_suitable_match）
// - 探测字段仅提示性：探测失败从不改变 Outcome
type Result struct {
	Outcome string
	Path    string
	URL     string
	Bytes   int64

	// VLASS 解析细节（其余巡天恒为零值）。
	ResolvedFile  string
	SeparationDeg float64
	SkippedLines  int

	// FITS 头探测。
	NAxis1    int
	NAxis2    int
	ProbeNote string
}

// Client 把一个巡天的查询协议收敛成单一入口。
//
// 约束：
// - Fetch 不做重试、不做限速、不做并发（由上层统一控制）
// - 同一 Request 重复调用是幂等的（受 overwrite 守卫保护）
type Client interface {
	Survey() string
	Fetch(ctx context.Context, req Request) (Result, error)
}

// Registry 是巡天客户端的只读注册表（按小写名索引）。
// 集合是封闭的；用 map 只为 O(1) 查找，保持简单即可。
type Registry struct {
	byName map[string]Client
}

func NewRegistry(clients ...Client) (Registry, error) {
	byName := make(map[string]Client, len(clients))
	for _, c := range clients {
		if c == nil {
			return Registry{}, fmt.Errorf("survey client 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(c.Survey()))
		if name == "" {
			return Registry{}, fmt.Errorf("survey 名不能为空")
		}
		if !domain.KnownSurvey(strings.ToUpper(name)) {
			return Registry{}, fmt.Errorf("未知巡天：%q", c.Survey())
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的巡天客户端：%q", name)
		}
		byName[name] = c
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Client, bool) {
	if r.byName == nil {
		return nil, false
	}
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

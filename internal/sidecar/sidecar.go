// Package sidecar 生成切图旁注（JSON）。
//
// 旁注紧挨 FITS 文件落盘，记录一次成功下载的来龙去脉：查询坐标、
// 来源 URL、抓取时刻与载荷尺寸。写盘由调用方负责（与覆盖规则同步）。
package sidecar

import (
	"encoding/json"
	"strings"
	"time"
)

// Document 描述一次成功下载。
type Document struct {
	Survey     string    `json:"survey"`
	Stem       string    `json:"stem"`
	RADeg      float64   `json:"ra_deg"`
	DecDeg     float64   `json:"dec_deg"`
	SizeArcmin float64   `json:"size_arcmin,omitempty"`
	URL        string    `json:"url"`
	FetchedAt  time.Time `json:"fetched_at"`
	Bytes      int64     `json:"bytes"`

	Probe *Probe `json:"probe,omitempty"`
	VLASS *VLASS `json:"vlass,omitempty"`
}

// Probe 摘录头部探测结果；探测失败时只留备注。
type Probe struct {
	NAxis1 int    `json:"naxis1,omitempty"`
	NAxis2 int    `json:"naxis2,omitempty"`
	Note   string `json:"note,omitempty"`
}

// VLASS 记录镶嵌图解析的附加事实，把归档文件名系回查询词干。
type VLASS struct {
	ResolvedFile  string  `json:"resolved_file"`
	SeparationDeg float64 `json:"separation_deg"`
	SkippedLines  int     `json:"skipped_lines"`
}

// Encode 把 Document 序列化成缩进 JSON。
//
// 规则：
// - 字符串字段去首尾空白
// - 抓取时刻统一成 UTC 并截断到秒（输出稳定、可比对）
// - 输出以换行结尾
func Encode(doc Document) ([]byte, error) {
	doc.Survey = strings.TrimSpace(doc.Survey)
	doc.Stem = strings.TrimSpace(doc.Stem)
	doc.URL = strings.TrimSpace(doc.URL)
	if !doc.FetchedAt.IsZero() {
		doc.FetchedAt = doc.FetchedAt.UTC().Truncate(time.Second)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// PathFor 返回 FITS 文件对应的旁注路径：同目录同名，扩展名换成 .json。
func PathFor(fitsPath string) string {
	return strings.TrimSuffix(fitsPath, ".fits") + ".json"
}

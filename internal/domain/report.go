package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Root   string `json:"root"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Duplicates 是计划阶段去重掉的 (survey, 词干) 条目数。
	Duplicates int `json:"duplicates,omitempty"`

	Summary Summary        `json:"summary"`
	Items   []TargetResult `json:"items"`
}

type Summary struct {
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Planned    int `json:"planned"`
	NoMatch    int `json:"no_match"`
	Empty      int `json:"empty"`
	Failed     int `json:"failed"`
}

// TargetResult 记录一次 (survey, 坐标) 抓取的结果与请求细节。
// 请求参数（URL）与结局都落在这里，而不是散落在日志里。
type TargetResult struct {
	Survey string  `json:"survey"`
	Stem   string  `json:"stem"`
	RADeg  float64 `json:"ra_deg"`
	DecDeg float64 `json:"dec_deg"`

	SizeArcmin float64 `json:"size_arcmin,omitempty"` // VLASS 不适用

	Outcome string `json:"outcome"`
	Path    string `json:"path"`
	URL     string `json:"url,omitempty"`
	Bytes   int64  `json:"bytes,omitempty"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// VLASS 解析细节。
	ResolvedFile  string  `json:"resolved_file,omitempty"`
	SeparationDeg float64 `json:"separation_deg,omitempty"`
	SkippedLines  int     `json:"skipped_lines,omitempty"`

	// FITS 头探测（仅提示性，不影响结局）。
	NAxis1    int    `json:"naxis1,omitempty"`
	NAxis2    int    `json:"naxis2,omitempty"`
	ProbeNote string `json:"probe_note,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 (stem, survey) 字典序；stem=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.Stem == "" || b.Stem == "" {
			return a.Stem != "" && b.Stem == ""
		}
		if a.Stem != b.Stem {
			return a.Stem < b.Stem
		}
		return a.Survey < b.Survey
	})

	var s Summary
	for _, it := range r.Items {
		switch it.Outcome {
		case OutcomeDownloaded:
			s.Downloaded++
		case OutcomeSkippedExisting:
			s.Skipped++
		case OutcomePlanned:
			s.Planned++
		case OutcomeNoSuitableMatch:
			s.NoMatch++
		case OutcomeEmptyPayload:
			s.Empty++
		case OutcomeFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}

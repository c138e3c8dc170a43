package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/RSQ/internal/app/run"
	"github.com/John-Robertt/RSQ/internal/config"
	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
)

var _ run.PlanObserver = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：单个条目网络耗时过长时也定期输出一行，降低等待焦虑
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total     int
	done      int
	ok        int
	fail      int
	skip      int
	current   string
	itemStart time.Time

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

// printHeader 在第一条事件之前输出生效配置。不属于 Observer 契约，由 CLI 直接调用。
func (p *progressUI) printHeader(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "dry-run"
	modeHint := " (不触网/不落盘)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] RSQ fetch (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  root: %s\n", eff.Root)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  surveys: %s\n", strings.Join(eff.Surveys, ","))
	fmt.Fprintf(p.w, "  size_arcmin: %g (VLASS 不适用)\n", eff.SizeArcmin)
	fmt.Fprintf(p.w, "  overwrite: %s\n", onOff(eff.Overwrite))
	fmt.Fprintf(p.w, "  http_timeout: %s\n", eff.HTTPTimeout)
	fmt.Fprintf(p.w, "  vlass_max_sep_deg: %g\n", eff.VLASSMaxSepDeg)

	store := cache.New(eff.Root, true)
	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  listing: %s\n", store.ListingPath(eff.VLASSListing))
	if eff.Apply {
		fmt.Fprintf(p.w, "  report: %s\n", store.ReportPath())
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	p.mu.Unlock()
}

// OnPlan 输出开局概览：按 cache guard 预判统计将下载与命中已有的条目数。
// VLASS 条目在解析前无法预判，计入“预计下载”。
func (p *progressUI) OnPlan(plan domain.FetchPlan) {
	will := 0
	for _, it := range plan.Items {
		if it.WillDownload {
			will++
		}
	}

	p.mu.Lock()
	fmt.Fprintf(p.w, "计划: %d 项 (预计下载 %d，命中已有 %d", len(plan.Items), will, len(plan.Items)-will)
	if plan.Duplicates > 0 {
		fmt.Fprintf(p.w, "，去重 %d", plan.Duplicates)
	}
	fmt.Fprintf(p.w, ")\n")
	p.lastPrinted = time.Now()
	p.mu.Unlock()
}

func (p *progressUI) OnItemStart(i, n int, survey, stem string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = time.Now()
	}
	p.total = n
	p.current = survey + " " + stem
	p.itemStart = time.Now()

	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnItemDone(r domain.TargetResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	dur := time.Duration(0)
	if !p.itemStart.IsZero() {
		dur = time.Since(p.itemStart)
	}

	label := "FAIL"
	switch r.Outcome {
	case domain.OutcomeDownloaded:
		label = "OK"
		p.ok++
	case domain.OutcomeSkippedExisting:
		label = "SKIP"
		p.skip++
	case domain.OutcomePlanned:
		label = "PLAN"
	case domain.OutcomeNoSuitableMatch:
		label = "MISS"
	case domain.OutcomeEmptyPayload:
		label = "EMPTY"
	default:
		p.fail++
	}

	switch r.Outcome {
	case domain.OutcomeFailed:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s %s: %s (%s)\n",
			p.done, p.total, r.Survey, r.Stem, label,
			r.ErrorCode, truncate(r.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.OutcomeDownloaded:
		note := ""
		if r.ResolvedFile != "" {
			note = fmt.Sprintf(" file=%s sep=%.3f°", truncate(r.ResolvedFile, 44), r.SeparationDeg)
		}
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s %s%s (%s)\n",
			p.done, p.total, r.Survey, r.Stem, label,
			formatBytes(r.Bytes), note, formatShortDuration(dur),
		)
	case domain.OutcomeSkippedExisting:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s (已存在，--overwrite 可重下) (%s)\n",
			p.done, p.total, r.Survey, r.Stem, label, formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s (%s)\n",
			p.done, p.total, r.Survey, r.Stem, label, formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				// 已完成：安全退出（OnItemDone 会 close stopCh，但这里也做兜底）。
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}

				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					elapsed := time.Since(p.startedAt)
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d skip=%d 当前=%s elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, p.skip, truncate(p.current, 60), formatElapsed(elapsed),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-p.stopCh:
				return
			}
		}
	}()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	case n > 0:
		return fmt.Sprintf("%dB", n)
	}
	return "0B"
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

package run

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/John-Robertt/RSQ/internal/app/planner"
	"github.com/John-Robertt/RSQ/internal/config"
	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/fsx"
	"github.com/John-Robertt/RSQ/internal/infra/httpx"
	"github.com/John-Robertt/RSQ/internal/scan"
	"github.com/John-Robertt/RSQ/internal/sidecar"
	"github.com/John-Robertt/RSQ/internal/survey"
	"github.com/John-Robertt/RSQ/internal/survey/vlass"
)

// Input 指定这次 run 的目标来源：目标文件或单个 ad-hoc 坐标（二选一）。
type Input struct {
	TargetsPath string
	Adhoc       *domain.Target
}

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为条目级失败（单条失败不影响其他条目）。
func Execute(ctx context.Context, eff config.EffectiveConfig, reg survey.Registry, in Input) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, reg, in, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 输出进度（由上层决定是否启用）。
//
// 执行严格串行：任一时刻至多一个在途请求。取消只在条目之间生效，
// 剩余条目标记为 canceled 后照常收尾，报告总是完整产出。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, reg survey.Registry, in Input, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	rr := domain.RunReport{
		Root:      eff.Root,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Items:     make([]domain.TargetResult, 0, 16),
	}

	targets, err := loadTargets(in)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(classify(err), err.Error()))
		return finish(rr)
	}

	store := cache.New(eff.Root, !eff.Apply)

	plan, err := planner.Build(store, targets, eff.Surveys, eff.SizeArcmin, eff.Overwrite)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("规划失败：%v", err)))
		return finish(rr)
	}
	rr.Duplicates = plan.Duplicates

	if po, ok := obs.(PlanObserver); ok {
		po.OnPlan(plan)
	}

	n := len(plan.Items)
	for i, it := range plan.Items {
		if ctx.Err() != nil {
			// 取消后不再触碰网络；剩余条目原样标记，报告保持完整。
			for _, rest := range plan.Items[i:] {
				rr.Items = append(rr.Items, canceledResult(rest, ctx.Err()))
			}
			break
		}

		stem := it.Coord.Stem()
		if obs != nil {
			obs.OnItemStart(i+1, n, it.Survey, stem)
		}

		r := execOne(ctx, eff, store, reg, it)
		rr.Items = append(rr.Items, r)

		if obs != nil {
			obs.OnItemDone(r)
		}
	}

	return finish(rr)
}

func finish(rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func loadTargets(in Input) ([]domain.Target, error) {
	if in.Adhoc != nil {
		return []domain.Target{*in.Adhoc}, nil
	}
	if in.TargetsPath == "" {
		return nil, errors.New("没有目标：请给出目标文件或 --ra/--dec")
	}
	return scan.Load(in.TargetsPath)
}

func execOne(ctx context.Context, eff config.EffectiveConfig, store cache.Store, reg survey.Registry, it domain.FetchItem) domain.TargetResult {
	out := domain.TargetResult{
		Survey:     it.Survey,
		Stem:       it.Coord.Stem(),
		RADeg:      it.Coord.RADeg(),
		DecDeg:     it.Coord.DecDeg(),
		SizeArcmin: it.SizeArcmin,
	}

	cl, ok := reg.Get(it.Survey)
	if !ok {
		// 注册表缺口属于装配错误，不该在正常配置下出现。
		out.Outcome = domain.OutcomeFailed
		out.ErrorCode = domain.ErrCodeIOFailed
		out.ErrorMsg = fmt.Sprintf("巡天未注册：%s", it.Survey)
		return out
	}

	res, err := cl.Fetch(ctx, survey.Request{
		Coord:      it.Coord,
		SizeArcmin: it.SizeArcmin,
		Overwrite:  eff.Overwrite,
		DryRun:     !eff.Apply,
	})

	out.Outcome = res.Outcome
	out.Path = res.Path
	out.URL = res.URL
	out.Bytes = res.Bytes
	out.ResolvedFile = res.ResolvedFile
	out.SeparationDeg = res.SeparationDeg
	out.SkippedLines = res.SkippedLines
	out.NAxis1 = res.NAxis1
	out.NAxis2 = res.NAxis2
	out.ProbeNote = res.ProbeNote

	if err != nil {
		if out.Outcome == "" {
			out.Outcome = domain.OutcomeFailed
		}
		out.ErrorCode = classify(err)
		out.ErrorMsg = err.Error()
		return out
	}
	if out.Outcome == "" {
		out.Outcome = domain.OutcomeFailed
		out.ErrorCode = domain.ErrCodeIOFailed
		out.ErrorMsg = "抓取未给出结局"
		return out
	}

	// 旁注紧随成功下载写出（apply 才会走到 downloaded）。
	if out.Outcome == domain.OutcomeDownloaded {
		if werr := writeSidecar(eff, out); werr != nil {
			out.Outcome = domain.OutcomeFailed
			out.ErrorCode = domain.ErrCodeIOFailed
			out.ErrorMsg = fmt.Sprintf("旁注写入失败：%v", werr)
		}
	}
	return out
}

// writeSidecar 把下载来历落成 <同名>.json；覆盖语义与切图一致（下载即重写）。
func writeSidecar(eff config.EffectiveConfig, r domain.TargetResult) error {
	doc := sidecar.Document{
		Survey:     r.Survey,
		Stem:       r.Stem,
		RADeg:      r.RADeg,
		DecDeg:     r.DecDeg,
		SizeArcmin: r.SizeArcmin,
		URL:        r.URL,
		FetchedAt:  time.Now().UTC(),
		Bytes:      r.Bytes,
	}
	if r.NAxis1 != 0 || r.NAxis2 != 0 || r.ProbeNote != "" {
		doc.Probe = &sidecar.Probe{NAxis1: r.NAxis1, NAxis2: r.NAxis2, Note: r.ProbeNote}
	}
	if r.ResolvedFile != "" {
		doc.VLASS = &sidecar.VLASS{
			ResolvedFile:  r.ResolvedFile,
			SeparationDeg: r.SeparationDeg,
			SkippedLines:  r.SkippedLines,
		}
	}

	b, err := sidecar.Encode(doc)
	if err != nil {
		return err
	}
	path := sidecar.PathFor(r.Path)
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func canceledResult(it domain.FetchItem, cause error) domain.TargetResult {
	return domain.TargetResult{
		Survey:     it.Survey,
		Stem:       it.Coord.Stem(),
		RADeg:      it.Coord.RADeg(),
		DecDeg:     it.Coord.DecDeg(),
		SizeArcmin: it.SizeArcmin,
		// 条目没有执行；路径取规划时的预判值（VLASS 解析前未知，留空）。
		Path:      it.Path,
		Outcome:   domain.OutcomeFailed,
		ErrorCode: domain.ErrCodeCanceled,
		ErrorMsg:  fmt.Sprintf("运行被取消：%v", cause),
	}
}

func syntheticFailed(code, msg string) domain.TargetResult {
	return domain.TargetResult{
		Outcome:   domain.OutcomeFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

// classify 把条目错误映射到稳定的 error_code。
// errors.Is/As 穿透所有 %w 包装；未识别的一律归并到 io_failed。
func classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrCodeCanceled
	}

	var se *httpx.StatusError
	if errors.As(err, &se) {
		return domain.ErrCodeRemoteService
	}
	var nm *vlass.NoMatchError
	if errors.As(err, &nm) {
		return domain.ErrCodeNoMatch
	}
	var le *vlass.ListingError
	if errors.As(err, &le) {
		return domain.ErrCodeListingUnavailable
	}
	var sl *scan.LineError
	if errors.As(err, &sl) {
		return domain.ErrCodeTargetsInvalid
	}
	// 传输层失败（连接、超时）同样意味着远端服务没把货交出来。
	var ue *url.Error
	if errors.As(err, &ue) {
		return domain.ErrCodeRemoteService
	}
	return domain.ErrCodeIOFailed
}

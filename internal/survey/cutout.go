package survey

import (
	"context"
	"path/filepath"

	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/fitsx"
	"github.com/John-Robertt/RSQ/internal/infra/fsx"
	"github.com/John-Robertt/RSQ/internal/infra/httpx"
)

// MinPayloadBytes 以下的响应按“无覆盖”处理：
// 切图服务对没有数据的天区返回一页短错误文本而不是 4xx。
const MinPayloadBytes = 1024

// Endpoint 描述一个表单 GET 巡天的可变部分。
type Endpoint struct {
	Survey string
	// QueryURL 从坐标与边长构造完整查询 URL（纯函数）。
	QueryURL func(c domain.SkyCoord, sizeArcmin float64) string
}

// FetchCutout 是 FIRST/NVSS/LoTSS 共用的抓取管线。
//
// 步骤：
//  1. 计算落盘路径与查询 URL
//  2. 缓存守卫：无需下载 → skipped_existing（不触网）；
//     dry-run 到此为止：需要下载 → planned
//  3. 单次 GET（非 2xx 由 httpx 返回 *StatusError，不重试）
//  4. 建目录后原子写入
//  5. 载荷 < MinPayloadBytes → 删除文件，empty_payload
//  6. 头部探测（仅提示，失败不改变结局），downloaded
func FetchCutout(ctx context.Context, hc *httpx.Client, store cache.Store, ep Endpoint, req Request) (Result, error) {
	path, err := store.CutoutPath(ep.Survey, req.Coord)
	if err != nil {
		return Result{Outcome: domain.OutcomeFailed}, err
	}
	res := Result{
		Path: path,
		URL:  ep.QueryURL(req.Coord, req.SizeArcmin),
	}

	should, _ := cache.Decide(path, req.Overwrite)
	if !should {
		res.Outcome = domain.OutcomeSkippedExisting
		return res, nil
	}
	if req.DryRun {
		res.Outcome = domain.OutcomePlanned
		return res, nil
	}

	body, err := hc.Get(ctx, res.URL)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		return res, err
	}

	dir := filepath.Dir(path)
	if err := fsx.EnsureDir(dir); err != nil {
		res.Outcome = domain.OutcomeFailed
		return res, err
	}
	if err := fsx.WriteFileAtomicReplace(dir, filepath.Base(path), body); err != nil {
		res.Outcome = domain.OutcomeFailed
		return res, err
	}
	res.Bytes = int64(len(body))

	if len(body) < MinPayloadBytes {
		if err := fsx.Remove(path); err != nil {
			res.Outcome = domain.OutcomeFailed
			return res, err
		}
		res.Outcome = domain.OutcomeEmptyPayload
		return res, nil
	}

	if info, err := fitsx.Probe(body); err != nil {
		res.ProbeNote = err.Error()
	} else {
		res.NAxis1, res.NAxis2 = info.NAxis1, info.NAxis2
	}
	res.Outcome = domain.OutcomeDownloaded
	return res, nil
}

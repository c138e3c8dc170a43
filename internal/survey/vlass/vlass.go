// Package vlass 实现 VLASS quicklook 中值镶嵌图的最近邻解析与整幅下载。
//
// VLASS 没有切图表单：托管目录里是预先做好的整幅镶嵌图，按文件名里的
// 天区坐标挑最近的一幅整个拉回来，归档文件名原样保留。
package vlass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/fitsx"
	"github.com/John-Robertt/RSQ/internal/infra/fsx"
	"github.com/John-Robertt/RSQ/internal/infra/httpx"
	"github.com/John-Robertt/RSQ/internal/survey"
)

// MosaicHost 是 quicklook 中值镶嵌图的托管目录。
const MosaicHost = "https://archive-new.nrao.edu/vlass/quicklook/ql_median_stack/"

// DefaultMaxSepDeg 是“足够近”的严格上界（度）。
const DefaultMaxSepDeg = 2.5

// ListingError 表示本地清单缓存不可用。
type ListingError struct {
	Path string
	Err  error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("VLASS 清单 %s 不可用（先运行 rsq refresh）：%v", e.Path, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// Client 按清单解析最近镶嵌图并整幅抓取。
type Client struct {
	HTTP  *httpx.Client
	Store cache.Store
	// MaxSepDeg 为 0 时取 DefaultMaxSepDeg。
	MaxSepDeg float64
	// ListingPath 覆盖清单缓存位置；空值用 store 缺省。
	ListingPath string
	// BaseURL 允许替换镶嵌图主机（测试用）。为空时使用 MosaicHost。
	BaseURL string
}

func (Client) Survey() string { return domain.SurveyVLASS }

// Fetch 的结局语义：
//   - 清单缺失/不可读 → failed + *ListingError
//   - 粗筛后无候选 → no_suitable_match + *NoMatchError
//   - 最近候选仍太远（间隔 ≥ 阈值）→ no_suitable_match，无错误，不触网
//   - 其余走守卫 + 单次 GET；镶嵌图体量大且主机返回真实 404，
//     所以不做最小载荷检查
func (c Client) Fetch(ctx context.Context, req survey.Request) (survey.Result, error) {
	var res survey.Result

	data, ok, err := c.Store.ReadListing(c.ListingPath)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		return res, &ListingError{Path: c.Store.ListingPath(c.ListingPath), Err: err}
	}
	if !ok {
		res.Outcome = domain.OutcomeFailed
		return res, &ListingError{Path: c.Store.ListingPath(c.ListingPath), Err: os.ErrNotExist}
	}

	m, err := Resolve(req.Coord, bytes.NewReader(data))
	res.SkippedLines = m.SkippedLines
	if err != nil {
		var nm *NoMatchError
		if errors.As(err, &nm) {
			res.Outcome = domain.OutcomeNoSuitableMatch
			return res, err
		}
		res.Outcome = domain.OutcomeFailed
		return res, err
	}
	res.ResolvedFile = m.Name
	res.SeparationDeg = m.SeparationDeg

	if m.SeparationDeg >= c.maxSep() {
		res.Outcome = domain.OutcomeNoSuitableMatch
		return res, nil
	}

	path, err := c.Store.ArchivePath(m.Name)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		return res, err
	}
	res.Path = path
	res.URL = c.baseURL() + m.Name

	should, _ := cache.Decide(path, req.Overwrite)
	if !should {
		res.Outcome = domain.OutcomeSkippedExisting
		return res, nil
	}
	if req.DryRun {
		res.Outcome = domain.OutcomePlanned
		return res, nil
	}

	body, err := c.HTTP.Get(ctx, res.URL)
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

	if info, err := fitsx.Probe(body); err != nil {
		res.ProbeNote = err.Error()
	} else {
		res.NAxis1, res.NAxis2 = info.NAxis1, info.NAxis2
	}
	res.Outcome = domain.OutcomeDownloaded
	return res, nil
}

func (c Client) maxSep() float64 {
	if c.MaxSepDeg > 0 {
		return c.MaxSepDeg
	}
	return DefaultMaxSepDeg
}

func (c Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return MosaicHost
	}
	return strings.TrimRight(u, "/") + "/"
}

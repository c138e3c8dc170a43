package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/fsx"
)

// Store 管理 <root>/ 下的巡天目录树与内部缓存。
//
// 布局：
//
//	<root>/FIRST|NVSS|VLASS|LOTSS/   切图与 sidecar
//	<root>/cache/vlass_listing.txt   VLASS 清单缓存
//	<root>/cache/report.json         最近一次运行报告
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// SurveyDir 返回巡天子目录的绝对路径；名字必须属于封闭集合。
func (s Store) SurveyDir(survey string) (string, error) {
	if !domain.KnownSurvey(survey) {
		return "", fmt.Errorf("未知巡天：%q", survey)
	}
	return filepath.Join(s.Root, survey), nil
}

// CutoutPath 返回 (survey, 坐标) 的切图落盘绝对路径。
func (s Store) CutoutPath(survey string, c domain.SkyCoord) (string, error) {
	dir, err := s.SurveyDir(survey)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.FileName(survey)), nil
}

var archiveNameRE = regexp.MustCompile(`^[A-Za-z0-9+._-]+$`)

// ArchivePath 返回 VLASS 归档文件的落盘绝对路径（保留归档原名）。
// 名字来自远端清单，必须通过最小校验以避免路径穿越。
func (s Store) ArchivePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") || !archiveNameRE.MatchString(name) {
		return "", fmt.Errorf("非法归档文件名：%q", name)
	}
	return filepath.Join(s.Root, domain.SurveyVLASS, name), nil
}

// Decide 实现 cache guard：按文件存在性与 overwrite 决定是否下载。
//
// 规则：
// - 文件缺失 → 下载
// - 存在且 overwrite=true → 下载（note 提示将替换）
// - 存在且 overwrite=false → 跳过（note 提示保留）
//
// guard 只看存在性：半截文件与完整文件在这里不可区分。
func Decide(path string, overwrite bool) (shouldDownload bool, note string) {
	if _, err := os.Stat(path); err != nil {
		return true, ""
	}
	if overwrite {
		return true, fmt.Sprintf("文件已存在，overwrite=true，将重新下载并替换：%s", path)
	}
	return false, fmt.Sprintf("文件已存在，保持现状（overwrite=false）：%s", path)
}

const listingName = "vlass_listing.txt"

// ListingPath 返回 VLASS 清单缓存路径；override 非空时原样使用（测试与离线场景）。
func (s Store) ListingPath(override string) string {
	if p := strings.TrimSpace(override); p != "" {
		return p
	}
	return filepath.Join(s.Root, "cache", listingName)
}

// ReadListing 读取清单缓存。缺失时 ok=false 而不是错误，由调用方决定如何提示。
func (s Store) ReadListing(override string) ([]byte, bool, error) {
	b, err := os.ReadFile(s.ListingPath(override))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// WriteListing 原子写入清单缓存；override 语义同 ListingPath。
func (s Store) WriteListing(override string, data []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	target := s.ListingPath(override)
	dir := filepath.Dir(target)
	if err := fsx.EnsureDir(dir); err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, filepath.Base(target), data)
}

// WriteReport 原子写入运行报告。
func (s Store) WriteReport(data []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	dir := filepath.Join(s.Root, "cache")
	if err := fsx.EnsureDir(dir); err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, "report.json", data)
}

// ReportPath 返回报告落盘路径（仅用于提示输出位置）。
func (s Store) ReportPath() string {
	return filepath.Join(s.Root, "cache", "report.json")
}

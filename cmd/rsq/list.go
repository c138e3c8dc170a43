package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sexa "github.com/soniakeys/sexagesimal"

	"github.com/John-Robertt/RSQ/internal/config"
	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/fitsx"
	"github.com/John-Robertt/RSQ/internal/survey/vlass"
)

// listEntry 是清点结果里的一行。坐标从文件名反推，尺寸从 FITS 头部探测。
type listEntry struct {
	Survey string  `json:"survey"`
	File   string  `json:"file"`
	RADeg  float64 `json:"ra_deg"`
	DecDeg float64 `json:"dec_deg"`
	NAxis1 int     `json:"naxis1,omitempty"`
	NAxis2 int     `json:"naxis2,omitempty"`
	Bytes  int64   `json:"bytes"`

	coord domain.SkyCoord
}

func listCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printListUsage()
			return 0
		}
	}

	var root string
	var surveys []string
	var surveysSet bool
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--root":
			v, next, err := takeValue(args, i, "--root")
			if err != nil {
				fmt.Fprintf(os.Stderr, "参数错误：%v\n", err)
				return 2
			}
			root, i = v, next
		case strings.HasPrefix(a, "--root="):
			root = strings.TrimPrefix(a, "--root=")
		case a == "--surveys":
			v, next, err := takeValue(args, i, "--surveys")
			if err != nil {
				fmt.Fprintf(os.Stderr, "参数错误：%v\n", err)
				return 2
			}
			surveys, surveysSet = splitSurveys(v), true
			i = next
		case strings.HasPrefix(a, "--surveys="):
			surveys, surveysSet = splitSurveys(strings.TrimPrefix(a, "--surveys=")), true
		default:
			fmt.Fprintf(os.Stderr, "参数错误：未知参数 %q\n", a)
			return 2
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	eff, err := config.LoadEffective(cwd, config.CLIArgs{Root: root, Surveys: surveys, SurveysSet: surveysSet})
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误（%s）：%v\n", config.Code(err), err)
		return 1
	}

	entries, ignored, err := collectEntries(eff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "清点失败：%v\n", err)
		return 1
	}

	if !isTTY(os.Stdout) {
		out := struct {
			Root    string      `json:"root"`
			Entries []listEntry `json:"entries"`
			Ignored int         `json:"ignored,omitempty"`
		}{eff.Root, entries, ignored}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return 0
	}

	if len(entries) == 0 {
		fmt.Fprintf(os.Stdout, "没有切图（root: %s）\n", eff.Root)
		return 0
	}
	for _, e := range entries {
		dims := ""
		if e.NAxis1 > 0 || e.NAxis2 > 0 {
			dims = fmt.Sprintf("%dx%d", e.NAxis1, e.NAxis2)
		}
		fmt.Fprintf(os.Stdout, "%-5s  %-44s  %14s %14s  %9s  %8s\n",
			e.Survey, truncate(e.File, 44),
			fmt.Sprintf("%.2s", sexa.FmtRA(e.coord.RA)),
			fmt.Sprintf("%+.2s", sexa.FmtAngle(e.coord.Dec)),
			dims, formatBytes(e.Bytes),
		)
	}
	fmt.Fprintf(os.Stdout, "共 %d 个切图", len(entries))
	if ignored > 0 {
		fmt.Fprintf(os.Stdout, "（另有 %d 个文件名无法识别）", ignored)
	}
	fmt.Fprintln(os.Stdout)
	return 0
}

// collectEntries 扫描各巡天子目录，反推坐标并探测 FITS 头部。
//
// 规则：
//   - 文件名不合形状（既不是 <SURVEY>_J… 也不是 VLASS 归档名）只计数不列出
//   - 头部探测失败不算错误：行保留，轴长留空
func collectEntries(eff config.EffectiveConfig) ([]listEntry, int, error) {
	store := cache.New(eff.Root, true)
	var out []listEntry
	ignored := 0

	for _, sv := range eff.Surveys {
		dir, err := store.SurveyDir(sv)
		if err != nil {
			return nil, 0, err
		}
		des, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}

		var names []string
		for _, de := range des {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".fits") {
				continue
			}
			names = append(names, de.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			c, ok := coordOfFile(sv, name)
			if !ok {
				ignored++
				continue
			}
			e := listEntry{
				Survey: sv,
				File:   name,
				RADeg:  c.RADeg(),
				DecDeg: c.DecDeg(),
				coord:  c,
			}
			if fi, err := os.Stat(filepath.Join(dir, name)); err == nil {
				e.Bytes = fi.Size()
			}
			if b, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
				if info, err := fitsx.Probe(b); err == nil {
					e.NAxis1, e.NAxis2 = info.NAxis1, info.NAxis2
				}
			}
			out = append(out, e)
		}
	}
	return out, ignored, nil
}

// coordOfFile 从落盘文件名反推切图中心坐标。
func coordOfFile(survey, name string) (domain.SkyCoord, bool) {
	if sv, stem, ok := domain.SplitName(name); ok && sv == survey {
		return domain.ParseStem(stem)
	}
	if survey == domain.SurveyVLASS {
		return vlass.ParseArchiveName(name)
	}
	return domain.SkyCoord{}, false
}

func printListUsage() {
	fmt.Fprint(os.Stdout, `用法：
  rsq list [--root DIR] [--surveys a,b]

清点根目录下已落盘的切图：坐标从文件名反推，轴长从 FITS 头部读取。
TTY 输出对齐表格；重定向时输出一个 JSON 文档。
`)
}

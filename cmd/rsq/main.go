package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/RSQ/internal/app/run"
	"github.com/John-Robertt/RSQ/internal/config"
	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/httpx"
	"github.com/John-Robertt/RSQ/internal/survey"
	"github.com/John-Robertt/RSQ/internal/survey/first"
	"github.com/John-Robertt/RSQ/internal/survey/lotss"
	"github.com/John-Robertt/RSQ/internal/survey/nvss"
	"github.com/John-Robertt/RSQ/internal/survey/vlass"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	var code int
	switch args[0] {
	case "fetch":
		code = fetchCmd(args[1:])
	case "refresh":
		code = refreshCmd(args[1:])
	case "list":
		code = listCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

func fetchCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printFetchUsage()
			return 0
		}
	}

	fa, err := parseFetchArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printFetchUsage()
		return 2
	}

	var adhoc *domain.Target
	if fa.RA != "" {
		r, e := domain.ParseHMS(fa.RA)
		if e != nil {
			fmt.Fprintf(os.Stderr, "参数错误：%v\n", e)
			return 2
		}
		d, e := domain.ParseDMS(fa.Dec)
		if e != nil {
			fmt.Fprintf(os.Stderr, "参数错误：%v\n", e)
			return 2
		}
		adhoc = &domain.Target{Coord: domain.NewSkyCoord(r, d)}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, fa.cliArgs())
	if err != nil {
		emitReport(reportForConfigError(fa, err))
		return 1
	}

	reg, _, err := buildRegistry(eff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 survey registry 失败：%v\n", err)
		return 1
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW)
		ui.printHeader(eff)
		obs = ui
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rr := run.ExecuteWithObserver(ctx, eff, reg, run.Input{
		TargetsPath: fa.TargetsPath,
		Adhoc:       adhoc,
	}, obs)

	// apply：必须写入 <root>/cache/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if rr.Summary.Failed == 0 {
		return 0
	}
	return 1
}

func refreshCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRefreshUsage()
			return 0
		}
	}

	var root string
	var apply, applySet bool
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
		case a == "--apply":
			apply, applySet = true, true
		case strings.HasPrefix(a, "--apply="):
			v, err := parseBoolFlag(a, "--apply")
			if err != nil {
				fmt.Fprintf(os.Stderr, "参数错误：%v\n", err)
				return 2
			}
			apply, applySet = v, true
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
	eff, err := config.LoadEffective(cwd, config.CLIArgs{Root: root, Apply: apply, ApplySet: applySet})
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误（%s）：%v\n", config.Code(err), err)
		return 1
	}

	_, vc, err := buildRegistry(eff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 survey registry 失败：%v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := vc.Refresh(ctx, !eff.Apply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "刷新清单失败：%v\n", err)
		return 1
	}

	if isTTY(os.Stdout) {
		if eff.Apply {
			fmt.Fprintf(os.Stdout, "清单已刷新：%s\n保留 %d 行，忽略 %d 个条目\n来源：%s\n", st.Path, st.Kept, st.Ignored, st.URL)
		} else {
			fmt.Fprintf(os.Stdout, "dry-run：将抓取 %s\n写入 %s\n（--apply 执行）\n", st.URL, st.Path)
		}
		return 0
	}
	out := struct {
		DryRun  bool   `json:"dry_run"`
		URL     string `json:"url"`
		Path    string `json:"path"`
		Kept    int    `json:"kept"`
		Ignored int    `json:"ignored"`
	}{!eff.Apply, st.URL, st.Path, st.Kept, st.Ignored}
	_ = json.NewEncoder(os.Stdout).Encode(out)
	return 0
}

type fetchArgs struct {
	TargetsPath string
	RA, Dec     string

	Root string

	Surveys    []string
	SurveysSet bool

	Size    float64
	SizeSet bool

	Overwrite    bool
	OverwriteSet bool

	Apply    bool
	ApplySet bool
}

func (fa fetchArgs) cliArgs() config.CLIArgs {
	return config.CLIArgs{
		Root:          fa.Root,
		Surveys:       fa.Surveys,
		SurveysSet:    fa.SurveysSet,
		SizeArcmin:    fa.Size,
		SizeArcminSet: fa.SizeSet,
		Overwrite:     fa.Overwrite,
		OverwriteSet:  fa.OverwriteSet,
		Apply:         fa.Apply,
		ApplySet:      fa.ApplySet,
	}
}

func parseFetchArgs(args []string) (fetchArgs, error) {
	fa := fetchArgs{}
	var raSet, decSet bool

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--ra":
			v, next, err := takeValue(args, i, "--ra")
			if err != nil {
				return fetchArgs{}, err
			}
			fa.RA, i, raSet = v, next, true
		case strings.HasPrefix(a, "--ra="):
			fa.RA, raSet = strings.TrimPrefix(a, "--ra="), true
		case a == "--dec":
			v, next, err := takeValue(args, i, "--dec")
			if err != nil {
				return fetchArgs{}, err
			}
			fa.Dec, i, decSet = v, next, true
		case strings.HasPrefix(a, "--dec="):
			fa.Dec, decSet = strings.TrimPrefix(a, "--dec="), true
		case a == "--surveys":
			v, next, err := takeValue(args, i, "--surveys")
			if err != nil {
				return fetchArgs{}, err
			}
			fa.Surveys, fa.SurveysSet = splitSurveys(v), true
			i = next
		case strings.HasPrefix(a, "--surveys="):
			fa.Surveys, fa.SurveysSet = splitSurveys(strings.TrimPrefix(a, "--surveys=")), true
		case a == "--size":
			v, next, err := takeValue(args, i, "--size")
			if err != nil {
				return fetchArgs{}, err
			}
			f, e := strconv.ParseFloat(v, 64)
			if e != nil {
				return fetchArgs{}, fmt.Errorf("--size 不是数字：%q", v)
			}
			fa.Size, fa.SizeSet = f, true
			i = next
		case strings.HasPrefix(a, "--size="):
			v := strings.TrimPrefix(a, "--size=")
			f, e := strconv.ParseFloat(v, 64)
			if e != nil {
				return fetchArgs{}, fmt.Errorf("--size 不是数字：%q", v)
			}
			fa.Size, fa.SizeSet = f, true
		case a == "--overwrite":
			fa.Overwrite, fa.OverwriteSet = true, true
		case strings.HasPrefix(a, "--overwrite="):
			v, err := parseBoolFlag(a, "--overwrite")
			if err != nil {
				return fetchArgs{}, err
			}
			fa.Overwrite, fa.OverwriteSet = v, true
		case a == "--apply":
			fa.Apply, fa.ApplySet = true, true
		case strings.HasPrefix(a, "--apply="):
			v, err := parseBoolFlag(a, "--apply")
			if err != nil {
				return fetchArgs{}, err
			}
			fa.Apply, fa.ApplySet = v, true
		case a == "--root":
			v, next, err := takeValue(args, i, "--root")
			if err != nil {
				return fetchArgs{}, err
			}
			fa.Root, i = v, next
		case strings.HasPrefix(a, "--root="):
			fa.Root = strings.TrimPrefix(a, "--root=")
		case strings.HasPrefix(a, "-"):
			return fetchArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if fa.TargetsPath != "" {
				return fetchArgs{}, fmt.Errorf("重复的目标文件：%q 与 %q", fa.TargetsPath, a)
			}
			fa.TargetsPath = a
		}
	}

	if raSet != decSet {
		return fetchArgs{}, fmt.Errorf("--ra 与 --dec 必须成对出现")
	}
	if raSet && fa.TargetsPath != "" {
		return fetchArgs{}, fmt.Errorf("目标文件与 --ra/--dec 只能二选一")
	}
	if !raSet && fa.TargetsPath == "" {
		return fetchArgs{}, fmt.Errorf("需要目标文件或 --ra/--dec")
	}
	return fa, nil
}

func takeValue(args []string, i int, flag string) (string, int, error) {
	if i+1 >= len(args) {
		return "", i, fmt.Errorf("%s 需要一个值", flag)
	}
	return args[i+1], i + 1, nil
}

func parseBoolFlag(arg, flag string) (bool, error) {
	v := strings.TrimPrefix(arg, flag+"=")
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%s 只能是 true 或 false，实际是 %q", flag, v)
}

func splitSurveys(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildRegistry 装配全部巡天客户端；VLASS 客户端同时单独返回给 refresh 用。
func buildRegistry(eff config.EffectiveConfig) (survey.Registry, vlass.Client, error) {
	hc, err := httpx.New(httpx.Options{
		UserAgent: eff.UserAgent,
		Timeout:   eff.HTTPTimeout,
	})
	if err != nil {
		return survey.Registry{}, vlass.Client{}, err
	}

	store := cache.New(eff.Root, !eff.Apply)
	vc := vlass.Client{
		HTTP:        hc,
		Store:       store,
		MaxSepDeg:   eff.VLASSMaxSepDeg,
		ListingPath: eff.VLASSListing,
	}

	reg, err := survey.NewRegistry(
		first.Client{HTTP: hc, Store: store},
		nvss.Client{HTTP: hc, Store: store},
		lotss.Client{HTTP: hc, Store: store},
		vc,
	)
	return reg, vc, err
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  rsq fetch [targets.txt] [--ra … --dec …] [--surveys a,b] [--size N]
            [--overwrite] [--apply] [--root DIR]
  rsq refresh [--root DIR] [--apply]
  rsq list [--root DIR] [--surveys a,b]

命令：
  fetch    抓取巡天切图（默认 dry-run）
  refresh  刷新 VLASS 镶嵌图清单缓存（默认 dry-run）
  list     清点根目录下已有的切图

使用 "rsq <命令> --help" 查看详细说明。
`)
}

func printFetchUsage() {
	fmt.Fprint(os.Stdout, `用法：
  rsq fetch [targets.txt] [--ra … --dec …] [--surveys a,b] [--size N]
            [--overwrite] [--apply] [--root DIR]

参数：
  targets.txt  目标文件：每行 "<ra> <dec> [边长角分]"，# 为注释
  --ra/--dec   单个坐标（与目标文件二选一），如 --ra 10h50m07.270s --dec +30d40m37.52s
  --surveys    逗号分隔的巡天列表：first,nvss,vlass,lotss（默认全部）
  --size       切图边长（角分，(0,60]；VLASS 不适用）
  --overwrite  重新下载已存在的文件；支持 --overwrite=false 覆盖配置
  --apply      执行网络抓取与落盘（默认 dry-run）；支持 --apply=false 覆盖配置
  --root       输出根目录（默认 ~/RQUERY）
  -h, --help   显示帮助
`)
}

func printRefreshUsage() {
	fmt.Fprint(os.Stdout, `用法：
  rsq refresh [--root DIR] [--apply]

抓取 VLASS 镶嵌图主机的目录索引并重写 <root>/cache/vlass_listing.txt。
dry-run 只汇报将访问的 URL 与目标路径；--apply 才触网落盘。
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：downloaded=%d skipped=%d planned=%d no_match=%d empty=%d failed=%d\n",
			rr.Summary.Downloaded, rr.Summary.Skipped, rr.Summary.Planned,
			rr.Summary.NoMatch, rr.Summary.Empty, rr.Summary.Failed,
		)
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Items {
				if it.Outcome != domain.OutcomeFailed {
					continue
				}
				key := it.Stem
				if key == "" {
					key = "<run>"
				}
				if it.Survey != "" {
					key = it.Survey + " " + key
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	_ = json.NewEncoder(os.Stdout).Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：downloaded=%d skipped=%d planned=%d no_match=%d empty=%d failed=%d\n",
		rr.Summary.Downloaded, rr.Summary.Skipped, rr.Summary.Planned,
		rr.Summary.NoMatch, rr.Summary.Empty, rr.Summary.Failed,
	)
}

func reportForConfigError(fa fetchArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Root:       fa.Root,
		DryRun:     !(fa.ApplySet && fa.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.TargetResult{{
			Outcome:   domain.OutcomeFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(eff config.EffectiveConfig, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return cache.New(eff.Root, false).WriteReport(b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	// 这两行用于降低“完成后不知道产物在哪”的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", cache.New(eff.Root, true).ReportPath())
	}
	fmt.Fprintf(w, "root: %s\n", eff.Root)
}

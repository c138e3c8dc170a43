package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/John-Robertt/RSQ/internal/domain"
)

const (
	// ErrCodeInvalid 表示配置文件/环境变量无法解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingRoot 表示任何来源都未给出 root，且无法解析用户主目录。
	ErrCodeMissingRoot = "config_missing_root"
)

const (
	// DefaultRootDirName 是缺省下载根目录在用户主目录下的名字。
	DefaultRootDirName = "RQUERY"
	// DefaultSizeArcmin 是切图边长的内置默认值（角分）。
	DefaultSizeArcmin = 5.0
	// DefaultHTTPTimeoutSec 是单次 HTTP 请求的内置超时（秒）。
	DefaultHTTPTimeoutSec = 60
	// DefaultUserAgent 是对外请求的固定 UA。
	DefaultUserAgent = "RSQ/1.0"
	// DefaultVLASSMaxSepDeg 是 VLASS 邻近判定的内置阈值（度）。
	DefaultVLASSMaxSepDeg = 2.5
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --overwrite=false 必须能覆盖 config.overwrite=true。
type CLIArgs struct {
	Root string

	Surveys    []string
	SurveysSet bool

	SizeArcmin    float64
	SizeArcminSet bool

	Overwrite    bool
	OverwriteSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 rsq.json 的解析结构。
// 数值与布尔字段用指针区分“缺省”与“显式的零值”。
type FileConfig struct {
	Root           string       `json:"root"`
	Surveys        []string     `json:"surveys"`
	SizeArcmin     *float64     `json:"size_arcmin"`
	Overwrite      *bool        `json:"overwrite"`
	Apply          *bool        `json:"apply"`
	HTTPTimeoutSec *int         `json:"http_timeout_sec"`
	UserAgent      string       `json:"user_agent"`
	VLASS          *VLASSConfig `json:"vlass"`
}

// VLASSConfig 是 rsq.json 里 vlass 小节的解析结构。
type VLASSConfig struct {
	MaxSeparationDeg *float64 `json:"max_separation_deg"`
	ListingPath      string   `json:"listing_path"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，
// 不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Root string

	Surveys    []string
	SizeArcmin float64
	Overwrite  bool
	Apply      bool

	HTTPTimeout time.Duration
	UserAgent   string

	// VLASSMaxSepDeg 是“足够近”的严格上界（度）。
	VLASSMaxSepDeg float64
	// VLASSListing 为空表示 <root>/cache/vlass_listing.txt。
	VLASSListing string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code   string
	Source string // 配置文件路径或环境变量名
	Err    error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingRoot:
		return fmt.Sprintf("%s：未指定 root 且无法定位用户主目录", e.Code)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：%s 无效：%v", e.Code, e.Source, e.Err)
		}
		return fmt.Sprintf("%s：%s 无效", e.Code, e.Source)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按固定顺序合并各配置来源，后者覆盖前者：
//
//	内置默认 → <cwd>/rsq.json（可选）→ .env + RSQ_* 环境变量 → CLI 参数
//
// 规则：
//   - rsq.json 与 .env 都允许缺席，缺席不是错误；
//   - .env 由 godotenv 注入进程环境，已存在的环境变量优先；
//   - root 支持 ~ 前缀展开，相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: cwd, Err: err}
	}

	envFile := filepath.Join(cwdAbs, ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: envFile, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, "rsq.json")
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: cfgPath, Err: err}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// root：CLI > 环境 > config > 默认 ~/RQUERY
	root := strings.TrimSpace(cli.Root)
	if root == "" {
		root = strings.TrimSpace(os.Getenv("RSQ_ROOT"))
	}
	if root == "" {
		root = strings.TrimSpace(fc.Root)
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeMissingRoot, Err: err}
		}
		root = filepath.Join(home, DefaultRootDirName)
	}
	root, err := expandHome(root)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: "root", Err: err}
	}
	root = absCleanFrom(cwdAbs, root)

	// surveys：CLI > 环境 > config > 全部；名字统一大写后校验。
	surveys := domain.AllSurveys()
	if len(fc.Surveys) > 0 {
		surveys = fc.Surveys
	}
	if env, ok := os.LookupEnv("RSQ_SURVEYS"); ok {
		surveys = splitList(env)
	}
	if cli.SurveysSet {
		surveys = cli.Surveys
	}
	surveys, err = normalizeSurveys(surveys)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: cfgPath, Err: err}
	}

	// size_arcmin：CLI > 环境 > config > 默认 5。
	size := DefaultSizeArcmin
	if fc.SizeArcmin != nil {
		size = *fc.SizeArcmin
	}
	if env, ok := os.LookupEnv("RSQ_SIZE_ARCMIN"); ok {
		size, err = strconv.ParseFloat(strings.TrimSpace(env), 64)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: "RSQ_SIZE_ARCMIN", Err: err}
		}
	}
	if cli.SizeArcminSet {
		size = cli.SizeArcmin
	}
	if size <= 0 || size > 60 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: cfgPath,
			Err: fmt.Errorf("size_arcmin 必须落在 (0, 60]，实际 %v", size)}
	}

	// overwrite / apply：CLI > 环境 > config > 默认 false。
	overwrite, err := mergeBool(fc.Overwrite, "RSQ_OVERWRITE", cli.Overwrite, cli.OverwriteSet)
	if err != nil {
		return EffectiveConfig{}, err
	}
	apply, err := mergeBool(fc.Apply, "RSQ_APPLY", cli.Apply, cli.ApplySet)
	if err != nil {
		return EffectiveConfig{}, err
	}

	// http_timeout_sec：环境 > config > 默认 60；CLI 不暴露。
	timeoutSec := DefaultHTTPTimeoutSec
	if fc.HTTPTimeoutSec != nil {
		timeoutSec = *fc.HTTPTimeoutSec
	}
	if env, ok := os.LookupEnv("RSQ_HTTP_TIMEOUT_SEC"); ok {
		timeoutSec, err = strconv.Atoi(strings.TrimSpace(env))
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: "RSQ_HTTP_TIMEOUT_SEC", Err: err}
		}
	}
	if timeoutSec < 1 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: cfgPath,
			Err: fmt.Errorf("http_timeout_sec 必须 ≥1，实际 %d", timeoutSec)}
	}

	ua := strings.TrimSpace(fc.UserAgent)
	if env, ok := os.LookupEnv("RSQ_USER_AGENT"); ok {
		ua = strings.TrimSpace(env)
	}
	if ua == "" {
		ua = DefaultUserAgent
	}

	// vlass.max_separation_deg：环境 > config > 默认 2.5。
	maxSep := DefaultVLASSMaxSepDeg
	if fc.VLASS != nil && fc.VLASS.MaxSeparationDeg != nil {
		maxSep = *fc.VLASS.MaxSeparationDeg
	}
	if env, ok := os.LookupEnv("RSQ_VLASS_MAX_SEP_DEG"); ok {
		maxSep, err = strconv.ParseFloat(strings.TrimSpace(env), 64)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: "RSQ_VLASS_MAX_SEP_DEG", Err: err}
		}
	}
	if maxSep <= 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: cfgPath,
			Err: fmt.Errorf("vlass.max_separation_deg 必须 >0，实际 %v", maxSep)}
	}

	listing := ""
	if fc.VLASS != nil {
		listing = strings.TrimSpace(fc.VLASS.ListingPath)
	}
	if env, ok := os.LookupEnv("RSQ_VLASS_LISTING"); ok {
		listing = strings.TrimSpace(env)
	}
	if listing != "" {
		listing, err = expandHome(listing)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Source: "vlass.listing_path", Err: err}
		}
		listing = absCleanFrom(cwdAbs, listing)
	}

	return EffectiveConfig{
		Root:           root,
		Surveys:        surveys,
		SizeArcmin:     size,
		Overwrite:      overwrite,
		Apply:          apply,
		HTTPTimeout:    time.Duration(timeoutSec) * time.Second,
		UserAgent:      ua,
		VLASSMaxSepDeg: maxSep,
		VLASSListing:   listing,
	}, nil
}

// mergeBool 按 CLI > 环境 > config > false 合并一个布尔开关。
func mergeBool(file *bool, envKey string, cliVal, cliSet bool) (bool, error) {
	v := false
	if file != nil {
		v = *file
	}
	if env, ok := os.LookupEnv(envKey); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(env))
		if err != nil {
			return false, &Error{Code: ErrCodeInvalid, Source: envKey, Err: err}
		}
		v = parsed
	}
	if cliSet {
		v = cliVal
	}
	return v, nil
}

// normalizeSurveys 统一大写、去重（保持首次出现顺序）并校验名字。
func normalizeSurveys(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		name := strings.ToUpper(strings.TrimSpace(s))
		if name == "" {
			continue
		}
		if !domain.KnownSurvey(name) {
			return nil, fmt.Errorf("未知巡天 %q（可选：%s）", s, strings.Join(domain.AllSurveys(), "/"))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("surveys 不能为空")
	}
	return out, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandHome 展开 ~ 与 ~/xxx；~user 形式不支持。
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("无法展开 ~：%w", err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

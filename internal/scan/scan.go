// Package scan 读取用户提供的目标文件。
//
// 行格式：<ra> <dec> [size_arcmin]
//   - 坐标写法与 domain 一致：带单位字母（10h50m07.270s）直接按空白切分；
//     空格分隔写法（10 50 07.270）用逗号或引号把一条坐标括成一个字段；
//   - # 起始到行尾是注释，空行忽略；
//   - 目标文件是用户自己的输入，坏行立即报错（不做计数跳过）。
package scan

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/John-Robertt/RSQ/internal/domain"
)

// LineError 表示目标文件里某一行无法解析。
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("目标文件 %s 第 %d 行无效：%v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Load 读取目标文件并逐行解析。
// 返回的 Target.SizeArcmin 为 0 表示该行未指定边长。
func Load(path string) ([]domain.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var targets []domain.Target
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tgt, err := ParseLine(line)
		if err != nil {
			return nil, &LineError{Path: path, Line: lineNo, Err: err}
		}
		targets = append(targets, tgt)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}

// ParseLine 解析一行目标（行内语法见包注释）。
func ParseLine(line string) (domain.Target, error) {
	raStr, decStr, sizeStr, err := splitFields(line)
	if err != nil {
		return domain.Target{}, err
	}

	ra, err := domain.ParseHMS(raStr)
	if err != nil {
		return domain.Target{}, err
	}
	dec, err := domain.ParseDMS(decStr)
	if err != nil {
		return domain.Target{}, err
	}

	size := 0.0
	if sizeStr != "" {
		size, err = strconv.ParseFloat(sizeStr, 64)
		if err != nil {
			return domain.Target{}, fmt.Errorf("size_arcmin 无法解析：%q", sizeStr)
		}
		if size <= 0 || size > 60 {
			return domain.Target{}, fmt.Errorf("size_arcmin 必须落在 (0, 60]，实际 %v", size)
		}
	}

	return domain.Target{Coord: domain.NewSkyCoord(ra, dec), SizeArcmin: size}, nil
}

// splitFields 把一行切成 ra/dec[/size] 三段。
//
// 依次尝试三种写法：
//  1. 逗号分隔：10 50 07.270, +30 40 37.52[, 5]
//  2. 引号括起："10 50 07.270" "+30 40 37.52" [5]
//  3. 空白分隔（单位字母写法）：10h50m07.270s +30d40m37.52s [5]
func splitFields(line string) (ra, dec, size string, err error) {
	if strings.ContainsRune(line, ',') {
		return takeFields(line, strings.Split(line, ","))
	}
	if strings.ContainsRune(line, '"') {
		parts, err := quotedFields(line)
		if err != nil {
			return "", "", "", err
		}
		return takeFields(line, parts)
	}
	return takeFields(line, strings.Fields(line))
}

// takeFields 去掉空段后校验段数（2 段或 3 段）。
func takeFields(line string, parts []string) (ra, dec, size string, err error) {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	switch len(trimmed) {
	case 2:
		return trimmed[0], trimmed[1], "", nil
	case 3:
		return trimmed[0], trimmed[1], trimmed[2], nil
	default:
		return "", "", "", fmt.Errorf("期望 2~3 个字段（ra dec [size]），实际 %d 个：%q", len(trimmed), line)
	}
}

// quotedFields 解析引号括起的字段，引号外的空白做分隔。
func quotedFields(line string) ([]string, error) {
	var (
		parts []string
		cur   strings.Builder
		inQ   bool
		has   bool
	)
	flush := func() {
		if has {
			parts = append(parts, cur.String())
			cur.Reset()
			has = false
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQ = !inQ
			has = true
		case !inQ && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	if inQ {
		return nil, fmt.Errorf("引号未闭合：%q", line)
	}
	flush()
	return parts, nil
}

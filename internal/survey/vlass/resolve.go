package vlass

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"

	"github.com/John-Robertt/RSQ/internal/domain"
)

// CandidateFile 是从清单行解析出的一个候选镶嵌图。
type CandidateFile struct {
	Name  string
	Coord domain.SkyCoord
}

// Match 是最近邻解析的结果。
type Match struct {
	Name string
	// SeparationDeg 是与查询坐标的最小大圆间隔（度）。
	SeparationDeg float64
	// SkippedLines 是形状不合规而被跳过的行数（空行不算）。
	SkippedLines int
}

// NoMatchError 表示粗筛后清单里没有任何候选。
type NoMatchError struct {
	Stem string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("清单里没有 %s 附近的镶嵌图", e.Stem)
}

// Resolve 在清单里找离 query 最近的镶嵌图文件。
//
// 清单行形如：
//
//	[IMG]  J105047+303000_qle123Imedian.fits  2025-02-17 08:35  106M
//
// 规则：
//   - 只消费第 2 个空白分隔 token（文件名）；坐标片段位于开头 J 与
//     第一个 _ 之间（无 _ 时取整个名字），至少 13 个字符
//   - 形状/数字不合规的行跳过并计数，从不静默丢弃
//   - 粗筛：候选的 RA 小时两位与“符号+两位度数”都与查询一致才算距离。
//     这只是效率手段：恰好跨小时/跨度界的更近候选会被剪掉，按已知近似接受
//   - 距离取最小者，并列保留先见者；返回的间隔就是这个最小值
//
// 出错时 Match 仍带回 SkippedLines。
func Resolve(query domain.SkyCoord, r io.Reader) (Match, error) {
	raKey := fmt.Sprintf("%02d", int(query.RAHour()))
	decDeg := query.DecDeg()
	sign := "+"
	if decDeg < 0 {
		sign = "-"
	}
	decKey := fmt.Sprintf("%s%02d", sign, int(math.Abs(decDeg)))

	var (
		best    string
		bestSep float64
		found   bool
		skipped int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			skipped++
			continue
		}
		name := parts[1]
		tok, ok := coordToken(name)
		if !ok {
			skipped++
			continue
		}

		// 粗筛不合格不算 skipped：那是合规行，只是不在同一天区。
		if tok[0:2] != raKey || tok[6:9] != decKey {
			continue
		}

		cand, ok := parseCandidate(name, tok)
		if !ok {
			skipped++
			continue
		}
		sep := domain.Separation(query, cand.Coord).Deg()
		if !found || sep < bestSep {
			found = true
			bestSep = sep
			best = cand.Name
		}
	}
	if err := sc.Err(); err != nil {
		return Match{SkippedLines: skipped}, err
	}
	if !found {
		return Match{SkippedLines: skipped}, &NoMatchError{Stem: query.Stem()}
	}
	return Match{Name: best, SeparationDeg: bestSep, SkippedLines: skipped}, nil
}

// coordToken 取文件名里 J 与第一个 _ 之间的坐标片段。
func coordToken(name string) (string, bool) {
	tok := name
	if i := strings.IndexByte(tok, '_'); i >= 0 {
		tok = tok[:i]
	}
	if !strings.HasPrefix(tok, "J") {
		return "", false
	}
	tok = tok[1:]
	if len(tok) < 13 {
		return "", false
	}
	return tok, true
}

// ParseArchiveName 从归档文件名提取镶嵌图中心坐标（供本地清点展示）。
// 名字不符合 J<HHMMSS><±DDMMSS>… 形状时返回 false。
func ParseArchiveName(name string) (domain.SkyCoord, bool) {
	tok, ok := coordToken(name)
	if !ok {
		return domain.SkyCoord{}, false
	}
	c, ok := parseCandidate(name, tok)
	if !ok {
		return domain.SkyCoord{}, false
	}
	return c.Coord, true
}

// parseCandidate 把 HHMMSS±DDMMSS 片段解析成天球坐标。
func parseCandidate(name, tok string) (CandidateFile, bool) {
	h, err1 := strconv.Atoi(tok[0:2])
	hm, err2 := strconv.Atoi(tok[2:4])
	hs, err3 := strconv.Atoi(tok[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return CandidateFile{}, false
	}

	neg := tok[6]
	if neg != '+' && neg != '-' {
		return CandidateFile{}, false
	}
	d, err4 := strconv.Atoi(tok[7:9])
	dm, err5 := strconv.Atoi(tok[9:11])
	ds, err6 := strconv.Atoi(tok[11:13])
	if err4 != nil || err5 != nil || err6 != nil {
		return CandidateFile{}, false
	}

	return CandidateFile{
		Name: name,
		Coord: domain.NewSkyCoord(
			unit.NewRA(h, hm, float64(hs)),
			unit.NewAngle(neg, d, dm, float64(ds)),
		),
	}, true
}

package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"
)

// Stem 生成紧凑文件名主干：J<HHMMSS.ss><±DDMMSS.ss>，无分隔符。
//
// 约束：
// - 同一坐标永远得到同一主干（落盘唯一性由它保证，而不是锁）
// - 两位小数是上游服务的精度上限；舍入后相同的坐标刻意共享主干（确定性碰撞）
func (c SkyCoord) Stem() string {
	h, m, cs := splitCenti(int64(math.Round(c.RAHour() * 360000)))
	if h >= 24 {
		h -= 24
	}
	sign, total := decCenti(c.Dec)
	dd, dm, dcs := splitCenti(total)
	return fmt.Sprintf("J%02d%02d%05.2f%c%02d%02d%05.2f",
		h, m, float64(cs)/100, sign, dd, dm, float64(dcs)/100)
}

// FileName 返回某巡天下的落盘文件名：<SURVEY>_<stem>.fits。
func (c SkyCoord) FileName(survey string) string {
	return survey + "_" + c.Stem() + ".fits"
}

var stemRE = regexp.MustCompile(`^J([0-9]{2})([0-9]{2})([0-9]{2}\.[0-9]{2})([+-])([0-9]{2})([0-9]{2})([0-9]{2}\.[0-9]{2})$`)

// ParseStem 把主干解析回坐标（仅接受两位小数的裸 J 主干）。
// 解析后再格式化在 0.01 秒精度内闭合。
func ParseStem(s string) (SkyCoord, bool) {
	m := stemRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return SkyCoord{}, false
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, _ := strconv.ParseFloat(m[3], 64)
	dd, _ := strconv.Atoi(m[5])
	dm, _ := strconv.Atoi(m[6])
	ds, _ := strconv.ParseFloat(m[7], 64)
	if h > 23 || mi > 59 || sec >= 60 || dd > 90 || dm > 59 || ds >= 60 {
		return SkyCoord{}, false
	}
	neg := byte(' ')
	if m[4] == "-" {
		neg = '-'
	}
	return SkyCoord{RA: unit.NewRA(h, mi, sec), Dec: unit.NewAngle(neg, dd, dm, ds)}, true
}

// SplitName 拆分 "<SURVEY>_J….fits" 形态的完整文件名。
// VLASS 归档名（J 段在下划线之前、整数秒）不属于该形态，返回 ok=false。
func SplitName(name string) (survey, stem string, ok bool) {
	base := strings.TrimSuffix(name, ".fits")
	i := strings.IndexByte(base, '_')
	if i <= 0 {
		return "", "", false
	}
	survey, stem = base[:i], base[i+1:]
	if !KnownSurvey(survey) || !strings.HasPrefix(stem, "J") {
		return "", "", false
	}
	return survey, stem, true
}

package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"
)

// SkyCoord 是 ICRS 天球坐标（赤经/赤纬），构造后不可变。
//
// 约束：
// - 所有查询编码、文件名主干与角距计算都以它为唯一事实来源
// - 内部以弧度保存（unit.RA / unit.Angle），格式化时才做六十进制拆分
type SkyCoord struct {
	RA  unit.RA
	Dec unit.Angle
}

// NewSkyCoord 由已构造好的 RA/Dec 组装坐标。
func NewSkyCoord(ra unit.RA, dec unit.Angle) SkyCoord {
	return SkyCoord{RA: ra, Dec: dec}
}

// SkyCoordFromDeg 由十进制度构造坐标（RA 按 360°=24h 换算并回绕）。
func SkyCoordFromDeg(raDeg, decDeg float64) SkyCoord {
	return SkyCoord{RA: unit.RAFromDeg(raDeg), Dec: unit.AngleFromDeg(decDeg)}
}

// RAHour 返回规约到 [0,24) 的赤经小时数。
func (c SkyCoord) RAHour() float64 {
	h := math.Mod(c.RA.Hour(), 24)
	if h < 0 {
		h += 24
	}
	return h
}

// RADeg 返回规约到 [0,360) 的赤经度数。
func (c SkyCoord) RADeg() float64 {
	return c.RAHour() * 15
}

// DecDeg 返回赤纬度数（带符号）。
func (c SkyCoord) DecDeg() float64 {
	return c.Dec.Deg()
}

// FormatRA 渲染查询用赤经字符串 "HH MM SS.ss"。
// 秒固定两位小数；四舍五入产生的进位逐级传递，24h 处回绕到 00。
func (c SkyCoord) FormatRA() string {
	h, m, cs := splitCenti(int64(math.Round(c.RAHour() * 360000)))
	if h >= 24 {
		h -= 24
	}
	return fmt.Sprintf("%02d %02d %05.2f", h, m, float64(cs)/100)
}

// FormatDec 渲染查询用赤纬字符串 "±DD MM SS.ss"，符号恒显。
func (c SkyCoord) FormatDec() string {
	sign, total := decCenti(c.Dec)
	d, m, cs := splitCenti(total)
	return fmt.Sprintf("%c%02d %02d %05.2f", sign, d, m, float64(cs)/100)
}

// Separation 计算两坐标间的大圆角距。
// 采用 haversine 形式：近距（辨别最近邻时的典型量级）下数值稳定。
func Separation(a, b SkyCoord) unit.Angle {
	return angle.SepHav(a.RA.Angle(), a.Dec, b.RA.Angle(), b.Dec)
}

// decCenti 取赤纬符号与绝对值的弧秒厘值（已完成四舍五入）。
func decCenti(dec unit.Angle) (sign byte, total int64) {
	d := dec.Deg()
	sign = '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	return sign, int64(math.Round(d * 360000))
}

// splitCenti 把厘秒总量拆成 整段/分/厘秒 三部分（total 必须非负）。
func splitCenti(total int64) (d, m int, cs int64) {
	d = int(total / 360000)
	rem := total % 360000
	m = int(rem / 6000)
	cs = rem % 6000
	return
}

var (
	hmsRE = regexp.MustCompile(`^([0-9]{1,2})[h ]([0-9]{1,2})[m ]([0-9]{1,2}(?:\.[0-9]+)?)s?$`)
	dmsRE = regexp.MustCompile(`^([+-]?)([0-9]{1,2})[d ]([0-9]{1,2})[m ]([0-9]{1,2}(?:\.[0-9]+)?)s?$`)
)

// ParseHMS 解析赤经，接受 "10h50m07.270s" 与 "10 50 07.27" 两种写法。
func ParseHMS(s string) (unit.RA, error) {
	m := hmsRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("无法解析赤经 %q（期望 HHhMMmSS.ss s 或 HH MM SS.ss）", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, fmt.Errorf("赤经秒段无效 %q: %w", m[3], err)
	}
	if h > 23 || mi > 59 || sec >= 60 {
		return 0, fmt.Errorf("赤经超界 %q", s)
	}
	return unit.NewRA(h, mi, sec), nil
}

// ParseDMS 解析赤纬，接受 "+30d40m37.52s" 与 "+30 40 37.52"；符号可省略（按正）。
func ParseDMS(s string) (unit.Angle, error) {
	m := dmsRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("无法解析赤纬 %q（期望 ±DDdMMmSS.ss s 或 ±DD MM SS.ss）", s)
	}
	d, _ := strconv.Atoi(m[2])
	mi, _ := strconv.Atoi(m[3])
	sec, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return 0, fmt.Errorf("赤纬秒段无效 %q: %w", m[4], err)
	}
	if d > 90 || mi > 59 || sec >= 60 {
		return 0, fmt.Errorf("赤纬超界 %q", s)
	}
	neg := byte(' ')
	if m[1] == "-" {
		neg = '-'
	}
	return unit.NewAngle(neg, d, mi, sec), nil
}

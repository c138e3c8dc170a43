// Package fitsx 对下载到的 FITS 载荷做只读探测。
//
// 约束：
//   - 只解析头部关键字，从不触碰像素数据；
//   - 探测结果仅用于旁注与展示，失败不影响抓取结论。
package fitsx

import (
	"bytes"
	"fmt"

	"github.com/astrogo/fitsio"
)

// Info 主 HDU 头部的摘要。
type Info struct {
	NAxis1    int    // 第一轴长度，缺省 0
	NAxis2    int    // 第二轴长度，缺省 0
	Object    string // OBJECT，可为空
	Survey    string // SURVEY，可为空
	Telescope string // TELESCOP，可为空
}

// Probe 解析 b 的主 HDU 头部。
//
// 规则：
//   - b 不是合法 FITS 时返回错误，调用方自行决定是否忽略；
//   - 轴长取自 NAXIS1/NAXIS2，字符串关键字缺失时留空。
func Probe(b []byte) (Info, error) {
	f, err := fitsio.Open(bytes.NewReader(b))
	if err != nil {
		return Info{}, fmt.Errorf("fitsx: 解析头部: %w", err)
	}
	defer f.Close()

	hdr := f.HDU(0).Header()

	var info Info
	axes := hdr.Axes()
	if len(axes) > 0 {
		info.NAxis1 = axes[0]
	}
	if len(axes) > 1 {
		info.NAxis2 = axes[1]
	}
	info.Object = stringKey(hdr, "OBJECT")
	info.Survey = stringKey(hdr, "SURVEY")
	info.Telescope = stringKey(hdr, "TELESCOP")
	return info, nil
}

// stringKey 读取字符串关键字，缺失或类型不符返回空串。
func stringKey(hdr *fitsio.Header, key string) string {
	card := hdr.Get(key)
	if card == nil {
		return ""
	}
	s, ok := card.Value.(string)
	if !ok {
		return ""
	}
	return s
}

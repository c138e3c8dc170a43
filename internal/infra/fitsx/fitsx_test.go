package fitsx

import (
	"bytes"
	"testing"

	"github.com/astrogo/fitsio"
)

// buildFITS 在内存里生成一幅 3x2 的最小 FITS。
func buildFITS(t *testing.T, cards ...fitsio.Card) []byte {
	t.Helper()

	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	im := fitsio.NewImage(8, []int{3, 2})
	defer im.Close()
	if err := im.Header().Append(cards...); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	pix := make([]int8, 6)
	if err := im.Write(&pix); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := f.Write(im); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return buf.Bytes()
}

func TestProbe(t *testing.T) {
	b := buildFITS(t,
		fitsio.Card{Name: "OBJECT", Value: "J105007.27+304037.52"},
		fitsio.Card{Name: "SURVEY", Value: "VLA FIRST (1.4 GHz)"},
		fitsio.Card{Name: "TELESCOP", Value: "VLA"},
	)

	info, err := Probe(b)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if info.NAxis1 != 3 || info.NAxis2 != 2 {
		t.Fatalf("期望轴长 3x2，实际 %dx%d", info.NAxis1, info.NAxis2)
	}
	if info.Object != "J105007.27+304037.52" {
		t.Fatalf("期望 OBJECT 保留，实际 %q", info.Object)
	}
	if info.Survey != "VLA FIRST (1.4 GHz)" {
		t.Fatalf("期望 SURVEY 保留，实际 %q", info.Survey)
	}
	if info.Telescope != "VLA" {
		t.Fatalf("期望 TELESCOP 保留，实际 %q", info.Telescope)
	}
}

func TestProbe_MissingStringKeys(t *testing.T) {
	info, err := Probe(buildFITS(t))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if info.NAxis1 != 3 || info.NAxis2 != 2 {
		t.Fatalf("期望轴长 3x2，实际 %dx%d", info.NAxis1, info.NAxis2)
	}
	if info.Object != "" || info.Survey != "" || info.Telescope != "" {
		t.Fatalf("期望字符串关键字留空，实际 %+v", info)
	}
}

func TestProbe_NotFITS(t *testing.T) {
	body := bytes.Repeat([]byte("<html>Bad Request</html>\n"), 64)
	if _, err := Probe(body); err == nil {
		t.Fatalf("期望解析错误，实际成功")
	}
}

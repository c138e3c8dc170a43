package sidecar

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

type docOut struct {
	Survey     string  `json:"survey"`
	Stem       string  `json:"stem"`
	RADeg      float64 `json:"ra_deg"`
	DecDeg     float64 `json:"dec_deg"`
	SizeArcmin float64 `json:"size_arcmin"`
	URL        string  `json:"url"`
	FetchedAt  string  `json:"fetched_at"`
	Bytes      int64   `json:"bytes"`
	Probe      *struct {
		NAxis1 int    `json:"naxis1"`
		NAxis2 int    `json:"naxis2"`
		Note   string `json:"note"`
	} `json:"probe"`
	VLASS *struct {
		ResolvedFile  string  `json:"resolved_file"`
		SeparationDeg float64 `json:"separation_deg"`
		SkippedLines  int     `json:"skipped_lines"`
	} `json:"vlass"`
}

func TestEncode_RoundTripAndStableTime(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	doc := Document{
		Survey:     " VLASS ",
		Stem:       "J105007.27+304037.52",
		RADeg:      162.5302916667,
		DecDeg:     30.6770888889,
		URL:        " https://example.test/J105047+303000_qle123Imedian.fits ",
		FetchedAt:  time.Date(2026, 8, 25, 18, 30, 0, 123456789, loc),
		Bytes:      2048,
		Probe:      &Probe{Note: "未识别的头部"},
		VLASS:      &VLASS{ResolvedFile: "J105047+303000_qle123Imedian.fits", SeparationDeg: 0.227, SkippedLines: 0},
	}

	b, err := Encode(doc)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !bytes.HasSuffix(b, []byte("\n")) {
		t.Fatalf("输出应以换行结尾")
	}

	var out docOut
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("json.Unmarshal 失败：%v", err)
	}
	if out.Survey != "VLASS" || out.Stem != doc.Stem {
		t.Fatalf("survey/stem 不一致：%q %q", out.Survey, out.Stem)
	}
	if out.URL != "https://example.test/J105047+303000_qle123Imedian.fits" {
		t.Fatalf("url 未去空白：%q", out.URL)
	}
	// UTC+8 的 18:30 截断到秒后应落在 UTC 的 10:30。
	if out.FetchedAt != "2026-08-25T10:30:00Z" {
		t.Fatalf("fetched_at 不一致：%q", out.FetchedAt)
	}
	if out.Bytes != 2048 {
		t.Fatalf("bytes 不一致：%d", out.Bytes)
	}
	if out.Probe == nil || out.Probe.Note != "未识别的头部" {
		t.Fatalf("probe 不一致：%+v", out.Probe)
	}
	if out.VLASS == nil || out.VLASS.ResolvedFile != "J105047+303000_qle123Imedian.fits" {
		t.Fatalf("vlass 不一致：%+v", out.VLASS)
	}
	if out.VLASS.SeparationDeg != 0.227 || out.VLASS.SkippedLines != 0 {
		t.Fatalf("vlass 附加事实不一致：%+v", out.VLASS)
	}
}

func TestEncode_OmitsAbsentSections(t *testing.T) {
	b, err := Encode(Document{
		Survey:    "FIRST",
		Stem:      "J105007.27+304037.52",
		RADeg:     162.53,
		DecDeg:    30.68,
		URL:       "https://example.test/cgi",
		FetchedAt: time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
		Bytes:     4096,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, key := range []string{`"probe"`, `"vlass"`, `"size_arcmin"`} {
		if bytes.Contains(b, []byte(key)) {
			t.Fatalf("缺省字段不应出现：%s\n%s", key, b)
		}
	}
}

func TestPathFor(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/root/RQUERY/FIRST/FIRST_J105007.27+304037.52.fits", "/root/RQUERY/FIRST/FIRST_J105007.27+304037.52.json"},
		{"/root/RQUERY/VLASS/J105047+303000_qle123Imedian.fits", "/root/RQUERY/VLASS/J105047+303000_qle123Imedian.json"},
	}
	for _, c := range cases {
		if got := PathFor(c.in); got != c.want {
			t.Fatalf("期望 %q，实际 %q", c.want, got)
		}
	}
}

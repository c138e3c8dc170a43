package first

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/httpx"
	"github.com/John-Robertt/RSQ/internal/survey"
)

func mustCoord(t *testing.T, ra, dec string) domain.SkyCoord {
	t.Helper()
	r, err := domain.ParseHMS(ra)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	d, err := domain.ParseDMS(dec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return domain.NewSkyCoord(r, d)
}

func newClient(t *testing.T, root, baseURL string) Client {
	t.Helper()
	hc, err := httpx.New(httpx.Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return Client{HTTP: hc, Store: cache.New(root, false), BaseURL: baseURL}
}

func TestQueryEncoding(t *testing.T) {
	v := query(mustCoord(t, "10h50m07.270s", "+30d40m37.52s"), 2.5)

	// 依次：合并 RA 字段、空 Dec、角分整数截断、固定字段。
	if got := v.Get("RA"); got != "10 50 07.27 +30 40 37.52" {
		t.Fatalf("期望合并坐标写法，实际 %q", got)
	}
	if _, ok := v["Dec"]; !ok || v.Get("Dec") != "" {
		t.Fatalf("期望 Dec 以空值出现：%v", v)
	}
	if got := v.Get("ImageSize"); got != "2" {
		t.Fatalf("期望 ImageSize=2，实际 %q", got)
	}
	if v.Get("Equinox") != "J2000" || v.Get("ImageType") != "FITS File" || v.Get("MaxInt") != "10" {
		t.Fatalf("固定字段不符：%v", v)
	}
	if v.Get(".cgifields") != "ImageType" {
		t.Fatalf("期望 .cgifields=ImageType，实际 %q", v.Get(".cgifields"))
	}
	for _, key := range []string{"Epochs", "Fieldname"} {
		if _, ok := v[key]; !ok {
			t.Fatalf("期望 %s 以空值出现：%v", key, v)
		}
	}
}

func TestFetch_DownloadWritesCutout(t *testing.T) {
	payload := make([]byte, 2048)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		if q.Get("RA") != "10 50 07.27 +30 40 37.52" {
			t.Errorf("服务端收到的 RA 不符：%q", q.Get("RA"))
		}
		if q.Get("ImageSize") != "5" {
			t.Errorf("服务端收到的 ImageSize 不符：%q", q.Get("ImageSize"))
		}
		w.Write(payload)
	}))
	defer srv.Close()

	root := t.TempDir()
	c := newClient(t, root, srv.URL)

	res, err := c.Fetch(context.Background(), survey.Request{
		Coord:      mustCoord(t, "10h50m07.270s", "+30d40m37.52s"),
		SizeArcmin: 5,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Outcome != domain.OutcomeDownloaded {
		t.Fatalf("期望 downloaded，实际 %q", res.Outcome)
	}
	want := filepath.Join(root, "FIRST", "FIRST_J105007.27+304037.52.fits")
	if res.Path != want {
		t.Fatalf("期望路径 %q，实际 %q", want, res.Path)
	}
	if b, err := os.ReadFile(want); err != nil || len(b) != len(payload) {
		t.Fatalf("期望 %d 字节落盘：err=%v len=%d", len(payload), err, len(b))
	}
	if hits.Load() != 1 {
		t.Fatalf("期望 1 次请求，实际 %d", hits.Load())
	}
}

// 短响应是服务端的“无覆盖”错误页：文件不落盘，结局是 empty_payload。
func TestFetch_ShortPayloadRemovedAsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no coverage here"))
	}))
	defer srv.Close()

	root := t.TempDir()
	c := newClient(t, root, srv.URL)

	res, err := c.Fetch(context.Background(), survey.Request{
		Coord:      mustCoord(t, "10h50m07.270s", "+30d40m37.52s"),
		SizeArcmin: 5,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Outcome != domain.OutcomeEmptyPayload {
		t.Fatalf("期望 empty_payload，实际 %q", res.Outcome)
	}
	if res.Bytes != int64(len("no coverage here")) {
		t.Fatalf("期望记录载荷字节数，实际 %d", res.Bytes)
	}
	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Fatalf("期望文件已删除：%v", err)
	}
}

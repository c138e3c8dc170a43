package vlass

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
)

const autoindexPage = `<html><head><title>Index of /vlass/quicklook/ql_median_stack</title></head><body>
<h1>Index of /vlass/quicklook/ql_median_stack</h1><pre>
<img src="/icons/blank.gif" alt="Icon "> <a href="?C=N;O=D">Name</a> <a href="?C=M;O=A">Last modified</a> <a href="?C=S;O=A">Size</a><hr>
<img src="/icons/back.gif" alt="[PARENTDIR]"> <a href="/vlass/quicklook/">Parent Directory</a>                     -
<img src="/icons/image2.gif" alt="[IMG]"> <a href="J105047+303000_qle123Imedian.fits">J105047+303000_qle123Imedian.fits</a> 2025-02-17 08:35  106M
<img src="/icons/image2.gif" alt="[IMG]"> <a href="J105000+300000_qle123Imedian.fits">J105000+300000_qle123Imedian.fits</a> 2025-02-17 08:36   98M
<hr></pre></body></html>`

func TestRefresh_RewritesListing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(autoindexPage))
	}))
	defer srv.Close()

	root := t.TempDir()
	c := newTestClient(t, root, srv.URL, "")

	st, err := c.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if st.Kept != 2 {
		t.Fatalf("期望保留 2 行，实际 %d", st.Kept)
	}
	if st.Ignored != 4 {
		t.Fatalf("期望忽略 4 个锚（3 个排序链接 + 上级目录），实际 %d", st.Ignored)
	}

	b, err := os.ReadFile(c.Store.ListingPath(""))
	if err != nil {
		t.Fatalf("读取清单失败：%v", err)
	}
	want := "[IMG] J105047+303000_qle123Imedian.fits 2025-02-17 08:35 106M\n" +
		"[IMG] J105000+300000_qle123Imedian.fits 2025-02-17 08:36 98M\n"
	if string(b) != want {
		t.Fatalf("清单内容不一致：\n%q\n期望：\n%q", string(b), want)
	}

	// 刷新后的清单能直接用于解析。
	m, err := Resolve(mustCoord(t, "10h50m07.270s", "+30d40m37.52s"), bytes.NewReader(b))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.Name != "J105047+303000_qle123Imedian.fits" {
		t.Fatalf("期望选中 J105047+303000，实际 %q", m.Name)
	}

	// 重复刷新是幂等的。
	if _, err := c.Refresh(context.Background(), false); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b2, _ := os.ReadFile(c.Store.ListingPath(""))
	if !bytes.Equal(b, b2) {
		t.Fatalf("重复刷新应得到相同清单")
	}
	if hits.Load() != 2 {
		t.Fatalf("期望 2 次请求，实际 %d", hits.Load())
	}
}

func TestRefresh_DryRunNoNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, t.TempDir(), srv.URL, "")

	st, err := c.Refresh(context.Background(), true)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if st.URL == "" || st.Path == "" {
		t.Fatalf("dry-run 应汇报 URL 与目标路径：%+v", st)
	}
	if hits.Load() != 0 {
		t.Fatalf("期望不触网，实际 %d 次请求", hits.Load())
	}
	if _, err := os.Stat(st.Path); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应写清单：%v", err)
	}
}

func TestRefresh_EmptyIndexIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><a href='?C=N;O=D'>Name</a></body></html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, t.TempDir(), srv.URL, "")

	_, err := c.Refresh(context.Background(), false)
	if err == nil || !strings.Contains(err.Error(), ".fits") {
		t.Fatalf("期望空索引报错，实际 %v", err)
	}
}

package vlass

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// RefreshStats 汇总一次清单刷新。
type RefreshStats struct {
	URL  string
	Path string

	Kept    int
	Ignored int
}

// Refresh 抓取镶嵌图主机的目录索引页，解析出 .fits 行并原子重写清单缓存。
// dry-run 只汇报将访问的 URL 与目标路径，不触网不落盘。
func (c Client) Refresh(ctx context.Context, dryRun bool) (RefreshStats, error) {
	st := RefreshStats{URL: c.baseURL(), Path: c.Store.ListingPath(c.ListingPath)}
	if dryRun {
		return st, nil
	}

	body, err := c.HTTP.Get(ctx, st.URL)
	if err != nil {
		return st, err
	}

	lines, ignored, err := parseAutoindex(body)
	if err != nil {
		return st, err
	}
	st.Kept, st.Ignored = len(lines), ignored
	if len(lines) == 0 {
		return st, fmt.Errorf("索引页里没有任何 .fits 条目：%s", st.URL)
	}

	if err := c.Store.WriteListing(c.ListingPath, []byte(strings.Join(lines, "\n")+"\n")); err != nil {
		return st, err
	}
	return st, nil
}

// parseAutoindex 把 Apache 目录索引 HTML 变回清单行。
//
// 只认 href 以 J 开头、.fits 结尾的锚（排序链接、上级目录等都算 ignored）。
// 日期/大小列来自锚后面的文本节点，缺失时以 - 占位：消费方只读文件名列，
// 其余列仅为保持 [IMG] 行形状。
func parseAutoindex(body []byte) (lines []string, ignored int, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			ignored++
			return
		}
		name := strings.TrimSpace(href)
		if !strings.HasPrefix(name, "J") || !strings.HasSuffix(name, ".fits") {
			ignored++
			return
		}
		date, clock, size := rowColumns(s)
		lines = append(lines, fmt.Sprintf("[IMG] %s %s %s %s", name, date, clock, size))
	})
	return lines, ignored, nil
}

// rowColumns 从锚后面的同级文本里取日期/时刻/大小三列。
func rowColumns(s *goquery.Selection) (date, clock, size string) {
	date, clock, size = "-", "-", "-"
	n := s.Get(0)
	if n == nil || n.NextSibling == nil || n.NextSibling.Type != html.TextNode {
		return
	}
	f := strings.Fields(n.NextSibling.Data)
	if len(f) >= 1 {
		date = f[0]
	}
	if len(f) >= 2 {
		clock = f[1]
	}
	if len(f) >= 3 {
		size = f[2]
	}
	return
}

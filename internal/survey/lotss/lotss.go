// Package lotss 实现 LoTSS DR2 (144 MHz) 公共切图服务的查询。
package lotss

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/httpx"
	"github.com/John-Robertt/RSQ/internal/survey"
)

// Endpoint 是 LoTSS DR2 切图服务的固定入口。
const Endpoint = "https://lofar-surveys.org/dr2-cutout.fits"

// Client 通过共用管线抓取 LoTSS 切图。
type Client struct {
	HTTP  *httpx.Client
	Store cache.Store
	// BaseURL 允许替换切图入口（测试用）。为空时使用 Endpoint。
	BaseURL string
}

func (Client) Survey() string { return domain.SurveyLOTSS }

func (c Client) Fetch(ctx context.Context, req survey.Request) (survey.Result, error) {
	base := c.baseURL()
	return survey.FetchCutout(ctx, c.HTTP, c.Store, survey.Endpoint{
		Survey: domain.SurveyLOTSS,
		QueryURL: func(coord domain.SkyCoord, sizeArcmin float64) string {
			return base + "?" + query(coord, sizeArcmin).Encode()
		},
	}, req)
}

func (c Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return Endpoint
	}
	return strings.TrimRight(u, "/")
}

// query 构造 dr2-cutout 的字段集。
// pos 取十进制度、6 位小数；size 取角分的最短可逆写法。
func query(coord domain.SkyCoord, sizeArcmin float64) url.Values {
	v := url.Values{}
	v.Set("pos", fmt.Sprintf("%.6f,%.6f", coord.RADeg(), coord.DecDeg()))
	v.Set("size", strconv.FormatFloat(sizeArcmin, 'g', -1, 64))
	return v
}

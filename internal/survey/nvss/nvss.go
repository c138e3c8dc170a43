// Package nvss 实现 NVSS (1.4 GHz) postage stamp 服务的查询。
package nvss

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
	"github.com/John-Robertt/RSQ/internal/infra/httpx"
	"github.com/John-Robertt/RSQ/internal/survey"
)

// Endpoint 是 NVSS postage stamp CGI 的固定入口。
const Endpoint = "https://www.cv.nrao.edu/cgi-bin/postage.pl"

// Client 通过共用管线抓取 NVSS 切图。
type Client struct {
	HTTP  *httpx.Client
	Store cache.Store
	// BaseURL 允许替换切图入口（测试用）。为空时使用 Endpoint。
	BaseURL string
}

func (Client) Survey() string { return domain.SurveyNVSS }

func (c Client) Fetch(ctx context.Context, req survey.Request) (survey.Result, error) {
	base := c.baseURL()
	return survey.FetchCutout(ctx, c.HTTP, c.Store, survey.Endpoint{
		Survey: domain.SurveyNVSS,
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

// query 构造 postage.pl 的字段集。
//
// 约束（照抄服务端表单）：
// - Size 是以度为单位的边长写两遍（“宽 高”），十进制取最短可逆写法
// - Cells 固定 2.0 角秒像元，Type 固定请求 FITS
func query(coord domain.SkyCoord, sizeArcmin float64) url.Values {
	deg := strconv.FormatFloat(sizeArcmin/60, 'g', -1, 64)

	v := url.Values{}
	v.Set("Equinox", "J2000")
	v.Set("PolType", "I")
	v.Set("ObjName", "")
	v.Set("RA", coord.FormatRA())
	v.Set("Dec", coord.FormatDec())
	v.Set("Size", deg+" "+deg)
	v.Set("Cells", "2.0 2.0")
	v.Set("Type", "image/x-fits")
	return v
}

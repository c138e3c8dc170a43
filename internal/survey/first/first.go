// Package first 实现 VLA FIRST (1.4 GHz) 切图服务的查询。
package first

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

// Endpoint 是 FIRST 切图 CGI 的固定入口。
const Endpoint = "https://third.ucllnl.org/cgi-bin/firstcutout"

// Client 通过共用管线抓取 FIRST 切图。
type Client struct {
	HTTP  *httpx.Client
	Store cache.Store
	// BaseURL 允许替换切图入口（测试用）。为空时使用 Endpoint。
	BaseURL string
}

func (Client) Survey() string { return domain.SurveyFIRST }

func (c Client) Fetch(ctx context.Context, req survey.Request) (survey.Result, error) {
	base := c.baseURL()
	return survey.FetchCutout(ctx, c.HTTP, c.Store, survey.Endpoint{
		Survey: domain.SurveyFIRST,
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

// query 构造 firstcutout 的字段集。
//
// 约束（照抄服务端表单，改动会拿到 HTML 错误页）：
// - RA 一个字段装下“赤经 空格 赤纬”的合并写法，Dec 留空
// - ImageSize 是整数截断后的角分字符串
// - Dec/Epochs/Fieldname 必须以空值出现，.cgifields 固定为 ImageType
func query(coord domain.SkyCoord, sizeArcmin float64) url.Values {
	v := url.Values{}
	v.Set("RA", coord.FormatRA()+" "+coord.FormatDec())
	v.Set("Dec", "")
	v.Set("Equinox", "J2000")
	v.Set("ImageSize", strconv.Itoa(int(sizeArcmin)))
	v.Set("ImageType", "FITS File")
	v.Set("MaxInt", "10")
	v.Set("Epochs", "")
	v.Set("Fieldname", "")
	v.Set(".cgifields", "ImageType")
	return v
}

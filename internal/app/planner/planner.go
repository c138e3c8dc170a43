// Package planner 把目标坐标 × 请求的巡天展开成确定性的执行计划。
// 计划阶段不做任何网络 I/O，只读本地现状。
package planner

import (
	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
)

type itemKey struct {
	survey string
	stem   string
}

// Build 生成执行计划。
//
// 规则：
// - 条目顺序：先按目标出现顺序，再按请求的巡天顺序（稳定、可复现）
// - (survey, 词干) 重复时保留首见，其余计入 Duplicates
// - 目标未带尺寸时回退到 defaultSizeArcmin；VLASS 镶嵌图与请求尺寸无关，条目里置 0
// - cache guard 预判只看现状；VLASS 在清单解析前无法定位文件，
//   Path 留空、WillDownload 置 true，由执行期裁决
func Build(store cache.Store, targets []domain.Target, surveys []string, defaultSizeArcmin float64, overwrite bool) (domain.FetchPlan, error) {
	seen := make(map[itemKey]struct{}, len(targets)*len(surveys))
	plan := domain.FetchPlan{
		Items: make([]domain.FetchItem, 0, len(targets)*len(surveys)),
	}

	for _, t := range targets {
		size := t.SizeArcmin
		if size == 0 {
			size = defaultSizeArcmin
		}
		stem := t.Coord.Stem()

		for _, sv := range surveys {
			k := itemKey{survey: sv, stem: stem}
			if _, ok := seen[k]; ok {
				plan.Duplicates++
				continue
			}
			seen[k] = struct{}{}

			it := domain.FetchItem{
				Survey:     sv,
				Coord:      t.Coord,
				SizeArcmin: size,
			}
			if sv == domain.SurveyVLASS {
				it.SizeArcmin = 0
				it.WillDownload = true
			} else {
				p, err := store.CutoutPath(sv, t.Coord)
				if err != nil {
					return domain.FetchPlan{}, err
				}
				it.Path = p
				it.WillDownload, _ = cache.Decide(p, overwrite)
			}
			plan.Items = append(plan.Items, it)
		}
	}

	return plan, nil
}

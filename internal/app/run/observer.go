package run

import (
	"github.com/John-Robertt/RSQ/internal/domain"
)

// Observer 把“正在抓哪条、抓完结果如何”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 执行严格串行，事件按条目顺序到达；实现无需考虑并发。
// - 取消后剩余条目直接落入报告，不再发事件。
type Observer interface {
	// OnItemStart 在请求发出前调用；i 从 1 数到 n。
	OnItemStart(i, n int, survey, stem string)
	// OnItemDone 在条目结束时调用（含失败与跳过）。
	OnItemDone(r domain.TargetResult)
}

// PlanObserver 是 Observer 的可选扩展：计划建成后、第一条开始前收到
// 完整计划（含 cache guard 预判与去重计数），用于开局概览。
type PlanObserver interface {
	Observer
	OnPlan(p domain.FetchPlan)
}

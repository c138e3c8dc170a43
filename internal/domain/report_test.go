package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Root:       "/abs/root",
		DryRun:     true,
		StartedAt:  time.Date(2026, 8, 25, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 8, 25, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []TargetResult{
			{Stem: "J105007.27+304037.52", Survey: SurveyNVSS, Outcome: OutcomeSkippedExisting},
			{Stem: "", Outcome: OutcomeFailed}, // 配置/输入错误等合成条目
			{Stem: "J105007.27+304037.52", Survey: SurveyFIRST, Outcome: OutcomeDownloaded},
			{Stem: "J013000.00-013000.00", Survey: SurveyVLASS, Outcome: OutcomeNoSuitableMatch},
			{Stem: "J013000.00-013000.00", Survey: SurveyLOTSS, Outcome: OutcomeEmptyPayload},
		},
	}

	r.Finalize()

	// stem=="" 的合成条目必须排在最后；同 stem 内按 survey 字典序。
	order := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		order = append(order, it.Stem+"/"+it.Survey)
	}
	want := []string{
		"J013000.00-013000.00/LOTSS",
		"J013000.00-013000.00/VLASS",
		"J105007.27+304037.52/FIRST",
		"J105007.27+304037.52/NVSS",
		"/",
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("items 排序不符合契约：%v", order)
		}
	}

	s := r.Summary
	if s.Downloaded != 1 || s.Skipped != 1 || s.NoMatch != 1 || s.Empty != 1 || s.Failed != 1 || s.Planned != 0 {
		t.Fatalf("summary 统计不正确：%+v", s)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-08-25T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

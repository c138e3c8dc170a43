package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/RSQ/internal/domain"
	"github.com/John-Robertt/RSQ/internal/infra/cache"
)

func target(t *testing.T, ra, dec string, size float64) domain.Target {
	t.Helper()
	r, err := domain.ParseHMS(ra)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	d, err := domain.ParseDMS(dec)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return domain.Target{Coord: domain.NewSkyCoord(r, d), SizeArcmin: size}
}

func TestBuild_OrderAndSizeFallback(t *testing.T) {
	store := cache.New(t.TempDir(), true)
	targets := []domain.Target{
		target(t, "10h50m07.270s", "+30d40m37.52s", 0),
		target(t, "12h30m49.4s", "+12d23m28s", 2.5),
	}

	plan, err := Build(store, targets, []string{domain.SurveyFIRST, domain.SurveyVLASS}, 5, false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(plan.Items) != 4 || plan.Duplicates != 0 {
		t.Fatalf("期望 4 条无重复，实际 %d 条 / %d 重复", len(plan.Items), plan.Duplicates)
	}

	// 顺序：目标在外层，巡天在内层。
	wantSurveys := []string{domain.SurveyFIRST, domain.SurveyVLASS, domain.SurveyFIRST, domain.SurveyVLASS}
	for i, it := range plan.Items {
		if it.Survey != wantSurveys[i] {
			t.Fatalf("第 %d 条巡天不一致：%q", i, it.Survey)
		}
	}

	// 未带尺寸的目标回退到默认值；VLASS 条目尺寸置 0。
	if plan.Items[0].SizeArcmin != 5 {
		t.Fatalf("期望尺寸回退到 5，实际 %v", plan.Items[0].SizeArcmin)
	}
	if plan.Items[1].SizeArcmin != 0 {
		t.Fatalf("VLASS 条目尺寸应为 0，实际 %v", plan.Items[1].SizeArcmin)
	}
	if plan.Items[2].SizeArcmin != 2.5 {
		t.Fatalf("期望保留目标自带尺寸 2.5，实际 %v", plan.Items[2].SizeArcmin)
	}
}

func TestBuild_DedupeKeepsFirstSeen(t *testing.T) {
	store := cache.New(t.TempDir(), true)
	targets := []domain.Target{
		target(t, "10h50m07.270s", "+30d40m37.52s", 3),
		target(t, "10h50m07.270s", "+30d40m37.52s", 7),
	}

	plan, err := Build(store, targets, []string{domain.SurveyFIRST, domain.SurveyNVSS}, 5, false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("期望去重后 2 条，实际 %d", len(plan.Items))
	}
	if plan.Duplicates != 2 {
		t.Fatalf("期望 2 条重复被丢弃，实际 %d", plan.Duplicates)
	}
	// 首见者的尺寸胜出。
	for _, it := range plan.Items {
		if it.SizeArcmin != 3 {
			t.Fatalf("期望保留首见尺寸 3，实际 %v", it.SizeArcmin)
		}
	}
}

func TestBuild_GuardPreview(t *testing.T) {
	root := t.TempDir()
	store := cache.New(root, true)
	tg := target(t, "10h50m07.270s", "+30d40m37.52s", 0)

	existing, err := store.CutoutPath(domain.SurveyFIRST, tg.Coord)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	plan, err := Build(store, []domain.Target{tg}, []string{domain.SurveyFIRST, domain.SurveyNVSS, domain.SurveyVLASS}, 5, false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	first, nvss, vlass := plan.Items[0], plan.Items[1], plan.Items[2]
	if first.WillDownload || first.Path != existing {
		t.Fatalf("已存在的 FIRST 切图应被跳过：%+v", first)
	}
	if !nvss.WillDownload || nvss.Path == "" {
		t.Fatalf("缺失的 NVSS 切图应计划下载：%+v", nvss)
	}
	if !vlass.WillDownload || vlass.Path != "" {
		t.Fatalf("VLASS 预判应为待定下载且无路径：%+v", vlass)
	}

	// overwrite=true 时现存文件也计划重新下载。
	plan, err = Build(store, []domain.Target{tg}, []string{domain.SurveyFIRST}, 5, true)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !plan.Items[0].WillDownload {
		t.Fatalf("overwrite=true 应重新下载：%+v", plan.Items[0])
	}
}

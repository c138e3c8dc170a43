package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/RSQ/internal/domain"
)

func testCoord(t *testing.T) domain.SkyCoord {
	t.Helper()
	c, ok := domain.ParseStem("J105007.27+304037.52")
	if !ok {
		t.Fatalf("无法解析测试主干")
	}
	return c
}

func TestStore_CutoutPathLayout(t *testing.T) {
	s := New("/data/rquery", true)

	p, err := s.CutoutPath(domain.SurveyFIRST, testCoord(t))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := filepath.Join("/data/rquery", "FIRST", "FIRST_J105007.27+304037.52.fits")
	if p != want {
		t.Fatalf("路径布局不符合契约：%q", p)
	}

	if _, err := s.CutoutPath("2MASS", testCoord(t)); err == nil {
		t.Fatalf("未知巡天应被拒绝")
	}
}

func TestStore_ArchivePathRejectsTraversal(t *testing.T) {
	s := New(t.TempDir(), true)

	if _, err := s.ArchivePath("J105047+303000_qle123Imedian.fits"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, name := range []string{"", "../evil.fits", "a/b.fits", "a..b.fits"} {
		if _, err := s.ArchivePath(name); err == nil {
			t.Fatalf("期望拒绝 %q", name)
		}
	}
}

func TestDecide_GuardTable(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "absent.fits")
	existing := filepath.Join(dir, "present.fits")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	if dl, note := Decide(missing, false); !dl || note != "" {
		t.Fatalf("缺失文件应下载且无提示：%v %q", dl, note)
	}
	if dl, note := Decide(existing, true); !dl || note == "" {
		t.Fatalf("overwrite=true 应下载且带替换提示：%v %q", dl, note)
	}
	if dl, note := Decide(existing, false); dl || note == "" {
		t.Fatalf("overwrite=false 应跳过且带保留提示：%v %q", dl, note)
	}
}

func TestStore_ListingReadWrite(t *testing.T) {
	root := t.TempDir()

	s := New(root, false)
	if _, ok, err := s.ReadListing(""); err != nil || ok {
		t.Fatalf("缺失清单应 ok=false 且无错误：ok=%v err=%v", ok, err)
	}

	line := "[IMG]  J105047+303000_qle123Imedian.fits  2025-02-17 08:35  106M\n"
	if err := s.WriteListing("", []byte(line)); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, ok, err := s.ReadListing("")
	if err != nil || !ok {
		t.Fatalf("期望命中清单：ok=%v err=%v", ok, err)
	}
	if string(b) != line {
		t.Fatalf("内容不一致：%q", string(b))
	}
}

func TestStore_ListingOverridePath(t *testing.T) {
	root := t.TempDir()
	override := filepath.Join(t.TempDir(), "medians.txt")
	if err := os.WriteFile(override, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	s := New(root, true)
	b, ok, err := s.ReadListing(override)
	if err != nil || !ok {
		t.Fatalf("期望命中 override 清单：ok=%v err=%v", ok, err)
	}
	if string(b) != "x\n" {
		t.Fatalf("内容不一致：%q", string(b))
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	s := New(t.TempDir(), true)

	if err := s.WriteListing("", []byte("x")); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}
	if err := s.WriteReport([]byte("{}")); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}
	if _, err := os.Stat(s.ReportPath()); !os.IsNotExist(err) {
		t.Fatalf("期望报告不存在，但 Stat err=%v", err)
	}
}

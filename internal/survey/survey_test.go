package survey

import (
	"context"
	"testing"
)

type fakeClient struct{ name string }

func (f fakeClient) Survey() string { return f.name }
func (f fakeClient) Fetch(context.Context, Request) (Result, error) {
	return Result{}, nil
}

func TestNewRegistry_LookupIsCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(fakeClient{name: "FIRST"}, fakeClient{name: "vlass"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, name := range []string{"first", "FIRST", " First "} {
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("期望能取到 %q", name)
		}
	}
	if _, ok := reg.Get("nvss"); ok {
		t.Fatalf("未注册的巡天不应命中")
	}
}

func TestNewRegistry_Rejects(t *testing.T) {
	// 依次：未知巡天、重复注册、空名。
	if _, err := NewRegistry(fakeClient{name: "wise"}); err == nil {
		t.Fatalf("期望错误，实际 nil")
	}
	if _, err := NewRegistry(fakeClient{name: "first"}, fakeClient{name: "FIRST"}); err == nil {
		t.Fatalf("期望错误，实际 nil")
	}
	if _, err := NewRegistry(fakeClient{name: "  "}); err == nil {
		t.Fatalf("期望错误，实际 nil")
	}
}

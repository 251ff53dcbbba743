package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/codefionn/agentwerk/internal/consts"
)

type stubTool struct {
	spec ToolSpec
	fn   func(ctx context.Context, args map[string]any) (string, error)
}

func (s *stubTool) Spec() ToolSpec { return s.spec }

func (s *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return s.fn(ctx, args)
}

func newStub(name string, fn func(ctx context.Context, args map[string]any) (string, error)) *stubTool {
	if fn == nil {
		fn = func(context.Context, map[string]any) (string, error) { return "ok", nil }
	}
	return &stubTool{spec: ToolSpec{Name: name, Description: name + " stub"}, fn: fn}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(newStub("alpha", nil)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(newStub("alpha", nil)); err == nil {
		t.Fatal("duplicate register succeeded")
	}
	if err := reg.Register(newStub("ALPHA", nil)); err == nil {
		t.Fatal("case variant register succeeded")
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(newStub("  ", nil)); err == nil {
		t.Fatal("empty name register succeeded")
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(newStub("run_command", nil)); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Resolve("Run_Command"); !ok {
		t.Error("Resolve with different case failed")
	}
	if _, ok := reg.Resolve("missing"); ok {
		t.Error("Resolve found unregistered tool")
	}
}

func TestSpecsKeepRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		if err := reg.Register(newStub(name, nil)); err != nil {
			t.Fatal(err)
		}
	}
	specs := reg.Specs()
	got := []string{specs[0].Name, specs[1].Name, specs[2].Name}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Specs order = %v, want %v", got, want)
		}
	}
}

func TestDescribeAllMarksOptionalParams(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&stubTool{
		spec: ToolSpec{
			Name:        "demo",
			Params:      []Param{{Name: "path", Required: true}, {Name: "limit"}},
			Description: "demo tool",
		},
		fn: func(context.Context, map[string]any) (string, error) { return "", nil },
	})
	if err != nil {
		t.Fatal(err)
	}

	got := reg.DescribeAll()
	if !strings.Contains(got, "demo(path, limit?): demo tool") {
		t.Errorf("DescribeAll() = %q", got)
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(newStub("boom", func(context.Context, map[string]any) (string, error) {
		panic("kaboom")
	}))
	if err != nil {
		t.Fatal(err)
	}

	_, err = reg.Execute(context.Background(), "boom", nil)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("err = %v, want panic report", err)
	}
}

func TestExecuteTruncatesOversizedOutput(t *testing.T) {
	reg := NewRegistry()
	huge := strings.Repeat("x", consts.MaxToolOutputBytes+100)
	err := reg.Register(newStub("big", func(context.Context, map[string]any) (string, error) {
		return huge, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	got, err := reg.Execute(context.Background(), "big", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > consts.MaxToolOutputBytes+100 {
		t.Errorf("output not truncated: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "(output truncated)") {
		t.Errorf("missing truncation notice, tail %q", got[len(got)-40:])
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Execute(context.Background(), "ghost", nil); err == nil {
		t.Fatal("Execute on unknown tool succeeded")
	}
}

func TestParamHelpers(t *testing.T) {
	args := map[string]any{
		"s":     "text",
		"f":     float64(7),
		"b":     true,
		"wrong": []string{"not scalar"},
	}

	if got := GetStringParam(args, "s", "d"); got != "text" {
		t.Errorf("GetStringParam = %q", got)
	}
	if got := GetStringParam(args, "missing", "d"); got != "d" {
		t.Errorf("GetStringParam default = %q", got)
	}
	if got := GetIntParam(args, "f", 0); got != 7 {
		t.Errorf("GetIntParam float64 = %d", got)
	}
	if got := GetIntParam(args, "wrong", 3); got != 3 {
		t.Errorf("GetIntParam wrong type = %d", got)
	}
	if got := GetBoolParam(args, "b", false); !got {
		t.Error("GetBoolParam = false")
	}
}

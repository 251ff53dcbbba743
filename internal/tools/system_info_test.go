package tools

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"testing"
)

func TestSystemInfoReportsRuntime(t *testing.T) {
	got, err := NewSystemInfoTool().Execute(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"os: " + runtime.GOOS,
		"arch: " + runtime.GOARCH,
		fmt.Sprintf("cpus: %d", runtime.NumCPU()),
		"go: go",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatGiB(t *testing.T) {
	if got := formatGiB(1 << 30); got != "1.0 GiB" {
		t.Errorf("formatGiB(1<<30) = %q", got)
	}
	if got := formatGiB(3 << 29); got != "1.5 GiB" {
		t.Errorf("formatGiB(3<<29) = %q", got)
	}
}

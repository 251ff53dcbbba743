package tools

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// SystemInfoTool reports a host summary. It takes no parameters.
type SystemInfoTool struct{}

func NewSystemInfoTool() *SystemInfoTool {
	return &SystemInfoTool{}
}

func (t *SystemInfoTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        ToolSystemInfo,
		Description: "Report host information: OS, architecture, CPU count, memory, disk space and Go runtime. Takes no parameters.",
	}
}

func (t *SystemInfoTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	hostname, _ := os.Hostname()

	lines := []string{
		fmt.Sprintf("os: %s", runtime.GOOS),
		fmt.Sprintf("arch: %s", runtime.GOARCH),
		fmt.Sprintf("cpus: %d", runtime.NumCPU()),
		fmt.Sprintf("hostname: %s", hostname),
		fmt.Sprintf("go: %s", runtime.Version()),
	}

	if total, available := memoryStats(); total > 0 {
		lines = append(lines, fmt.Sprintf("memory: %s available of %s", formatGiB(available), formatGiB(total)))
	}
	if total, free := diskStats("/"); total > 0 {
		lines = append(lines, fmt.Sprintf("disk /: %s free of %s", formatGiB(free), formatGiB(total)))
	}

	return strings.Join(lines, "\n"), nil
}

func formatGiB(bytes uint64) string {
	return fmt.Sprintf("%.1f GiB", float64(bytes)/(1<<30))
}

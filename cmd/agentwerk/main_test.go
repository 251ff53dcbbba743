package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/agentwerk/internal/task"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want cliOptions
	}{
		{
			name: "positional prompt",
			args: []string{"check", "disk", "space"},
			want: cliOptions{prompt: "check disk space"},
		},
		{
			name: "prompt flag wins over positionals",
			args: []string{"-p", "explicit", "ignored"},
			want: cliOptions{prompt: "explicit"},
		},
		{
			name: "mode and override flags",
			args: []string{"-serve", "-model", "qwen2.5-coder:7b", "-max-iterations", "5"},
			want: cliOptions{serve: true, model: "qwen2.5-coder:7b", maxIterations: 5},
		},
		{
			name: "interactive",
			args: []string{"-i", "-debug", "-no-sandbox"},
			want: cliOptions{interactive: true, debug: true, noSandbox: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypedOverrides(t *testing.T) {
	assert.Nil(t, typedOverrides(nil))

	got := typedOverrides(map[string]string{"coding": "deepseek-coder:6.7b"})
	assert.Equal(t, "deepseek-coder:6.7b", got[task.TypeCoding])
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one\ntwo"))
	assert.Equal(t, "plain", firstLine("plain"))
}

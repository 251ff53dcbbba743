// Package prompt assembles the per-round model prompt from the tool
// catalog, recalled solutions, and the observation log of the current run.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/codefionn/agentwerk/internal/consts"
	"github.com/codefionn/agentwerk/internal/task"
)

const (
	// observationLimit bounds how much of one tool output is quoted back.
	observationLimit = 500
	// snippetLimit bounds how much of one recalled solution is quoted.
	snippetLimit  = 600
	omittedNotice = "(earlier steps omitted to fit the context window)"
)

// Input carries everything one round's prompt is built from.
type Input struct {
	UserInput   string
	ToolCatalog string
	OSInfo      string
	Snippets    []task.Snippet
	Records     []task.ExecutionRecord
	Notices     []string
}

// Assembler renders round prompts with a fixed section order, so identical
// input yields an identical prompt. CharBudget bounds the rendered size:
// when the full prompt exceeds it, the oldest execution records are dropped
// first, then the recalled solutions. The instructions, tool catalog, and
// user request are never dropped.
type Assembler struct {
	charBudget int
}

func NewAssembler(charBudget int) *Assembler {
	if charBudget <= 0 {
		charBudget = consts.DefaultPromptBudget
	}
	return &Assembler{charBudget: charBudget}
}

func (a *Assembler) Build(in Input) string {
	rendered := render(in, false)
	if len(rendered) <= a.charBudget {
		return rendered
	}

	trimmed := in
	for len(trimmed.Records) > 0 {
		trimmed.Records = trimmed.Records[1:]
		rendered = render(trimmed, true)
		if len(rendered) <= a.charBudget {
			return rendered
		}
	}
	for len(trimmed.Snippets) > 0 {
		trimmed.Snippets = trimmed.Snippets[1:]
		rendered = render(trimmed, true)
		if len(rendered) <= a.charBudget {
			return rendered
		}
	}
	return rendered
}

func render(in Input, stepsOmitted bool) string {
	var sb strings.Builder

	osInfo := strings.TrimSpace(in.OSInfo)
	if osInfo == "" {
		osInfo = "an unknown system"
	}

	sb.WriteString(fmt.Sprintf("You are an autonomous assistant running locally on %s.\n", osInfo))
	sb.WriteString("Work in steps: when you need a tool, emit one JSON object per call and\n")
	sb.WriteString("wait for its output before deciding the next step. Use only the tools\n")
	sb.WriteString("listed below, with their exact names. Tool calls use either form:\n\n")
	sb.WriteString("  {\"tool\": \"<name>\", \"args\": [<values in parameter order>]}\n")
	sb.WriteString("  {\"action\": \"<name>\", \"action_input\": {\"<parameter>\": <value>}}\n\n")
	sb.WriteString("When the task is finished, answer in plain text without any JSON\n")
	sb.WriteString("object, or emit {\"final_answer\": \"<answer>\"}.\n\n")

	sb.WriteString("Available tools:\n")
	catalog := strings.TrimSpace(in.ToolCatalog)
	if catalog == "" {
		catalog = "(none)"
	}
	sb.WriteString(catalog)
	sb.WriteString("\n\n")

	if len(in.Snippets) > 0 {
		sb.WriteString("Solutions from earlier tasks that may apply:\n")
		for i, snippet := range in.Snippets {
			sb.WriteString(fmt.Sprintf("%d. Problem: %s\n", i+1, clip(snippet.Problem, snippetLimit)))
			sb.WriteString(fmt.Sprintf("   Solution: %s\n", clip(snippet.Solution, snippetLimit)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Previous steps:\n")
	if len(in.Records) == 0 && !stepsOmitted {
		sb.WriteString("No previous steps in this task.\n")
	} else {
		if stepsOmitted {
			sb.WriteString(omittedNotice)
			sb.WriteString("\n")
		}
		for _, rec := range in.Records {
			sb.WriteString(fmt.Sprintf("Step %d: %s(%s)\n", rec.SequenceIndex+1, rec.ToolName, renderArguments(rec.Arguments)))
			if rec.IsError() {
				sb.WriteString("Error: ")
				sb.WriteString(clip(rec.Error, observationLimit))
			} else {
				sb.WriteString("Output: ")
				sb.WriteString(clip(rec.Result, observationLimit))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	if len(in.Notices) > 0 {
		sb.WriteString("Notices:\n")
		for _, notice := range in.Notices {
			sb.WriteString("- ")
			sb.WriteString(notice)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("User request: ")
	sb.WriteString(strings.TrimSpace(in.UserInput))
	sb.WriteString("\n")

	return sb.String()
}

// renderArguments gives a stable textual form for an argument map.
// json.Marshal sorts map keys, which keeps rendered prompts deterministic.
func renderArguments(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}

func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

package task

import (
	"strings"

	"github.com/codefionn/agentwerk/internal/llm"
)

// Size thresholds for the complexity bonus, in bytes as reported by the
// backend.
const (
	modelSizeLarge  = 4_000_000_000
	modelSizeMedium = 2_000_000_000
)

// complexTypes earn a size bonus: bigger models handle them better.
var complexTypes = map[Type]bool{
	TypeCoding:     true,
	TypeWebDesign:  true,
	TypeServerOps:  true,
	TypeContainers: true,
	TypeDatabase:   true,
}

// SelectModel picks the best available model for a task type. An explicit
// override for the type wins; otherwise each model is scored by name
// specialization and size, highest first, ties resolved by inventory order.
// An empty inventory returns "" and the caller falls back to its configured
// default.
func SelectModel(t Type, models []llm.ModelInfo, overrides map[Type]string) string {
	if override := strings.TrimSpace(overrides[t]); override != "" {
		return override
	}
	if len(models) == 0 {
		return ""
	}

	best := models[0].Name
	bestScore := -1
	for _, m := range models {
		if score := scoreModel(t, m); score > bestScore {
			best = m.Name
			bestScore = score
		}
	}
	return best
}

func scoreModel(t Type, m llm.ModelInfo) int {
	name := strings.ToLower(m.Name)
	score := 0

	switch t {
	case TypeCoding:
		if strings.Contains(name, "deepseek") {
			score += 100
		} else if strings.Contains(name, "qwen") && !strings.Contains(name, "3b") {
			score += 50
		}
	case TypeWebDesign:
		if strings.Contains(name, "deepseek") {
			score += 80
		} else if strings.Contains(name, "qwen") {
			score += 60
		}
	case TypeServerOps, TypeContainers, TypeDatabase:
		if strings.Contains(name, "deepseek") {
			score += 90
		} else if strings.Contains(name, "llama") {
			score += 70
		} else if strings.Contains(name, "mistral") {
			score += 75
		}
	case TypeSimple:
		// Small models answer lookups fastest.
		if strings.Contains(name, "0.5b") || strings.Contains(name, "3b") {
			score += 100
		}
	default:
		if strings.Contains(name, "mistral") {
			score += 80
		} else if strings.Contains(name, "llama") {
			score += 75
		} else if strings.Contains(name, "qwen") && !strings.Contains(name, "3b") {
			score += 70
		}
	}

	if complexTypes[t] {
		switch {
		case m.Size > modelSizeLarge:
			score += 30
		case m.Size > modelSizeMedium:
			score += 15
		}
	}
	return score
}

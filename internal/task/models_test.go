package task

import (
	"testing"

	"github.com/codefionn/agentwerk/internal/llm"
)

func inventory() []llm.ModelInfo {
	return []llm.ModelInfo{
		{Name: "qwen2.5:0.5b", Size: 400_000_000},
		{Name: "qwen2.5:3b", Size: 1_900_000_000},
		{Name: "llama3.1:8b", Size: 4_700_000_000},
		{Name: "mistral:7b", Size: 4_100_000_000},
		{Name: "deepseek-coder:6.7b", Size: 3_800_000_000},
	}
}

func TestSelectModel(t *testing.T) {
	tests := []struct {
		taskType Type
		expected string
	}{
		// deepseek dominates coding even when smaller than the generalists.
		{TypeCoding, "deepseek-coder:6.7b"},
		{TypeWebDesign, "deepseek-coder:6.7b"},
		// mistral:7b ties deepseek on ops tasks (75+30 vs 90+15) and sits
		// earlier in the inventory.
		{TypeContainers, "mistral:7b"},
		{TypeDatabase, "mistral:7b"},
		// Small models win simple lookups.
		{TypeSimple, "qwen2.5:0.5b"},
		{TypeGeneral, "mistral:7b"},
		{TypeAutomation, "mistral:7b"},
	}

	for _, tt := range tests {
		if got := SelectModel(tt.taskType, inventory(), nil); got != tt.expected {
			t.Errorf("SelectModel(%q) = %q; want %q", tt.taskType, got, tt.expected)
		}
	}
}

func TestSelectModelOverride(t *testing.T) {
	overrides := map[Type]string{TypeCoding: "codellama:13b"}
	if got := SelectModel(TypeCoding, inventory(), overrides); got != "codellama:13b" {
		t.Errorf("SelectModel with override = %q; want codellama:13b", got)
	}
	// Overrides for other types do not leak.
	if got := SelectModel(TypeGeneral, inventory(), overrides); got != "mistral:7b" {
		t.Errorf("SelectModel(general) = %q; want mistral:7b", got)
	}
}

func TestSelectModelEmptyInventory(t *testing.T) {
	if got := SelectModel(TypeCoding, nil, nil); got != "" {
		t.Errorf("SelectModel with no models = %q; want \"\"", got)
	}
}

func TestSelectModelTieBreaksByInventoryOrder(t *testing.T) {
	models := []llm.ModelInfo{
		{Name: "llama3.1:8b", Size: 4_700_000_000},
		{Name: "llama3.2:70b", Size: 40_000_000_000},
	}
	// Identical scores: first inventory entry wins.
	if got := SelectModel(TypeGeneral, models, nil); got != "llama3.1:8b" {
		t.Errorf("SelectModel tie = %q; want llama3.1:8b", got)
	}
}

func TestSelectModelSizeBonus(t *testing.T) {
	models := []llm.ModelInfo{
		{Name: "qwen2.5:7b", Size: 4_500_000_000},
		{Name: "qwen2.5-small:7b", Size: 1_000_000_000},
	}
	// Same specialization score; the >4GB bonus decides.
	if got := SelectModel(TypeCoding, models, nil); got != "qwen2.5:7b" {
		t.Errorf("SelectModel size bonus = %q; want qwen2.5:7b", got)
	}
}

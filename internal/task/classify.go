package task

import "strings"

// Type is a coarse task category derived from the user input. It biases
// model selection and prompt assembly; downstream components treat it as a
// hint, never as a hard routing decision.
type Type string

const (
	TypeCoding     Type = "coding"
	TypeWebDesign  Type = "web_design"
	TypeServerOps  Type = "server_ops"
	TypeContainers Type = "containers"
	TypeDatabase   Type = "database"
	TypeAutomation Type = "automation"
	TypeSimple     Type = "simple"
	TypeGeneral    Type = "general"
)

// classifyOrder fixes the priority of the keyword sets; the first matching
// set wins.
var classifyOrder = []Type{
	TypeCoding,
	TypeWebDesign,
	TypeServerOps,
	TypeContainers,
	TypeDatabase,
	TypeAutomation,
	TypeSimple,
}

var typeKeywords = map[Type][]string{
	TypeCoding: {
		"code", "program", "function", "class", "debug",
		"python", "javascript", "golang", "java", "c++", "algorithm",
		"refactor", "compile",
	},
	TypeWebDesign: {
		"website", "web", "html", "css", "frontend", "backend",
		"ui", "ux", "design",
	},
	TypeServerOps: {
		"server", "deploy", "nginx", "apache", "linux", "ubuntu",
		"centos", "systemd", "ssh", "firewall",
	},
	TypeContainers: {
		"docker", "container", "dockerfile", "compose", "kubernetes", "k8s",
	},
	TypeDatabase: {
		"database", "sql", "postgres", "postgresql", "mysql", "sqlite",
		"mongodb", "query",
	},
	TypeAutomation: {
		"n8n", "workflow", "automation", "integration", "cron", "schedule",
	},
	TypeSimple: {
		"what is", "show", "list", "get", "check", "find",
	},
}

// Classify maps free-form user input to a task type. Input is lower-cased
// and matched against the keyword sets in priority order; empty or
// unrecognized input yields TypeGeneral.
func Classify(input string) Type {
	text := strings.ToLower(input)
	if strings.TrimSpace(text) == "" {
		return TypeGeneral
	}

	for _, t := range classifyOrder {
		for _, keyword := range typeKeywords[t] {
			if strings.Contains(text, keyword) {
				return t
			}
		}
	}
	return TypeGeneral
}

// Valid reports whether t is one of the known task types.
func (t Type) Valid() bool {
	switch t {
	case TypeCoding, TypeWebDesign, TypeServerOps, TypeContainers,
		TypeDatabase, TypeAutomation, TypeSimple, TypeGeneral:
		return true
	}
	return false
}

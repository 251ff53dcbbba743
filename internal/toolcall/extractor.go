// Package toolcall turns raw model output into validated tool calls. The
// extractor scans free text for structured invocation payloads; the
// normalizer maps each payload onto a registered tool specification.
package toolcall

import "encoding/json"

// Invocation is one raw tool call lifted out of model text. Exactly one of
// Positional and Keyword is set: Positional for list arguments, Keyword for
// mapping arguments. Invocations are transient; they live only for the
// current loop round.
type Invocation struct {
	ToolName   string
	Positional []any
	Keyword    map[string]any
}

// Extract scans text for balanced JSON object candidates and returns the
// invocations among them in order of appearance, which defines execution
// order for the round. Candidates that fail to decode, and decoded objects
// that match neither invocation shape, are discarded silently; a stray
// unmatched brace never corrupts sibling candidates. Unknown tool names are
// still yielded: validating names is the normalizer's job.
func Extract(text string) []Invocation {
	var invocations []Invocation
	for _, candidate := range candidates(text) {
		if inv, ok := parseCandidate(candidate); ok {
			invocations = append(invocations, inv)
		}
	}
	return invocations
}

// FinalAnswer reports a {"final_answer": <value>} payload in text. Models
// may use the marker to end a task explicitly; plain text without any tool
// call ends the task just the same, so absence of the marker is not an
// error. A non-string value is rendered through its JSON form.
func FinalAnswer(text string) (string, bool) {
	for _, candidate := range candidates(text) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			continue
		}
		value, present := obj["final_answer"]
		if !present {
			continue
		}
		if s, ok := value.(string); ok {
			return s, true
		}
		rendered, err := json.Marshal(value)
		if err != nil {
			continue
		}
		return string(rendered), true
	}
	return "", false
}

// candidates returns the balanced top-level JSON object slices of text in
// order of appearance.
//
// The scan tracks a `{`/`}` nesting depth: an opening brace at depth 0
// starts a candidate, and the candidate ends when depth returns to 0, so
// nested objects and lists inside an argument value stay intact. Braces
// inside JSON string literals (including escape sequences) do not move the
// counter; quotes in surrounding prose (depth 0) are ignored. An unmatched
// closer at depth 0 is skipped, and a trailing unclosed candidate is
// dropped, so the scan always terminates.
func candidates(text string) []string {
	var found []string

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				found = append(found, text[start:i+1])
				start = -1
			}
		}
	}

	return found
}

// parseCandidate decodes one balanced candidate payload and checks the two
// accepted invocation shapes. Shape A ("tool"/"args") is checked before
// Shape B ("action"/"action_input") so a payload somehow carrying both sets
// of keys resolves deterministically.
func parseCandidate(candidate string) (Invocation, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return Invocation{}, false
	}

	// Shape A: {"tool": <string>, "args": <value>}; a non-list value is
	// normalized to a single-element list.
	if name, ok := obj["tool"].(string); ok {
		if rawArgs, present := obj["args"]; present {
			if list, isList := rawArgs.([]any); isList {
				return Invocation{ToolName: name, Positional: ensureList(list)}, true
			}
			return Invocation{ToolName: name, Positional: []any{rawArgs}}, true
		}
	}

	// Shape B: {"action": <string>, "action_input": <value>}; a mapping
	// expands to keyword arguments, anything else passes through as a
	// single positional argument.
	if name, ok := obj["action"].(string); ok {
		if rawInput, present := obj["action_input"]; present {
			if kwargs, isMap := rawInput.(map[string]any); isMap {
				return Invocation{ToolName: name, Keyword: kwargs}, true
			}
			return Invocation{ToolName: name, Positional: []any{rawInput}}, true
		}
	}

	return Invocation{}, false
}

func ensureList(list []any) []any {
	if list == nil {
		return []any{}
	}
	return list
}

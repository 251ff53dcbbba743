package prompt

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokens returns the estimated token count of text for modelID and
// whether the estimate is approximate (no exact encoding for the model was
// available). Local model names rarely map to a tiktoken encoding, so the
// cl100k_base fallback is the common path; when even that is unavailable a
// rune heuristic keeps the estimate usable.
func EstimateTokens(modelID, text string) (int, bool) {
	encoder, approx := encodingForModel(modelID)
	return tokenCount(encoder, text), approx
}

func encodingForModel(modelID string) (*tiktoken.Tiktoken, bool) {
	encoder, err := tiktoken.EncodingForModel(modelID)
	if err == nil {
		return encoder, false
	}

	fallback, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, true
	}

	return fallback, true
}

func tokenCount(encoder *tiktoken.Tiktoken, text string) int {
	if text == "" {
		return 0
	}

	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}

	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}

	// Rough heuristic: 1 token ≈ 4 characters
	return (runes + 3) / 4
}

package generator

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// CountTokens returns the token count for text. The O200kBase encoding covers
// the models we target. When encoding fails the count is approximated as one
// token per four bytes.
func CountTokens(text string) int {
	enc, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		panic(fmt.Errorf("invalid encoder: %v", tokenizer.O200kBase))
	}

	count, err := enc.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// TruncateToTokens trims text from the end so its token count fits budget.
// A non-positive budget returns the empty string.
func TruncateToTokens(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if CountTokens(text) <= budget {
		return text
	}

	enc, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		panic(fmt.Errorf("invalid encoder: %v", tokenizer.O200kBase))
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		// Fall back to the byte approximation.
		limit := budget * 4
		if limit >= len(text) {
			return text
		}
		return text[:limit]
	}
	if len(ids) <= budget {
		return text
	}
	out, err := enc.Decode(ids[:budget])
	if err != nil {
		limit := budget * 4
		if limit >= len(text) {
			return text
		}
		return text[:limit]
	}
	return out
}

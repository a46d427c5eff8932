package memory

import (
	"context"
	"strings"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// highSalienceWords nudges the heuristic importance score upward; a crude
// stand-in for the LLM-based rater when no provider is configured (§4.G
// "falls back to a keyword-weighted heuristic when the LLM is
// unavailable").
var highSalienceWords = map[string]float64{
	"urgent":    2,
	"emergency": 2.5,
	"crisis":    2.5,
	"critical":  2,
	"deadline":  1.5,
	"failed":    1.5,
	"error":     1,
	"important": 1.5,
	"love":      1.5,
	"death":     2.5,
	"attack":    2,
	"won":       1,
	"lost":      1,
}

// rateImportance scores content on a 1..10 scale. When llm is non-nil it is
// asked to rate the content directly; any failure (including a nil
// provider) falls back to the keyword heuristic, per the failure policy in
// §4.G.
func rateImportance(ctx context.Context, llm core.LLMProvider, content string) float64 {
	if llm != nil {
		if v, ok := rateImportanceViaLLM(ctx, llm, content); ok {
			return v
		}
	}
	return rateImportanceHeuristic(content)
}

func rateImportanceHeuristic(content string) float64 {
	score := 3.0 // baseline: a mundane observation
	lower := strings.ToLower(content)
	for word, weight := range highSalienceWords {
		if strings.Contains(lower, word) {
			score += weight
		}
	}
	if score > 10 {
		score = 10
	}
	if score < 1 {
		score = 1
	}
	return score
}

func rateImportanceViaLLM(ctx context.Context, llm core.LLMProvider, content string) (float64, bool) {
	resp, err := llm.Complete(ctx, core.LLMRequest{
		Prompt: "On a scale of 1 to 10, how poignant/important is this event? Respond with only a number.\n\nEvent: " + content,
	})
	if err != nil {
		return 0, false
	}
	v, ok := parseLeadingNumber(resp.Content)
	if !ok {
		return 0, false
	}
	if v < 1 {
		v = 1
	}
	if v > 10 {
		v = 10
	}
	return v, true
}

func parseLeadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	var end int
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	var whole, frac float64
	var fracDiv float64 = 1
	seenDot := false
	neg := false
	for i, c := range s[:end] {
		switch {
		case c == '-' && i == 0:
			neg = true
		case c == '.':
			seenDot = true
		case c >= '0' && c <= '9':
			d := float64(c - '0')
			if seenDot {
				fracDiv *= 10
				frac += d / fracDiv
			} else {
				whole = whole*10 + d
			}
		default:
			return 0, false
		}
	}
	v := whole + frac
	if neg {
		v = -v
	}
	return v, true
}

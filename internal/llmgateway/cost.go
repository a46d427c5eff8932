package llmgateway

import "strings"

// pricePerMillion is USD per 1,000,000 tokens, {prompt, completion}.
var pricePerMillion = map[string][2]float64{
	"gpt-4o":           {2.50, 10.00},
	"gpt-4o-mini":      {0.15, 0.60},
	"gpt-4-turbo":      {10.00, 30.00},
	"gpt-3.5-turbo":    {0.50, 1.50},
	"claude-3-opus":    {15.00, 75.00},
	"claude-3-5-sonnet": {3.00, 15.00},
	"claude-3-haiku":   {0.25, 1.25},
}

const defaultPromptPricePerMillion = 1.0
const defaultCompletionPricePerMillion = 2.0

// estimateCost attributes a dollar cost to one call, matching on the
// longest known model-name prefix and falling back to a flat default rate
// for unrecognized or local models (e.g. a stub/offline provider).
func estimateCost(model string, promptTokens, completionTokens int) float64 {
	promptRate, completionRate := defaultPromptPricePerMillion, defaultCompletionPricePerMillion
	bestLen := -1
	for prefix, rates := range pricePerMillion {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			promptRate, completionRate = rates[0], rates[1]
			bestLen = len(prefix)
		}
	}
	return float64(promptTokens)/1_000_000*promptRate + float64(completionTokens)/1_000_000*completionRate
}

package llmgateway

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingCacheMu sync.Mutex
	encodingCache   = map[string]*tiktoken.Tiktoken{}
)

// countTokens estimates the token count of text for model, used only when
// a provider's Response omits prompt/completion counts (§4.A point 4: "the
// gateway itself still needs a count for cost attribution"). Falls back to
// cl100k_base when the model isn't recognized, and to a character-based
// estimate if tiktoken's vocabularies aren't available at all.
func countTokens(model, text string) int {
	enc := encodingFor(model)
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func encodingFor(model string) *tiktoken.Tiktoken {
	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()
	if enc, ok := encodingCache[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			encodingCache[model] = nil
			return nil
		}
	}
	encodingCache[model] = enc
	return enc
}

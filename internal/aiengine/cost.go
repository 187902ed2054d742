package aiengine

import "fmt"

// Pricing holds per-token USD rates for one model.
type Pricing struct {
	InputPerToken  float64
	OutputPerToken float64
}

// DefaultPricing lists the published rates of the supported models.
var DefaultPricing = map[string]Pricing{
	"claude-sonnet-4-20250514":  {InputPerToken: 3.0 / 1_000_000, OutputPerToken: 15.0 / 1_000_000},
	"claude-3-5-haiku-20241022": {InputPerToken: 1.0 / 1_000_000, OutputPerToken: 5.0 / 1_000_000},
}

// inputTokenShare is the assumed input fraction of a combined token count.
const inputTokenShare = 0.7

// ApportionTokens splits a combined token count 70/30 into input and
// output tokens. This is an intentional approximation used when a call
// only reports its total; it is not a source of truth for billing.
func ApportionTokens(total int) (inputTokens, outputTokens int) {
	inputTokens = int(float64(total) * inputTokenShare)
	outputTokens = int(float64(total) * (1 - inputTokenShare))
	return inputTokens, outputTokens
}

// CostUSD prices a call against the table. Unknown models are an error so
// silent zero-cost ledger rows cannot appear.
func CostUSD(pricing map[string]Pricing, model string, inputTokens, outputTokens float64) (float64, error) {
	p, ok := pricing[model]
	if !ok {
		return 0, fmt.Errorf("unknown model %q in pricing table", model)
	}
	return inputTokens*p.InputPerToken + outputTokens*p.OutputPerToken, nil
}

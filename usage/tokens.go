package usage

// DefaultTokenEstimate applies to tools without a specific estimate.
const DefaultTokenEstimate = 500

var tokenEstimates = map[string]int{
	"browser_navigate":    500,
	"browser_click":       200,
	"browser_type":        200,
	"browser_screenshot":  1000,
	"browser_snapshot":    2000,
	"message_send":        300,
	"message_list":        1500,
	"message_search":      1000,
	"l7_query":            800,
	"l7_insert":           200,
	"l7_update":           200,
	"l7_workflow_trigger": 400,
	"l7_doc_search":       600,
}

// EstimatedTokens returns the typical response size of tool in tokens.
func EstimatedTokens(tool string) int {
	if n, ok := tokenEstimates[tool]; ok {
		return n
	}
	return DefaultTokenEstimate
}

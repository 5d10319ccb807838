package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storewise/storewise/internal/schema"
)

// BuildPrompt renders the strict extraction prompt for a question. The
// prompt enumerates the registry's tables, metrics, and question types so
// the model cannot invent schema concepts, and pins the exact JSON shape
// the extractor expects.
func BuildPrompt(question string, registry *schema.Registry) string {
	template, _ := json.MarshalIndent(Intent{
		Tables:      []string{},
		Metrics:     []string{},
		Dimensions:  []string{},
		Filters:     map[string]FilterValue{},
		TimeRange:   &TimeRange{},
		Ambiguities: []string{},
	}, "", "  ")

	var b strings.Builder
	b.WriteString(`You are a STRICT analytics intent extraction engine.

Your task is to convert a business question into a VALID analytics intent JSON.

CRITICAL RULES (DO NOT VIOLATE):

1. If the question asks to compare entities
   (e.g. "which category", "top product", "highest revenue by region"),
   YOU MUST include that entity in the "dimensions" field.
   NEVER return an empty dimensions list for comparison or ranking questions.
2. Metrics are numeric values to aggregate (e.g. revenue, orders).
3. Dimensions are entities being grouped or compared (e.g. category, region, sku).
4. NEVER invent fields, columns, or metrics.
5. If required information is missing, list it in "ambiguities".
6. NEVER answer the business question.
7. Output ONLY valid JSON. No explanations. No markdown.

`)
	fmt.Fprintf(&b, "Available tables:\n%s\n\n", strings.Join(registry.TableNames(), ", "))
	fmt.Fprintf(&b, "Supported metrics:\n%s\n\n", strings.Join(registry.MetricNames(), ", "))
	fmt.Fprintf(&b, "Supported question types:\n%s\n\n", strings.Join(registry.QuestionTypes(), ", "))
	fmt.Fprintf(&b, "JSON STRUCTURE (must match exactly):\n\n%s\n\n", template)
	fmt.Fprintf(&b, "User question:\n\"\"\"%s\"\"\"\n", question)
	return b.String()
}

// Package insight turns validated query results into business prose via
// the external text-generation service. It never queries data and never
// alters numbers; the model output is consumed verbatim.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/storewise/storewise/internal/guardrail"
	"github.com/storewise/storewise/internal/intent"
	"github.com/storewise/storewise/internal/llm"
	"github.com/storewise/storewise/internal/schema"
	"github.com/storewise/storewise/internal/warehouse"
)

// sampleRows bounds how many result rows are shown to the model.
const sampleRows = 10

// Insight is the summarization stage's output.
type Insight struct {
	Text       string   `json:"insight"`
	RowCount   int      `json:"row_count"`
	Issues     []string `json:"issues"`
	Confidence float64  `json:"confidence"`
}

// Generator produces insights from validated results.
type Generator struct {
	registry *schema.Registry
	client   llm.Client
	logger   *slog.Logger
}

// NewGenerator creates a generator. A nil logger discards output.
func NewGenerator(registry *schema.Registry, client llm.Client, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{registry: registry, client: client, logger: logger}
}

// Generate builds the constrained summarization prompt and returns the
// model's prose wrapped with the traversal's metadata.
func (g *Generator) Generate(ctx context.Context, in *intent.Intent, res *warehouse.Result, verdict *guardrail.Verdict) (*Insight, error) {
	prompt := buildPrompt(in, res, verdict, g.registry.Rules().ExecutiveSummary)

	text, err := g.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}

	g.logger.Debug("insight generated", "chars", len(text))

	return &Insight{
		Text:       strings.TrimSpace(text),
		RowCount:   res.RowCount,
		Issues:     verdict.Issues,
		Confidence: in.Confidence,
	}, nil
}

func buildPrompt(in *intent.Intent, res *warehouse.Result, verdict *guardrail.Verdict, guidance []string) string {
	intentJSON, _ := json.MarshalIndent(in, "", "  ")
	verdictJSON, _ := json.MarshalIndent(verdict, "", "  ")
	sampleJSON, _ := json.MarshalIndent(sample(res), "", "  ")

	var b strings.Builder
	b.WriteString(`You are a senior retail business analyst.

Your task is to write concise, high-signal business insights based ONLY on the provided data.

Rules:
- Do NOT invent numbers.
- Do NOT assume causes without evidence.
- Do NOT mention SQL or databases.
- Highlight risks if validation issues exist.
- Use clear executive language.
- Prefer bullet points.

`)
	fmt.Fprintf(&b, "User intent:\n%s\n\n", intentJSON)
	fmt.Fprintf(&b, "Validation status:\n%s\n\n", verdictJSON)
	if len(guidance) > 0 {
		fmt.Fprintf(&b, "House style:\n- %s\n\n", strings.Join(guidance, "\n- "))
	}
	fmt.Fprintf(&b, "Sample result rows:\n%s\n\n", sampleJSON)
	b.WriteString("Write the final business insight.\n")
	return b.String()
}

// sample renders up to sampleRows rows as column-keyed records.
func sample(res *warehouse.Result) []map[string]any {
	n := len(res.Rows)
	if n > sampleRows {
		n = sampleRows
	}
	out := make([]map[string]any, 0, n)
	for _, row := range res.Rows[:n] {
		record := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			record[col] = row[i]
		}
		out = append(out, record)
	}
	return out
}

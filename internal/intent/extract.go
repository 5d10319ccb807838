package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/storewise/storewise/internal/llm"
	"github.com/storewise/storewise/internal/schema"
)

// Extract pulls the first-brace-to-last-brace substring out of raw model
// output and parses it as an intent. Model output frequently wraps the JSON
// object in prose or markdown fences; everything outside the braces is
// discarded.
func Extract(raw string) (*Intent, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &MalformedIntentError{Reason: "no JSON object found in response"}
	}

	var in Intent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &in); err != nil {
		return nil, &MalformedIntentError{Reason: "response is not valid JSON", Err: err}
	}
	return &in, nil
}

// Resolver turns a natural-language question into a structured intent via
// the external text-generation service.
type Resolver struct {
	registry *schema.Registry
	client   llm.Client
	logger   *slog.Logger
}

// NewResolver creates a resolver. A nil logger discards output.
func NewResolver(registry *schema.Registry, client llm.Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{registry: registry, client: client, logger: logger}
}

// Resolve extracts the intent for a question. A contract violation by the
// text-generation service is retried once before failing with
// MalformedIntentError.
func (r *Resolver) Resolve(ctx context.Context, question string) (*Intent, error) {
	prompt := BuildPrompt(question, r.registry)

	var in *Intent
	op := func() error {
		text, err := r.client.Generate(ctx, prompt)
		if err != nil {
			return backoff.Permanent(err)
		}
		in, err = Extract(text)
		if err != nil {
			r.logger.Warn("intent extraction failed, retrying once", "error", err)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	r.finalize(in, question)
	return in, nil
}

// finalize applies the post-parse safety checks: pins the original
// question, flags out-of-domain question types, and records ambiguities
// for anything the extraction left unresolved.
func (r *Resolver) finalize(in *Intent, question string) {
	in.Question = question

	if !r.registry.IsQuestionType(in.QuestionType) {
		in.Ambiguities = append(in.Ambiguities, "Question is outside the supported analytics domain")
		in.OutOfScope = true
	} else {
		in.OutOfScope = false
	}

	if in.QuestionType == "" {
		in.Ambiguities = append(in.Ambiguities, "Unable to detect question type")
	}
	if len(in.Metrics) == 0 {
		in.Ambiguities = append(in.Ambiguities, "No metric detected")
	}
	if (in.QuestionType == TypeComparison || in.QuestionType == TypeRanking) && len(in.Dimensions) == 0 {
		in.Ambiguities = append(in.Ambiguities, "Comparison question requires at least one dimension")
	}
	if len(in.Tables) == 0 {
		in.Ambiguities = append(in.Ambiguities, "No target table detected")
	}
}

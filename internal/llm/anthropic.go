package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// DefaultMaxTokens bounds response length for both extraction and
// summarization prompts.
const DefaultMaxTokens = 1024

// Anthropic implements Client using the Anthropic Messages API. The API
// key is read from the environment by the SDK (ANTHROPIC_API_KEY).
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropic creates an Anthropic-backed client. A nil logger discards
// output.
func NewAnthropic(model string, maxTokens int64, logger *slog.Logger) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Anthropic{
		client:    anthropic.NewClient(),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Generate sends the prompt as a single user message and returns the text
// blocks of the response concatenated.
func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}

	a.logger.Debug("text generation completed",
		"model", a.model,
		"duration", time.Since(start),
		"stop_reason", msg.StopReason)

	return b.String(), nil
}

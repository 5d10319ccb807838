// Package pipeline sequences the question-answering stages: intent →
// router → data → validation → insight. It owns all control flow,
// short-circuits on blocking conditions, and produces the uniform terminal
// outcome. Every other component is a pure function over its inputs plus
// the read-only schema registry.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storewise/storewise/internal/guardrail"
	"github.com/storewise/storewise/internal/insight"
	"github.com/storewise/storewise/internal/intent"
	"github.com/storewise/storewise/internal/llm"
	"github.com/storewise/storewise/internal/memory"
	"github.com/storewise/storewise/internal/query"
	"github.com/storewise/storewise/internal/router"
	"github.com/storewise/storewise/internal/schema"
	"github.com/storewise/storewise/internal/state"
	"github.com/storewise/storewise/internal/warehouse"
)

// Stage names the nodes of the traversal graph.
type Stage string

const (
	StageIntent     Stage = "intent"
	StageRouter     Stage = "router"
	StageData       Stage = "data"
	StageValidation Stage = "validation"
	StageInsight    Stage = "insight"
	StageDone       Stage = "done"
	StageBlocked    Stage = "blocked"
)

// Status is the terminal status of a traversal.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusBlocked   Status = "blocked"
)

// Block reasons surfaced on the outcome. Timeouts are distinguished from
// other failures.
const (
	ReasonOutOfScope = "question is outside the supported analytics domain"
	ReasonTimeout    = "request timed out"
)

const (
	defaultLLMTimeout   = 60 * time.Second
	defaultQueryTimeout = 30 * time.Second
)

// Outcome is the terminal result of one traversal. Callers branch on
// Status first: a blocked traversal carries either Error or Validation;
// a completed one carries Insight, Data, and Validation.
type Outcome struct {
	RunID      string             `json:"run_id"`
	Status     Status             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Validation *guardrail.Verdict `json:"validation,omitempty"`
	Data       *warehouse.Result  `json:"data,omitempty"`
	Insight    *insight.Insight   `json:"insight,omitempty"`
}

// Config wires the pipeline's collaborators.
type Config struct {
	Registry  *schema.Registry
	Memory    *memory.Memory
	Warehouse *warehouse.Warehouse
	Client    llm.Client

	// Audit is the optional traversal audit store.
	Audit *state.Store
	// Logger is the structured logger (optional).
	Logger *slog.Logger

	// LLMTimeout bounds each text-generation call.
	LLMTimeout time.Duration
	// QueryTimeout bounds warehouse execution.
	QueryTimeout time.Duration
}

// Pipeline executes question traversals. Traversals are independent except
// for the shared context memory, which serializes its own access.
type Pipeline struct {
	memory    *memory.Memory
	warehouse *warehouse.Warehouse
	resolver  *intent.Resolver
	router    *router.Router
	builder   *query.Builder
	results   *guardrail.ResultChecker
	insights  *insight.Generator
	audit     *state.Store
	logger    *slog.Logger

	llmTimeout   time.Duration
	queryTimeout time.Duration
}

// New assembles a pipeline from its collaborators.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	llmTimeout := cfg.LLMTimeout
	if llmTimeout <= 0 {
		llmTimeout = defaultLLMTimeout
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	mem := cfg.Memory
	if mem == nil {
		mem = memory.New(memory.DefaultMaxHistory)
	}

	return &Pipeline{
		memory:       mem,
		warehouse:    cfg.Warehouse,
		resolver:     intent.NewResolver(cfg.Registry, cfg.Client, logger),
		router:       router.New(cfg.Registry, logger),
		builder:      query.NewBuilder(cfg.Registry, logger),
		results:      guardrail.NewResultChecker(cfg.Registry),
		insights:     insight.NewGenerator(cfg.Registry, cfg.Client, logger),
		audit:        cfg.Audit,
		logger:       logger,
		llmTimeout:   llmTimeout,
		queryTimeout: queryTimeout,
	}
}

// Memory exposes the shared context memory (for session-boundary clears).
func (p *Pipeline) Memory() *memory.Memory {
	return p.memory
}

// Ask runs one full traversal for a question. It never returns a Go error:
// every fatal condition is captured on the terminal outcome.
func (p *Pipeline) Ask(ctx context.Context, question string) *Outcome {
	started := time.Now()
	runID := uuid.New().String()
	logger := p.logger.With("run_id", runID)

	outcome, executed := p.run(ctx, logger, question)
	outcome.RunID = runID

	logger.Info("traversal finished",
		"status", outcome.Status,
		"duration", time.Since(started))

	p.record(runID, question, started, outcome, executed)
	return outcome
}

// run returns the terminal outcome plus the executed result, if execution
// was reached, for audit recording. A blocking verdict withholds the result
// from the outcome; callers never receive data the verdict rejected.
func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, question string) (*Outcome, *warehouse.Result) {
	// Stage: intent. Out-of-scope intents terminate immediately and
	// bypass context memory entirely; they are never merged or stored.
	p.transition(logger, StageIntent)

	raw, err := p.resolveIntent(ctx, question)
	if err != nil {
		return p.blockedError(err), nil
	}
	if raw.OutOfScope {
		return &Outcome{Status: StatusBlocked, Error: ReasonOutOfScope}, nil
	}

	merged := p.memory.ResolveFollowup(raw)

	// Stage: router. Router failures propagate as blocking errors.
	p.transition(logger, StageRouter)
	routed, err := p.router.Route(merged)
	if err != nil {
		return p.blockedError(err), nil
	}

	// Stage: data. Query construction, the pre-execution guardrail, and
	// execution all block on failure with the error surfaced verbatim.
	p.transition(logger, StageData)
	plan, err := p.builder.Build(routed)
	if err != nil {
		return p.blockedError(err), nil
	}
	if err := guardrail.CheckQuery(plan); err != nil {
		return p.blockedError(err), nil
	}

	result, err := p.execute(ctx, plan)
	if err != nil {
		return p.blockedError(err), nil
	}

	// Stage: validation. A blocking verdict terminates the traversal and
	// withholds the rejected rows from the outcome; a passing or warning
	// verdict commits the accepted intent to memory. The commit happens
	// here and only here.
	p.transition(logger, StageValidation)
	verdict := p.results.Check(routed, result)
	if verdict.Blocked() {
		return &Outcome{Status: StatusBlocked, Validation: verdict}, result
	}
	p.memory.Store(merged)

	// Stage: insight.
	p.transition(logger, StageInsight)
	summary, err := p.summarize(ctx, merged, result, verdict)
	if err != nil {
		return p.blockedError(err), result
	}

	p.transition(logger, StageDone)
	return &Outcome{
		Status:     StatusCompleted,
		Insight:    summary,
		Data:       result,
		Validation: verdict,
	}, result
}

func (p *Pipeline) resolveIntent(ctx context.Context, question string) (*intent.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.llmTimeout)
	defer cancel()
	return p.resolver.Resolve(ctx, question)
}

func (p *Pipeline) execute(ctx context.Context, plan *query.Plan) (*warehouse.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	sqlText, args := plan.SQL()
	return p.warehouse.Query(ctx, sqlText, args...)
}

func (p *Pipeline) summarize(ctx context.Context, in *intent.Intent, result *warehouse.Result, verdict *guardrail.Verdict) (*insight.Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, p.llmTimeout)
	defer cancel()
	return p.insights.Generate(ctx, in, result, verdict)
}

// blockedError turns a stage failure into a blocked outcome, mapping
// deadline expiry to the distinct timeout reason.
func (p *Pipeline) blockedError(err error) *Outcome {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = ReasonTimeout
	}
	return &Outcome{Status: StatusBlocked, Error: msg}
}

func (p *Pipeline) transition(logger *slog.Logger, to Stage) {
	logger.Debug("stage transition", "stage", to)
}

// record writes the traversal to the audit store when one is configured.
// The executed result is passed separately so validation-blocked traversals
// are audited with their SQL and row count even though the outcome carries
// no data.
func (p *Pipeline) record(runID, question string, started time.Time, outcome *Outcome, executed *warehouse.Result) {
	if p.audit == nil {
		return
	}

	tr := &state.Traversal{
		ID:         runID,
		Question:   question,
		Status:     string(outcome.Status),
		Error:      outcome.Error,
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if outcome.Status == StatusBlocked {
		tr.BlockReason = outcome.Error
	}
	if executed != nil {
		tr.SQL = executed.SQL
		tr.RowCount = executed.RowCount
	}
	if outcome.Validation != nil {
		tr.VerdictStatus = string(outcome.Validation.Status)
	}

	if err := p.audit.Record(tr); err != nil {
		p.logger.Warn("failed to record traversal", "error", err)
	}
}

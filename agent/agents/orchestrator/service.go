package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	aggregatorx "github.com/chorusml/chorus/agent/agents/aggregator"
	contractx "github.com/chorusml/chorus/agent/contract"
	nodex "github.com/chorusml/chorus/agent/nodes"
)

var ErrInvalidInput = nodex.ErrInvalidInput

const (
	defaultRetrievalTimeout = 5 * time.Second
	defaultGenerateTimeout  = 60 * time.Second
	defaultSynthesisTimeout = 60 * time.Second
	defaultHistoryTimeout   = 10 * time.Second
)

// Config carries the per-stage timeouts. Zero values pick the defaults.
type Config struct {
	RetrievalTimeout time.Duration `envconfig:"RETRIEVAL_TIMEOUT" split_words:"true" default:"5s"`
	GenerateTimeout  time.Duration `envconfig:"GENERATE_TIMEOUT" split_words:"true" default:"60s"`
	SynthesisTimeout time.Duration `envconfig:"SYNTHESIS_TIMEOUT" split_words:"true" default:"60s"`
	HistoryTimeout   time.Duration `envconfig:"HISTORY_TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) withDefaults() Config {
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = defaultRetrievalTimeout
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = defaultGenerateTimeout
	}
	if c.SynthesisTimeout <= 0 {
		c.SynthesisTimeout = defaultSynthesisTimeout
	}
	if c.HistoryTimeout <= 0 {
		c.HistoryTimeout = defaultHistoryTimeout
	}
	return c
}

// ProcessRequest is the single inbound call of the orchestration core.
type ProcessRequest struct {
	UserID         string
	ConversationID string
	Text           string
}

// ProcessResult mirrors GraphOutput at the service boundary.
type ProcessResult struct {
	FinalOutput string
	Intent      string
	UnitsUsed   []contractx.UnitName
}

// Orchestrator owns one compiled pipeline and executes it once per request.
// Request state never outlives a single Process call and is never shared
// between calls.
type Orchestrator struct {
	registry   contractx.Registry
	aggregator *aggregatorx.Aggregator
	history    contractx.HistoryRecorder

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	cfg Config
	now func() time.Time
}

// New wires the pipeline. history may be nil when no persistence collaborator
// is configured.
func New(
	registry contractx.Registry,
	history contractx.HistoryRecorder,
	cfg Config,
) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("unit registry is required")
	}

	agg, err := aggregatorx.New(registry.Synthesizer())
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		registry:   registry,
		aggregator: agg,
		history:    history,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}

	graphRunner, err := o.compileProcessGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Process routes, executes, and aggregates one request.
func (o *Orchestrator) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Text:           req.Text,
	})
	if err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{
		FinalOutput: out.FinalOutput,
		Intent:      out.Intent,
		UnitsUsed:   out.UnitsUsed,
	}, nil
}

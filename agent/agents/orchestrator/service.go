package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/nodes"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
	"go.uber.org/atomic"
)

// Orchestrator runs one conversation through router and specialist. It holds
// no per-run state, so Run may be called concurrently.
type Orchestrator struct {
	models      nodex.Registry
	graphRunner compose.Runnable[*statex.Conversation, *statex.Conversation]

	runs     atomic.Int64
	failures atomic.Int64
	llmCalls atomic.Int64
	byRoute  map[contractx.Route]*atomic.Int64
	newRunID func() string
	now      func() time.Time

	publisher ResultPublisher
}

// ResultPublisher forwards completed runs to an external sink. Publish
// failures are logged and never fail the run.
type ResultPublisher interface {
	Publish(ctx context.Context, res contractx.Result) error
}

type Option func(*Orchestrator)

func WithPublisher(p ResultPublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// Stats is a snapshot of the run counters.
type Stats struct {
	Runs     int64                     `json:"runs"`
	Failures int64                     `json:"failures"`
	LLMCalls int64                     `json:"llm_calls"`
	ByRoute  map[contractx.Route]int64 `json:"by_route"`
}

func New(models nodex.Registry, opts ...Option) (*Orchestrator, error) {
	if models == nil {
		return nil, errors.New("model registry is required")
	}

	o := &Orchestrator{
		models:   models,
		byRoute:  make(map[contractx.Route]*atomic.Int64, len(contractx.Routes)),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, r := range contractx.Routes {
		o.byRoute[r] = atomic.NewInt64(0)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileRunGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Run executes the graph once. The returned conversation carries Route,
// Response and LLMCalls.
func (o *Orchestrator) Run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	if conv == nil {
		return nil, statex.ErrNilConversation
	}
	if conv.RunID == "" {
		conv.RunID = o.newRunID()
	}

	start := o.now()
	o.runs.Inc()
	out, err := o.graphRunner.Invoke(ctx, conv)
	o.llmCalls.Add(int64(conv.LLMCalls))
	if err != nil {
		o.failures.Inc()
		log.Error().
			Err(err).
			Str("run_id", conv.RunID).
			Int("llm_calls", conv.LLMCalls).
			Msg("orchestration failed")
		return nil, err
	}

	if c, ok := o.byRoute[out.Route]; ok {
		c.Inc()
	}
	log.Info().
		Str("run_id", out.RunID).
		Str("route", string(out.Route)).
		Int("llm_calls", out.LLMCalls).
		Dur("elapsed", o.now().Sub(start)).
		Msg("orchestration completed")

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, out.Result()); err != nil {
			log.Warn().Err(err).Str("run_id", out.RunID).Msg("publish run result failed")
		}
	}
	return out, nil
}

// HandleMessage builds a fresh conversation from prior turns plus the new
// user text and runs it.
func (o *Orchestrator) HandleMessage(ctx context.Context, history []*schema.Message, text string) (contractx.Result, error) {
	out, err := o.Run(ctx, statex.NewConversation(history, text))
	if err != nil {
		return contractx.Result{}, err
	}
	return out.Result(), nil
}

func (o *Orchestrator) Stats() Stats {
	s := Stats{
		Runs:     o.runs.Load(),
		Failures: o.failures.Load(),
		LLMCalls: o.llmCalls.Load(),
		ByRoute:  make(map[contractx.Route]int64, len(o.byRoute)),
	}
	for r, c := range o.byRoute {
		s.ByRoute[r] = c.Load()
	}
	return s
}

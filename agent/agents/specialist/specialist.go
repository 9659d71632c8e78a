package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
	toolx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/tool"
	"golang.org/x/sync/errgroup"
)

var errEmptyAnswer = errors.New("model returned an empty answer")

// Config tunes the specialist tool loop (prefix AGENT).
type Config struct {
	LastToolResultOnly bool `split_words:"true" default:"false"`
	MaxParallelTools   int  `split_words:"true" default:"4"`
}

type specialistImpl struct {
	domain       contractx.Domain
	systemPrompt string
	runner       compose.Runnable[[]*schema.Message, *schema.Message]
	tools        *toolx.Registry
	cfg          Config
	callTimeout  time.Duration
	callbacks    []einocb.Handler
}

// outcome is what one reasoning step produced.
type outcome interface {
	isOutcome()
}

type answerOutcome struct {
	text string
}

type toolRequestOutcome struct {
	message *schema.Message
	calls   []toolx.Invocation
}

func (answerOutcome) isOutcome()      {}
func (toolRequestOutcome) isOutcome() {}

type toolResult struct {
	call toolx.Invocation
	text string
}

func newSpecialist(
	ctx context.Context,
	domain contractx.Domain,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	tools *toolx.Registry,
	cfg Config,
	callTimeout time.Duration,
	callbacks []einocb.Handler,
) (*specialistImpl, error) {
	if tools == nil {
		return nil, fmt.Errorf("%w: tool registry is required for agent=%s", contractx.ErrValidation, domain.AgentType)
	}
	toolModel, err := chatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, domain.AgentType, err)
	}
	runner, err := compileChatGraph(ctx, toolModel, domain.Tag+".specialist_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile specialist graph: %v", contractx.ErrModelInvoke, err)
	}

	return &specialistImpl{
		domain:       domain,
		systemPrompt: systemPrompt,
		runner:       runner,
		tools:        tools,
		cfg:          cfg,
		callTimeout:  callTimeout,
		callbacks:    callbacks,
	}, nil
}

// Handle answers the latest user message with at most one tool round. Runtime
// failures become the response text and Handle returns nil.
func (s *specialistImpl) Handle(ctx context.Context, conv *statex.Conversation) error {
	if conv == nil {
		return statex.ErrNilConversation
	}
	text, err := conv.LatestUserMessage()
	if err != nil {
		return err
	}

	start := conv.LLMCalls
	answer, err := s.respond(ctx, conv, text)
	if err != nil {
		rtErr := &contractx.SpecialistRuntimeError{Domain: s.domain, Err: err}
		log.Warn().
			Err(err).
			Str("run_id", conv.RunID).
			Str("agent", string(s.domain.AgentType)).
			Msg("specialist failed, returning error response")
		answer = rtErr.Error()
	}

	if err := conv.SetResponse(answer); err != nil {
		return err
	}
	log.Info().
		Str("run_id", conv.RunID).
		Str("agent", string(s.domain.AgentType)).
		Int("llm_calls", conv.LLMCalls-start).
		Msg("specialist answered")
	return nil
}

func (s *specialistImpl) respond(ctx context.Context, conv *statex.Conversation, text string) (answer string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	msgs := []*schema.Message{
		schema.SystemMessage(s.systemPrompt),
		schema.UserMessage(text),
	}
	first, err := s.reason(ctx, conv, msgs)
	if err != nil {
		return "", err
	}

	switch o := first.(type) {
	case answerOutcome:
		return o.text, nil
	case toolRequestOutcome:
		results := s.runTools(ctx, o.calls)
		final, err := s.reason(ctx, conv, s.followUp(msgs, o, results))
		if err != nil {
			return "", err
		}
		switch f := final.(type) {
		case answerOutcome:
			return f.text, nil
		case toolRequestOutcome:
			if content := strings.TrimSpace(f.message.Content); content != "" {
				return content, nil
			}
			return "", fmt.Errorf("%w: follow-up requested more tools", errEmptyAnswer)
		}
	}
	return "", fmt.Errorf("%w: unexpected outcome %T", contractx.ErrSchemaViolation, first)
}

// reason performs one model call and tags its result.
func (s *specialistImpl) reason(ctx context.Context, conv *statex.Conversation, msgs []*schema.Message) (outcome, error) {
	callCtx, cancel := withCallTimeout(ctx, s.callTimeout)
	defer cancel()

	conv.CountLLMCall()
	msg, err := s.runner.Invoke(callCtx, msgs, invokeOptions(s.callbacks)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, errEmptyAnswer
	}

	if len(msg.ToolCalls) > 0 {
		calls := make([]toolx.Invocation, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, toolx.NewInvocation(tc))
		}
		return toolRequestOutcome{message: msg, calls: calls}, nil
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return nil, errEmptyAnswer
	}
	return answerOutcome{text: content}, nil
}

// runTools executes one round of calls concurrently; results keep request order.
func (s *specialistImpl) runTools(ctx context.Context, calls []toolx.Invocation) []toolResult {
	results := make([]toolResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.MaxParallelTools > 0 {
		g.SetLimit(s.cfg.MaxParallelTools)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = toolResult{call: call, text: s.tools.Execute(gctx, call)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// followUp extends the first-round messages with the tool exchange.
func (s *specialistImpl) followUp(msgs []*schema.Message, req toolRequestOutcome, results []toolResult) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs)+len(results)+2)
	out = append(out, msgs...)
	out = append(out, schema.AssistantMessage(req.message.Content, req.message.ToolCalls))
	for _, r := range results {
		out = append(out, schema.ToolMessage(r.text, r.call.ID))
	}
	out = append(out, schema.UserMessage("Tool results: "+renderToolResults(results, s.cfg.LastToolResultOnly)))
	return out
}

func renderToolResults(results []toolResult, lastOnly bool) string {
	if len(results) == 0 {
		return ""
	}
	if lastOnly || len(results) == 1 {
		return results[len(results)-1].text
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("[%s] %s", r.call.Name, r.text))
	}
	return strings.Join(parts, "\n\n")
}

package specialist

import (
	"context"
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
)

type routerImpl struct {
	runner      compose.Runnable[map[string]any, *schema.Message]
	parser      schema.MessageParser[contractx.RouteDecision]
	callTimeout time.Duration
	callbacks   []einocb.Handler
}

func newRouter(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	callTimeout time.Duration,
	callbacks []einocb.Handler,
) (*routerImpl, error) {
	runner, err := compileRouterGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile router graph: %v", contractx.ErrModelInvoke, err)
	}
	return &routerImpl{
		runner: runner,
		parser: schema.NewMessageJSONParser[contractx.RouteDecision](&schema.MessageJSONParseConfig{
			ParseFrom: schema.MessageParseFromContent,
		}),
		callTimeout: callTimeout,
		callbacks:   callbacks,
	}, nil
}

// Classify makes exactly one model call and writes the route. Any failure is a
// ClassificationError; there is no retry and no default route.
func (r *routerImpl) Classify(ctx context.Context, conv *statex.Conversation) error {
	if conv == nil {
		return statex.ErrNilConversation
	}
	text, err := conv.LatestUserMessage()
	if err != nil {
		return err
	}
	if conv.HasRoute() {
		return fmt.Errorf("%w: %s", statex.ErrRouteAlreadySet, conv.Route)
	}

	callCtx, cancel := withCallTimeout(ctx, r.callTimeout)
	defer cancel()

	conv.CountLLMCall()
	msg, err := r.runner.Invoke(callCtx, map[string]any{"input": text}, invokeOptions(r.callbacks)...)
	if err != nil {
		return &contractx.ClassificationError{
			Err: fmt.Errorf("%w: router invoke: %v", contractx.ErrModelInvoke, err),
		}
	}
	if msg == nil {
		return &contractx.ClassificationError{
			Err: fmt.Errorf("%w: empty router response", contractx.ErrSchemaViolation),
		}
	}

	raw := stripCodeFence(msg.Content)
	decision, err := r.parser.Parse(ctx, &schema.Message{Role: schema.Assistant, Content: raw})
	if err != nil {
		return &contractx.ClassificationError{
			Raw: raw,
			Err: fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err),
		}
	}
	route, err := contractx.ParseRoute(decision.Route)
	if err != nil {
		return &contractx.ClassificationError{Raw: raw, Err: err}
	}

	if err := conv.SetRoute(route); err != nil {
		return err
	}
	log.Info().
		Str("run_id", conv.RunID).
		Str("route", string(route)).
		Int("llm_calls", conv.LLMCalls).
		Msg("router decision")
	return nil
}

// stripCodeFence unwraps ```json ... ``` blocks some models emit around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

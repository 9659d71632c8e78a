package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
)

// Conversation is the record threaded through one orchestration run.
// - Messages is append-only; order defines the latest user message.
// - Route is written once by the router and read once by the dispatcher.
// - Response is written once by the specialist that terminates the run.
// - LLMCalls counts every model invocation and never decreases.
type Conversation struct {
	RunID    string            `json:"run_id,omitempty"`
	Messages []*schema.Message `json:"messages"`
	Route    contractx.Route   `json:"route,omitempty"`
	LLMCalls int               `json:"llm_calls"`
	Response string            `json:"response,omitempty"`
}

var (
	ErrNilConversation = errors.New("conversation is nil")
	ErrRouteAlreadySet = errors.New("route already set")
	ErrResponseSet     = errors.New("response already set")
)

// NewConversation copies prior history and appends the new user text, if any.
func NewConversation(history []*schema.Message, text string) *Conversation {
	msgs := make([]*schema.Message, 0, len(history)+1)
	for _, m := range history {
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		msgs = append(msgs, schema.UserMessage(trimmed))
	}
	return &Conversation{Messages: msgs}
}

/* ----------------------------- read helpers ----------------------------- */

// LatestUserMessage scans from the end for the most recent non-empty user turn.
func (c *Conversation) LatestUserMessage() (string, error) {
	if c == nil {
		return "", ErrNilConversation
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m == nil || m.Role != schema.User {
			continue
		}
		if content := strings.TrimSpace(m.Content); content != "" {
			return content, nil
		}
	}
	return "", contractx.ErrEmptyConversation
}

func (c *Conversation) HasRoute() bool {
	return c != nil && c.Route != ""
}

/* ----------------------------- write helpers ---------------------------- */

// CountLLMCall records one model invocation.
func (c *Conversation) CountLLMCall() {
	if c == nil {
		return
	}
	c.LLMCalls++
}

// SetRoute stores the router decision and appends the audit note.
func (c *Conversation) SetRoute(r contractx.Route) error {
	if c == nil {
		return ErrNilConversation
	}
	if !r.Valid() {
		return fmt.Errorf("%w: route=%q", contractx.ErrValidation, string(r))
	}
	if c.Route != "" {
		return fmt.Errorf("%w: %s", ErrRouteAlreadySet, c.Route)
	}
	c.Route = r
	c.Messages = append(c.Messages, schema.SystemMessage("Router decision: "+string(r)))
	return nil
}

// SetResponse stores the final answer and appends it as an assistant turn.
func (c *Conversation) SetResponse(text string) error {
	if c == nil {
		return ErrNilConversation
	}
	if c.Response != "" {
		return ErrResponseSet
	}
	c.Response = text
	c.Messages = append(c.Messages, schema.AssistantMessage(text, nil))
	return nil
}

// Result projects the terminal state for callers.
func (c *Conversation) Result() contractx.Result {
	if c == nil {
		return contractx.Result{}
	}
	return contractx.Result{
		RunID:    c.RunID,
		Route:    c.Route,
		Response: c.Response,
		LLMCalls: c.LLMCalls,
	}
}

package specialist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
	toolx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/tool"
	"github.com/tanpawarit/Chative-Helpdesk-Router/pkg/docstore"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	panicMsg  string
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, input)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func (f *fakeToolCallingModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func (f *fakeToolCallingModel) input(i int) []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[i]
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:   id,
		Type: "function",
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func testStore() *docstore.Store {
	return docstore.NewStore(
		docstore.Document{Domain: "it", Filename: "vpn.txt", Content: "Install the client and sign in with SSO."},
		docstore.Document{Domain: "finance", Filename: "payroll.txt", Content: "Payroll runs on the 25th."},
	)
}

func newTestSpecialist(t *testing.T, domain contractx.Domain, fake *fakeToolCallingModel, cfg Config) *specialistImpl {
	t.Helper()
	tools := toolx.BuildForDomain(domain, testStore(), nil)
	spec, err := newSpecialist(context.Background(), domain, fake, "specialist prompt", tools, cfg, 0, nil)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}
	return spec
}

/* -------------------------------- router -------------------------------- */

// routeFor stands in for the router model's keyword judgement.
func routeFor(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range []string{"payroll", "reimburse", "expense", "invoice", "budget", "payment"} {
		if strings.Contains(lower, kw) {
			return `{"route":"Finance"}`
		}
	}
	return `{"route":"IT"}`
}

func TestRouterClassifiesByKeyword(t *testing.T) {
	t.Parallel()

	cases := map[string]contractx.Route{
		"How do I set up VPN access?":            contractx.RouteIT,
		"My laptop will not boot":                contractx.RouteIT,
		"When is payroll processed this month?":  contractx.RouteFinance,
		"How do I file an expense reimbursement": contractx.RouteFinance,
	}
	for text, want := range cases {
		fake := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage(routeFor(text), nil)}}

		router, err := newRouter(context.Background(), fake, "router prompt", 0, nil)
		if err != nil {
			t.Fatalf("newRouter() error = %v", err)
		}
		conv := statex.NewConversation(nil, text)
		if err := router.Classify(context.Background(), conv); err != nil {
			t.Fatalf("Classify(%q) error = %v", text, err)
		}
		if conv.Route != want {
			t.Fatalf("Classify(%q) route = %s, want %s", text, conv.Route, want)
		}
		if conv.LLMCalls != 1 {
			t.Fatalf("LLMCalls = %d, want 1", conv.LLMCalls)
		}
		last := conv.Messages[len(conv.Messages)-1]
		if last.Role != schema.System || last.Content != "Router decision: "+string(want) {
			t.Fatalf("missing audit note, got %#v", last)
		}
		in := fake.input(0)
		if in[len(in)-1].Content != text {
			t.Fatalf("router saw %q, want %q", in[len(in)-1].Content, text)
		}
	}
}

func TestRouterAcceptsFencedJSON(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		schema.AssistantMessage("```json\n{\"route\": \"finance\"}\n```", nil),
	}}
	router, err := newRouter(context.Background(), fake, "router prompt", 0, nil)
	if err != nil {
		t.Fatalf("newRouter() error = %v", err)
	}
	conv := statex.NewConversation(nil, "invoice question")
	if err := router.Classify(context.Background(), conv); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if conv.Route != contractx.RouteFinance {
		t.Fatalf("route = %s, want Finance", conv.Route)
	}
}

func TestRouterFailuresAreClassificationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		fake    *fakeToolCallingModel
		wantErr error
	}{
		{
			name:    "out of enum",
			fake:    &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage(`{"route":"HR"}`, nil)}},
			wantErr: contractx.ErrSchemaViolation,
		},
		{
			name:    "not json",
			fake:    &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("IT, probably", nil)}},
			wantErr: contractx.ErrSchemaViolation,
		},
		{
			name:    "backend error",
			fake:    &fakeToolCallingModel{err: errors.New("503 from upstream")},
			wantErr: contractx.ErrModelInvoke,
		},
	}

	for _, tc := range cases {
		router, err := newRouter(context.Background(), tc.fake, "router prompt", 0, nil)
		if err != nil {
			t.Fatalf("%s: newRouter() error = %v", tc.name, err)
		}
		conv := statex.NewConversation(nil, "something ambiguous")
		err = router.Classify(context.Background(), conv)

		var classErr *contractx.ClassificationError
		if !errors.As(err, &classErr) {
			t.Fatalf("%s: error = %v, want ClassificationError", tc.name, err)
		}
		if !errors.Is(err, contractx.ErrClassification) || !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.wantErr)
		}
		if conv.HasRoute() {
			t.Fatalf("%s: route must stay empty, got %s", tc.name, conv.Route)
		}
		if conv.LLMCalls != 1 {
			t.Fatalf("%s: LLMCalls = %d, want 1", tc.name, conv.LLMCalls)
		}
	}
}

func TestRouterEmptyConversation(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{}
	router, err := newRouter(context.Background(), fake, "router prompt", 0, nil)
	if err != nil {
		t.Fatalf("newRouter() error = %v", err)
	}
	conv := statex.NewConversation([]*schema.Message{schema.AssistantMessage("hello", nil)}, "")
	if err := router.Classify(context.Background(), conv); !errors.Is(err, contractx.ErrEmptyConversation) {
		t.Fatalf("Classify() error = %v, want ErrEmptyConversation", err)
	}
	if fake.calls() != 0 || conv.LLMCalls != 0 {
		t.Fatal("no model call expected")
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`{"route":"IT"}`:                     `{"route":"IT"}`,
		"```json\n{\"route\":\"IT\"}\n```": `{"route":"IT"}`,
		"```{\"route\":\"IT\"}```":           `{"route":"IT"}`,
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

/* ------------------------------ specialist ------------------------------ */

func TestSpecialistDirectAnswer(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		schema.AssistantMessage("Restart the laptop and try again.", nil),
	}}
	spec := newTestSpecialist(t, contractx.DomainIT, fake, Config{})

	conv := statex.NewConversation(nil, "My laptop froze")
	if err := spec.Handle(context.Background(), conv); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if conv.Response != "Restart the laptop and try again." {
		t.Fatalf("Response = %q", conv.Response)
	}
	if conv.LLMCalls != 1 {
		t.Fatalf("LLMCalls = %d, want 1", conv.LLMCalls)
	}
	in := fake.input(0)
	if len(in) != 2 || in[0].Role != schema.System || in[1].Content != "My laptop froze" {
		t.Fatalf("unexpected first-round input: %#v", in)
	}
}

func TestSpecialistToolRoundForcesOwnDomain(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call_1", toolx.ToolReadDocument, `{"domain":"finance","filename":"vpn.txt"}`),
		}),
		schema.AssistantMessage("Install the client, then sign in with SSO.", nil),
	}}
	spec := newTestSpecialist(t, contractx.DomainIT, fake, Config{})

	conv := statex.NewConversation(nil, "How do I set up VPN access?")
	if err := spec.Handle(context.Background(), conv); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if conv.LLMCalls != 2 {
		t.Fatalf("LLMCalls = %d, want 2", conv.LLMCalls)
	}
	if conv.Response != "Install the client, then sign in with SSO." {
		t.Fatalf("Response = %q", conv.Response)
	}

	followUp := fake.input(1)
	if len(followUp) != 5 {
		t.Fatalf("follow-up len = %d, want 5", len(followUp))
	}
	if followUp[2].Role != schema.Assistant || len(followUp[2].ToolCalls) != 1 {
		t.Fatalf("expected tool-requesting assistant message, got %#v", followUp[2])
	}
	toolMsg := followUp[3]
	if toolMsg.Role != schema.Tool || toolMsg.ToolCallID != "call_1" {
		t.Fatalf("unexpected tool message: %#v", toolMsg)
	}
	if toolMsg.Content != "Install the client and sign in with SSO." {
		t.Fatalf("domain was not forced to it, tool result = %q", toolMsg.Content)
	}
	if followUp[4].Content != "Tool results: Install the client and sign in with SSO." {
		t.Fatalf("unexpected synthetic user turn: %q", followUp[4].Content)
	}
}

func TestSpecialistCannotReadOtherDomain(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call_1", toolx.ToolReadDocument, `{"domain":"finance","filename":"payroll.txt"}`),
		}),
		schema.AssistantMessage("I could not find that document.", nil),
	}}
	spec := newTestSpecialist(t, contractx.DomainIT, fake, Config{})

	conv := statex.NewConversation(nil, "read the payroll doc")
	if err := spec.Handle(context.Background(), conv); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := fake.input(1)[3].Content; got != toolx.FileNotFound {
		t.Fatalf("tool result = %q, want %q", got, toolx.FileNotFound)
	}
}

func TestSpecialistAccumulatesToolResults(t *testing.T) {
	t.Parallel()

	newFake := func() *fakeToolCallingModel {
		return &fakeToolCallingModel{responses: []*schema.Message{
			schema.AssistantMessage("", []schema.ToolCall{
				toolCall("call_1", toolx.ToolReadDocument, `{"filename":"payroll.txt"}`),
				toolCall("call_2", toolx.ToolWebSearch, `{"query":"payroll tax"}`),
				toolCall("call_3", "calculator", `{}`),
			}),
			schema.AssistantMessage("Payroll runs on the 25th.", nil),
		}}
	}

	fake := newFake()
	spec := newTestSpecialist(t, contractx.DomainFinance, fake, Config{MaxParallelTools: 2})
	conv := statex.NewConversation(nil, "When is payroll?")
	if err := spec.Handle(context.Background(), conv); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	followUp := fake.input(1)
	if len(followUp) != 7 {
		t.Fatalf("follow-up len = %d, want 7", len(followUp))
	}
	wantTools := []string{
		"Payroll runs on the 25th.",
		"[WebSearch] Public info for: payroll tax",
		"Unknown tool: calculator",
	}
	for i, want := range wantTools {
		if got := followUp[3+i].Content; got != want {
			t.Fatalf("tool message %d = %q, want %q", i, got, want)
		}
	}
	summary := followUp[6].Content
	for _, want := range []string{"[read_document] Payroll runs", "[web_search] [WebSearch]", "[calculator] Unknown tool"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary %q missing %q", summary, want)
		}
	}

	last := newFake()
	spec = newTestSpecialist(t, contractx.DomainFinance, last, Config{LastToolResultOnly: true})
	if err := spec.Handle(context.Background(), statex.NewConversation(nil, "When is payroll?")); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := last.input(1)[6].Content; got != "Tool results: Unknown tool: calculator" {
		t.Fatalf("last-only summary = %q", got)
	}
}

func TestSpecialistContainsFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		domain    contractx.Domain
		fake      *fakeToolCallingModel
		wantCalls int
		wantText  string
	}{
		{
			name:      "model error",
			domain:    contractx.DomainIT,
			fake:      &fakeToolCallingModel{err: errors.New("connection reset")},
			wantCalls: 1,
			wantText:  "connection reset",
		},
		{
			name:      "empty answer",
			domain:    contractx.DomainFinance,
			fake:      &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("  ", nil)}},
			wantCalls: 1,
			wantText:  errEmptyAnswer.Error(),
		},
		{
			name:   "follow-up error",
			domain: contractx.DomainIT,
			fake: &fakeToolCallingModel{responses: []*schema.Message{
				schema.AssistantMessage("", []schema.ToolCall{toolCall("c", toolx.ToolWebSearch, `{"query":"x"}`)}),
			}},
			wantCalls: 2,
			wantText:  "no fake response left",
		},
		{
			name:      "panic",
			domain:    contractx.DomainFinance,
			fake:      &fakeToolCallingModel{panicMsg: "boom"},
			wantCalls: 1,
			wantText:  "boom",
		},
	}

	for _, tc := range cases {
		spec := newTestSpecialist(t, tc.domain, tc.fake, Config{})
		conv := statex.NewConversation(nil, "help")
		if err := spec.Handle(context.Background(), conv); err != nil {
			t.Fatalf("%s: Handle() error = %v, want contained", tc.name, err)
		}
		prefix := tc.domain.DisplayName + " Agent error: "
		if !strings.HasPrefix(conv.Response, prefix) || !strings.Contains(conv.Response, tc.wantText) {
			t.Fatalf("%s: Response = %q, want prefix %q containing %q", tc.name, conv.Response, prefix, tc.wantText)
		}
		if conv.LLMCalls != tc.wantCalls {
			t.Fatalf("%s: LLMCalls = %d, want %d", tc.name, conv.LLMCalls, tc.wantCalls)
		}
		last := conv.Messages[len(conv.Messages)-1]
		if last.Role != schema.Assistant || last.Content != conv.Response {
			t.Fatalf("%s: response not appended as assistant message", tc.name)
		}
	}
}

func TestSpecialistEmptyConversationIsNotContained(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{}
	spec := newTestSpecialist(t, contractx.DomainIT, fake, Config{})
	conv := statex.NewConversation(nil, "")
	if err := spec.Handle(context.Background(), conv); !errors.Is(err, contractx.ErrEmptyConversation) {
		t.Fatalf("Handle() error = %v, want ErrEmptyConversation", err)
	}
	if fake.calls() != 0 || conv.Response != "" {
		t.Fatal("no model call and no response expected")
	}
}

func TestNewRegistryFromModels(t *testing.T) {
	t.Parallel()

	it := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("it answer", nil)}}
	reg, err := NewRegistryFromModels(context.Background(), Models{
		Router:  &fakeToolCallingModel{},
		IT:      it,
		Finance: &fakeToolCallingModel{},
	}, Deps{Docs: testStore()})
	if err != nil {
		t.Fatalf("NewRegistryFromModels() error = %v", err)
	}
	if reg.Router() == nil || reg.IT() == nil || reg.Finance() == nil {
		t.Fatal("registry must expose every agent")
	}

	conv := statex.NewConversation(nil, "vpn?")
	if err := reg.IT().Handle(context.Background(), conv); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	system := it.input(0)[0].Content
	if !strings.Contains(system, "Available documents: vpn.txt") {
		t.Fatalf("system prompt missing document listing: %q", system)
	}

	if _, err := NewRegistryFromModels(context.Background(), Models{}, Deps{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing models error = %v, want ErrValidation", err)
	}
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	specialistx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/agents/specialist"
	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
	toolx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/tool"
	"github.com/tanpawarit/Chative-Helpdesk-Router/pkg/docstore"
)

// scriptedModel answers from the conversation it is handed, so it can be
// shared by concurrent runs.
type scriptedModel struct {
	mu      sync.Mutex
	respond func(input []*schema.Message) (*schema.Message, error)
	calls   int
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.respond(input)
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func lastContent(input []*schema.Message) string {
	if len(input) == 0 {
		return ""
	}
	return input[len(input)-1].Content
}

func keywordRouter() *scriptedModel {
	return &scriptedModel{respond: func(input []*schema.Message) (*schema.Message, error) {
		text := strings.ToLower(lastContent(input))
		for _, kw := range []string{"payroll", "reimburse", "expense", "invoice", "budget", "payment"} {
			if strings.Contains(text, kw) {
				return schema.AssistantMessage(`{"route":"Finance"}`, nil), nil
			}
		}
		return schema.AssistantMessage(`{"route":"IT"}`, nil), nil
	}}
}

// documentSpecialist reads one document on the first round and echoes the
// tool results on the second.
func documentSpecialist(domain, filename string) *scriptedModel {
	return &scriptedModel{respond: func(input []*schema.Message) (*schema.Message, error) {
		last := lastContent(input)
		if strings.HasPrefix(last, "Tool results: ") {
			return schema.AssistantMessage("Per policy: "+strings.TrimPrefix(last, "Tool results: "), nil), nil
		}
		args := fmt.Sprintf(`{"domain":%q,"filename":%q}`, domain, filename)
		return schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_doc",
			Type:     "function",
			Function: schema.FunctionCall{Name: toolx.ToolReadDocument, Arguments: args},
		}}), nil
	}}
}

func directSpecialist(answer string) *scriptedModel {
	return &scriptedModel{respond: func(input []*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(answer, nil), nil
	}}
}

type harness struct {
	router  *scriptedModel
	it      *scriptedModel
	finance *scriptedModel
	orch    *Orchestrator
}

func newHarness(t *testing.T, router, it, finance *scriptedModel, opts ...Option) *harness {
	t.Helper()

	store := docstore.NewStore(
		docstore.Document{Domain: "it", Filename: "vpn_setup.txt", Content: "Install GlobalProtect and sign in with SSO."},
		docstore.Document{Domain: "finance", Filename: "reimbursement.txt", Content: "Submit receipts within 30 days."},
	)
	models, err := specialistx.NewRegistryFromModels(context.Background(), specialistx.Models{
		Router:  router,
		IT:      it,
		Finance: finance,
	}, specialistx.Deps{Docs: store})
	if err != nil {
		t.Fatalf("NewRegistryFromModels() error = %v", err)
	}
	orch, err := New(models, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &harness{router: router, it: it, finance: finance, orch: orch}
}

func TestHandleMessageScenarios(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		text         string
		it           *scriptedModel
		finance      *scriptedModel
		wantRoute    contractx.Route
		wantResponse string
		wantCalls    int
	}{
		{
			name:         "vpn question reads it document",
			text:         "How do I set up VPN access?",
			it:           documentSpecialist("finance", "vpn_setup.txt"),
			finance:      directSpecialist("unused"),
			wantRoute:    contractx.RouteIT,
			wantResponse: "Per policy: Install GlobalProtect and sign in with SSO.",
			wantCalls:    3,
		},
		{
			name:         "payroll question answered directly",
			text:         "When is payroll processed?",
			it:           directSpecialist("unused"),
			finance:      directSpecialist("Payroll is processed on the 25th."),
			wantRoute:    contractx.RouteFinance,
			wantResponse: "Payroll is processed on the 25th.",
			wantCalls:    2,
		},
		{
			name:         "reimbursement question reads finance document",
			text:         "How do I get an expense reimbursed?",
			it:           directSpecialist("unused"),
			finance:      documentSpecialist("it", "reimbursement.txt"),
			wantRoute:    contractx.RouteFinance,
			wantResponse: "Per policy: Submit receipts within 30 days.",
			wantCalls:    3,
		},
	}

	for _, tc := range cases {
		h := newHarness(t, keywordRouter(), tc.it, tc.finance)
		res, err := h.orch.HandleMessage(context.Background(), nil, tc.text)
		if err != nil {
			t.Fatalf("%s: HandleMessage() error = %v", tc.name, err)
		}
		if res.Route != tc.wantRoute {
			t.Fatalf("%s: Route = %s, want %s", tc.name, res.Route, tc.wantRoute)
		}
		if res.Response != tc.wantResponse {
			t.Fatalf("%s: Response = %q, want %q", tc.name, res.Response, tc.wantResponse)
		}
		if res.LLMCalls != tc.wantCalls {
			t.Fatalf("%s: LLMCalls = %d, want %d", tc.name, res.LLMCalls, tc.wantCalls)
		}
		if res.RunID == "" {
			t.Fatalf("%s: RunID must be set", tc.name)
		}

		var idle *scriptedModel
		if tc.wantRoute == contractx.RouteIT {
			idle = h.finance
		} else {
			idle = h.it
		}
		if idle.callCount() != 0 {
			t.Fatalf("%s: the other specialist must not run", tc.name)
		}
	}
}

func TestRunKeepsHistoryAndAppendsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, keywordRouter(), directSpecialist("Use the self-service portal."), directSpecialist("unused"))
	history := []*schema.Message{
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello, how can I help?", nil),
	}
	conv := statex.NewConversation(history, "I need software access")

	out, err := h.orch.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// history(2) + user + router note + answer
	if len(out.Messages) != 5 {
		t.Fatalf("len(Messages) = %d, want 5", len(out.Messages))
	}
	if out.Messages[3].Content != "Router decision: IT" {
		t.Fatalf("unexpected audit note: %q", out.Messages[3].Content)
	}
	if out.Messages[4].Role != schema.Assistant || out.Messages[4].Content != out.Response {
		t.Fatalf("unexpected final message: %#v", out.Messages[4])
	}
}

func TestRunEmptyConversationMakesNoModelCall(t *testing.T) {
	t.Parallel()

	h := newHarness(t, keywordRouter(), directSpecialist("x"), directSpecialist("y"))
	history := []*schema.Message{schema.AssistantMessage("anything else?", nil)}

	_, err := h.orch.HandleMessage(context.Background(), history, "   ")
	if !errors.Is(err, contractx.ErrEmptyConversation) {
		t.Fatalf("HandleMessage() error = %v, want ErrEmptyConversation", err)
	}
	if h.router.callCount()+h.it.callCount()+h.finance.callCount() != 0 {
		t.Fatal("no model may be called for an empty conversation")
	}
	if s := h.orch.Stats(); s.Runs != 1 || s.Failures != 1 {
		t.Fatalf("Stats() = %+v, want 1 run and 1 failure", s)
	}
}

func TestRunPropagatesClassificationError(t *testing.T) {
	t.Parallel()

	router := &scriptedModel{respond: func([]*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(`{"route":"HR"}`, nil), nil
	}}
	h := newHarness(t, router, directSpecialist("x"), directSpecialist("y"))

	conv := statex.NewConversation(nil, "Who approves vacation?")
	_, err := h.orch.Run(context.Background(), conv)

	var classErr *contractx.ClassificationError
	if !errors.As(err, &classErr) {
		t.Fatalf("Run() error = %v, want ClassificationError", err)
	}
	if conv.Response != "" || conv.HasRoute() {
		t.Fatal("failed classification must not produce a route or response")
	}
	if conv.LLMCalls != 1 {
		t.Fatalf("LLMCalls = %d, want 1", conv.LLMCalls)
	}
	if h.it.callCount()+h.finance.callCount() != 0 {
		t.Fatal("no specialist may run after a classification failure")
	}
}

func TestRunContainsSpecialistFailure(t *testing.T) {
	t.Parallel()

	broken := &scriptedModel{respond: func([]*schema.Message) (*schema.Message, error) {
		return nil, errors.New("rate limited")
	}}
	h := newHarness(t, keywordRouter(), directSpecialist("x"), broken)

	res, err := h.orch.HandleMessage(context.Background(), nil, "Where do I send an invoice?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v, want contained failure", err)
	}
	if !strings.HasPrefix(res.Response, "Finance Agent error: ") || !strings.Contains(res.Response, "rate limited") {
		t.Fatalf("Response = %q", res.Response)
	}
	if res.LLMCalls != 2 {
		t.Fatalf("LLMCalls = %d, want 2", res.LLMCalls)
	}
}

func TestConcurrentRunsAreIndependent(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		keywordRouter(),
		directSpecialist("IT says hi"),
		directSpecialist("Finance says hi"),
	)

	const n = 16
	results := make([]contractx.Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text := "my laptop is slow"
			if i%2 == 1 {
				text = "budget approval"
			}
			results[i], errs[i] = h.orch.HandleMessage(context.Background(), nil, text)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("run %d error = %v", i, errs[i])
		}
		want := contractx.RouteIT
		if i%2 == 1 {
			want = contractx.RouteFinance
		}
		if results[i].Route != want || results[i].LLMCalls != 2 {
			t.Fatalf("run %d = %+v, want route %s with 2 calls", i, results[i], want)
		}
		if seen[results[i].RunID] {
			t.Fatalf("duplicate run id %s", results[i].RunID)
		}
		seen[results[i].RunID] = true
	}

	s := h.orch.Stats()
	if s.Runs != n || s.Failures != 0 || s.LLMCalls != 2*n {
		t.Fatalf("Stats() = %+v", s)
	}
	if s.ByRoute[contractx.RouteIT] != n/2 || s.ByRoute[contractx.RouteFinance] != n/2 {
		t.Fatalf("ByRoute = %v", s.ByRoute)
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []contractx.Result
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, res contractx.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, res)
	return p.err
}

func TestRunPublishesResult(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{err: errors.New("sink unavailable")}
	h := newHarness(t, keywordRouter(), directSpecialist("Reset it from the portal."), directSpecialist("unused"), WithPublisher(pub))

	res, err := h.orch.HandleMessage(context.Background(), nil, "I forgot my password")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v, publish failure must not fail the run", err)
	}
	if len(pub.results) != 1 || pub.results[0] != res {
		t.Fatalf("published %+v, want [%+v]", pub.results, res)
	}

	_, _ = h.orch.HandleMessage(context.Background(), nil, "")
	if len(pub.results) != 1 {
		t.Fatal("failed runs must not be published")
	}
}

package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
)

func TestLoadPromptSetNonEmpty(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	for _, agent := range []contractx.AgentType{contractx.AgentTypeRouter, contractx.AgentTypeIT, contractx.AgentTypeFinance} {
		raw, err := set.ForAgent(agent)
		if err != nil {
			t.Fatalf("ForAgent(%s) error = %v", agent, err)
		}
		if raw == "" {
			t.Fatalf("ForAgent(%s) returned empty prompt", agent)
		}
	}
	if !strings.Contains(set.Router, "payroll") && !strings.Contains(set.Router, "Payroll") {
		t.Fatal("router prompt should list finance keywords")
	}
}

func TestForAgentUnknown(t *testing.T) {
	t.Parallel()

	_, err := LoadPromptSet().ForAgent("hr")
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("ForAgent(hr) error = %v, want ErrPromptMissing", err)
	}
}

func TestRenderSpecialist(t *testing.T) {
	t.Parallel()

	raw := LoadPromptSet().IT
	with := RenderSpecialist(raw, []string{"vpn.md", "laptops.pdf"})
	if !strings.Contains(with, "Available documents: vpn.md, laptops.pdf") {
		t.Fatalf("rendered prompt missing document hint: %q", with)
	}

	without := RenderSpecialist(raw, nil)
	if strings.Contains(without, documentsPlaceholder) {
		t.Fatal("placeholder should be removed")
	}
	if strings.Contains(without, "Available documents") {
		t.Fatal("no hint expected without documents")
	}
}

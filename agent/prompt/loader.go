package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/it.txt
	itRaw string

	//go:embed template/finance.txt
	financeRaw string
)

const documentsPlaceholder = "{documents}"

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router  string
	IT      string
	Finance string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:  strings.TrimSpace(routerRaw),
		IT:      strings.TrimSpace(itRaw),
		Finance: strings.TrimSpace(financeRaw),
	}
}

// ForAgent returns the raw prompt bound to an agent type.
func (p PromptSet) ForAgent(agentType contractx.AgentType) (string, error) {
	var raw string
	switch agentType {
	case contractx.AgentTypeRouter:
		raw = p.Router
	case contractx.AgentTypeIT:
		raw = p.IT
	case contractx.AgentTypeFinance:
		raw = p.Finance
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}
	return raw, nil
}

// RenderSpecialist fills the document hint of a specialist prompt.
// An empty listing removes the placeholder line.
func RenderSpecialist(raw string, filenames []string) string {
	hint := ""
	if len(filenames) > 0 {
		hint = "Available documents: " + strings.Join(filenames, ", ")
	}
	out := strings.ReplaceAll(raw, documentsPlaceholder, hint)
	if hint == "" {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}

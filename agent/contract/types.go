package contract

import (
	"fmt"
	"strings"
)

type AgentType string

const (
	AgentTypeRouter  AgentType = "router"
	AgentTypeIT      AgentType = "it"
	AgentTypeFinance AgentType = "finance"
)

// Route is the closed set of specialist domains a message can be sent to.
type Route string

const (
	RouteIT      Route = "IT"
	RouteFinance Route = "Finance"
)

// Routes lists every legal route in dispatch order.
var Routes = []Route{RouteIT, RouteFinance}

func (r Route) Valid() bool {
	switch r {
	case RouteIT, RouteFinance:
		return true
	default:
		return false
	}
}

func (r Route) String() string {
	return string(r)
}

// ParseRoute accepts the exact enum value, ignoring surrounding space and case.
func ParseRoute(raw string) (Route, error) {
	trimmed := strings.TrimSpace(raw)
	for _, r := range Routes {
		if strings.EqualFold(trimmed, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: route=%q is not one of %v", ErrSchemaViolation, raw, Routes)
}

// RouteDecision is the structured output of the router model call.
type RouteDecision struct {
	Route string `json:"route"`
}

// Domain describes one specialist: its route, the document folder it is
// bound to, and how it presents itself to users.
type Domain struct {
	Route       Route
	AgentType   AgentType
	Tag         string
	DisplayName string
}

var (
	DomainIT = Domain{
		Route:       RouteIT,
		AgentType:   AgentTypeIT,
		Tag:         "it",
		DisplayName: "IT",
	}
	DomainFinance = Domain{
		Route:       RouteFinance,
		AgentType:   AgentTypeFinance,
		Tag:         "finance",
		DisplayName: "Finance",
	}
)

// DomainFor returns the specialist domain bound to a route.
func DomainFor(r Route) (Domain, bool) {
	switch r {
	case RouteIT:
		return DomainIT, true
	case RouteFinance:
		return DomainFinance, true
	default:
		return Domain{}, false
	}
}

// Result is what a caller gets back from one orchestration run.
type Result struct {
	RunID    string `json:"run_id"`
	Route    Route  `json:"route"`
	Response string `json:"response"`
	LLMCalls int    `json:"llm_calls"`
}

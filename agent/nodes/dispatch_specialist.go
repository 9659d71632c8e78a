package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
)

const (
	NodeITSpecialist      = "it_specialist"
	NodeFinanceSpecialist = "finance_specialist"
)

// DispatchTable maps every route to its specialist node.
var DispatchTable = map[contractx.Route]string{
	contractx.RouteIT:      NodeITSpecialist,
	contractx.RouteFinance: NodeFinanceSpecialist,
}

// PickSpecialist is the pure branch condition of the orchestrator graph.
func PickSpecialist(_ context.Context, conv *statex.Conversation) (string, error) {
	if conv == nil {
		return "", statex.ErrNilConversation
	}
	return pickFrom(DispatchTable, conv.Route)
}

func pickFrom(table map[contractx.Route]string, route contractx.Route) (string, error) {
	node, ok := table[route]
	if !ok {
		return "", &contractx.UnregisteredRouteError{Route: route}
	}
	return node, nil
}

// SpecialistFor resolves the specialist behind a node key.
func SpecialistFor(models Registry, node string) (Specialist, contractx.Domain, bool) {
	switch node {
	case NodeITSpecialist:
		return models.IT(), contractx.DomainIT, true
	case NodeFinanceSpecialist:
		return models.Finance(), contractx.DomainFinance, true
	default:
		return nil, contractx.Domain{}, false
	}
}

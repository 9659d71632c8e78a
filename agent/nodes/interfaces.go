package orchestratornode

import (
	"context"

	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
)

// Router writes the route of a conversation exactly once.
type Router interface {
	Classify(ctx context.Context, conv *statex.Conversation) error
}

// Specialist answers a routed conversation. Runtime failures are contained and
// rendered into the response; only precondition errors are returned.
type Specialist interface {
	Handle(ctx context.Context, conv *statex.Conversation) error
}

type Registry interface {
	Router() Router
	IT() Specialist
	Finance() Specialist
}

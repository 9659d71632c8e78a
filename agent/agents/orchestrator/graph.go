package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/nodes"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
)

const (
	nodeValidateConversation = "validate_conversation"
	nodeRouteMessage         = "route_message"
)

func (o *Orchestrator) compileRunGraph(
	ctx context.Context,
) (compose.Runnable[*statex.Conversation, *statex.Conversation], error) {
	graph := compose.NewGraph[*statex.Conversation, *statex.Conversation]()

	if err := graph.AddLambdaNode(nodeValidateConversation,
		compose.InvokableLambda(func(ctx context.Context, in *statex.Conversation) (*statex.Conversation, error) {
			return nodex.ValidateConversation(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateConversation, err)
	}

	if err := graph.AddLambdaNode(nodeRouteMessage,
		compose.InvokableLambda(func(ctx context.Context, in *statex.Conversation) (*statex.Conversation, error) {
			return nodex.RouteMessage(ctx, in, o.models.Router())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRouteMessage, err)
	}

	endNodes := make(map[string]bool, len(nodex.DispatchTable))
	for _, node := range nodex.DispatchTable {
		specialist, _, ok := nodex.SpecialistFor(o.models, node)
		if !ok {
			return nil, fmt.Errorf("dispatch node %s has no specialist", node)
		}
		if err := graph.AddLambdaNode(node,
			compose.InvokableLambda(func(ctx context.Context, in *statex.Conversation) (*statex.Conversation, error) {
				return nodex.RunSpecialist(ctx, in, specialist)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", node, err)
		}
		endNodes[node] = true
	}

	branch := compose.NewGraphBranch(nodex.PickSpecialist, endNodes)
	if err := graph.AddBranch(nodeRouteMessage, branch); err != nil {
		return nil, fmt.Errorf("add dispatch branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateConversation},
		{nodeValidateConversation, nodeRouteMessage},
	}
	for node := range endNodes {
		edges = append(edges, [2]string{node, compose.END})
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.run"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
)

func RouteMessage(
	ctx context.Context,
	conv *statex.Conversation,
	router Router,
) (*statex.Conversation, error) {
	if conv == nil {
		return nil, statex.ErrNilConversation
	}

	if err := router.Classify(ctx, conv); err != nil {
		return nil, err
	}
	if !conv.Route.Valid() {
		return nil, fmt.Errorf("%w: router left route=%q", contractx.ErrValidation, string(conv.Route))
	}
	return conv, nil
}

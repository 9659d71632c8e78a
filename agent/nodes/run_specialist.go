package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Helpdesk-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
)

func RunSpecialist(
	ctx context.Context,
	conv *statex.Conversation,
	specialist Specialist,
) (*statex.Conversation, error) {
	if conv == nil {
		return nil, statex.ErrNilConversation
	}
	if specialist == nil {
		return nil, &contractx.UnregisteredRouteError{Route: conv.Route}
	}

	if err := specialist.Handle(ctx, conv); err != nil {
		return nil, err
	}
	if strings.TrimSpace(conv.Response) == "" {
		return nil, fmt.Errorf("%w: specialist returned empty response", contractx.ErrValidation)
	}
	return conv, nil
}

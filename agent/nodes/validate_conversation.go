package orchestratornode

import (
	statex "github.com/tanpawarit/Chative-Helpdesk-Router/agent/state"
)

// ValidateConversation rejects a run before any model call when there is no
// user message to act on.
func ValidateConversation(conv *statex.Conversation) (*statex.Conversation, error) {
	if conv == nil {
		return nil, statex.ErrNilConversation
	}
	if _, err := conv.LatestUserMessage(); err != nil {
		return nil, err
	}
	if conv.HasRoute() {
		return nil, statex.ErrRouteAlreadySet
	}
	if conv.Response != "" {
		return nil, statex.ErrResponseSet
	}
	return conv, nil
}

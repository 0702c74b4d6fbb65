package steps

import (
	"context"

	"github.com/flowrun/flowrun/pkg/flow"
)

// ConversationStart marks the entry point of a conversational flow.
//
// The conversation runtime seeds conversation_id into state before the run
// starts; the step itself just passes through.
type ConversationStart struct {
	flow.Base
}

// NewConversationStart creates a conversation_start trigger. No config.
func NewConversationStart(cfg flow.Config) *ConversationStart {
	b := flow.NewBase(cfg)
	b.Trigger = true
	return &ConversationStart{Base: b}
}

func (s *ConversationStart) Type() flow.StepType { return flow.StepConversationStart }

func (s *ConversationStart) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "conversation_id", Type: flow.TypeText, Description: "Conversation identifier"},
	}
}

func (s *ConversationStart) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	return flow.Success(s.ID(), nil, nil), nil
}

// UserMessage represents receipt of a user message in a conversation.
//
// The message is seeded into state externally before the run; the step
// makes it available to downstream processing.
type UserMessage struct {
	flow.Base
}

// NewUserMessage creates a user_message step. No config.
func NewUserMessage(cfg flow.Config) *UserMessage {
	return &UserMessage{Base: flow.NewBase(cfg)}
}

func (s *UserMessage) Type() flow.StepType { return flow.StepUserMessage }

func (s *UserMessage) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "user_message", Type: flow.TypeText, Description: "User's message text"},
		{Key: "user_id", Type: flow.TypeText, Description: "User identifier"},
	}
}

func (s *UserMessage) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	return flow.Success(s.ID(), nil, nil), nil
}

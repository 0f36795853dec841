package chat

import (
	"context"
	"fmt"

	"analyst-ai/llm"
)

// SessionState is the lifecycle state of the conversation with the model
type SessionState int

const (
	StateAbsent SessionState = iota
	StateActive
	StateBusy
)

func (s SessionState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateActive:
		return "active"
	case StateBusy:
		return "busy"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Conversation owns the model session handle. The handle is created lazily on
// the first send and dropped on reset, so the next send starts with empty history.
type Conversation struct {
	service llm.Service
	config  llm.SessionConfig
	session llm.Session

	// generation changes on every reset; a send started under an older
	// generation must not revive the session when it finishes
	generation uint64
}

// NewConversation creates a conversation in the Absent state
func NewConversation(service llm.Service, config llm.SessionConfig) *Conversation {
	return &Conversation{service: service, config: config}
}

// State reports Absent or Active; Busy is tracked by App
func (c *Conversation) State() SessionState {
	if c.session == nil {
		return StateAbsent
	}
	return StateActive
}

// Generation identifies the current session lifetime
func (c *Conversation) Generation() uint64 {
	return c.generation
}

// Ensure returns the current session, creating it when absent
func (c *Conversation) Ensure(ctx context.Context, credential string) (llm.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	if credential == "" {
		return nil, ErrCredentialRequired
	}
	session, err := c.service.CreateSession(ctx, credential, c.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s session: %w", c.service.Name(), err)
	}
	c.session = session
	return session, nil
}

// Reset discards the session and its history
func (c *Conversation) Reset() {
	c.session = nil
	c.generation++
}

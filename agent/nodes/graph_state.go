package nodes

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
	ToolCalls []contractx.ToolRequest
}

type GraphOutput struct {
	Reply string
}

// GraphState is the carrier that flows through the turn pipeline. Parts
// accumulates the message fragments produced across intra-turn phase hops;
// FinalizeReply joins them into the single user-visible reply.
type GraphState struct {
	SessionID string
	Text      string
	Intent    contractx.Intent
	ToolCalls []contractx.ToolRequest
	Now       time.Time

	Session *statex.Session
	Parts   []string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" && len(in.ToolCalls) == 0 {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		ToolCalls: in.ToolCalls,
		Now:       nowFn().UTC(),
	}, nil
}

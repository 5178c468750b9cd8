package contract

import (
	"context"
	"time"

	statex "github.com/sanmarzano/orderbot/agent/state"
)

// SpecialistRequest is everything a phase handler sees for one invocation.
// Text and ToolCalls are empty when the orchestrator re-dispatches after a
// silent transition: the inbound input has already been consumed.
type SpecialistRequest struct {
	Text      string
	Intent    Intent
	ToolCalls []ToolRequest
	Session   *statex.Session
	Now       time.Time
}

// HandlerResult is the explicit return contract of a specialist: an optional
// user-visible reply (empty means a silent turn) plus the transition signals
// raised during the invocation. Specialists never decide phase transitions
// themselves; the orchestrator is the only reader of Signals.
type HandlerResult struct {
	Reply   string
	Signals statex.Signals
}

// Specialist is one conversational handler, mapped to exactly one phase.
type Specialist interface {
	Handle(ctx context.Context, req SpecialistRequest) (HandlerResult, error)
}

// Registry resolves the specialist for a phase. A phase with no specialist is
// a routing error the orchestrator reports without mutating state.
type Registry interface {
	ForPhase(p statex.Phase) (Specialist, bool)
	GeneralInquiry() Specialist
}

// PersistenceGateway is the durable customer/order store. Every method is
// potentially blocking network I/O and must be called with a deadline.
type PersistenceGateway interface {
	FindCustomer(ctx context.Context, id string) (*CustomerRecord, error)
	UpsertCustomer(ctx context.Context, rec CustomerRecord) error
	AppendOrder(ctx context.Context, rec OrderRecord) error
}

// Classifier labels one inbound turn with an Intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

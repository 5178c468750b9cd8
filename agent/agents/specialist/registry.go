package specialist

import (
	"context"
	"errors"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
)

// BusinessInfo feeds the general-inquiry specialist.
type BusinessInfo struct {
	Name     string
	Schedule string
	Phone    string
	Address  string
}

// Deps is shared by every specialist.
type Deps struct {
	Exec toolx.Executor
	Info BusinessInfo
}

type registryImpl struct {
	byPhase map[statex.Phase]contractx.Specialist
	inquiry contractx.Specialist
}

func (r *registryImpl) ForPhase(p statex.Phase) (contractx.Specialist, bool) {
	s, ok := r.byPhase[p]
	return s, ok
}

func (r *registryImpl) GeneralInquiry() contractx.Specialist {
	return r.inquiry
}

// NewRegistry maps exactly one specialist to each phase of the ordering
// cycle. Idle has no specialist on purpose: the orchestrator collapses it to
// the initial phase before dispatching.
func NewRegistry(deps Deps) (contractx.Registry, error) {
	if deps.Exec == nil {
		return nil, errors.New("tool executor is required")
	}
	return &registryImpl{
		byPhase: map[statex.Phase]contractx.Specialist{
			statex.PhaseCustomerIdentification: &identifySpecialist{deps: deps},
			statex.PhaseItemCollection:         &itemsSpecialist{deps: deps},
			statex.PhaseOrderConfirmation:      &confirmSpecialist{deps: deps},
			statex.PhaseAddressCollection:      &addressSpecialist{deps: deps},
			statex.PhaseFinalCommit:            &finalizeSpecialist{deps: deps},
		},
		inquiry: &inquirySpecialist{info: deps.Info},
	}, nil
}

// runAllowed executes the decomposed tool calls permitted in the given
// phase, silently skipping tools outside the phase's set.
func runAllowed(ctx context.Context, deps Deps, phase statex.Phase, req contractx.SpecialistRequest) []contractx.ToolResult {
	if len(req.ToolCalls) == 0 {
		return nil
	}
	allowed := toolx.AllowedForPhase(phase)
	out := make([]contractx.ToolResult, 0, len(req.ToolCalls))
	for _, call := range req.ToolCalls {
		if _, ok := allowed[call.Tool]; !ok {
			continue
		}
		out = append(out, deps.Exec(ctx, req.Session, call.Tool, call.Args))
	}
	return out
}

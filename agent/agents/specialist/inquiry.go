package specialist

import (
	"context"
	"fmt"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
)

// inquirySpecialist answers side questions (schedule, complaints) without
// touching the phase machine. The orchestrator returns the session to its
// current phase after this reply.
type inquirySpecialist struct {
	info BusinessInfo
}

func (s *inquirySpecialist) Handle(_ context.Context, req contractx.SpecialistRequest) (contractx.HandlerResult, error) {
	if req.Intent == contractx.IntentMakeComplaint {
		return contractx.HandlerResult{
			Reply: fmt.Sprintf(
				"Lamento mucho lo ocurrido. Tu reclamo quedó anotado y lo revisaremos de inmediato; también puedes llamarnos al %s.",
				s.info.Phone,
			),
		}, nil
	}
	return contractx.HandlerResult{
		Reply: fmt.Sprintf(
			"%s atiende %s. Estamos en %s y nos encuentras al %s. ¿Seguimos con tu pedido?",
			s.info.Name, s.info.Schedule, s.info.Address, s.info.Phone,
		),
	}, nil
}

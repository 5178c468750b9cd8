package specialist

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
)

// addressSpecialist collects a deliverable address. Saved addresses are
// offered first; a plain "sí" reuses the primary one.
type addressSpecialist struct {
	deps Deps
}

func (s *addressSpecialist) Handle(ctx context.Context, req contractx.SpecialistRequest) (contractx.HandlerResult, error) {
	text := strings.TrimSpace(req.Text)

	if text == "" {
		if primary := s.primaryAddress(ctx, req); primary != "" {
			return contractx.HandlerResult{
				Reply: fmt.Sprintf("¿Enviamos tu pedido a tu dirección guardada: %s? También puedes darme otra dirección.", primary),
			}, nil
		}
		return contractx.HandlerResult{
			Reply: "¿A qué dirección enviamos tu pedido? Incluye calle y número, por ejemplo: Av. Larco 345, Miraflores.",
		}, nil
	}

	if isAffirmative(text) {
		primary := s.primaryAddress(ctx, req)
		if primary == "" {
			return contractx.HandlerResult{
				Reply: "No tengo una dirección guardada tuya. ¿Me das la dirección completa, con calle y número?",
			}, nil
		}
		text = primary
	}

	res := s.deps.Exec(ctx, req.Session, toolx.ToolSaveAddress, map[string]any{"address": text})
	switch res.Status {
	case contractx.StatusSuccess:
		return contractx.HandlerResult{Signals: statex.Signals{AddressConfirmed: true}}, nil
	case contractx.StatusError:
		return contractx.HandlerResult{
			Reply: "Esa dirección no parece completa. Necesito al menos la calle y el número, por ejemplo: Av. Larco 345, Miraflores.",
		}, nil
	default:
		return contractx.HandlerResult{
			Reply: "Disculpa, no pude guardar tu dirección en este momento. ¿Me la repites, por favor?",
		}, nil
	}
}

func (s *addressSpecialist) primaryAddress(ctx context.Context, req contractx.SpecialistRequest) string {
	res := s.deps.Exec(ctx, req.Session, toolx.ToolGetSavedAddresses, nil)
	if res.Status != contractx.StatusSuccess {
		return ""
	}
	addresses, _ := res.Data["addresses"].(map[string]string)
	return addresses["primary"]
}

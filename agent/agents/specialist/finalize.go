package specialist

import (
	"context"
	"fmt"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
)

// finalizeSpecialist commits the order the moment the phase is entered. On a
// store failure it apologizes without raising the committed flag, so the next
// turn retries the commit.
type finalizeSpecialist struct {
	deps Deps
}

func (s *finalizeSpecialist) Handle(ctx context.Context, req contractx.SpecialistRequest) (contractx.HandlerResult, error) {
	res := s.deps.Exec(ctx, req.Session, toolx.ToolRegisterOrder, nil)
	switch res.Status {
	case contractx.StatusSuccess:
		number, _ := res.Data["order_number"].(string)
		subtotal, _ := res.Data["subtotal"].(float64)
		address, _ := res.Data["address"].(string)
		reply := fmt.Sprintf(
			"¡Gracias, %s! Tu pedido %s por S/ %.2f está registrado y en camino a %s. ¡Buen provecho!",
			req.Session.CustomerName, number, subtotal, address,
		)
		return contractx.HandlerResult{
			Reply:   reply,
			Signals: statex.Signals{OrderCommitted: true},
		}, nil
	case contractx.StatusError:
		return contractx.HandlerResult{
			Reply: "Tu pedido quedó vacío, así que no hay nada que registrar. ¿Empezamos de nuevo?",
		}, nil
	default:
		return contractx.HandlerResult{
			Reply: "Tuvimos un problema registrando tu pedido. Escríbeme de nuevo en un momento para reintentarlo.",
		}, nil
	}
}

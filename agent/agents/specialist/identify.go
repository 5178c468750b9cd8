package specialist

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
)

// identifySpecialist resolves who the customer is before any item is taken.
// It always checks the registry first, so a returning customer never gets
// asked for their name again.
type identifySpecialist struct {
	deps Deps
}

func (s *identifySpecialist) Handle(ctx context.Context, req contractx.SpecialistRequest) (contractx.HandlerResult, error) {
	lookup := s.deps.Exec(ctx, req.Session, toolx.ToolGetCustomerData, nil)
	switch lookup.Status {
	case contractx.StatusSuccess:
		return contractx.HandlerResult{Signals: statex.Signals{CustomerResolved: true}}, nil
	case contractx.StatusErrorInternal:
		return contractx.HandlerResult{Reply: "Disculpa, tuvimos un problema consultando tus datos. ¿Puedes intentarlo de nuevo?"}, nil
	}

	if name := customerName(req); name != "" {
		reg := s.deps.Exec(ctx, req.Session, toolx.ToolRegisterCustomer, map[string]any{"full_name": name})
		switch reg.Status {
		case contractx.StatusSuccess:
			return contractx.HandlerResult{Signals: statex.Signals{CustomerResolved: true}}, nil
		case contractx.StatusError:
			return contractx.HandlerResult{Reply: fmt.Sprintf("No pude registrar ese nombre: %s", reg.Message)}, nil
		default:
			return contractx.HandlerResult{Reply: "Disculpa, no pude guardar tus datos en este momento. ¿Me repites tu nombre completo?"}, nil
		}
	}

	return contractx.HandlerResult{
		Reply: "¡Hola! Bienvenido a San Marzano, soy Angelo. Para atenderte, ¿me dices tu nombre completo, por favor?",
	}, nil
}

// customerName pulls the customer's full name from a decomposed
// register_update_customer call, or from the raw text when the classifier
// tagged the turn as a name introduction.
func customerName(req contractx.SpecialistRequest) string {
	for _, call := range req.ToolCalls {
		if call.Tool != toolx.ToolRegisterCustomer {
			continue
		}
		if name, ok := call.Args["full_name"].(string); ok && name != "" {
			return name
		}
	}
	if req.Intent == contractx.IntentProvideName {
		return stripIntroduction(req.Text)
	}
	return ""
}

// stripIntroduction removes "me llamo" / "mi nombre es" / "soy" prefixes so
// only the name itself is registered.
func stripIntroduction(text string) string {
	lowered := strings.ToLower(text)
	for _, prefix := range []string{"me llamo ", "mi nombre es ", "soy "} {
		if strings.HasPrefix(lowered, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}
	return strings.TrimSpace(text)
}

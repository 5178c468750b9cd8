package specialist

import (
	"context"
	"fmt"
	"strings"

	cartx "github.com/sanmarzano/orderbot/agent/cart"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
)

// confirmSpecialist reads the order back and waits for an explicit yes. Any
// correction drops the dialogue back to item collection through the
// modification flag; the specialist never edits the cart itself.
type confirmSpecialist struct {
	deps Deps
}

func (s *confirmSpecialist) Handle(ctx context.Context, req contractx.SpecialistRequest) (contractx.HandlerResult, error) {
	if req.Intent == contractx.IntentConfirmOrder || isAffirmative(req.Text) {
		return contractx.HandlerResult{Signals: statex.Signals{Confirmed: true}}, nil
	}
	if isNegative(req.Text) {
		return contractx.HandlerResult{Signals: statex.Signals{ModifyRequested: true}}, nil
	}
	return contractx.HandlerResult{Reply: s.summary(ctx, req)}, nil
}

func (s *confirmSpecialist) summary(ctx context.Context, req contractx.SpecialistRequest) string {
	total := s.deps.Exec(ctx, req.Session, toolx.ToolCalculateTotal, nil)
	if total.Status != contractx.StatusSuccess {
		return "Disculpa, no pude revisar tu pedido. ¿Lo intentamos de nuevo?"
	}

	lines, _ := total.Data["items_breakdown"].([]cartx.Line)
	subtotal, _ := total.Data["subtotal"].(float64)

	var b strings.Builder
	b.WriteString("Este es tu pedido:")
	for _, ln := range lines {
		fmt.Fprintf(&b, "\n- %dx %s (S/ %.2f)", ln.Quantity, ln.ItemName, ln.Subtotal)
	}
	fmt.Fprintf(&b, "\nTotal: S/ %.2f", subtotal)
	b.WriteString("\n¿Es correcto tu pedido?")
	return b.String()
}

var affirmativeWords = map[string]bool{
	"si": true, "sí": true, "dale": true, "claro": true, "correcto": true,
	"confirmo": true, "confirmado": true, "exacto": true, "perfecto": true,
	"ok": true, "listo": true,
}

var negativeWords = map[string]bool{
	"no": true, "cambiar": true, "cambia": true, "modificar": true,
	"modifica": true, "quitar": true, "quita": true, "agregar": true,
	"agrega": true, "falta": true, "error": true,
}

func isAffirmative(text string) bool {
	return hasAnyWord(text, affirmativeWords) && !hasAnyWord(text, negativeWords)
}

func isNegative(text string) bool {
	return hasAnyWord(text, negativeWords)
}

func hasAnyWord(text string, words map[string]bool) bool {
	for _, f := range strings.Fields(strings.ToLower(text)) {
		if words[strings.Trim(f, ".,;:!¡¿?")] {
			return true
		}
	}
	return false
}

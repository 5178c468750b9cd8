package intent

import (
	"context"
	"strings"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
)

// RuleClassifier tags turns with Spanish keyword heuristics. It is the
// fallback when no chat model is configured or the model call fails, so it
// favors precision on the intents that move the phase machine and leaves the
// rest as CONTINUE_CONVERSATION.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

var ruleTable = []struct {
	intent   contractx.Intent
	keywords []string
}{
	{contractx.IntentFinalizeOrder, []string{"nada mas", "nada más", "eso es todo", "seria todo", "sería todo", "solo eso", "ya esta", "ya está", "finaliza", "cierra el pedido"}},
	{contractx.IntentConfirmOrder, []string{"confirmo", "confirmado", "es correcto", "esta bien", "está bien", "todo bien"}},
	{contractx.IntentAskSchedule, []string{"horario", "abren", "cierran", "atienden", "ubicacion", "ubicación", "donde estan", "dónde están", "telefono", "teléfono"}},
	{contractx.IntentMakeComplaint, []string{"reclamo", "queja", "frio", "frío", "demora", "tardaron", "equivocado", "mal estado"}},
	{contractx.IntentGiveAddress, []string{"mi direccion es", "mi dirección es", "enviar a", "entregar en", "llevar a"}},
	{contractx.IntentProvideName, []string{"me llamo", "mi nombre es", "soy "}},
	{contractx.IntentTakeOrder, []string{"quiero", "quisiera", "me das", "agrega", "añade", "pedir", "ordenar", "una pizza", "otra pizza", "quita", "cambia"}},
	{contractx.IntentGreeting, []string{"hola", "buenas", "buenos dias", "buenos días", "buenas tardes", "buenas noches"}},
}

func (c *RuleClassifier) Classify(_ context.Context, text string) (contractx.Intent, error) {
	normalized := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	if strings.TrimSpace(text) == "" {
		return contractx.IntentContinue, nil
	}
	for _, rule := range ruleTable {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.intent, nil
			}
		}
	}
	return contractx.IntentContinue, nil
}

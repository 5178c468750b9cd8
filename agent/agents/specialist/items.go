package specialist

import (
	"context"
	"fmt"
	"strings"

	cartx "github.com/sanmarzano/orderbot/agent/cart"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	menux "github.com/sanmarzano/orderbot/agent/menu"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
)

// itemsSpecialist drives order taking. Additions and removals go through the
// cart tools; a finalize intent only raises the completion flag when the cart
// has at least one line.
type itemsSpecialist struct {
	deps Deps
}

func (s *itemsSpecialist) Handle(ctx context.Context, req contractx.SpecialistRequest) (contractx.HandlerResult, error) {
	if req.Intent == contractx.IntentFinalizeOrder {
		if req.Session.Cart.Empty() {
			return contractx.HandlerResult{Reply: "Aún no tienes nada en tu pedido. ¿Qué te gustaría ordenar?"}, nil
		}
		return contractx.HandlerResult{Signals: statex.Signals{OrderComplete: true}}, nil
	}

	if results := runAllowed(ctx, s.deps, statex.PhaseItemCollection, req); len(results) > 0 {
		parts := make([]string, 0, len(results))
		for _, r := range results {
			parts = append(parts, renderItemsReply(r))
		}
		return contractx.HandlerResult{Reply: strings.Join(parts, "\n")}, nil
	}

	if strings.TrimSpace(req.Text) == "" {
		return contractx.HandlerResult{}, nil
	}
	// A greeting or a name carried over from identification is not an item
	// phrase; stay silent and let the entry prompt stand.
	if req.Intent == contractx.IntentGreeting || req.Intent == contractx.IntentProvideName {
		return contractx.HandlerResult{}, nil
	}

	qty, itemText := parseQuantity(req.Text)
	res := s.deps.Exec(ctx, req.Session, toolx.ToolManageOrderItem, map[string]any{
		"action":    "add",
		"item_name": itemText,
		"quantity":  qty,
	})
	return contractx.HandlerResult{Reply: renderItemsReply(res)}, nil
}

func renderItemsReply(res contractx.ToolResult) string {
	switch res.Status {
	case contractx.StatusSuccess:
		return renderItemsSuccess(res)
	case contractx.StatusClarificationNeeded:
		options, _ := res.Data["options"].([]menux.Item)
		var b strings.Builder
		b.WriteString("Tenemos varias opciones parecidas:")
		for _, it := range options {
			fmt.Fprintf(&b, "\n- %s (S/ %.2f)", it.Name, it.Price)
		}
		b.WriteString("\n¿Cuál prefieres?")
		return b.String()
	case contractx.StatusNotFound:
		if empty, _ := res.Data["catalog_empty"].(bool); empty {
			return "Lo siento, en este momento no tenemos ítems disponibles en el menú."
		}
		return "No encontré ese producto en nuestro menú. ¿Quieres que te diga las categorías disponibles?"
	case contractx.StatusError:
		return "No pude hacer ese cambio en tu pedido. ¿Me lo repites, por favor?"
	default:
		return "Disculpa, tuvimos un problema con tu pedido. ¿Lo intentamos de nuevo?"
	}
}

func renderItemsSuccess(res contractx.ToolResult) string {
	switch res.Tool {
	case toolx.ToolViewOrder:
		lines, _ := res.Data["order_items"].([]cartx.Line)
		return renderOrderLines(lines) + "\n¿Deseas algo más?"
	case toolx.ToolGetItemsByCategory:
		items, _ := res.Data["items"].([]menux.Item)
		var b strings.Builder
		b.WriteString("En esa categoría tenemos:")
		for _, it := range items {
			fmt.Fprintf(&b, "\n- %s (S/ %.2f)", it.Name, it.Price)
		}
		return b.String()
	case toolx.ToolGetCategories:
		cats, _ := res.Data["categories"].([]string)
		return "Nuestras categorías son: " + strings.Join(cats, ", ") + "."
	default:
		if item, ok := res.Data["item_details"].(menux.Item); ok {
			if res.Tool == toolx.ToolGetItemDetails {
				return fmt.Sprintf("%s: %s (S/ %.2f).", item.Name, item.Description, item.Price)
			}
			return fmt.Sprintf("Listo, agregué %s a tu pedido. ¿Deseas algo más?", item.Name)
		}
		if removed, ok := res.Data["removed"].(cartx.Line); ok {
			return fmt.Sprintf("Quité %s de tu pedido. ¿Deseas algo más?", removed.ItemName)
		}
		return "Listo. ¿Deseas algo más?"
	}
}

func renderOrderLines(lines []cartx.Line) string {
	if len(lines) == 0 {
		return "Tu pedido está vacío por ahora."
	}
	var b strings.Builder
	b.WriteString("Esto llevas hasta ahora:")
	for _, ln := range lines {
		fmt.Fprintf(&b, "\n- %dx %s (S/ %.2f)", ln.Quantity, ln.ItemName, ln.Subtotal)
	}
	return b.String()
}

// parseQuantity extracts a leading count from phrases like "2 pizzas
// americanas" or "x3 margherita". Everything else defaults to one unit.
func parseQuantity(text string) (int, string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 {
		return 1, strings.TrimSpace(text)
	}
	head := strings.TrimPrefix(strings.ToLower(fields[0]), "x")
	qty := 0
	for _, r := range head {
		if r < '0' || r > '9' {
			return 1, strings.TrimSpace(text)
		}
		qty = qty*10 + int(r-'0')
	}
	if qty <= 0 {
		return 1, strings.TrimSpace(text)
	}
	return qty, strings.Join(fields[1:], " ")
}

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sanmarzano/orderbot/agent/agents/specialist"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	menux "github.com/sanmarzano/orderbot/agent/menu"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
)

type fakeGateway struct {
	customers map[string]contractx.CustomerRecord
	orders    []contractx.OrderRecord
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{customers: map[string]contractx.CustomerRecord{}}
}

func (f *fakeGateway) FindCustomer(_ context.Context, id string) (*contractx.CustomerRecord, error) {
	rec, ok := f.customers[id]
	if !ok {
		return nil, contractx.ErrCustomerNotFound
	}
	return &rec, nil
}

func (f *fakeGateway) UpsertCustomer(_ context.Context, rec contractx.CustomerRecord) error {
	cur := f.customers[rec.ID]
	cur.ID = rec.ID
	if rec.FullName != "" {
		cur.FullName = rec.FullName
	}
	if rec.PrimaryAddress != "" {
		cur.PrimaryAddress = rec.PrimaryAddress
	}
	f.customers[rec.ID] = cur
	return nil
}

func (f *fakeGateway) AppendOrder(_ context.Context, rec contractx.OrderRecord) error {
	f.orders = append(f.orders, rec)
	return nil
}

func testResolver() *menux.Resolver {
	return menux.NewResolver(menux.NewCatalog([]menux.Item{
		{ID: "pz-1", Name: "Pizza Margherita", Category: "Pizzas", Price: 25.0, Available: true},
		{ID: "pz-2", Name: "Pizza Hawaiana", Category: "Pizzas", Price: 28.0, Available: true},
	}))
}

func testOrchestrator(t *testing.T, gw contractx.PersistenceGateway, now time.Time) (*Orchestrator, *statex.MemoryStore) {
	t.Helper()

	resolver := testResolver()
	exec := toolx.NewExecutor(toolx.Deps{
		Resolver:       resolver,
		Gateway:        gw,
		GatewayBackoff: time.Millisecond,
		Now:            func() time.Time { return now },
	})
	registry, err := specialist.NewRegistry(specialist.Deps{
		Exec: exec,
		Info: specialist.BusinessInfo{Name: "San Marzano", Schedule: "de 12:00 a 23:00", Phone: "(01) 555-0134", Address: "Av. La Mar 1280"},
	})
	if err != nil {
		t.Fatal(err)
	}

	store := statex.NewMemoryStore()
	orch, err := New(store, registry, resolver, WithNow(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	return orch, store
}

func mustTurn(t *testing.T, orch *Orchestrator, session, text string) string {
	t.Helper()
	reply, err := orch.HandleTurn(context.Background(), session, text)
	if err != nil {
		t.Fatalf("turn %q failed: %v", text, err)
	}
	return reply
}

func phaseOf(t *testing.T, store *statex.MemoryStore, session string) statex.Phase {
	t.Helper()
	sess, err := store.Load(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	return sess.Phase
}

func TestFullOrderingConversation(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_755_000_123, 0)
	gw := newFakeGateway()
	orch, store := testOrchestrator(t, gw, now)

	reply := mustTurn(t, orch, "chat-1", "hola")
	if !strings.Contains(reply, "nombre completo") {
		t.Fatalf("expected name prompt, got %q", reply)
	}
	if got := phaseOf(t, store, "chat-1"); got != statex.PhaseCustomerIdentification {
		t.Fatalf("unexpected phase: %s", got)
	}

	reply = mustTurn(t, orch, "chat-1", "me llamo Ana Torres")
	if !strings.Contains(reply, "Ana Torres") {
		t.Fatalf("expected personalized greeting, got %q", reply)
	}
	if got := phaseOf(t, store, "chat-1"); got != statex.PhaseItemCollection {
		t.Fatalf("unexpected phase: %s", got)
	}

	reply = mustTurn(t, orch, "chat-1", "2 pizza margherita")
	if !strings.Contains(reply, "Pizza Margherita") {
		t.Fatalf("expected add confirmation, got %q", reply)
	}
	mustTurn(t, orch, "chat-1", "1 pizza hawaiana")

	reply = mustTurn(t, orch, "chat-1", "eso es todo")
	if !strings.Contains(reply, "Total: S/ 78.00") || !strings.Contains(reply, "¿Es correcto tu pedido?") {
		t.Fatalf("expected read-back with total, got %q", reply)
	}
	if got := phaseOf(t, store, "chat-1"); got != statex.PhaseOrderConfirmation {
		t.Fatalf("unexpected phase: %s", got)
	}

	reply = mustTurn(t, orch, "chat-1", "sí")
	if !strings.Contains(reply, "dirección") {
		t.Fatalf("expected address prompt, got %q", reply)
	}
	if got := phaseOf(t, store, "chat-1"); got != statex.PhaseAddressCollection {
		t.Fatalf("unexpected phase: %s", got)
	}

	reply = mustTurn(t, orch, "chat-1", "Av. Larco 345, Miraflores")
	for _, want := range []string{"Ana Torres", "PZ-", "S/ 78.00"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("commit reply missing %q: %q", want, reply)
		}
	}
	if got := phaseOf(t, store, "chat-1"); got != statex.PhaseIdle {
		t.Fatalf("unexpected phase after commit: %s", got)
	}

	if len(gw.orders) != 1 {
		t.Fatalf("expected 1 persisted order, got %d", len(gw.orders))
	}
	rec := gw.orders[0]
	if rec.Total != 78.00 || rec.Address != "Av. Larco 345, Miraflores" {
		t.Fatalf("unexpected order record: %+v", rec)
	}
	if rec.ItemsSummary != "2x Pizza Margherita, 1x Pizza Hawaiana" {
		t.Fatalf("unexpected summary: %s", rec.ItemsSummary)
	}
}

func TestKnownCustomerSkipsIdentification(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_755_000_123, 0)
	gw := newFakeGateway()
	gw.customers["chat-2"] = contractx.CustomerRecord{ID: "chat-2", FullName: "Luis Paredes"}
	orch, store := testOrchestrator(t, gw, now)

	reply := mustTurn(t, orch, "chat-2", "hola")
	if !strings.Contains(reply, "Luis Paredes") {
		t.Fatalf("expected greeting by name, got %q", reply)
	}
	if got := phaseOf(t, store, "chat-2"); got != statex.PhaseItemCollection {
		t.Fatalf("unexpected phase: %s", got)
	}
}

func TestModificationRequestReturnsToItemsWithoutAdvancing(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_755_000_123, 0)
	gw := newFakeGateway()
	gw.customers["chat-3"] = contractx.CustomerRecord{ID: "chat-3", FullName: "Luis Paredes"}
	orch, store := testOrchestrator(t, gw, now)

	mustTurn(t, orch, "chat-3", "hola")
	mustTurn(t, orch, "chat-3", "1 pizza hawaiana")
	mustTurn(t, orch, "chat-3", "eso es todo")
	if got := phaseOf(t, store, "chat-3"); got != statex.PhaseOrderConfirmation {
		t.Fatalf("unexpected phase: %s", got)
	}

	reply := mustTurn(t, orch, "chat-3", "no, está mal")
	if !strings.Contains(reply, "qué deseas cambiar") {
		t.Fatalf("expected modification prompt, got %q", reply)
	}
	if got := phaseOf(t, store, "chat-3"); got != statex.PhaseItemCollection {
		t.Fatalf("modification must return to item collection, got %s", got)
	}
}

func TestNewOrderRequestMidConfirmationReopensCollection(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_755_000_123, 0)
	gw := newFakeGateway()
	gw.customers["chat-4"] = contractx.CustomerRecord{ID: "chat-4", FullName: "Luis Paredes"}
	orch, store := testOrchestrator(t, gw, now)

	mustTurn(t, orch, "chat-4", "hola")
	mustTurn(t, orch, "chat-4", "1 pizza margherita")
	mustTurn(t, orch, "chat-4", "eso es todo")

	reply := mustTurn(t, orch, "chat-4", "quiero una pizza hawaiana")
	if !strings.Contains(reply, "Pizza Hawaiana") {
		t.Fatalf("expected the new item handled, got %q", reply)
	}

	sess, err := store.Load(context.Background(), "chat-4")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Phase != statex.PhaseItemCollection {
		t.Fatalf("expected item collection, got %s", sess.Phase)
	}
	if sess.Flags.Any() || sess.ConfirmedAddress != "" {
		t.Fatal("reopening must clear progress flags and the address")
	}
	if sess.Cart.Len() != 2 {
		t.Fatalf("expected both cart lines kept, got %d", sess.Cart.Len())
	}
}

func TestDecomposedToolCallsRemoveItem(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_755_000_123, 0)
	gw := newFakeGateway()
	gw.customers["chat-5"] = contractx.CustomerRecord{ID: "chat-5", FullName: "Luis Paredes"}
	orch, _ := testOrchestrator(t, gw, now)

	mustTurn(t, orch, "chat-5", "hola")
	mustTurn(t, orch, "chat-5", "1 pizza margherita")
	mustTurn(t, orch, "chat-5", "1 pizza hawaiana")

	out, err := orch.HandleTurnRequest(context.Background(), contractx.TurnRequest{
		SessionID: "chat-5",
		ToolCalls: []contractx.ToolRequest{{
			Tool: toolx.ToolManageOrderItem,
			Args: map[string]any{"action": "remove", "item_name": "pizza hawaiana"},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Reply, "Quité Pizza Hawaiana") {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
}

func TestScheduleQuestionDoesNotMoveThePhase(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_755_000_123, 0)
	gw := newFakeGateway()
	gw.customers["chat-6"] = contractx.CustomerRecord{ID: "chat-6", FullName: "Luis Paredes"}
	orch, store := testOrchestrator(t, gw, now)

	mustTurn(t, orch, "chat-6", "hola")
	mustTurn(t, orch, "chat-6", "1 pizza margherita")

	reply := mustTurn(t, orch, "chat-6", "¿a qué hora abren?")
	if !strings.Contains(reply, "12:00 a 23:00") {
		t.Fatalf("expected schedule answer, got %q", reply)
	}
	if got := phaseOf(t, store, "chat-6"); got != statex.PhaseItemCollection {
		t.Fatalf("inquiry must not move the phase, got %s", got)
	}
}

func TestReopenCommittedOrderInsideWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_755_000_123, 0)
	gw := newFakeGateway()
	gw.customers["chat-7"] = contractx.CustomerRecord{
		ID: "chat-7", FullName: "Luis Paredes", PrimaryAddress: "Av. Larco 345, Miraflores",
	}
	orch, store := testOrchestrator(t, gw, now)

	mustTurn(t, orch, "chat-7", "hola")
	mustTurn(t, orch, "chat-7", "1 pizza margherita")
	mustTurn(t, orch, "chat-7", "eso es todo")
	mustTurn(t, orch, "chat-7", "sí")
	mustTurn(t, orch, "chat-7", "sí, a esa dirección")
	if got := phaseOf(t, store, "chat-7"); got != statex.PhaseIdle {
		t.Fatalf("expected idle after commit, got %s", got)
	}

	reply := mustTurn(t, orch, "chat-7", "quiero agregar una pizza hawaiana")
	if !strings.Contains(reply, "modificar tu pedido") {
		t.Fatalf("expected reopening inside the window, got %q", reply)
	}

	sess, err := store.Load(context.Background(), "chat-7")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Phase != statex.PhaseItemCollection {
		t.Fatalf("expected item collection after reopening, got %s", sess.Phase)
	}
	if sess.LastCommit != nil {
		t.Fatal("reopening must drop the commit mark")
	}
	if sess.Cart.Len() != 2 {
		t.Fatalf("expected the committed cart plus the new item, got %d lines", sess.Cart.Len())
	}
}

func TestValidateRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	orch, _ := testOrchestrator(t, newFakeGateway(), time.Now())

	if _, err := orch.HandleTurn(context.Background(), "", "hola"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := orch.HandleTurn(context.Background(), "chat-8", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

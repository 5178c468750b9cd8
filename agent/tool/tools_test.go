package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	cartx "github.com/sanmarzano/orderbot/agent/cart"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	menux "github.com/sanmarzano/orderbot/agent/menu"
	statex "github.com/sanmarzano/orderbot/agent/state"
)

type fakeGateway struct {
	customers map[string]contractx.CustomerRecord
	orders    []contractx.OrderRecord

	findErr    error
	findFails  int
	upsertErr  error
	appendErr  error
	findCalls  int
	upsertCall int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{customers: map[string]contractx.CustomerRecord{}}
}

func (f *fakeGateway) FindCustomer(_ context.Context, id string) (*contractx.CustomerRecord, error) {
	f.findCalls++
	if f.findFails > 0 {
		f.findFails--
		return nil, errors.New("transient store failure")
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := f.customers[id]
	if !ok {
		return nil, contractx.ErrCustomerNotFound
	}
	return &rec, nil
}

func (f *fakeGateway) UpsertCustomer(_ context.Context, rec contractx.CustomerRecord) error {
	f.upsertCall++
	if f.upsertErr != nil {
		return f.upsertErr
	}
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
	if f.appendErr != nil {
		return f.appendErr
	}
	f.orders = append(f.orders, rec)
	return nil
}

func testResolver() *menux.Resolver {
	return menux.NewResolver(menux.NewCatalog([]menux.Item{
		{ID: "pz-1", Name: "Pizza Margherita", Category: "Pizzas", Price: 25.0, Available: true},
		{ID: "pz-2", Name: "Pizza Hawaiana", Category: "Pizzas", Price: 28.0, Available: true},
		{ID: "pz-3", Name: "Pizza Americana", Category: "Pizzas", Price: 26.5, Available: true},
		{ID: "pz-4", Name: "Pizza Americana Grande", Category: "Pizzas", Price: 38.0, Available: true},
	}))
}

func testSetup(gw contractx.PersistenceGateway) (Executor, *statex.Session) {
	resolver := testResolver()
	exec := NewExecutor(Deps{
		Resolver:        resolver,
		Gateway:         gw,
		GatewayAttempts: 3,
		GatewayBackoff:  time.Millisecond,
		Now:             func() time.Time { return time.Unix(1_755_000_123, 0) },
	})
	sess := statex.NewSession("chat-1", "chat-1", cartx.New(resolver), time.Now())
	return exec, sess
}

func TestGetCustomerDataFound(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.customers["chat-1"] = contractx.CustomerRecord{ID: "chat-1", FullName: "Ana Torres"}
	exec, sess := testSetup(gw)

	out := exec(context.Background(), sess, ToolGetCustomerData, nil)
	if out.Status != contractx.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", out.Status, out.Message)
	}
	if sess.CustomerName != "Ana Torres" {
		t.Fatalf("session name not updated: %q", sess.CustomerName)
	}
}

func TestGetCustomerDataNotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	exec, sess := testSetup(gw)

	out := exec(context.Background(), sess, ToolGetCustomerData, nil)
	if out.Status != contractx.StatusNotFound {
		t.Fatalf("expected not_found, got %s", out.Status)
	}
	if gw.findCalls != 1 {
		t.Fatalf("not_found must not retry, got %d calls", gw.findCalls)
	}
}

func TestGetCustomerDataRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.customers["chat-1"] = contractx.CustomerRecord{ID: "chat-1", FullName: "Ana Torres"}
	gw.findFails = 2
	exec, sess := testSetup(gw)

	out := exec(context.Background(), sess, ToolGetCustomerData, nil)
	if out.Status != contractx.StatusSuccess {
		t.Fatalf("expected success after retries, got %s", out.Status)
	}
	if gw.findCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gw.findCalls)
	}
}

func TestGetCustomerDataExhaustedRetriesIsInternal(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	gw.findFails = 10
	exec, sess := testSetup(gw)

	out := exec(context.Background(), sess, ToolGetCustomerData, nil)
	if out.Status != contractx.StatusErrorInternal {
		t.Fatalf("expected error_internal, got %s", out.Status)
	}
	if gw.findCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gw.findCalls)
	}
}

func TestRegisterCustomerUpdatesSession(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	exec, sess := testSetup(gw)

	out := exec(context.Background(), sess, ToolRegisterCustomer, map[string]any{"full_name": "Ana Torres"})
	if out.Status != contractx.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", out.Status, out.Message)
	}
	if sess.CustomerName != "Ana Torres" {
		t.Fatalf("session name not updated: %q", sess.CustomerName)
	}
	if gw.customers["chat-1"].FullName != "Ana Torres" {
		t.Fatal("customer not persisted")
	}
}

func TestRegisterCustomerNeedsSomethingToSave(t *testing.T) {
	t.Parallel()

	exec, sess := testSetup(newFakeGateway())
	out := exec(context.Background(), sess, ToolRegisterCustomer, nil)
	if out.Status != contractx.StatusError {
		t.Fatalf("expected error, got %s", out.Status)
	}
}

func TestManageOrderItemAddAndAmbiguity(t *testing.T) {
	t.Parallel()

	exec, sess := testSetup(newFakeGateway())

	out := exec(context.Background(), sess, ToolManageOrderItem, map[string]any{
		"action": "add", "item_name": "pizza margherita", "quantity": 2,
	})
	if out.Status != contractx.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", out.Status, out.Message)
	}
	if sess.Cart.Len() != 1 {
		t.Fatalf("expected 1 cart line, got %d", sess.Cart.Len())
	}

	out = exec(context.Background(), sess, ToolManageOrderItem, map[string]any{
		"action": "add", "item_name": "americana", "quantity": 1,
	})
	if out.Status != contractx.StatusClarificationNeeded {
		t.Fatalf("expected clarification_needed, got %s", out.Status)
	}
	if sess.Cart.Len() != 1 {
		t.Fatal("ambiguous add must not mutate the cart")
	}
}

func TestCalculateTotalReportsCartStatus(t *testing.T) {
	t.Parallel()

	exec, sess := testSetup(newFakeGateway())

	out := exec(context.Background(), sess, ToolCalculateTotal, nil)
	if out.Status != contractx.StatusSuccess {
		t.Fatalf("expected success, got %s", out.Status)
	}
	if got := out.Data["cart_status"].(cartx.TotalStatus); got != cartx.TotalEmptyCart {
		t.Fatalf("expected empty_cart, got %s", got)
	}

	exec(context.Background(), sess, ToolManageOrderItem, map[string]any{
		"action": "add", "item_name": "pizza margherita", "quantity": 2,
	})
	exec(context.Background(), sess, ToolManageOrderItem, map[string]any{
		"action": "add", "item_name": "pizza hawaiana", "quantity": 1,
	})

	out = exec(context.Background(), sess, ToolCalculateTotal, nil)
	if got := out.Data["subtotal"].(float64); got != 78.00 {
		t.Fatalf("expected 78.00, got %.2f", got)
	}
}

func TestSaveAddressValidation(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	exec, sess := testSetup(gw)
	sess.CustomerName = "Ana Torres"

	out := exec(context.Background(), sess, ToolSaveAddress, map[string]any{"address": "por mi casa"})
	if out.Status != contractx.StatusError {
		t.Fatalf("expected error for vague address, got %s", out.Status)
	}

	out = exec(context.Background(), sess, ToolSaveAddress, map[string]any{"address": "Av. Larco 345, Miraflores"})
	if out.Status != contractx.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", out.Status, out.Message)
	}
	if sess.ConfirmedAddress != "Av. Larco 345, Miraflores" {
		t.Fatalf("session address not updated: %q", sess.ConfirmedAddress)
	}
	if gw.customers["chat-1"].PrimaryAddress != "Av. Larco 345, Miraflores" {
		t.Fatal("address not persisted as primary")
	}
}

func TestRegisterOrderCommitsAndMarksSession(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	exec, sess := testSetup(gw)
	sess.CustomerName = "Ana Torres"
	sess.ConfirmedAddress = "Av. Larco 345, Miraflores"

	out := exec(context.Background(), sess, ToolRegisterOrder, nil)
	if out.Status != contractx.StatusError {
		t.Fatalf("empty cart must be an error, got %s", out.Status)
	}

	exec(context.Background(), sess, ToolManageOrderItem, map[string]any{
		"action": "add", "item_name": "pizza margherita", "quantity": 2,
	})
	exec(context.Background(), sess, ToolManageOrderItem, map[string]any{
		"action": "add", "item_name": "pizza hawaiana", "quantity": 1,
	})

	out = exec(context.Background(), sess, ToolRegisterOrder, nil)
	if out.Status != contractx.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", out.Status, out.Message)
	}
	number := out.Data["order_number"].(string)
	if !strings.HasPrefix(number, "PZ-") || len(number) != 9 {
		t.Fatalf("unexpected order number: %s", number)
	}
	if sess.LastCommit == nil || sess.LastCommit.OrderNumber != number {
		t.Fatal("session commit mark not set")
	}

	if len(gw.orders) != 1 {
		t.Fatalf("expected 1 persisted order, got %d", len(gw.orders))
	}
	rec := gw.orders[0]
	if rec.Total != 78.00 {
		t.Fatalf("expected total 78.00, got %.2f", rec.Total)
	}
	if rec.ItemsSummary != "2x Pizza Margherita, 1x Pizza Hawaiana" {
		t.Fatalf("unexpected summary: %s", rec.ItemsSummary)
	}
	if rec.Status != contractx.OrderStatusPending {
		t.Fatalf("unexpected status: %s", rec.Status)
	}
}

func TestCheckModifiableClearsExpiredMark(t *testing.T) {
	t.Parallel()

	exec, sess := testSetup(newFakeGateway())
	now := time.Unix(1_755_000_123, 0)

	out := exec(context.Background(), sess, ToolCheckModifiable, nil)
	if out.Status != contractx.StatusNotFound {
		t.Fatalf("expected not_found without a commit, got %s", out.Status)
	}

	sess.LastCommit = &statex.CommitMark{OrderNumber: "PZ-000001", At: now.Add(-time.Minute)}
	out = exec(context.Background(), sess, ToolCheckModifiable, nil)
	if got := out.Data["modifiable"].(bool); !got {
		t.Fatal("expected modifiable inside the window")
	}

	sess.LastCommit = &statex.CommitMark{OrderNumber: "PZ-000001", At: now.Add(-statex.ModificationWindow)}
	out = exec(context.Background(), sess, ToolCheckModifiable, nil)
	if got := out.Data["modifiable"].(bool); got {
		t.Fatal("expected locked outside the window")
	}
	if sess.LastCommit != nil {
		t.Fatal("expired mark must be cleared")
	}
}

func TestGetItemDetailsEmptyCatalogIsDistinct(t *testing.T) {
	t.Parallel()

	resolver := menux.NewResolver(menux.NewCatalog(nil))
	exec := NewExecutor(Deps{Resolver: resolver, Gateway: newFakeGateway()})
	sess := statex.NewSession("chat-1", "chat-1", cartx.New(resolver), time.Now())

	out := exec(context.Background(), sess, ToolGetItemDetails, map[string]any{"item_name": "pizza"})
	if out.Status != contractx.StatusNotFound {
		t.Fatalf("expected not_found, got %s", out.Status)
	}
	if empty, _ := out.Data["catalog_empty"].(bool); !empty {
		t.Fatal("empty catalog must be flagged distinctly")
	}
}

func TestValidAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		address string
		want    bool
	}{
		{"Av. Larco 345, Miraflores", true},
		{"Calle 7 Nro 22", true},
		{"por mi casa", false},
		{"123456", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidAddress(tc.address); got != tc.want {
			t.Fatalf("ValidAddress(%q) = %v, want %v", tc.address, got, tc.want)
		}
	}
}

func TestToolCatalogPhaseSets(t *testing.T) {
	t.Parallel()

	infos := InfosForPhase(statex.PhaseItemCollection)
	if len(infos) == 0 {
		t.Fatal("item collection must expose tools")
	}
	allowed := AllowedForPhase(statex.PhaseItemCollection)
	if _, ok := allowed[ToolManageOrderItem]; !ok {
		t.Fatal("manage_order_item must be allowed during item collection")
	}
	if _, ok := allowed[ToolRegisterOrder]; ok {
		t.Fatal("register_finalized_order must not be allowed during item collection")
	}

	exec, sess := testSetup(newFakeGateway())
	out := exec(context.Background(), sess, "warp_drive", nil)
	if out.Status != contractx.StatusError {
		t.Fatalf("unknown tool must be an error, got %s", out.Status)
	}
}

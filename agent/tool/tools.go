package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	cartx "github.com/sanmarzano/orderbot/agent/cart"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	menux "github.com/sanmarzano/orderbot/agent/menu"
	statex "github.com/sanmarzano/orderbot/agent/state"
)

// Executor runs one tool operation against a session. Expected dialogue
// conditions (ambiguity, not-found, invalid input) come back as statuses,
// never as errors.
type Executor func(ctx context.Context, sess *statex.Session, tool string, args map[string]any) contractx.ToolResult

// Deps is everything the executor closes over.
type Deps struct {
	Resolver *menux.Resolver
	Gateway  contractx.PersistenceGateway

	// GatewayTimeout bounds each persistence call; GatewayAttempts and
	// GatewayBackoff drive the retry policy for transient store failures.
	GatewayTimeout  time.Duration
	GatewayAttempts int
	GatewayBackoff  time.Duration

	Now func() time.Time
}

func (d *Deps) fill() {
	if d.GatewayTimeout <= 0 {
		d.GatewayTimeout = 10 * time.Second
	}
	if d.GatewayAttempts <= 0 {
		d.GatewayAttempts = 3
	}
	if d.GatewayBackoff <= 0 {
		d.GatewayBackoff = 500 * time.Millisecond
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

func NewExecutor(deps Deps) Executor {
	deps.fill()
	return func(ctx context.Context, sess *statex.Session, tool string, args map[string]any) contractx.ToolResult {
		if sess == nil {
			return errorResult(tool, "no session")
		}
		switch tool {
		case ToolGetCustomerData:
			return deps.getCustomerData(ctx, sess)
		case ToolRegisterCustomer:
			return deps.registerCustomer(ctx, sess, args)
		case ToolGetItemDetails:
			return deps.getItemDetails(sess, args)
		case ToolGetItemsByCategory:
			return deps.getItemsByCategory(args)
		case ToolGetCategories:
			return deps.getCategories()
		case ToolManageOrderItem:
			return deps.manageOrderItem(sess, args)
		case ToolViewOrder:
			return viewOrder(sess)
		case ToolCalculateTotal:
			return calculateTotal(sess)
		case ToolSaveAddress:
			return deps.saveAddress(ctx, sess, args)
		case ToolGetSavedAddresses:
			return deps.getSavedAddresses(ctx, sess)
		case ToolRegisterOrder:
			return deps.registerOrder(ctx, sess)
		case ToolCheckModifiable:
			return checkModifiable(sess, deps.Now())
		default:
			return contractx.ToolResult{
				Tool:    tool,
				Status:  contractx.StatusError,
				Message: fmt.Sprintf("tool %q is not available", tool),
			}
		}
	}
}

func (d Deps) getCustomerData(ctx context.Context, sess *statex.Session) contractx.ToolResult {
	if sess.CustomerID == "" {
		return errorResult(ToolGetCustomerData, "customer id missing from session")
	}

	var rec *contractx.CustomerRecord
	err := d.callGateway(ctx, func(cctx context.Context) error {
		var ferr error
		rec, ferr = d.Gateway.FindCustomer(cctx, sess.CustomerID)
		return ferr
	})
	if errors.Is(err, contractx.ErrCustomerNotFound) {
		return contractx.ToolResult{Tool: ToolGetCustomerData, Status: contractx.StatusNotFound}
	}
	if err != nil {
		log.Error().Err(err).Str("customer_id", sess.CustomerID).Msg("tool: customer lookup failed")
		return internalResult(ToolGetCustomerData, "could not reach the customer store")
	}

	sess.CustomerName = rec.FullName
	return contractx.ToolResult{
		Tool:   ToolGetCustomerData,
		Status: contractx.StatusSuccess,
		Data:   map[string]any{"customer": rec},
	}
}

func (d Deps) registerCustomer(ctx context.Context, sess *statex.Session, args map[string]any) contractx.ToolResult {
	if sess.CustomerID == "" {
		return errorResult(ToolRegisterCustomer, "customer id missing from session")
	}
	fullName := stringArg(args, "full_name")
	address := stringArg(args, "address")
	if fullName == "" && address == "" {
		return errorResult(ToolRegisterCustomer, "nothing to save: full_name or address required")
	}

	rec := contractx.CustomerRecord{ID: sess.CustomerID, FullName: fullName, PrimaryAddress: address}
	if fullName == "" {
		rec.FullName = sess.CustomerName
	}
	err := d.callGateway(ctx, func(cctx context.Context) error {
		return d.Gateway.UpsertCustomer(cctx, rec)
	})
	if err != nil {
		log.Error().Err(err).Str("customer_id", sess.CustomerID).Msg("tool: customer upsert failed")
		return internalResult(ToolRegisterCustomer, "could not write to the customer store")
	}

	if fullName != "" {
		sess.CustomerName = fullName
	}
	if address != "" {
		sess.ConfirmedAddress = address
	}
	return contractx.ToolResult{Tool: ToolRegisterCustomer, Status: contractx.StatusSuccess}
}

func (d Deps) getItemDetails(sess *statex.Session, args map[string]any) contractx.ToolResult {
	query := stringArg(args, "item_name")
	if query == "" {
		return errorResult(ToolGetItemDetails, "item_name is required")
	}
	res := d.Resolver.ResolveCategory(query, stringArg(args, "category"))
	return resolutionResult(ToolGetItemDetails, query, res)
}

func (d Deps) getItemsByCategory(args map[string]any) contractx.ToolResult {
	category := stringArg(args, "category")
	if category == "" {
		return errorResult(ToolGetItemsByCategory, "category is required")
	}
	items := d.Resolver.Catalog().Available(category)
	if len(items) == 0 {
		return contractx.ToolResult{
			Tool:    ToolGetItemsByCategory,
			Status:  contractx.StatusNotFound,
			Message: fmt.Sprintf("no available items in category %q", category),
			Data:    map[string]any{"items": []menux.Item{}},
		}
	}
	return contractx.ToolResult{
		Tool:   ToolGetItemsByCategory,
		Status: contractx.StatusSuccess,
		Data:   map[string]any{"items": items},
	}
}

func (d Deps) getCategories() contractx.ToolResult {
	cats := d.Resolver.Catalog().Categories()
	if len(cats) == 0 {
		return contractx.ToolResult{
			Tool:    ToolGetCategories,
			Status:  contractx.StatusNotFound,
			Message: "the menu is empty right now",
		}
	}
	return contractx.ToolResult{
		Tool:   ToolGetCategories,
		Status: contractx.StatusSuccess,
		Data:   map[string]any{"categories": cats},
	}
}

func (d Deps) manageOrderItem(sess *statex.Session, args map[string]any) contractx.ToolResult {
	action := strings.ToLower(stringArg(args, "action"))
	itemName := stringArg(args, "item_name")
	if itemName == "" {
		return errorResult(ToolManageOrderItem, "item_name is required")
	}
	quantity := intArg(args, "quantity", 1)

	switch action {
	case "add":
		res, err := sess.Cart.Add(itemName, quantity)
		if err != nil {
			return errorResult(ToolManageOrderItem, err.Error())
		}
		return resolutionResult(ToolManageOrderItem, itemName, res)
	case "set_quantity":
		res, err := sess.Cart.SetQuantity(itemName, quantity)
		if err != nil {
			return errorResult(ToolManageOrderItem, err.Error())
		}
		return resolutionResult(ToolManageOrderItem, itemName, res)
	case "remove":
		removed, err := sess.Cart.Remove(itemName)
		if err != nil {
			return contractx.ToolResult{
				Tool:    ToolManageOrderItem,
				Status:  contractx.StatusError,
				Message: fmt.Sprintf("%q is not in the current order", itemName),
			}
		}
		return contractx.ToolResult{
			Tool:   ToolManageOrderItem,
			Status: contractx.StatusSuccess,
			Data:   map[string]any{"removed": removed},
		}
	default:
		return errorResult(ToolManageOrderItem, fmt.Sprintf("invalid action %q: use add, remove, or set_quantity", action))
	}
}

func viewOrder(sess *statex.Session) contractx.ToolResult {
	return contractx.ToolResult{
		Tool:   ToolViewOrder,
		Status: contractx.StatusSuccess,
		Data:   map[string]any{"order_items": sess.Cart.List()},
	}
}

func calculateTotal(sess *statex.Session) contractx.ToolResult {
	total := sess.Cart.Compute()
	return contractx.ToolResult{
		Tool:   ToolCalculateTotal,
		Status: contractx.StatusSuccess,
		Data: map[string]any{
			"subtotal":        total.Subtotal,
			"items_breakdown": total.Lines,
			"cart_status":     total.Status,
		},
	}
}

func (d Deps) saveAddress(ctx context.Context, sess *statex.Session, args map[string]any) contractx.ToolResult {
	address := stringArg(args, "address")
	if !ValidAddress(address) {
		return errorResult(ToolSaveAddress, "an address needs at least a street name and a number")
	}

	err := d.callGateway(ctx, func(cctx context.Context) error {
		return d.Gateway.UpsertCustomer(cctx, contractx.CustomerRecord{
			ID:             sess.CustomerID,
			FullName:       sess.CustomerName,
			PrimaryAddress: address,
		})
	})
	if err != nil {
		log.Error().Err(err).Msg("tool: address save failed")
		return internalResult(ToolSaveAddress, "could not save the address")
	}

	sess.ConfirmedAddress = address
	return contractx.ToolResult{
		Tool:   ToolSaveAddress,
		Status: contractx.StatusSuccess,
		Data:   map[string]any{"address": address},
	}
}

func (d Deps) getSavedAddresses(ctx context.Context, sess *statex.Session) contractx.ToolResult {
	if sess.CustomerID == "" {
		return errorResult(ToolGetSavedAddresses, "customer id missing from session")
	}
	var rec *contractx.CustomerRecord
	err := d.callGateway(ctx, func(cctx context.Context) error {
		var ferr error
		rec, ferr = d.Gateway.FindCustomer(cctx, sess.CustomerID)
		return ferr
	})
	if errors.Is(err, contractx.ErrCustomerNotFound) {
		return contractx.ToolResult{Tool: ToolGetSavedAddresses, Status: contractx.StatusNotFound}
	}
	if err != nil {
		log.Error().Err(err).Msg("tool: saved-address lookup failed")
		return internalResult(ToolGetSavedAddresses, "could not reach the customer store")
	}

	addresses := map[string]string{}
	if a := strings.TrimSpace(rec.PrimaryAddress); a != "" {
		addresses["primary"] = a
	}
	if a := strings.TrimSpace(rec.SecondaryAddress); a != "" {
		addresses["secondary"] = a
	}
	if len(addresses) == 0 {
		return contractx.ToolResult{Tool: ToolGetSavedAddresses, Status: contractx.StatusNotFound}
	}
	return contractx.ToolResult{
		Tool:   ToolGetSavedAddresses,
		Status: contractx.StatusSuccess,
		Data:   map[string]any{"addresses": addresses},
	}
}

func (d Deps) registerOrder(ctx context.Context, sess *statex.Session) contractx.ToolResult {
	if sess.Cart.Empty() {
		return errorResult(ToolRegisterOrder, "cannot register an empty order")
	}

	now := d.Now()
	total := sess.Cart.Compute()
	rec := contractx.OrderRecord{
		ID:           uuid.NewString(),
		Number:       OrderNumber(now),
		CustomerID:   sess.CustomerID,
		CustomerName: sess.CustomerName,
		Address:      sess.ConfirmedAddress,
		PlacedAt:     now.UTC(),
		ItemsSummary: ItemsSummary(sess.Cart.List()),
		Total:        total.Subtotal,
		Status:       contractx.OrderStatusPending,
	}

	err := d.callGateway(ctx, func(cctx context.Context) error {
		return d.Gateway.AppendOrder(cctx, rec)
	})
	if err != nil {
		log.Error().Err(err).Str("order", rec.Number).Msg("tool: order commit failed")
		return internalResult(ToolRegisterOrder, "we had a problem registering your order")
	}

	sess.LastCommit = &statex.CommitMark{OrderNumber: rec.Number, At: now}
	log.Info().Str("order", rec.Number).Float64("total", rec.Total).Msg("tool: order committed")
	return contractx.ToolResult{
		Tool:   ToolRegisterOrder,
		Status: contractx.StatusSuccess,
		Data: map[string]any{
			"order_number": rec.Number,
			"subtotal":     rec.Total,
			"address":      rec.Address,
		},
	}
}

func checkModifiable(sess *statex.Session, now time.Time) contractx.ToolResult {
	if sess.LastCommit == nil {
		return contractx.ToolResult{
			Tool:   ToolCheckModifiable,
			Status: contractx.StatusNotFound,
			Data:   map[string]any{"modifiable": false},
		}
	}
	modifiable := sess.OrderModifiable(now)
	if !modifiable {
		// Expired marks are dropped so the next conversation starts clean.
		sess.LastCommit = nil
	}
	return contractx.ToolResult{
		Tool:   ToolCheckModifiable,
		Status: contractx.StatusSuccess,
		Data:   map[string]any{"modifiable": modifiable},
	}
}

// callGateway bounds a persistence call with the configured timeout and
// retries transient failures with exponential backoff. Store failures are
// never silently swallowed; the last error comes back after the attempt
// limit.
func (d Deps) callGateway(ctx context.Context, fn func(context.Context) error) error {
	backoff := d.GatewayBackoff
	var lastErr error
	for attempt := 1; attempt <= d.GatewayAttempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, d.GatewayTimeout)
		err := fn(cctx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, contractx.ErrCustomerNotFound) {
			return err
		}
		lastErr = err
		if attempt == d.GatewayAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("tool: gateway call failed, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %v", contractx.ErrStoreUnavailable, lastErr)
}

// ValidAddress checks the minimal shape of a delivery address: at least one
// word containing a letter and at least one digit.
func ValidAddress(address string) bool {
	hasLetterWord := false
	hasDigit := false
	for _, field := range strings.Fields(address) {
		for _, r := range field {
			if unicode.IsLetter(r) {
				hasLetterWord = true
			}
			if unicode.IsDigit(r) {
				hasDigit = true
			}
		}
	}
	return hasLetterWord && hasDigit
}

// OrderNumber derives the human-facing order id from the commit time.
func OrderNumber(now time.Time) string {
	return fmt.Sprintf("PZ-%06d", now.Unix()%1_000_000)
}

// ItemsSummary renders cart lines as "2x Pizza Margherita, 1x Inca Kola".
func ItemsSummary(lines []cartx.Line) string {
	parts := make([]string, 0, len(lines))
	for _, ln := range lines {
		parts = append(parts, fmt.Sprintf("%dx %s", ln.Quantity, ln.ItemName))
	}
	return strings.Join(parts, ", ")
}

func resolutionResult(tool, query string, res menux.Resolution) contractx.ToolResult {
	switch res.Status {
	case menux.MatchFound:
		return contractx.ToolResult{
			Tool:   tool,
			Status: contractx.StatusSuccess,
			Data:   map[string]any{"item_details": *res.Item},
		}
	case menux.MatchAmbiguous:
		return contractx.ToolResult{
			Tool:    tool,
			Status:  contractx.StatusClarificationNeeded,
			Message: "found several options",
			Data:    map[string]any{"options": res.Candidates},
		}
	case menux.MatchEmptyCatalog:
		return contractx.ToolResult{
			Tool:    tool,
			Status:  contractx.StatusNotFound,
			Message: "no items are available on the menu right now",
			Data:    map[string]any{"catalog_empty": true},
		}
	default:
		return contractx.ToolResult{
			Tool:    tool,
			Status:  contractx.StatusNotFound,
			Message: fmt.Sprintf("no menu item matches %q", query),
		}
	}
}

func errorResult(tool, msg string) contractx.ToolResult {
	return contractx.ToolResult{Tool: tool, Status: contractx.StatusError, Message: msg}
}

func internalResult(tool, msg string) contractx.ToolResult {
	return contractx.ToolResult{Tool: tool, Status: contractx.StatusErrorInternal, Message: msg}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func intArg(args map[string]any, key string, fallback int) int {
	if args == nil {
		return fallback
	}
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

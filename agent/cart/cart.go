package cart

import (
	"errors"
	"fmt"
	"math"
	"strings"

	menux "github.com/sanmarzano/orderbot/agent/menu"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrLineNotFound    = errors.New("item not found in cart")
)

// Line is one cart entry. Price and Subtotal are captured at add-time; a
// later catalog change does not move them.
type Line struct {
	ItemName string  `json:"item_name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

// TotalStatus distinguishes a genuinely empty cart from a cart totaled
// against an empty catalog; both sum to zero.
type TotalStatus string

const (
	TotalOK           TotalStatus = "success"
	TotalEmptyCart    TotalStatus = "empty_cart"
	TotalEmptyCatalog TotalStatus = "empty_catalog"
)

// Total is the grand total plus a per-line breakdown suitable for display.
type Total struct {
	Status   TotalStatus `json:"status"`
	Subtotal float64     `json:"subtotal"`
	Lines    []Line      `json:"items_breakdown"`
}

// Cart is the per-session mutable collection of chosen items. The
// orchestrator serializes turns per session, so it carries no lock.
type Cart struct {
	resolver *menux.Resolver
	lines    []Line
}

func New(resolver *menux.Resolver) *Cart {
	return &Cart{resolver: resolver}
}

// Add resolves the phrase and appends a new line. An item already in the cart
// gets a second line, deliberately: no automatic merging. The cart is never
// mutated unless resolution yields exactly one item.
func (c *Cart) Add(itemName string, quantity int) (menux.Resolution, error) {
	if quantity < 1 {
		return menux.Resolution{}, ErrInvalidQuantity
	}
	res := c.resolver.Resolve(itemName)
	if res.Status != menux.MatchFound {
		return res, nil
	}
	c.appendLine(*res.Item, quantity)
	return res, nil
}

// SetQuantity updates the first line matching the resolved canonical name.
// With no such line it falls back to Add: a "set" on an absent item becomes
// an "add".
func (c *Cart) SetQuantity(itemName string, quantity int) (menux.Resolution, error) {
	if quantity < 1 {
		return menux.Resolution{}, ErrInvalidQuantity
	}
	res := c.resolver.Resolve(itemName)
	if res.Status != menux.MatchFound {
		return res, nil
	}
	for i := range c.lines {
		if strings.EqualFold(c.lines[i].ItemName, res.Item.Name) {
			c.lines[i].Quantity = quantity
			c.lines[i].Subtotal = round2(c.lines[i].Price * float64(quantity))
			return res, nil
		}
	}
	c.appendLine(*res.Item, quantity)
	return res, nil
}

// Remove drops the most-recently-added line whose name matches,
// case-insensitively.
func (c *Cart) Remove(itemName string) (Line, error) {
	want := strings.ToLower(strings.TrimSpace(itemName))
	for i := len(c.lines) - 1; i >= 0; i-- {
		if strings.ToLower(c.lines[i].ItemName) == want {
			removed := c.lines[i]
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return removed, nil
		}
	}
	return Line{}, fmt.Errorf("%w: %s", ErrLineNotFound, itemName)
}

// List returns a copy of the current lines in insertion order.
func (c *Cart) List() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Clear drops every line; called when an order commits.
func (c *Cart) Clear() {
	c.lines = nil
}

// Compute recomputes the total from the captured line prices, never from a
// stored running sum.
func (c *Cart) Compute() Total {
	if len(c.lines) == 0 {
		status := TotalEmptyCart
		if c.resolver.Catalog().Empty() {
			status = TotalEmptyCatalog
		}
		return Total{Status: status, Subtotal: 0, Lines: []Line{}}
	}

	var sum float64
	lines := make([]Line, 0, len(c.lines))
	for _, ln := range c.lines {
		ln.Subtotal = round2(ln.Price * float64(ln.Quantity))
		sum += ln.Subtotal
		lines = append(lines, ln)
	}
	return Total{Status: TotalOK, Subtotal: round2(sum), Lines: lines}
}

func (c *Cart) appendLine(item menux.Item, quantity int) {
	c.lines = append(c.lines, Line{
		ItemName: item.Name,
		Quantity: quantity,
		Price:    item.Price,
		Subtotal: round2(item.Price * float64(quantity)),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

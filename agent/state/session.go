package state

import (
	"errors"
	"fmt"
	"time"

	cartx "github.com/sanmarzano/orderbot/agent/cart"
)

// Phase is the orchestrator's position in the ordering conversation. The
// cycle is terminal-free: FinalCommit resets to Idle, and Idle collapses back
// to CustomerIdentification on the next inbound turn.
type Phase string

const (
	PhaseCustomerIdentification Phase = "customer_identification"
	PhaseItemCollection         Phase = "item_collection"
	PhaseOrderConfirmation      Phase = "order_confirmation"
	PhaseAddressCollection      Phase = "address_collection"
	PhaseFinalCommit            Phase = "final_commit"
	PhaseIdle                   Phase = "idle"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseCustomerIdentification, PhaseItemCollection,
		PhaseOrderConfirmation, PhaseAddressCollection,
		PhaseFinalCommit, PhaseIdle:
		return true
	}
	return false
}

// Signals is the typed flag set specialists raise to request phase
// transitions. Flags are write-once per turn and consumed (cleared) by the
// orchestrator before the next specialist runs.
type Signals struct {
	CustomerResolved bool `json:"customer_resolved,omitempty"`
	OrderComplete    bool `json:"order_complete,omitempty"`
	Confirmed        bool `json:"confirmed,omitempty"`
	ModifyRequested  bool `json:"modify_requested,omitempty"`
	AddressConfirmed bool `json:"address_confirmed,omitempty"`
	OrderCommitted   bool `json:"order_committed,omitempty"`
}

func (s Signals) Any() bool {
	return s.CustomerResolved || s.OrderComplete || s.Confirmed ||
		s.ModifyRequested || s.AddressConfirmed || s.OrderCommitted
}

// Merge ORs raised flags in; a flag once raised in a turn stays raised until
// consumed.
func (s *Signals) Merge(other Signals) {
	s.CustomerResolved = s.CustomerResolved || other.CustomerResolved
	s.OrderComplete = s.OrderComplete || other.OrderComplete
	s.Confirmed = s.Confirmed || other.Confirmed
	s.ModifyRequested = s.ModifyRequested || other.ModifyRequested
	s.AddressConfirmed = s.AddressConfirmed || other.AddressConfirmed
	s.OrderCommitted = s.OrderCommitted || other.OrderCommitted
}

// CommitMark records the last committed order for the modification window.
type CommitMark struct {
	OrderNumber string    `json:"order_number"`
	At          time.Time `json:"at"`
}

// ModificationWindow is how long after commit an order still counts as
// modifiable.
const ModificationWindow = 5 * time.Minute

// Session is the per-conversation state record. It is owned exclusively by
// the orchestrator; specialists receive it as a mutable view but never
// replace it wholesale. Single-writer per session, so no lock.
type Session struct {
	SessionID        string      `json:"session_id"`
	Phase            Phase       `json:"phase"`
	Cart             *cartx.Cart `json:"-"`
	Flags            Signals     `json:"flags"`
	CustomerID       string      `json:"customer_id"`
	CustomerName     string      `json:"customer_name,omitempty"`
	ConfirmedAddress string      `json:"confirmed_address,omitempty"`
	LastCommit       *CommitMark `json:"last_commit,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrNilSession     = errors.New("session is nil")
)

func NewSession(sessionID, customerID string, cart *cartx.Cart, now time.Time) *Session {
	return &Session{
		SessionID:  sessionID,
		Phase:      PhaseCustomerIdentification,
		Cart:       cart,
		CustomerID: customerID,
		UpdatedAt:  now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// ResetForNewConversation returns the session to the initial phase after an
// order committed (or from idle). Customer identity survives; cart, flags,
// and the confirmed address do not.
func (s *Session) ResetForNewConversation(now time.Time) {
	s.Phase = PhaseCustomerIdentification
	s.Flags = Signals{}
	s.ConfirmedAddress = ""
	if s.Cart != nil {
		s.Cart.Clear()
	}
	s.Touch(now)
}

// OrderModifiable reports whether the last committed order is still inside
// the modification window.
func (s *Session) OrderModifiable(now time.Time) bool {
	return s.LastCommit != nil && now.Sub(s.LastCommit.At) < ModificationWindow
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.SessionID == "" {
		return ErrInvalidSession
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("invalid phase %q", s.Phase)
	}
	if s.Cart == nil {
		return errors.New("session cart is nil")
	}
	return nil
}

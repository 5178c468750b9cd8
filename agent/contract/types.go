package contract

import "time"

// Status is the discriminator every tool operation returns to the
// language-model layer.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusNotFound            Status = "not_found"
	StatusClarificationNeeded Status = "clarification_needed"
	StatusError               Status = "error"
	StatusErrorInternal       Status = "error_internal"
)

// Intent is the discrete classification of one inbound user turn. Real
// natural-language understanding happens outside this module; the engine only
// consumes the label.
type Intent string

const (
	IntentTakeOrder     Intent = "TAKE_ORDER"
	IntentFinalizeOrder Intent = "FINALIZE_ORDER"
	IntentConfirmOrder  Intent = "CONFIRM_ORDER"
	IntentGiveAddress   Intent = "GIVE_ADDRESS"
	IntentProvideName   Intent = "PROVIDE_NAME"
	IntentAskSchedule   Intent = "ASK_SCHEDULE"
	IntentMakeComplaint Intent = "MAKE_COMPLAINT"
	IntentGreeting      Intent = "GREETING"
	IntentContinue      Intent = "CONTINUE_CONVERSATION"
	IntentUnknown       Intent = "UNKNOWN"
)

// KnownIntents lists every label the classifiers may emit.
var KnownIntents = []Intent{
	IntentTakeOrder, IntentFinalizeOrder, IntentConfirmOrder,
	IntentGiveAddress, IntentProvideName, IntentAskSchedule,
	IntentMakeComplaint, IntentGreeting, IntentContinue, IntentUnknown,
}

// ParseIntent maps a raw label to a known Intent, defaulting to UNKNOWN.
func ParseIntent(raw string) Intent {
	for _, it := range KnownIntents {
		if string(it) == raw {
			return it
		}
	}
	return IntentUnknown
}

// TurnRequest is one inbound user turn. ToolCalls carries operations the
// external language-model layer already decomposed from the user text; Text
// is kept for handlers that work from the raw phrase.
type TurnRequest struct {
	SessionID string        `json:"session_id"`
	Text      string        `json:"text"`
	ToolCalls []ToolRequest `json:"tool_calls,omitempty"`
}

// TurnResult is the single user-visible outcome of a turn.
type TurnResult struct {
	Reply string `json:"reply"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the structured result of one tool operation. Data holds
// operation-specific payload fields (items, item_details, options, subtotal).
type ToolResult struct {
	Tool    string         `json:"tool"`
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// CustomerRecord mirrors one row of the customer store.
type CustomerRecord struct {
	ID               string `json:"id"`
	FullName         string `json:"full_name"`
	PrimaryAddress   string `json:"primary_address,omitempty"`
	SecondaryAddress string `json:"secondary_address,omitempty"`
}

// OrderRecord is one committed order as appended to the order store.
type OrderRecord struct {
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Address      string    `json:"address"`
	PlacedAt     time.Time `json:"placed_at"`
	ItemsSummary string    `json:"items_summary"`
	Total        float64   `json:"total"`
	Status       string    `json:"status"`
}

// OrderStatusPending is the status every freshly committed order starts in.
const OrderStatusPending = "Pendiente"

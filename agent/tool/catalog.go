package tool

import (
	"github.com/cloudwego/eino/schema"

	statex "github.com/sanmarzano/orderbot/agent/state"
)

// Tool names exposed to the language-model layer. One set per phase; a
// specialist only ever executes tools from its own phase's set.
const (
	ToolGetCustomerData    = "get_customer_data"
	ToolRegisterCustomer   = "register_update_customer"
	ToolGetItemDetails     = "get_item_details_by_name"
	ToolGetItemsByCategory = "get_items_by_category"
	ToolGetCategories      = "get_available_categories"
	ToolManageOrderItem    = "manage_order_item"
	ToolViewOrder          = "view_current_order"
	ToolCalculateTotal     = "calculate_order_total"
	ToolSaveAddress        = "save_delivery_address"
	ToolGetSavedAddresses  = "get_saved_addresses"
	ToolRegisterOrder      = "register_finalized_order"
	ToolCheckModifiable    = "check_if_order_is_modifiable"
)

// InfosForPhase returns the tool schemas available to the specialist of a
// phase. The schemas are what the external language-model layer binds when it
// decomposes user turns into tool calls.
func InfosForPhase(p statex.Phase) []*schema.ToolInfo {
	switch p {
	case statex.PhaseCustomerIdentification:
		return []*schema.ToolInfo{
			info(ToolGetCustomerData, "Look up the current customer in the customer store.", nil),
			info(ToolRegisterCustomer, "Register a new customer or update their data.", map[string]*schema.ParameterInfo{
				"full_name": {Type: schema.String, Desc: "Customer's full name"},
				"address":   {Type: schema.String, Desc: "Customer's delivery address"},
			}),
		}
	case statex.PhaseItemCollection:
		return []*schema.ToolInfo{
			info(ToolGetItemDetails, "Find one menu item from a free-text phrase.", map[string]*schema.ParameterInfo{
				"item_name": {Type: schema.String, Desc: "Free-text item phrase", Required: true},
				"category":  {Type: schema.String, Desc: "Optional category to narrow the search"},
			}),
			info(ToolManageOrderItem, "Add, remove, or set the quantity of a cart item.", map[string]*schema.ParameterInfo{
				"action":    {Type: schema.String, Desc: "add | remove | set_quantity", Required: true},
				"item_name": {Type: schema.String, Desc: "Item phrase to act on", Required: true},
				"quantity":  {Type: schema.Integer, Desc: "Quantity, default 1"},
			}),
			info(ToolGetItemsByCategory, "List the available items of one category.", map[string]*schema.ParameterInfo{
				"category": {Type: schema.String, Desc: "Category name", Required: true},
			}),
			info(ToolGetCategories, "List the menu categories currently available.", nil),
			info(ToolViewOrder, "Show the items currently in the cart.", nil),
		}
	case statex.PhaseOrderConfirmation:
		return []*schema.ToolInfo{
			info(ToolViewOrder, "Show the items currently in the cart.", nil),
			info(ToolCalculateTotal, "Compute the order total with a per-line breakdown.", nil),
			info(ToolManageOrderItem, "Add, remove, or set the quantity of a cart item.", map[string]*schema.ParameterInfo{
				"action":    {Type: schema.String, Desc: "add | remove | set_quantity", Required: true},
				"item_name": {Type: schema.String, Desc: "Item phrase to act on", Required: true},
				"quantity":  {Type: schema.Integer, Desc: "Quantity, default 1"},
			}),
		}
	case statex.PhaseAddressCollection:
		return []*schema.ToolInfo{
			info(ToolGetSavedAddresses, "Fetch the customer's saved delivery addresses.", nil),
			info(ToolSaveAddress, "Validate and save the delivery address for this order.", map[string]*schema.ParameterInfo{
				"address": {Type: schema.String, Desc: "Street address with name and number", Required: true},
			}),
		}
	case statex.PhaseFinalCommit:
		return []*schema.ToolInfo{
			info(ToolRegisterOrder, "Commit the finished order to the order store.", nil),
			info(ToolCheckModifiable, "Check whether a recently committed order is still modifiable.", nil),
		}
	default:
		return nil
	}
}

// AllowedForPhase returns the tool-name set of a phase for request
// filtering.
func AllowedForPhase(p statex.Phase) map[string]struct{} {
	infos := InfosForPhase(p)
	out := make(map[string]struct{}, len(infos))
	for _, ti := range infos {
		out[ti.Name] = struct{}{}
	}
	return out
}

func info(name, desc string, params map[string]*schema.ParameterInfo) *schema.ToolInfo {
	ti := &schema.ToolInfo{Name: name, Desc: desc}
	if params != nil {
		ti.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}
	return ti
}

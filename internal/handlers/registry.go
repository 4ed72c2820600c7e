package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Result is what a dispatched operation hands back to the conversation.
type Result struct {
	Status int
	Body   string
}

// dispatchFunc executes one fully slot-filled intent against the backend.
type dispatchFunc func(ctx context.Context, c *Client, slots map[string]any) (*Result, error)

// Registry binds intents to their operation handlers.
type Registry struct {
	client *Client
	funcs  map[string]dispatchFunc
}

// intentOwners maps each dispatchable intent to the subsystem that owns it.
var intentOwners = map[string]string{
	"set_fee_amount":    "fees",
	"fee_balance":       "fees",
	"generate_invoices": "fees",
	"student_count":     "students",
	"register_student":  "students",
	"create_class":      "classes",
	"list_classes":      "classes",
}

// Owner returns the handler subsystem owning an intent, or "general" when
// no operation handler is bound to it.
func Owner(intent string) string {
	if owner, ok := intentOwners[intent]; ok {
		return owner
	}
	return "general"
}

// NewRegistry creates the registry over a backend client, with every
// dispatchable intent bound.
func NewRegistry(client *Client) *Registry {
	return &Registry{
		client: client,
		funcs: map[string]dispatchFunc{
			"set_fee_amount":    dispatchSetFeeAmount,
			"fee_balance":       dispatchFeeBalance,
			"generate_invoices": dispatchGenerateInvoices,
			"student_count":     dispatchStudentCount,
			"register_student":  dispatchRegisterStudent,
			"create_class":      dispatchCreateClass,
			"list_classes":      dispatchListClasses,
		},
	}
}

// Dispatch runs the handler bound to the intent with the final slot map.
func (r *Registry) Dispatch(ctx context.Context, intent string, slots map[string]any) (*Result, error) {
	fn, ok := r.funcs[intent]
	if !ok {
		return nil, fmt.Errorf("no operation handler for intent %q", intent)
	}
	return fn(ctx, r.client, slots)
}

// slotString reads a slot as text, accepting numeric values too (slots
// round-trip through JSON, so years arrive as float64).
func slotString(slots map[string]any, key string) string {
	switch v := slots[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func slotNumber(slots map[string]any, key string) (float64, bool) {
	switch v := slots[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// formatAmount renders a money amount without trailing decimal noise.
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// classRef renders whichever class reference the slots carry.
func classRef(slots map[string]any) string {
	if v := slotString(slots, "class_name"); v != "" {
		return v
	}
	return slotString(slots, "level")
}

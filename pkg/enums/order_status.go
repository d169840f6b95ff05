package enums

import "fmt"

// OrderStatus tracks the lifecycle of a production order.
type OrderStatus string

const (
	OrderStatusDraft               OrderStatus = "draft"
	OrderStatusReadyForEngineering OrderStatus = "ready_for_engineering"
	OrderStatusInEngineering       OrderStatus = "in_engineering"
	OrderStatusEngineeringBlocked  OrderStatus = "engineering_blocked"
	OrderStatusReadyForProduction  OrderStatus = "ready_for_production"
	OrderStatusInProduction        OrderStatus = "in_production"
	OrderStatusDone                OrderStatus = "done"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusReadyForEngineering,
	OrderStatusInEngineering,
	OrderStatusEngineeringBlocked,
	OrderStatusReadyForProduction,
	OrderStatusInProduction,
	OrderStatusDone,
}

// legacyOrderStatuses maps values from the pre-migration schema onto their
// nearest current equivalent. This is a compatibility shim, not a business
// rule; the state machine never consults it.
var legacyOrderStatuses = map[string]OrderStatus{
	"pending":     OrderStatusDraft,
	"in_progress": OrderStatusInEngineering,
	"completed":   OrderStatusReadyForProduction,
	"cancelled":   OrderStatusEngineeringBlocked,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// NormalizeOrderStatus maps a persisted status value onto the current enum.
// Current values pass through unchanged; legacy values are translated at the
// persistence boundary so rows written by the old schema stay readable.
// Unknown values are returned as-is and fail IsValid downstream.
func NormalizeOrderStatus(value string) OrderStatus {
	if s := OrderStatus(value); s.IsValid() {
		return s
	}
	if s, ok := legacyOrderStatuses[value]; ok {
		return s
	}
	return OrderStatus(value)
}

package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/prodflow-backend/internal/workflowrules"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// GateViolation describes one unmet precondition for a transition.
type GateViolation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// EvaluateGates checks the tenant's transition requirements against the
// order's persisted state. Counts come from the database, never from the
// client; a request claiming its gates pass is re-checked here.
func EvaluateGates(
	order *models.Order,
	target enums.OrderStatus,
	rules workflowrules.RuleSet,
	attachmentCount int64,
	commentCount int64,
) []GateViolation {
	var violations []GateViolation

	for _, item := range rules.RequiredChecklistItems(target) {
		if !order.ChecklistState[item.ID] {
			violations = append(violations, GateViolation{
				Rule:    "checklist",
				Message: fmt.Sprintf("checklist item %q must be checked", item.Label),
			})
		}
	}

	req := rules.RequirementFor(target)

	if req.MinAttachments > 0 && attachmentCount < int64(req.MinAttachments) {
		violations = append(violations, GateViolation{
			Rule:    "min_attachments",
			Message: fmt.Sprintf("at least %d attachment(s) required, order has %d", req.MinAttachments, attachmentCount),
		})
	}

	if req.RequireComment && commentCount == 0 {
		violations = append(violations, GateViolation{
			Rule:    "require_comment",
			Message: "at least one comment required",
		})
	}

	if req.RequireInputs {
		violations = append(violations, inputViolations(order)...)
	}

	return violations
}

func inputViolations(order *models.Order) []GateViolation {
	var violations []GateViolation
	if order.ProductName == nil || strings.TrimSpace(*order.ProductName) == "" {
		violations = append(violations, GateViolation{
			Rule:    "require_inputs",
			Message: "product name is required",
		})
	}
	if order.Quantity == nil || *order.Quantity <= 0 {
		violations = append(violations, GateViolation{
			Rule:    "require_inputs",
			Message: "quantity is required",
		})
	}
	if order.DueDate == nil {
		violations = append(violations, GateViolation{
			Rule:    "require_inputs",
			Message: "due date is required",
		})
	}
	return violations
}

package workflowrules

import (
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// ChecklistItem is one configurable readiness item shown on an order.
// RequiredFor lists the target statuses that refuse the transition while the
// item is unchecked.
type ChecklistItem struct {
	ID          string              `json:"id"`
	Label       string              `json:"label"`
	RequiredFor []enums.OrderStatus `json:"requiredFor,omitempty"`
}

// TransitionRequirement gates one target status.
type TransitionRequirement struct {
	MinAttachments int  `json:"minAttachments,omitempty"`
	RequireComment bool `json:"requireComment,omitempty"`
	RequireInputs  bool `json:"requireInputs,omitempty"`
}

// RuleSet is the per-tenant workflow configuration. A tenant without a stored
// rule set gets Defaults().
type RuleSet struct {
	ChecklistItems            []ChecklistItem                             `json:"checklistItems"`
	Transitions               map[enums.OrderStatus]TransitionRequirement `json:"transitions"`
	ExternalJobMinAttachments map[enums.ExternalJobStatus]int             `json:"externalJobMinAttachments,omitempty"`
	ReturnReasons             []string                                    `json:"returnReasons,omitempty"`
	StatusLabels              map[enums.OrderStatus]string                `json:"statusLabels,omitempty"`
}

// Defaults returns the rule set applied to tenants that never customized
// their workflow.
func Defaults() RuleSet {
	return RuleSet{
		ChecklistItems: []ChecklistItem{
			{
				ID:          "inputs_confirmed",
				Label:       "Order inputs confirmed",
				RequiredFor: []enums.OrderStatus{enums.OrderStatusReadyForEngineering},
			},
			{
				ID:          "drawings_approved",
				Label:       "Drawings approved",
				RequiredFor: []enums.OrderStatus{enums.OrderStatusReadyForProduction},
			},
		},
		Transitions: map[enums.OrderStatus]TransitionRequirement{
			enums.OrderStatusReadyForEngineering: {
				RequireInputs: true,
			},
			enums.OrderStatusReadyForProduction: {
				MinAttachments: 1,
			},
			enums.OrderStatusEngineeringBlocked: {
				RequireComment: true,
			},
		},
		ExternalJobMinAttachments: map[enums.ExternalJobStatus]int{
			enums.ExternalJobStatusDelivered: 1,
		},
		ReturnReasons: []string{
			"missing information",
			"incorrect specification",
			"customer change request",
		},
	}
}

// RequiredChecklistItems returns the checklist items that must be checked
// before an order may enter targetStatus.
func (r RuleSet) RequiredChecklistItems(targetStatus enums.OrderStatus) []ChecklistItem {
	var required []ChecklistItem
	for _, item := range r.ChecklistItems {
		for _, status := range item.RequiredFor {
			if status == targetStatus {
				required = append(required, item)
				break
			}
		}
	}
	return required
}

// RequirementFor returns the transition requirement for targetStatus, zero
// value when none is configured.
func (r RuleSet) RequirementFor(targetStatus enums.OrderStatus) TransitionRequirement {
	if r.Transitions == nil {
		return TransitionRequirement{}
	}
	return r.Transitions[targetStatus]
}

// MinAttachmentsForJobStatus returns the attachment floor for an external job
// entering the given status.
func (r RuleSet) MinAttachmentsForJobStatus(status enums.ExternalJobStatus) int {
	if r.ExternalJobMinAttachments == nil {
		return 0
	}
	return r.ExternalJobMinAttachments[status]
}

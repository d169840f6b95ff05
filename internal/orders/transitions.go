package orders

import (
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// forwardTransitions maps each status to the forward moves leaving it and the
// roles allowed to perform them. Elevated roles (admin, owner) may perform
// any move that exists in the map.
var forwardTransitions = map[enums.OrderStatus]map[enums.OrderStatus][]enums.ActorRole{
	enums.OrderStatusDraft: {
		enums.OrderStatusReadyForEngineering: {enums.ActorRoleSales},
	},
	enums.OrderStatusReadyForEngineering: {
		enums.OrderStatusInEngineering: {enums.ActorRoleEngineering},
	},
	enums.OrderStatusInEngineering: {
		enums.OrderStatusEngineeringBlocked: {enums.ActorRoleEngineering},
		enums.OrderStatusReadyForProduction: {enums.ActorRoleEngineering},
	},
	enums.OrderStatusEngineeringBlocked: {
		enums.OrderStatusInEngineering: {enums.ActorRoleEngineering},
	},
	enums.OrderStatusReadyForProduction: {
		enums.OrderStatusInProduction: {enums.ActorRoleManager},
	},
	enums.OrderStatusInProduction: {
		enums.OrderStatusDone: {enums.ActorRoleManager},
	},
}

// sendBackTransitions maps each status to the backward moves leaving it.
// A send-back always records a reason comment before the status changes.
var sendBackTransitions = map[enums.OrderStatus]map[enums.OrderStatus][]enums.ActorRole{
	enums.OrderStatusReadyForEngineering: {
		enums.OrderStatusDraft: {enums.ActorRoleSales},
	},
	enums.OrderStatusInEngineering: {
		enums.OrderStatusDraft:               {enums.ActorRoleSales},
		enums.OrderStatusReadyForEngineering: {enums.ActorRoleEngineering},
	},
	enums.OrderStatusEngineeringBlocked: {
		enums.OrderStatusDraft:               {enums.ActorRoleSales},
		enums.OrderStatusReadyForEngineering: {enums.ActorRoleEngineering},
	},
	enums.OrderStatusReadyForProduction: {
		enums.OrderStatusInEngineering: {enums.ActorRoleEngineering},
	},
}

// TransitionExists reports whether any role may move an order from one status
// to another, forward or back.
func TransitionExists(from, to enums.OrderStatus) bool {
	if _, ok := forwardTransitions[from][to]; ok {
		return true
	}
	_, ok := sendBackTransitions[from][to]
	return ok
}

// CanTransition reports whether the role may perform the forward move.
func CanTransition(from, to enums.OrderStatus, role enums.ActorRole) bool {
	roles, ok := forwardTransitions[from][to]
	if !ok {
		return false
	}
	return roleAllowed(roles, role)
}

// CanSendBack reports whether the role may perform the backward move.
func CanSendBack(from, to enums.OrderStatus, role enums.ActorRole) bool {
	roles, ok := sendBackTransitions[from][to]
	if !ok {
		return false
	}
	return roleAllowed(roles, role)
}

// IsSendBack reports whether the pair is a backward move requiring a reason.
func IsSendBack(from, to enums.OrderStatus) bool {
	_, ok := sendBackTransitions[from][to]
	return ok
}

// NextStatuses lists the statuses the role may move an order into from its
// current status. Used by the API to expose available actions.
func NextStatuses(from enums.OrderStatus, role enums.ActorRole) []enums.OrderStatus {
	var out []enums.OrderStatus
	for to, roles := range forwardTransitions[from] {
		if roleAllowed(roles, role) {
			out = append(out, to)
		}
	}
	for to, roles := range sendBackTransitions[from] {
		if roleAllowed(roles, role) {
			out = append(out, to)
		}
	}
	return out
}

func roleAllowed(roles []enums.ActorRole, role enums.ActorRole) bool {
	if role.IsElevated() {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

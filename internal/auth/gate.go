package auth

import "ordersync/internal/core"

// rolePermissions is the default role → permission mapping. The engine only
// consumes the boolean answer; the real deployment swaps in the settings
// subsystem's evaluator via core.CapabilityGate.
var rolePermissions = map[string]map[string]bool{
	"admin": {
		core.PermDeleteOrders: true,
	},
	"manager": {
		core.PermDeleteOrders: true,
	},
	"staff":    {},
	"customer": {},
}

// RoleGate answers capability checks from the static role mapping.
type RoleGate struct{}

// NewRoleGate returns the default role-based capability gate.
func NewRoleGate() *RoleGate {
	return &RoleGate{}
}

func (g *RoleGate) HasPermission(actor *core.Actor, permission string) bool {
	if actor == nil {
		return false
	}
	perms, ok := rolePermissions[actor.Role]
	if !ok {
		return false
	}
	return perms[permission]
}

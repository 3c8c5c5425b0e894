// Package rbac provides role-based access control checks.
package rbac

import (
	"fmt"

	"github.com/NicolasHaas/gochat/pkg/model"
)

// permissionMatrix maps roles to their allowed permissions.
var permissionMatrix = map[model.Role]map[model.Permission]bool{
	model.RoleAdmin: {
		model.PermBlockUser: true,
		model.PermAdminHelp: true,
	},
	model.RoleRegular: {
		// chat, whisper and ignore need no permission
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role model.Role, perm model.Permission) bool {
	perms, ok := permissionMatrix[role]
	if !ok {
		return false
	}
	return perms[perm]
}

// RequirePermission returns an error wrapping model.ErrNoPermission if the role lacks perm.
func RequirePermission(role model.Role, perm model.Permission) error {
	if HasPermission(role, perm) {
		return nil
	}
	return fmt.Errorf("rbac: %s requires admin: %w", permName(perm), model.ErrNoPermission)
}

func permName(p model.Permission) string {
	switch p {
	case model.PermBlockUser:
		return "block_user"
	case model.PermAdminHelp:
		return "admin_help"
	default:
		return "unknown"
	}
}

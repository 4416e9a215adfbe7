// Package policy decides whether an authenticated caller may act on a user
// record. Decisions are pure functions of their inputs.
package policy

import (
	"github.com/octobees/usersapi/internal/auth"
	"github.com/octobees/usersapi/internal/validation"
)

// Denial reasons.
const (
	ReasonSelfOrAdmin   = "self-or-admin required"
	ReasonAdminForRole  = "admin required to change role"
	messageUpdateOthers = "You can only update your own profile"
	messageChangeRole   = "Only admins can change user roles"
	messageDeleteOthers = "You can only delete your own account"
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
	Message string
}

// Allow is the permissive decision.
var Allow = Decision{Allowed: true}

func deny(reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

func selfOrAdmin(caller auth.Identity, targetID int64) bool {
	return caller.UserID == targetID || caller.IsAdmin()
}

// CanRead allows any authenticated caller to list or fetch users.
func CanRead(auth.Identity) Decision {
	return Allow
}

// CanUpdate applies the self-or-admin rule, then requires admin for role changes.
func CanUpdate(caller auth.Identity, targetID int64, changes validation.UpdatePayload) Decision {
	if !selfOrAdmin(caller, targetID) {
		return deny(ReasonSelfOrAdmin, messageUpdateOthers)
	}
	if changes.ChangesRole() && !caller.IsAdmin() {
		return deny(ReasonAdminForRole, messageChangeRole)
	}
	return Allow
}

// CanDelete applies the self-or-admin rule.
func CanDelete(caller auth.Identity, targetID int64) Decision {
	if !selfOrAdmin(caller, targetID) {
		return deny(ReasonSelfOrAdmin, messageDeleteOthers)
	}
	return Allow
}

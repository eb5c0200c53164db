// Package domain defines shared domain constants and types.
package domain

const (
	// RoleOwner represents the bot owner, the only account allowed to run admin commands.
	RoleOwner = "owner"
	// RoleUser represents a standard user with no elevated privileges.
	RoleUser = "user"
)

// RoleFor resolves the role of userID given the configured owner id.
func RoleFor(ownerID, userID int64) string {
	if ownerID != 0 && ownerID == userID {
		return RoleOwner
	}
	return RoleUser
}

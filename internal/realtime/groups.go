package realtime

import (
	"github.com/google/uuid"
	"github.com/pscheid92/pawpulse/internal/domain"
)

const (
	userGroupPrefix = "user:"
	roleGroupPrefix = "role:"
)

// UserGroup is the group holding every connection of one user.
func UserGroup(userID uuid.UUID) string {
	return userGroupPrefix + userID.String()
}

// RoleGroup is the group holding every connection authenticated with role.
func RoleGroup(role domain.Role) string {
	return roleGroupPrefix + string(role)
}

func groupsFor(identity domain.Identity) []string {
	return []string{UserGroup(identity.UserID), RoleGroup(identity.Role)}
}

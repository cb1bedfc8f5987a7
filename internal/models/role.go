package models

// Role is the closed set of membership roles. Roles are totally ordered
// (viewer < manager < admin) and are only ever compared by rank, never used
// as equality-based feature flags.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole is the single boundary where raw role strings from identity
// provider metadata or storage become typed roles. Anything outside the
// closed set is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleViewer, RoleManager, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Rank returns the position of the role in the total order.
// Unknown roles rank below viewer so a zero value never passes a check.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether r ranks at or above minimum.
func (r Role) AtLeast(minimum Role) bool {
	return r.Rank() >= minimum.Rank()
}

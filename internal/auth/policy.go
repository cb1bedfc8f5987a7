package auth

import (
	"github.com/lodgepole-labs/lodgepole/internal/models"
)

// RequireRole checks that the context's role meets the minimum for an
// operation. Roles are strictly ordered (viewer < manager < admin) and a
// higher role always satisfies a lower requirement. The returned error names
// both the actual and required roles.
func RequireRole(ac *Context, minimum models.Role) error {
	if ac.Role.AtLeast(minimum) {
		return nil
	}
	return InsufficientRole(string(ac.Role), string(minimum))
}

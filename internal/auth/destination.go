package auth

import "github.com/verpflegung/meal-api/internal/models"

// Destinations a client application navigates to after login
const (
	DestinationAdmin     = "admin-dashboard"
	DestinationChef      = "chef-dashboard"
	DestinationCaretaker = "caretaker-dashboard"
	DestinationService   = "service-dashboard"
	DestinationOrder     = "order-dashboard"
	DestinationHome      = "home"
)

var destinations = map[models.Role]string{
	models.RoleAdmin:        DestinationAdmin,
	models.RoleKitchenChef:  DestinationChef,
	models.RoleCaretaker:    DestinationCaretaker,
	models.RoleServiceStaff: DestinationService,
	models.RoleClient:       DestinationOrder,
}

// Destination maps any role label, canonical or historical, to the dashboard a
// user lands on. Unknown labels go home.
func Destination(role string) string {
	r, ok := models.ParseRole(role)
	if !ok {
		return DestinationHome
	}
	return DestinationFor(r)
}

// DestinationFor is Destination for an already parsed role
func DestinationFor(r models.Role) string {
	if d, ok := destinations[r]; ok {
		return d
	}
	return DestinationHome
}

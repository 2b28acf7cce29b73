package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of account roles
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleKitchenChef  Role = "kitchen_chef"
	RoleCaretaker    Role = "caretaker"
	RoleServiceStaff Role = "service_staff"
	RoleClient       Role = "client"
)

// Roles lists every role in display order
var Roles = []Role{RoleAdmin, RoleKitchenChef, RoleCaretaker, RoleServiceStaff, RoleClient}

// roleAliases maps lower-cased historical labels to the canonical role.
// Older records used German labels and a second English spelling.
var roleAliases = map[string]Role{
	"admin":              RoleAdmin,
	"administrator":      RoleAdmin,
	"kitchen_chef":       RoleKitchenChef,
	"kitchen-chef":       RoleKitchenChef,
	"kuechenchef":        RoleKitchenChef,
	"küchenchef":         RoleKitchenChef,
	"chef":               RoleKitchenChef,
	"caretaker":          RoleCaretaker,
	"betreuer":           RoleCaretaker,
	"mittagsdienst":      RoleCaretaker,
	"service_staff":      RoleServiceStaff,
	"service-staff":      RoleServiceStaff,
	"servicemitarbeiter": RoleServiceStaff,
	"server":             RoleServiceStaff,
	"schopfdienst":       RoleServiceStaff,
	"client":             RoleClient,
	"klient":             RoleClient,
}

// ParseRole resolves a canonical name or historical alias
func ParseRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// Valid reports whether r is one of the canonical roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff is true for every role that logs in by email
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleClient
}

// UnmarshalJSON accepts aliases so stored documents with old labels still load
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*r = ""
		return nil
	}
	parsed, ok := ParseRole(s)
	if !ok {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = parsed
	return nil
}

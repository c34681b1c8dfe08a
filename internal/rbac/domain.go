package rbac

import "time"

// Resource identifies a protected domain noun.
type Resource string

// Resources known to the platform.
const (
	ResourceRestaurant Resource = "restaurant"
	ResourceMenu       Resource = "menu"
	ResourceCategory   Resource = "category"
	ResourceModifier   Resource = "modifier"
	ResourceOrder      Resource = "order"
	ResourceInventory  Resource = "inventory"
	ResourceInvoice    Resource = "invoice"
	ResourceUser       Resource = "user"
	ResourceReport     Resource = "report"
)

// AllResources returns the static resource catalog in display order.
// Accessible-resource enumeration iterates this list, so a grant for a
// resource outside it is never surfaced there.
func AllResources() []Resource {
	return []Resource{
		ResourceRestaurant,
		ResourceMenu,
		ResourceCategory,
		ResourceModifier,
		ResourceOrder,
		ResourceInventory,
		ResourceInvoice,
		ResourceUser,
		ResourceReport,
	}
}

// Action is one of the four CRUD verbs.
type Action string

// CRUD actions.
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AllActions returns the CRUD verbs in canonical order.
func AllActions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}

// Role is the closed set of platform roles. Bypass rules live in the
// capability table below rather than in scattered string comparisons.
type Role string

const (
	// RoleSystemAdmin bypasses every permission check.
	RoleSystemAdmin Role = "system_admin"
	// RoleRestaurantAdmin always holds the restaurant resource and receives
	// provisional access to restaurant-domain resources while grants load.
	RoleRestaurantAdmin Role = "restaurant_admin"
	// RoleManager and RoleStaff hold only what their grant set says.
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// ParseRole maps a stored role string onto the closed enum. Unknown values
// degrade to RoleStaff so a bad row can never widen access.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSystemAdmin, RoleRestaurantAdmin, RoleManager, RoleStaff:
		return Role(s)
	default:
		return RoleStaff
	}
}

// Capabilities describes the standing rules attached to a role, independent
// of its loaded grant set.
type Capabilities struct {
	// BypassAll short-circuits every permission check to allowed.
	BypassAll bool
	// StandingResources are always allowed regardless of load state.
	StandingResources []Resource
	// ProvisionalResources are allowed only while the grant set is still
	// loading, so a freshly signed-in admin is not denied mid-bootstrap.
	ProvisionalResources []Resource
}

var capabilityTable = map[Role]Capabilities{
	RoleSystemAdmin: {BypassAll: true},
	RoleRestaurantAdmin: {
		StandingResources: []Resource{ResourceRestaurant},
		ProvisionalResources: []Resource{
			ResourceRestaurant,
			ResourceMenu,
			ResourceCategory,
			ResourceModifier,
			ResourceOrder,
		},
	},
	RoleManager: {},
	RoleStaff:   {},
}

// CapabilitiesFor returns the standing rules for a role.
func CapabilitiesFor(role Role) Capabilities {
	return capabilityTable[role]
}

// Grant is a single (resource, action) permission fact.
type Grant struct {
	Resource    Resource `json:"resource"`
	Action      Action   `json:"action"`
	Active      bool     `json:"active"`
	Description string   `json:"description,omitempty"`
}

// GrantRecord is a grant as persisted, with assignment metadata.
type GrantRecord struct {
	ID        int64
	RoleName  Role
	Grant     Grant
	CreatedAt time.Time
}

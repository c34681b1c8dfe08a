package rbac

import "testing"

func TestParseRoleDegradesUnknownToStaff(t *testing.T) {
	cases := map[string]Role{
		"system_admin":     RoleSystemAdmin,
		"restaurant_admin": RoleRestaurantAdmin,
		"manager":          RoleManager,
		"staff":            RoleStaff,
		"superuser":        RoleStaff,
		"":                 RoleStaff,
	}
	for input, want := range cases {
		if got := ParseRole(input); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCapabilityTable(t *testing.T) {
	if !CapabilitiesFor(RoleSystemAdmin).BypassAll {
		t.Fatal("system admin must bypass all checks")
	}

	ra := CapabilitiesFor(RoleRestaurantAdmin)
	if ra.BypassAll {
		t.Fatal("restaurant admin must not bypass checks")
	}
	if len(ra.StandingResources) != 1 || ra.StandingResources[0] != ResourceRestaurant {
		t.Fatalf("restaurant admin standing resources = %v", ra.StandingResources)
	}
	found := false
	for _, r := range ra.ProvisionalResources {
		if r == ResourceOrder {
			found = true
		}
		if r == ResourceUser {
			t.Fatal("user management must not be provisionally granted")
		}
	}
	if !found {
		t.Fatal("orders must be provisionally accessible to restaurant admin")
	}

	for _, role := range []Role{RoleManager, RoleStaff} {
		caps := CapabilitiesFor(role)
		if caps.BypassAll || len(caps.StandingResources) != 0 || len(caps.ProvisionalResources) != 0 {
			t.Fatalf("%s must hold no standing capabilities: %+v", role, caps)
		}
	}
}

func TestDefaultGrantsCopy(t *testing.T) {
	first := DefaultGrants(RoleStaff)
	if len(first) == 0 {
		t.Fatal("staff default grants must not be empty")
	}
	first[0].Active = false
	second := DefaultGrants(RoleStaff)
	if !second[0].Active {
		t.Fatal("DefaultGrants must return an independent copy")
	}
}

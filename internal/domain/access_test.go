package domain

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"free":      RoleFree,
		"pro":       RolePro,
		"admin":     RoleAdmin,
		"":          RoleAnonymous,
		"anonymous": RoleAnonymous,
		"superuser": RoleAnonymous,
	}
	for raw, want := range cases {
		if got := ParseRole(raw); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCanView(t *testing.T) {
	tests := []struct {
		tier AccessTier
		role Role
		want bool
	}{
		{TierFree, RoleAnonymous, true},
		{TierAll, RoleAnonymous, true},
		{TierPro, RoleAnonymous, false},
		{TierFree, RoleFree, true},
		{TierPro, RoleFree, false},
		{TierPro, RolePro, true},
		{TierPro, RoleAdmin, true},
		{TierAll, RoleAdmin, true},
	}
	for _, tt := range tests {
		if got := CanView(tt.tier, tt.role); got != tt.want {
			t.Errorf("CanView(%q, %q) = %v, want %v", tt.tier, tt.role, got, tt.want)
		}
	}
}

func TestCanCopy_AnonymousNever(t *testing.T) {
	for _, tier := range []AccessTier{TierFree, TierPro, TierAll} {
		if CanCopy(tier, RoleAnonymous) {
			t.Errorf("anonymous must not copy tier %q", tier)
		}
	}
}

func TestCanCopy_FreeViewsProButCannotCopy(t *testing.T) {
	if CanCopy(TierPro, RoleFree) {
		t.Error("free role must not copy pro content")
	}
	if !CanCopy(TierFree, RoleFree) {
		t.Error("free role must copy free content")
	}
	if !CanCopy(TierAll, RoleFree) {
		t.Error("free role must copy ungated content")
	}
}

// Copy permission must be monotone in the role hierarchy: anything a lower
// role may copy, every higher role may copy too.
func TestCanCopy_Monotone(t *testing.T) {
	hierarchy := []Role{RoleAnonymous, RoleFree, RolePro, RoleAdmin}
	tiers := []AccessTier{TierFree, TierPro, TierAll}

	for _, tier := range tiers {
		for i := 0; i < len(hierarchy)-1; i++ {
			lower, higher := hierarchy[i], hierarchy[i+1]
			if CanCopy(tier, lower) && !CanCopy(tier, higher) {
				t.Errorf("CanCopy(%q, %q) but not CanCopy(%q, %q)", tier, lower, tier, higher)
			}
		}
	}
}

func TestVisibleSources(t *testing.T) {
	free := &Source{ID: "a", AccessTier: TierFree}
	pro := &Source{ID: "b", AccessTier: TierPro}
	all := &Source{ID: "c", AccessTier: TierAll}
	sources := []*Source{free, pro, all}

	got := VisibleSources(sources, RoleFree)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("free role: expected sources [a c], got %d sources", len(got))
	}

	got = VisibleSources(sources, RolePro)
	if len(got) != 3 {
		t.Errorf("pro role: expected all 3 sources, got %d", len(got))
	}

	got = VisibleSources(sources, RoleAdmin)
	if len(got) != 3 {
		t.Errorf("admin role: expected all 3 sources, got %d", len(got))
	}

	got = VisibleSources(sources, RoleAnonymous)
	if len(got) != 2 {
		t.Errorf("anonymous role: expected 2 sources, got %d", len(got))
	}
}

func TestVisibleSources_PreservesDeclarationOrder(t *testing.T) {
	sources := []*Source{
		{ID: "z", AccessTier: TierAll},
		{ID: "a", AccessTier: TierFree},
		{ID: "m", AccessTier: TierAll},
	}

	got := VisibleSources(sources, RoleFree)
	if len(got) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(got))
	}
	for i, id := range []string{"z", "a", "m"} {
		if got[i].ID != id {
			t.Errorf("position %d: expected %q, got %q", i, id, got[i].ID)
		}
	}
}

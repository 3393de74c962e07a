package domain

// Role is the caller's subscription role, supplied by the external auth
// collaborator. The hierarchy is anonymous < free < pro < admin.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleFree      Role = "free"
	RolePro       Role = "pro"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a raw role claim to a Role, defaulting to anonymous for
// anything unrecognized.
func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleFree, RolePro, RoleAdmin:
		return Role(raw)
	default:
		return RoleAnonymous
	}
}

// rank orders roles for hierarchy comparisons.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RolePro:
		return 2
	case RoleFree:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r sits at or above other in the hierarchy.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

// CanView reports whether the role may browse a source of the given tier.
// Anonymous callers browse as free.
func CanView(tier AccessTier, role Role) bool {
	switch tier {
	case TierFree, TierAll:
		return true
	case TierPro:
		return role.AtLeast(RolePro)
	default:
		return false
	}
}

// CanCopy reports whether the role may copy items from a source of the given
// tier. Anonymous callers can never copy, regardless of tier.
func CanCopy(tier AccessTier, role Role) bool {
	if !role.AtLeast(RoleFree) {
		return false
	}

	return CanView(tier, role)
}

// VisibleSources narrows sources to those the role may browse. Sources a role
// cannot see are never fetched; copy gating happens per component afterwards.
func VisibleSources(sources []*Source, role Role) []*Source {
	visible := make([]*Source, 0, len(sources))
	for _, s := range sources {
		if CanView(s.AccessTier, role) {
			visible = append(visible, s)
		}
	}

	return visible
}

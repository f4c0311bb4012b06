package domain

type Role string

const (
	// RoleMember is a regular member; may apply to clubs.
	RoleMember Role = "MEMBER"
	// RoleClubAdmin reviews applications for the clubs in ScopeIDs.
	RoleClubAdmin Role = "CLUB_ADMIN"
	// RoleHicom is the organization-level oversight role; reviews
	// applications for every club.
	RoleHicom Role = "HICOM"
	// RoleSuperAdmin holds every capability, including administrative
	// delete of applications.
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// CurrentUser is the read-only identity fact consumed by the
// authorization predicate. ScopeIDs is the set of club IDs a CLUB_ADMIN
// is authorized to act on, resolved once at authentication time.
type CurrentUser struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Role     Role     `json:"role"`
	ScopeIDs []string `json:"scope_ids,omitempty"`
}

// InScope reports whether clubID is in the user's reviewer scope.
func (u CurrentUser) InScope(clubID string) bool {
	for _, id := range u.ScopeIDs {
		if id == clubID {
			return true
		}
	}
	return false
}

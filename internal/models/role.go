package models

// Role is a collaborator's standing on a single contract, ordered
// viewer < reviewer < editor < owner.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleReviewer Role = "reviewer"
	RoleEditor   Role = "editor"
	RoleOwner    Role = "owner"
)

// System-wide roles carried by the authentication layer, distinct from
// per-contract collaborator roles.
const (
	SystemRoleManager = "manager"
	SystemRoleUser    = "user"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleReviewer: 2,
	RoleEditor:   3,
	RoleOwner:    4,
}

// Rank returns the position of r in the role ordering, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRank[r]
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r meets the minimum bar set by min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && min.Valid() && r.Rank() >= min.Rank()
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Role groups used for coarse endpoint checks.
var (
	AnyCollaborator = []Role{RoleOwner, RoleEditor, RoleReviewer, RoleViewer}
	ReviewGroup     = []Role{RoleOwner, RoleEditor, RoleReviewer}
	EditGroup       = []Role{RoleOwner, RoleEditor}
	OwnerOnly       = []Role{RoleOwner}
)

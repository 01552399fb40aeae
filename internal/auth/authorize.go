package auth

// Capability is the access tier a protected operation requires.
type Capability int

const (
	// AnyAuthenticated admits every verified principal.
	AnyAuthenticated Capability = iota
	// AdminOnly admits staff with the admin role.
	AdminOnly
	// TeacherOrAdmin admits staff with either role.
	TeacherOrAdmin
	// StudentOnly admits student principals and nothing else.
	StudentOnly
)

// Authorize decides whether a verified principal may invoke an operation of
// the given tier. ErrForbidden means the credential was fine but the role is
// insufficient; credential problems never reach this function.
func Authorize(p Principal, required Capability) error {
	switch required {
	case AnyAuthenticated:
		return nil
	case AdminOnly:
		if p.Kind == KindStaff && p.Role == RoleAdmin {
			return nil
		}
	case TeacherOrAdmin:
		if p.Kind == KindStaff && (p.Role == RoleAdmin || p.Role == RoleTeacher) {
			return nil
		}
	case StudentOnly:
		if p.Kind == KindStudent {
			return nil
		}
	}
	return ErrForbidden
}

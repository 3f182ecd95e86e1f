package enums

// UserRole is the role claim carried in access tokens.
type UserRole string

const (
	UserRoleCreator UserRole = "creator"
	UserRoleAdmin   UserRole = "admin"
)

func (r UserRole) IsValid() bool { return r == UserRoleCreator || r == UserRoleAdmin }

package domain

import "strings"

// Role is the closed set of account roles. The wire value is resolved once
// at login; the comparison is case-sensitive and anything that is not
// exactly the admin tag falls back to the least privileged role.
type Role string

const (
	RoleCashier Role = "Cashier"
	RoleAdmin   Role = "Admin"
)

func ParseRole(raw string) Role {
	if strings.TrimSpace(raw) == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleCashier
}

// Principal is the authenticated actor for the current session.
type Principal struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewUser carries the fields an admin submits when registering an account.
type NewUser struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

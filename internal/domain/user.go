package domain

// Role enumerates the authorization roles carried in tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLawyer Role = "lawyer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLawyer:
		return true
	default:
		return false
	}
}

// Credential is the record the user directory returns for an email.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	DisplayName  string
}

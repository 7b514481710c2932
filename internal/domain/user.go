package domain

// UserRole is a string tag attached to accounts. Only "user" is issued
// today; nothing enforces permissions off it yet.
type UserRole string

const (
	RoleUser UserRole = "user"
)

// User is the domain model for account holders who open tickets.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         UserRole
}

package entity

import "time"

// Role is the flat permission level carried by every user.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// User is the client-safe projection of a users row. The password hash is
// deliberately absent.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeletedUser is the minimal confirmation returned after a delete.
type DeletedUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credentials pairs a projection with its stored hash for sign-in checks.
type Credentials struct {
	User         User
	PasswordHash string
}

package domain

import "time"

// Role is a user's permission level.
type Role string

const (
	RoleUser   Role = "USER"
	RoleAdmin  Role = "ADMIN"
	RoleSystem Role = "SYSTEM"
)

var roleRank = map[Role]int{
	RoleUser:   1,
	RoleAdmin:  2,
	RoleSystem: 3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// User is a registered platform account.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Nickname     string    `json:"nickname" db:"nickname"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// HasRole reports whether the user holds at least the given role. SYSTEM implies ADMIN implies USER.
func (u User) HasRole(r Role) bool {
	return roleRank[u.Role] >= roleRank[r] && roleRank[r] > 0
}

package models

import "time"

// User is the authenticated back-office operator as returned by the
// profile endpoint.
type User struct {
	ID        string    `json:"id"` // user identifier(UUID)
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // "admin" for back-office operators
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may join the admin role channel.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

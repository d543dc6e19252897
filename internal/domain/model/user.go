package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	HashedPassword string `json:"-"` // Not exposed
	IsActive       bool   `json:"is_active"`
	Role           string `json:"role"`
	PhoneNumber    string `json:"phone_number"`
}

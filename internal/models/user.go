package models

type AuthStatus string

const (
	AuthChecking        AuthStatus = "checking"
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
)

type User struct {
	ID          string   `json:"id,omitempty"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	PhoneNumber string   `json:"phoneNumber,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Token       string   `json:"token,omitempty"`
}

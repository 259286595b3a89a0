package domain

import "time"

// ============================================================
// Auth — Request / Response types (matches the budgeting API contract)
// ============================================================

// User is the identity attached to a session.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Session is the credential owned by the session manager. It lives in
// exactly one storage tier.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`

	// ExpiresAt comes from the unverified token claims, display only.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse is the body for 201 from POST /auth/register.
type RegisterResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// SessionView is returned by GET /session on the view server.
type SessionView struct {
	State     string     `json:"state"`
	User      *User      `json:"user,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Durable   bool       `json:"durable"`
}

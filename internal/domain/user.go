package domain

import (
	"errors"
	"time"
)

// User represents an authenticated actor.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
	Active    bool
}

// Role is a closed enumeration of access levels. Authorization checks
// match exhaustively on it so a new role can never fall through silently.
type Role string

const (
	// RoleCFO is the top-level role: acts on any transaction and is the
	// only role permitted at the pending_cfo stage.
	RoleCFO Role = "cfo"

	// RoleAdmin manages transactions it created.
	RoleAdmin Role = "admin"

	// RoleViewer has read-only access.
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleCFO:    true,
	RoleAdmin:  true,
	RoleViewer: true,
}

// IsValid checks if the role is a valid role.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanCreate checks if the role can create transactions.
func (r Role) CanCreate() bool {
	return r == RoleCFO || r == RoleAdmin
}

// CanActAtCFOStage checks if the role may act while status is pending_cfo.
func (r Role) CanActAtCFOStage() bool {
	return r == RoleCFO
}

// CanViewAll checks if the role can view all resources.
func (r Role) CanViewAll() bool {
	return r.IsValid()
}

// Authentication and authorization errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
	ErrNotOwner         = errors.New("only the transaction creator may perform this action")
	ErrCFORequired      = errors.New("only the CFO may act at the cfo review stage")
)

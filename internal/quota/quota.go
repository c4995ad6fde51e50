// Package quota decides whether a batch of songs may be downloaded without the shared password
package quota

import (
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrUnauthorized is matched by every UnauthorizedError
var ErrUnauthorized = errors.New("password required")

// UnauthorizedError is returned when a batch exceeds the free quota and no valid password was supplied
type UnauthorizedError struct {
	TotalSongs       int
	Limit            int
	PasswordSupplied bool
}

// Error implements the error interface
func (e *UnauthorizedError) Error() string {
	if e.PasswordSupplied {
		return fmt.Sprintf("invalid password for %d songs (free limit is %d)", e.TotalSongs, e.Limit)
	}
	return fmt.Sprintf("password required for %d songs (free limit is %d)", e.TotalSongs, e.Limit)
}

// Is makes errors.Is(err, ErrUnauthorized) hold
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Decision is the outcome of evaluating a batch
type Decision struct {
	NeedsPassword bool `json:"needs_password"`
	Authorized    bool `json:"authorized"`
}

// Gate compares batch sizes against the free quota
type Gate struct {
	limit    int
	password string
}

// NewGate creates a gate. An empty password means oversized batches are never authorized.
func NewGate(limit int, password string) *Gate {
	return &Gate{limit: limit, password: password}
}

// Evaluate reports whether totalSongs needs a password and whether password unlocks it
func (g *Gate) Evaluate(totalSongs int, password string) Decision {
	if totalSongs <= g.limit {
		return Decision{NeedsPassword: false, Authorized: true}
	}
	return Decision{NeedsPassword: true, Authorized: g.passwordMatches(password)}
}

// Authorize returns an *UnauthorizedError when the batch may not proceed
func (g *Gate) Authorize(totalSongs int, password string) error {
	if g.Evaluate(totalSongs, password).Authorized {
		return nil
	}
	return &UnauthorizedError{
		TotalSongs:       totalSongs,
		Limit:            g.limit,
		PasswordSupplied: password != "",
	}
}

func (g *Gate) passwordMatches(password string) bool {
	if g.password == "" || password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(g.password), []byte(password)) == 1
}

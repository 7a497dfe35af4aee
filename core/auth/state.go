// Package auth resolves who is behind a request, propagates it through context.Context and gates portal routes.
package auth

import (
	"context"

	"github.com/trezcool/madrasa/core/account"
)

// State is the per-request authentication state. It is recomputed on every request and never stored.
type State struct {
	IsAuthenticated bool             `json:"isAuthenticated"`
	Account         *account.Account `json:"account"`
	Role            account.Role     `json:"role,omitempty"`
	SessionID       string           `json:"-"`
}

// Anonymous is the State of a request without a valid session.
func Anonymous() State { return State{} }

func (s State) IsAdmin() bool   { return s.IsAuthenticated && s.Role == account.RoleAdmin }
func (s State) IsStudent() bool { return s.IsAuthenticated && s.Role == account.RoleStudent }

type stateKey struct{}

// NewContext returns a copy of ctx carrying state.
func NewContext(ctx context.Context, state State) context.Context {
	return context.WithValue(ctx, stateKey{}, state)
}

// FromContext returns the State carried by ctx, or Anonymous when there is none.
func FromContext(ctx context.Context) State {
	if state, ok := ctx.Value(stateKey{}).(State); ok {
		return state
	}
	return Anonymous()
}

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/madrasa/core/account"
)

var paths = Paths{SignIn: "/sign-in", StudentHome: "/student", AdminHome: "/admin"}

func authenticated(role account.Role) State {
	return State{IsAuthenticated: true, Role: role, Account: &account.Account{ID: "acc-1", Role: role}}
}

func TestGate_Decide(t *testing.T) {
	tests := []struct {
		name  string
		gate  Gate
		state State
		want  Decision
	}{
		{name: "student gate, anonymous", gate: StudentGate(paths), state: Anonymous(), want: Decision{RedirectTo: "/sign-in"}},
		{name: "student gate, student", gate: StudentGate(paths), state: authenticated(account.RoleStudent), want: Decision{Allow: true}},
		{name: "student gate, admin", gate: StudentGate(paths), state: authenticated(account.RoleAdmin), want: Decision{RedirectTo: "/admin"}},
		{name: "admin gate, anonymous", gate: AdminGate(paths), state: Anonymous(), want: Decision{RedirectTo: "/sign-in"}},
		{name: "admin gate, student", gate: AdminGate(paths), state: authenticated(account.RoleStudent), want: Decision{RedirectTo: "/student"}},
		{name: "admin gate, admin", gate: AdminGate(paths), state: authenticated(account.RoleAdmin), want: Decision{Allow: true}},
		{name: "authenticated without a role", gate: AdminGate(paths), state: State{IsAuthenticated: true}, want: Decision{RedirectTo: "/sign-in"}},
		{name: "role without authentication", gate: StudentGate(paths), state: State{Role: account.RoleStudent}, want: Decision{RedirectTo: "/sign-in"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.gate.Decide(tt.state))
		})
	}
}

func TestPaths_Home(t *testing.T) {
	assert.Equal(t, "/student", paths.Home(account.RoleStudent))
	assert.Equal(t, "/admin", paths.Home(account.RoleAdmin))
	assert.Equal(t, "/sign-in", paths.Home(account.Role(0)))
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Anonymous(), FromContext(ctx))

	state := authenticated(account.RoleAdmin)
	got := FromContext(NewContext(ctx, state))
	assert.Equal(t, state, got)
	assert.True(t, got.IsAdmin())
	assert.False(t, got.IsStudent())
	assert.False(t, Anonymous().IsAdmin())
}

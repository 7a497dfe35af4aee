package auth

import "github.com/trezcool/madrasa/core/account"

// Paths are the portal locations gates redirect to.
type Paths struct {
	SignIn      string
	StudentHome string
	AdminHome   string
}

// Home returns the landing path of role; unknown roles land on sign-in.
func (p Paths) Home(role account.Role) string {
	switch role {
	case account.RoleStudent:
		return p.StudentHome
	case account.RoleAdmin:
		return p.AdminHome
	default:
		return p.SignIn
	}
}

// Decision is the outcome of a gate: render, or redirect to RedirectTo.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Gate protects a portal for a single role.
type Gate struct {
	role  account.Role
	paths Paths
}

func StudentGate(paths Paths) Gate { return Gate{role: account.RoleStudent, paths: paths} }
func AdminGate(paths Paths) Gate   { return Gate{role: account.RoleAdmin, paths: paths} }

func (g Gate) Role() account.Role { return g.role }

// Decide lets matching roles through, sends anonymous visitors to sign-in and
// authenticated visitors of another role to their own home.
func (g Gate) Decide(state State) Decision {
	if !state.IsAuthenticated || !state.Role.Valid() {
		return Decision{RedirectTo: g.paths.SignIn}
	}
	if state.Role == g.role {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: g.paths.Home(state.Role)}
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
)

type portalPage struct {
	Portal  string           `json:"portal"`
	Path    string           `json:"path"`
	Account *account.Account `json:"account,omitempty"`
}

func registerPortals(app *echo.Echo, s *Server) {
	app.GET(s.paths.SignIn, signInPage(s.paths))

	for _, gate := range []auth.Gate{auth.StudentGate(s.paths), auth.AdminGate(s.paths)} {
		home := s.paths.Home(gate.Role())
		g := app.Group(home, gateMiddleware(gate))
		g.GET("", portal(gate.Role()))
		g.GET("/*", portal(gate.Role()))
	}
}

// signInPage sends already authenticated visitors to their portal.
func signInPage(paths auth.Paths) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if state := stateOf(ctx); state.IsAuthenticated {
			return ctx.Redirect(http.StatusFound, paths.Home(state.Role))
		}
		return ctx.JSON(http.StatusOK, portalPage{Portal: "sign-in", Path: ctx.Request().URL.Path})
	}
}

func portal(role account.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, portalPage{
			Portal:  role.String(),
			Path:    ctx.Request().URL.Path,
			Account: stateOf(ctx).Account,
		})
	}
}

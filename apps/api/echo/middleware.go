package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/auth"
)

// authProvider resolves the auth state once per request and makes it available
// through the request context to every later handler.
func authProvider(resolver *auth.Resolver, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			state := resolver.Resolve(req.Context(), sessionToken(req, cookieName))
			ctx.SetRequest(req.WithContext(auth.NewContext(req.Context(), state)))
			return next(ctx)
		}
	}
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(req *http.Request, cookieName string) string {
	if c, err := req.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(req.Header.Get(echo.HeaderAuthorization), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func stateOf(ctx echo.Context) auth.State {
	return auth.FromContext(ctx.Request().Context())
}

// gateMiddleware renders the route or redirects, as decided by gate. It never fails.
func gateMiddleware(gate auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if d := gate.Decide(stateOf(ctx)); !d.Allow {
				return ctx.Redirect(http.StatusFound, d.RedirectTo)
			}
			return next(ctx)
		}
	}
}

// adminOnly refuses anyone but an authenticated admin before the handler reads the request.
func adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !stateOf(ctx).IsAdmin() {
			return core.NewError(core.KindAuthorization, core.CodeForbidden)
		}
		return next(ctx)
	}
}

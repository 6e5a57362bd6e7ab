package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check,
// used by load balancers and monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the unauthenticated auth endpoints under
// /v1/auth. Register and login both return an access token on success;
// there is no refresh or logout because tokens are stateless and simply
// expire.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterProtected registers everything behind the request gate. The
// gate middleware verifies the bearer token and injects the resolved
// identity; no handler below re-parses the token. The cache middleware
// only acts on GET requests, so it is safe to apply to the whole tasks
// group.
func RegisterProtected(e *echo.Echo, users *handler.UserHandler, tasks *handler.TaskHandler, gate, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(gate)

	g.GET("/users/profile", users.Profile)
	g.GET("/users/me", users.Me)

	t := g.Group("/tasks")
	if cache != nil {
		t.Use(cache)
	}
	t.GET("", tasks.List)
	t.GET("/stats", tasks.Stats)
	t.GET("/:id", tasks.Get)
	t.POST("", tasks.Create)
	t.PUT("/:id", tasks.Update)
	t.PATCH("/:id/toggle", tasks.Toggle)
	t.DELETE("/:id", tasks.Delete)
}

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kimthedrew/legit-collections/auth"
)

// SetupAuthRoutes registers the public "/auth/*" endpoints.
func SetupAuthRoutes(r *gin.Engine, deps Deps) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", auth.RegisterHandler(deps.DB, deps.Config.Auth.JWTSecret))
		authGroup.POST("/login", auth.LoginHandler(deps.DB, deps.Config.Auth.JWTSecret))
	}
}

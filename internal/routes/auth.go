package routes

import (
	"equipment-system/internal/controllers"
	"equipment-system/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func runAuthRouter(api *echo.Group, ctrl *controllers.AuthController, authMW *middleware.AuthMiddleware) {
	auth := api.Group("/auth")
	auth.POST("/register", ctrl.Register)
	auth.POST("/login", ctrl.Login)
	auth.POST("/refresh", ctrl.RefreshToken)
	auth.GET("/session", ctrl.Session, authMW.Auth)
	auth.POST("/logout", ctrl.Logout, authMW.Auth)
}

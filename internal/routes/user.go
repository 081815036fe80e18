package routes

import (
	"equipment-system/internal/controllers"
	"equipment-system/internal/entities"
	"equipment-system/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func runUserRouter(secureGroup *echo.Group, ctrl *controllers.UserController, authMW *middleware.AuthMiddleware) {
	users := secureGroup.Group("/users")
	users.GET("/profile", ctrl.Profile)

	admin := users.Group("", authMW.RequireRole(string(entities.UserRoleAdmin)))
	admin.GET("", ctrl.GetUsers)
	admin.POST("", ctrl.CreateUser)
	admin.GET("/:id", ctrl.FindUser)
	admin.PUT("/:id", ctrl.UpdateUser)
	admin.DELETE("/:id", ctrl.DeleteUser)
	admin.PATCH("/:id/activate", ctrl.ActivateUser)
	admin.PATCH("/:id/deactivate", ctrl.DeactivateUser)
}

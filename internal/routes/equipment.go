package routes

import (
	"equipment-system/internal/controllers"
	"equipment-system/internal/entities"
	"equipment-system/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func runEquipmentRouter(secureGroup *echo.Group, ctrl *controllers.EquipmentController, authMW *middleware.AuthMiddleware) {
	equipments := secureGroup.Group("/equipments")
	adminOnly := authMW.RequireRole(string(entities.UserRoleAdmin))

	// any authenticated user
	equipments.GET("/my-equipments", ctrl.GetMyEquipments)
	equipments.GET("/my-equipments/:id", ctrl.GetMyEquipmentById)

	equipments.POST("", ctrl.CreateEquipment, adminOnly)
	equipments.POST("/assign", ctrl.AssignEquipment, adminOnly)
	equipments.POST("/import", ctrl.ImportEquipments, adminOnly)
	equipments.GET("", ctrl.GetEquipments, adminOnly)
	equipments.GET("/status/:status", ctrl.GetEquipmentsByStatus, adminOnly)
	equipments.GET("/type/:type", ctrl.GetEquipmentsByType, adminOnly)
	equipments.GET("/history", ctrl.GetHistoryLogs, adminOnly)
	equipments.DELETE("/history", ctrl.ClearHistoryLogs, adminOnly)
	equipments.GET("/:id", ctrl.FindEquipment, adminOnly)
	equipments.GET("/:id/assignments", ctrl.GetEquipmentAssignments, adminOnly)
	equipments.GET("/:id/status-history", ctrl.GetEquipmentStatusHistory, adminOnly)
	equipments.PUT("/:id", ctrl.UpdateEquipment, adminOnly)
	equipments.PATCH("/:id/status", ctrl.UpdateEquipmentStatus, adminOnly)
	equipments.PATCH("/:id/return", ctrl.ReturnEquipment, adminOnly)
	equipments.DELETE("/:id", ctrl.DeleteEquipment, adminOnly)
}

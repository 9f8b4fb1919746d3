package routes

import (
	"sar_command/internal/controllers"
	"sar_command/internal/middleware"

	"github.com/gin-gonic/gin"
)

func DivisionRoutes(r *gin.Engine) {
	divisions := r.Group("/divisions")
	divisions.Use(middleware.RequireAuth())
	{
		// Responders report progress on their own division.
		divisions.PATCH("/:id/status", controllers.UpdateDivisionStatus)
	}

	manage := r.Group("/divisions")
	manage.Use(middleware.RequireAuthWithRole("commander"))
	{
		manage.POST("/preview", controllers.PreviewDivisions)
		manage.POST("/:id/assign", controllers.AssignUnit)
	}
}

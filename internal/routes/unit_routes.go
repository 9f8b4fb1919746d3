package routes

import (
	"sar_command/internal/controllers"
	"sar_command/internal/middleware"

	"github.com/gin-gonic/gin"
)

func UnitRoutes(r *gin.Engine) {
	units := r.Group("/units")
	units.Use(middleware.RequireAuth())
	{
		units.GET("/", controllers.ListUnits)
		units.GET("/:id", controllers.GetUnit)
		units.PUT("/:id", controllers.UpdateUnit)
	}

	manage := r.Group("/units")
	manage.Use(middleware.RequireAuthWithRole("commander"))
	{
		manage.POST("/", controllers.CreateUnit)
		manage.DELETE("/:id", controllers.DeleteUnit)
	}
}

package routes

import (
	"sar_command/internal/controllers"
	"sar_command/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.GET("/responders", controllers.ListResponders)
		admin.GET("/incidents", controllers.ListIncidents)
		admin.GET("/units", controllers.ListUnits)
	}
}

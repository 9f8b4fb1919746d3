package routes

import (
	"sar_command/internal/controllers"
	"sar_command/internal/middleware"

	"github.com/gin-gonic/gin"
)

func IncidentRoutes(r *gin.Engine) {
	incidents := r.Group("/incidents")
	incidents.Use(middleware.RequireAuth())
	{
		incidents.GET("/", controllers.ListIncidents)
		incidents.GET("/:id", controllers.GetIncident)
		incidents.GET("/:id/hospitals", controllers.NearbyHospitals)
		incidents.GET("/:id/divisions", controllers.ListDivisions)
	}

	// Only command staff open, modify or close incidents.
	manage := r.Group("/incidents")
	manage.Use(middleware.RequireAuthWithRole("commander"))
	{
		manage.POST("/", controllers.CreateIncident)
		manage.PUT("/:id", controllers.UpdateIncident)
		manage.DELETE("/:id", controllers.DeleteIncident)
		manage.POST("/:id/divisions/generate", controllers.GenerateDivisions)
	}
}

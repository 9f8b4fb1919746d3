package routes

import (
	"sar_command/internal/controllers"

	"github.com/gin-gonic/gin"
)

func WebSocketRoutes(r *gin.Engine) {
	wsRoutes := r.Group("/ws")
	{
		// Live division status feed; token passed as a query parameter.
		wsRoutes.GET("/divisions", controllers.HandleDivisionFeed)
	}
}

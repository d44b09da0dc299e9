package api

import (
	"github.com/chipinfinity/checkout-api/telemetry"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handlers) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/transactions", h.CreateTransaction)
		v1.GET("/transactions", h.GetTransaction)

		v1.POST("/postback", h.ReceivePostback)
		v1.GET("/postbacks", h.ListPostbacks)
	}
	r.GET("/health", h.Health)
	r.GET("/metrics", telemetry.MetricsHandler())
}

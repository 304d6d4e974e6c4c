package routes

import (
	"order-status-service/controllers"
	"order-status-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterOrderRoutes sets up the status update and public tracking routes.
// requestTimeout is applied to everything except the event stream.
func RegisterOrderRoutes(r *gin.Engine, oc *controllers.OrderController, limiter *middleware.RateLimiter, requestTimeout gin.HandlerFunc) {
	orders := r.Group("/orders")

	// Admin: operators change fulfillment status
	admin := orders.Group("")
	admin.Use(requestTimeout, middleware.AuthMiddleware(), middleware.AdminOnly())
	admin.PATCH("/:id/status", oc.UpdateStatus)

	// Public: bearer-capability reads by token
	track := orders.Group("/track")
	track.Use(middleware.RateLimit(limiter))
	track.GET("/:token", requestTimeout, oc.TrackOrder)
	track.GET("/:token/events", oc.StreamOrderEvents)
}

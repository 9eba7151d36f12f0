// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripsim/internal/http/handlers"
	"tripsim/internal/http/middleware"
	"tripsim/internal/modules/trip"
)

func NewRouter(tripService *trip.Service) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	tripHandler := handlers.NewTripHandler(tripService)
	r.POST("/start_trip", tripHandler.Start)
	r.GET("/trip_status/:id", tripHandler.Status)
	r.GET("/telemetry/:id", tripHandler.Telemetry)
	r.GET("/trips", tripHandler.List)
	r.DELETE("/trips/:id", tripHandler.Evict)
	r.GET("/profiles", tripHandler.Profiles)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

package router

import (
	"github.com/gin-gonic/gin"

	instrumenthandler "fintrade/internal/feature/instruments/transport/handler"
	runhandler "fintrade/internal/feature/prices/transport/handler"
	jwtmw "fintrade/internal/platform/jwt"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      gin.HandlerFunc
	Instruments *instrumenthandler.InstrumentHandler
	Runs        *runhandler.RunHandler
}

// NewRouter mounts the public read endpoints and the token protected run triggers.
func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// public
	r.GET("/healthz", h.Health)
	r.HEAD("/healthz", h.Health)
	r.GET("/instruments", h.Instruments.List)
	r.GET("/runs/latest", h.Runs.Latest)

	// triggering a run needs a service token carrying the runs scope
	runs := r.Group("/runs")
	runs.Use(jwtmw.AuthRequired(jwtSecret, jwtmw.ScopeTriggerRuns))
	{
		runs.POST("", h.Runs.Trigger)
		runs.POST("/replay", h.Runs.Replay)
	}

	return r
}

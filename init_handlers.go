package main

import (
	"github.com/brekfst/mcdirectory/handlers"
	"github.com/brekfst/mcdirectory/pkg/cache"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Server      *handlers.ServerHandler
	Measurement *handlers.MeasurementHandler
	Prediction  *handlers.PredictionHandler
	Admin       *handlers.AdminHandler
	Health      *handlers.HealthHandler
}

func initHandlers(svcs *Services, limiters *RateLimiters, c *cache.Cache) *Handlers {
	return &Handlers{
		Auth:        handlers.NewAuthHandler(svcs.Auth, limiters.Login, limiters.Reset),
		Server:      handlers.NewServerHandler(svcs.Server, svcs.Claim),
		Measurement: handlers.NewMeasurementHandler(svcs.Measurement),
		Prediction:  handlers.NewPredictionHandler(svcs.Prediction),
		Admin:       handlers.NewAdminHandler(svcs.Admin, svcs.Claim, svcs.Featured, svcs.Retention),
		Health:      handlers.NewHealthHandler(c),
	}
}

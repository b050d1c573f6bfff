package main

import (
	"github.com/ezyba/payment_api/middleware"
	"github.com/ezyba/payment_api/services"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(

		&services.SecurityService{},
		&services.RedisService{},
		&services.SessionService{},
		&services.RateLimitService{},
		&services.StripeService{},
		&services.TurnstileService{},
		&services.EmailService{},
		&services.PostgresService{},
		&services.MonitoringService{},

		&middleware.AuthMiddleware{},
		&middleware.RateLimitMiddleware{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}

package main

import (
	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-client/api"
	"kanban-client/config"
	"kanban-client/wire"
)

// main runs the reference kanban API backed by memory. Sessions point
// KANBAN_API_URL at it during development and in end-to-end tests.
func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	var (
		pub     api.Publisher
		deduper api.Deduper
	)
	if cfg.Redis != nil {
		rc := redis.NewClient(cfg.Redis)
		defer rc.Close()
		pub = api.NewRedisPublisher(rc, cfg.ChangesChannel)
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
	} else {
		log.Warn("redis not configured: change events and idempotency disabled")
	}

	var auth api.Authenticator
	switch {
	case cfg.SharedSecret != "":
		auth = api.NewAuth(api.AuthOptions{
			SharedSecret: []byte(cfg.SharedSecret),
			Audience:     cfg.Audience,
			Issuer:       cfg.Issuer,
		})
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(api.AuthOptions{
			JWKS:        jwks,
			Audience:    cfg.Audience,
			Issuer:      cfg.Issuer,
			KeyCacheTTL: cfg.JWKSCacheTTL,
		})
	default:
		log.Warn("auth not configured: requests run as anonymous")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			wire.HeaderBoardID, wire.HeaderListID, wire.HeaderWorkspaceID, wire.HeaderIdempotencyKey,
		},
	}))
	e.Use(api.DecodeRequestBody(api.DefaultMaxBodyBytes))

	api.Register(e, api.NewMemoryBackend(pub, logger), auth, deduper, logger)

	logger.WithField("addr", cfg.Addr).Info("api.listening")
	e.Logger.Fatal(e.Start(cfg.Addr))
}

package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/config"
	"github.com/cuthanhcam/sport-field-booking/internal/database"
	"github.com/cuthanhcam/sport-field-booking/internal/handler"
	"github.com/cuthanhcam/sport-field-booking/internal/middleware"
	"github.com/cuthanhcam/sport-field-booking/internal/queue"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
	"github.com/cuthanhcam/sport-field-booking/internal/router"
	"github.com/cuthanhcam/sport-field-booking/internal/service"
)

func main() {
	// Load a local .env when present; real deployments provide the
	// environment directly and the missing file is not an error.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and response caching.  A nil client simply
	// disables both middlewares, so a missing Redis never blocks startup.
	rdb := config.NewRedisClient()

	// Repositories share the single connection pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	fields := repository.NewFieldRepo(db)
	rules := repository.NewPricingRuleRepo(db)
	addons := repository.NewFieldServiceRepo(db)
	promos := repository.NewPromotionRepo(db)
	bookings := repository.NewBookingRepo(db)

	svc := service.NewBookingService(bookings, fields, rules, addons, promos, cfg.MaxSubFieldsPerBooking)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	ownerH := handler.NewOwnerHandler(fields, rules, addons, promos, bookings, svc)
	customerH := handler.NewCustomerHandler(svc, bookings)
	publicH := &handler.PublicHandler{Fields: fields, Svc: svc}

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH)
	router.RegisterOwner(e, ownerH, cfg.JWTSecret)
	router.RegisterCustomer(e, customerH, cfg.JWTSecret)

	// Booking lifecycle events are consumed out of band; the consumer
	// reconnects on its own and a missing broker only logs.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	// Completion sweep moves confirmed bookings whose last slot has elapsed
	// to COMPLETED.
	if cfg.CompletionSweepMin > 0 {
		go func() {
			t := time.NewTicker(time.Duration(cfg.CompletionSweepMin) * time.Minute)
			defer t.Stop()
			for range t.C {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if n, err := svc.CompleteElapsed(ctx); err != nil {
					log.Printf("completion sweep: %v", err)
				} else if n > 0 {
					log.Printf("completion sweep: %d bookings completed", n)
				}
				cancel()
			}
		}()
	}

	// Reminder sweep publishes a one-shot reminder for tomorrow's bookings.
	if cfg.ReminderSweepMin > 0 {
		go func() {
			t := time.NewTicker(time.Duration(cfg.ReminderSweepMin) * time.Minute)
			defer t.Stop()
			for range t.C {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				tomorrow := time.Now().UTC().AddDate(0, 0, 1)
				if n, err := svc.SendReminders(ctx, tomorrow); err != nil {
					log.Printf("reminder sweep: %v", err)
				} else if n > 0 {
					log.Printf("reminder sweep: %d reminders sent", n)
				}
				cancel()
			}
		}()
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/betonova/readymix-crm/internal/app"
	"github.com/betonova/readymix-crm/internal/backend"
	bpostgres "github.com/betonova/readymix-crm/internal/backend/postgres"
	"github.com/betonova/readymix-crm/internal/http/handlers"
	mw "github.com/betonova/readymix-crm/internal/http/middleware"
	"github.com/betonova/readymix-crm/internal/mailer"
	"github.com/betonova/readymix-crm/internal/notify"
	"github.com/betonova/readymix-crm/internal/payments"
	"github.com/betonova/readymix-crm/pkg/config"
	"github.com/betonova/readymix-crm/pkg/database"
	"github.com/betonova/readymix-crm/pkg/events"
	"github.com/betonova/readymix-crm/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := bpostgres.Bootstrap(ctx, pool); err != nil {
		logger.Error("Failed to bootstrap schema", "error", err)
		os.Exit(1)
	}

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid redis URL", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	redisOpts.DB = cfg.Redis.DB
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Backend service
	docs := bpostgres.NewDocStore(pool, eventBus)
	newProvider := func() backend.IdentityProvider {
		return bpostgres.NewIdentityClient(pool, cfg.Org)
	}

	// Stores
	registry := app.NewRegistry(docs, newProvider, cfg.Auth)
	defer registry.Close()
	public := app.NewPublic(docs)
	defer public.ClosePublic()

	// Inquiry notifications
	notifier, err := notify.Start(eventBus, buildMailer(cfg), cfg.Org.SalesInbox)
	if err != nil {
		logger.Error("Failed to start notifier", "error", err)
		os.Exit(1)
	}
	defer notifier.Close()

	h := handlers.New(registry, public, eventBus, payments.NewClient(cfg.Stripe))
	limiter := mw.NewRateLimiter(rdb, 10, time.Minute)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	// Public
	r.With(limiter.Middleware()).Post("/contact", h.SubmitContact)

	// Auth
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.With(mw.RequireSession(registry)).Post("/logout", h.Logout)
		r.With(mw.RequireSession(registry)).Get("/me", h.Me)
	})

	// Admin
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireSession(registry))

		r.Route("/inquiries", func(r chi.Router) {
			r.Get("/", h.ListInquiries)
			r.Get("/stream", h.StreamInquiries)
			r.Patch("/{id}", h.UpdateInquiry)
			r.Delete("/{id}", h.DeleteInquiry)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/stream", h.StreamOrders)
			r.Get("/stats", h.OrderStats)
			r.Get("/recent", h.RecentOrders)
			r.Patch("/{id}", h.UpdateOrder)
			r.Delete("/{id}", h.DeleteOrder)
			r.Post("/{id}/payment-intent", h.CreateOrderPayment)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Org.Name, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}

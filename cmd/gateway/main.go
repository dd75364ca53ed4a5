package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/daguilastro/Los5deSergito/internal/catalog"
	"github.com/daguilastro/Los5deSergito/internal/config"
	h "github.com/daguilastro/Los5deSergito/internal/http"
	"github.com/daguilastro/Los5deSergito/internal/invoice"
	"github.com/daguilastro/Los5deSergito/internal/order"
	"github.com/daguilastro/Los5deSergito/internal/session"
	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("gateway configuration",
		zap.String("port", cfg.HTTPPort),
		zap.String("upstream", cfg.UpstreamBaseURL),
		zap.String("redis", cfg.RedisAddr))

	api, err := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, logger)
	if err != nil {
		logger.Fatal("failed to create upstream client", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	catalogService := catalog.NewService(api, catalog.NewRedisCache(redisClient, cfg.CatalogTTL), logger)
	actors := session.NewStore()
	drafts := order.NewStore(api, catalogService)
	invoices := invoice.NewVault()

	orderHandler := h.NewOrderHandler(drafts, catalogService, invoices, cfg.RequestTimeout, logger)
	catalogHandler := h.NewCatalogHandler(catalogService, cfg.RequestTimeout, logger)
	inventoryHandler := h.NewInventoryHandler(api, catalogService, cfg.RequestTimeout, logger)
	sessionHandler := h.NewSessionHandler(api, actors, drafts, cfg.RequestTimeout, logger)
	dashboardHandler := h.NewDashboardHandler(api, cfg.RequestTimeout, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "upstream": "reachable"}
		if err := api.Ping(r.Context()); err != nil {
			status["upstream"] = "unreachable"
		}
		respondJSON(w, http.StatusOK, status)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session/login", sessionHandler.Login)

		// Everything below requires an authenticated operator.
		r.Group(func(r chi.Router) {
			r.Use(h.SessionMiddleware(actors))

			r.Get("/session", sessionHandler.Current)
			r.Post("/session/refresh", sessionHandler.Refresh)
			r.Post("/session/logout", sessionHandler.Logout)

			r.Get("/products", catalogHandler.List)
			r.Get("/alerts", catalogHandler.Alerts)
			r.Get("/dashboard", dashboardHandler.Summary)

			r.Post("/inventory/restock", inventoryHandler.Restock)
			r.Post("/inventory/update", inventoryHandler.Update)
			r.Post("/inventory/delete", inventoryHandler.Delete)

			r.Route("/order", func(r chi.Router) {
				r.Get("/", orderHandler.Get)
				r.Post("/items", orderHandler.AddItem)
				r.Put("/items/{product_id}", orderHandler.UpdateQuantity)
				r.Put("/customer", orderHandler.SetCustomer)
				r.Post("/cancel", orderHandler.Cancel)
				r.Post("/submit", orderHandler.Submit)
				r.Get("/invoices/{sale_id}", orderHandler.DownloadInvoice)
			})
		})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	go func() {
		logger.Info("gateway starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

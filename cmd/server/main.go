package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/electromart/electromart/internal/cache"
	"github.com/electromart/electromart/internal/config"
	"github.com/electromart/electromart/internal/es"
	"github.com/electromart/electromart/internal/handlers"
	"github.com/electromart/electromart/internal/handlers/cart"
	"github.com/electromart/electromart/internal/handlers/order"
	"github.com/electromart/electromart/internal/handlers/payment"
	"github.com/electromart/electromart/internal/logging"
	authmw "github.com/electromart/electromart/internal/middleware/auth"
	"github.com/electromart/electromart/internal/middleware/csrf"
	"github.com/electromart/electromart/internal/mykafka"
	ordersvc "github.com/electromart/electromart/internal/service/order"
	paysvc "github.com/electromart/electromart/internal/service/payment"
	"github.com/electromart/electromart/internal/service/token"
	httpserver "github.com/electromart/electromart/internal/transport/http"
	loggingmw "github.com/electromart/electromart/pkg/middleware/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	ctx := context.Background()
	db, err := config.InitDB(ctx, configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		logger.Warn("kafka unavailable, events disabled", "error", err)
		prod = nil
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	store, err := cache.New(configuration.REDIS_URL)
	if err != nil {
		log.Fatalf("cache init error: %v", err)
	}

	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
	}
	guard := &authmw.Guard{Tokens: tokens}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(csrf.Middleware(csrf.Config{
		SkipPaths: []string{"/api/v1/payments/webhook"},
	}))

	deps := httpserver.Deps{
		DB:          db,
		Guard:       guard,
		AuthHandler: &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: prod},
		ProductHandler: &handlers.ProductHandler{
			DB:       db,
			Producer: prod,
			Cache:    store,
			ES:       esClient,
			ESIndex:  "products",
		},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: "products", Cache: store},
		AdminHandler:   &handlers.AdminHandler{DB: db},
		CartHandler:    &cart.CartHandler{DB: db, Producer: prod},
		OrderHandler:   &order.OrderHandler{Svc: &ordersvc.Service{DB: db}, Producer: prod},
		PaymentHandler: &payment.PaymentHandler{Svc: &paysvc.Service{DB: db}, Producer: prod},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := store.Close(); err != nil {
		log.Printf("cache close error: %v", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}

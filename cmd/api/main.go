package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/threadline/storefront/internal/auth"
	"github.com/threadline/storefront/internal/cart"
	"github.com/threadline/storefront/internal/catalog"
	"github.com/threadline/storefront/internal/config"
	"github.com/threadline/storefront/internal/database"
	"github.com/threadline/storefront/internal/locking"
	"github.com/threadline/storefront/internal/messaging"
	"github.com/threadline/storefront/internal/orders"
	"github.com/threadline/storefront/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "storefront-api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("storefront-api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var producer *messaging.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer func() { _ = producer.Close() }()
	} else {
		logger.Warn("kafka brokers not configured, order events disabled")
	}

	locks := locking.NewKeyedMutex()
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	catalogRepo := catalog.NewRepository(db)
	catalogHandler := catalog.NewHandler(catalogRepo, logger)

	cartRepo := cart.NewRepository(db)
	cartService := cart.NewService(cartRepo, catalogRepo, locks, logger)
	cartHandler := cart.NewHandler(cartService, logger)

	orderRepo := orders.NewRepository(db)
	var publisher orders.Publisher
	if producer != nil {
		publisher = producer
	}
	orderService := orders.NewService(orderRepo, cartRepo, locks, publisher, logger)
	orderHandler := orders.NewHandler(orderService, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(verifier.RequireAdmin(catalogHandler.HandleCreate)))

	mux.HandleFunc("POST /cart/add", telemetry.WithHTTPRoute(verifier.RequireCustomer(cartHandler.HandleAdd)))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(verifier.RequireCustomer(cartHandler.HandleGet)))
	mux.HandleFunc("PUT /cart/update", telemetry.WithHTTPRoute(verifier.RequireCustomer(cartHandler.HandleUpdate)))
	mux.HandleFunc("PATCH /cart/quantity", telemetry.WithHTTPRoute(verifier.RequireCustomer(cartHandler.HandleUpdateQuantity)))
	mux.HandleFunc("DELETE /cart/{productId}", telemetry.WithHTTPRoute(verifier.RequireCustomer(cartHandler.HandleRemove)))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(verifier.RequireCustomer(cartHandler.HandleClear)))

	mux.HandleFunc("POST /order/create", telemetry.WithHTTPRoute(verifier.RequireCustomer(orderHandler.HandleCreate)))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(verifier.RequireCustomer(orderHandler.HandleList)))
	mux.HandleFunc("GET /order/track/{tracking}", telemetry.WithHTTPRoute(orderHandler.HandleTrack))
	mux.HandleFunc("PATCH /order/track/{tracking}/status", telemetry.WithHTTPRoute(verifier.RequireAdmin(orderHandler.HandleUpdateStatus)))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: otelhttp.NewHandler(mux, "storefront-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting storefront api", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

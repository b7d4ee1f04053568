package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glowhair/config"
	"glowhair/internal/api"
	"glowhair/internal/broker"
	"glowhair/internal/cart"
	"glowhair/internal/checkout"
	"glowhair/internal/redisclient"
	"glowhair/internal/service"
	"glowhair/internal/store"
	"glowhair/internal/util"
	"glowhair/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting glowhair checkout service")

	tp, err := util.InitTracer("glowhair-checkout", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	orderService := service.NewOrderService(db, eventPublisher)
	gateway := service.NewSimulatedGateway(cfg.Checkout.ProcessingDelay)
	paymentProcessor := service.NewPaymentProcessor(db, gateway, eventPublisher)

	// Checkout submits either in-process or to a remote orders API.
	var placer checkout.OrderPlacer = orderService
	if cfg.Orders.BaseURL != "" {
		placer = service.NewRemoteOrderClient(cfg.Orders.BaseURL)
		log.Printf("Submitting orders to %s", cfg.Orders.BaseURL)
	}

	var totalsClient *service.TotalsClient
	if cfg.Orders.TotalsURL != "" {
		totalsClient = service.NewTotalsClient(cfg.Orders.TotalsURL)
	}

	cartManager := cart.NewManager(redisClient)
	checkoutManager := checkout.NewManager()
	timing := checkout.Timing{
		ProcessingDelay: cfg.Checkout.ProcessingDelay,
		RedirectDelay:   cfg.Checkout.RedirectDelay,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	paymentWorker := worker.NewPaymentWorker(consumer, paymentProcessor)
	go func() {
		if err := paymentWorker.Start(workerCtx); err != nil {
			log.Printf("Payment worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(cartManager, checkoutManager, orderService, placer, totalsClient, timing)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	paymentWorker.Stop()

	log.Println("Server exited")
}

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

	"biblioteca-server/config"
	"biblioteca-server/internal/api"
	"biblioteca-server/internal/broker"
	"biblioteca-server/internal/objectstore"
	"biblioteca-server/internal/redisclient"
	"biblioteca-server/internal/service"
	"biblioteca-server/internal/store"
	"biblioteca-server/internal/util"
	"biblioteca-server/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting biblioteca server")

	tp, err := util.InitTracer("biblioteca-server", cfg.Observ.JaegerEndpoint)
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

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicIngest)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	images, err := objectstore.NewClient(objectstore.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize object store client: %v", err)
	}
	log.Println("Object store client initialized")

	reconciler := service.NewReconciler(db, eventPublisher)
	queries := service.NewCatalogQueryService(db, redisClient)
	bookstores := service.NewBookstoreService(db)
	detector := service.NewDetectClient(cfg.Inference.URL, time.Duration(cfg.Inference.TimeoutSeconds)*time.Second)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	ingestConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicIngest, cfg.Kafka.ConsumerGroup)
	ingestWorker := worker.NewIngestWorker(ingestConsumer, redisClient)
	go func() {
		if err := ingestWorker.Start(workerCtx); err != nil {
			log.Printf("Ingest worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(
		reconciler,
		queries,
		bookstores,
		detector,
		images,
		eventPublisher,
		time.Duration(cfg.S3.PresignTTL)*time.Second,
	)
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
	ingestWorker.Stop()

	log.Println("Server exited")
}

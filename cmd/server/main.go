package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"car-market/internal/config"
	"car-market/internal/database"
	"car-market/internal/handlers"
	"car-market/internal/kafka"
	"car-market/internal/logger"
	"car-market/internal/models"
	"car-market/internal/redis"
	"car-market/internal/services"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	mux      *http.ServeMux
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting car market server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.consumer.Stop()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	engine := services.NewOfferEngine(log)
	marketService := services.NewMarketService(db, redisClient, log, &cfg.Market)
	dealService := services.NewDealService(db, log)
	offerService := services.NewOfferService(engine, marketService, dealService, producer, log)
	restockService := services.NewRestockService(engine, marketService, dealService, offerService, producer, log, &cfg.Market)

	offerHandler := handlers.NewOfferHandler(offerService, log)
	taskHandler := handlers.NewTaskHandler(restockService, log)
	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck)

	registerEventHandlers(consumer, restockService, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(offerHandler, taskHandler, healthHandler)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		mux:      mux,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(offerHandler *handlers.OfferHandler, taskHandler *handlers.TaskHandler, healthHandler *handlers.HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(healthHandler.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(healthHandler.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(healthHandler.Liveness))

	// Offer endpoints
	mux.HandleFunc("/api/offers/customer", corsMiddleware(offerHandler.CustomerOffer))
	mux.HandleFunc("/api/offers/dealer", corsMiddleware(offerHandler.DealerOffer))

	// Manual task triggers
	mux.HandleFunc("/api/dealers/", corsMiddleware(handleDealerRoute(taskHandler)))

	return mux
}

// handleDealerRoute обрабатывает действия над отдельным дилером
func handleDealerRoute(handler *handlers.TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/restock"):
			handler.DealerRestock(w, r)
		case strings.HasSuffix(r.URL.Path, "/cooperation"):
			handler.CooperationCheck(w, r)
		default:
			writeErrorResponse(w, http.StatusNotFound, "Unknown dealer action")
		}
	}
}

// registerEventHandlers регистрирует обработчики задач планировщика.
// Внешний планировщик присылает задания через Kafka, сервер исполняет
// их от имени дилеров и покупателей.
func registerEventHandlers(consumer *kafka.Consumer, restockService *services.RestockService, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypeTaskDealerRestock, func(ctx context.Context, event *models.Event) error {
		var payload models.DealerTaskPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.WithError(err).WithField("event_id", event.ID).Error("Invalid dealer restock task payload")
			return nil
		}
		return restockService.RunDealerRestock(ctx, payload.DealerID)
	})

	consumer.RegisterHandler(models.EventTypeTaskCustomerPurchase, func(ctx context.Context, event *models.Event) error {
		var payload models.CustomerPurchaseTaskPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.WithError(err).WithField("event_id", event.ID).Error("Invalid customer purchase task payload")
			return nil
		}
		return restockService.RunCustomerPurchase(ctx, &payload.Offer)
	})

	consumer.RegisterHandler(models.EventTypeTaskCooperationCheck, func(ctx context.Context, event *models.Event) error {
		var payload models.DealerTaskPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.WithError(err).WithField("event_id", event.ID).Error("Invalid cooperation check task payload")
			return nil
		}
		return restockService.RunCooperationCheck(ctx, payload.DealerID)
	})
}

// corsMiddleware и другие helper функции
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	type errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

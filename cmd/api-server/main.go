package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/meddiag/platform/pkg/common/config"
	"github.com/meddiag/platform/pkg/common/database"
	"github.com/meddiag/platform/pkg/common/kafka"
	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/diagnosis"
	"github.com/meddiag/platform/pkg/features"
	"github.com/meddiag/platform/pkg/gateway/middleware"
	"github.com/meddiag/platform/pkg/i18n"
	"github.com/meddiag/platform/pkg/observability/metrics"
	"github.com/meddiag/platform/pkg/serving/predictor"
	"github.com/meddiag/platform/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	schemas, err := features.LoadRegistry(cfg.SchemaFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load feature schemas")
	}

	messages, err := i18n.Load(cfg.MessagesFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load message catalog")
	}
	messages = messages.WithDefault(cfg.DefaultLanguage)

	models, err := predictor.Load(schemas, predictor.Options{
		Dir: cfg.ModelDir,
		ModelNames: map[features.Code]string{
			features.Diabetes:   cfg.DiabetesModel,
			features.Heart:      cfg.HeartDiseaseModel,
			features.Parkinsons: cfg.ParkinsonsModel,
		},
		ONNXRuntimeLib: cfg.ONNXRuntimeLib,
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load models")
	}
	defer models.Close()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	repo := diagnosis.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate diagnosis tables")
	}
	if err := repo.SeedDiseases(context.Background()); err != nil {
		logger.Log.WithError(err).Fatal("Failed to seed diseases")
	}

	deps := diagnosis.Dependencies{
		Schemas:      schemas,
		Models:       models,
		Messages:     messages,
		Repo:         repo,
		DefaultLimit: cfg.HistoryDefaultLimit,
		MaxLimit:     cfg.HistoryMaxLimit,
	}

	if cfg.RedisEnabled {
		redisClient := database.NewRedis(cfg)
		defer redisClient.Close()
		deps.Store = storage.NewFeatureStore(redisClient, cfg.FeatureCacheTTL)
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.DiagnosisTopic)
		defer producer.Close()
		deps.Events = producer
	}

	service := diagnosis.NewService(deps)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
	diagnosis.NewHandler(service).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      middleware.CORS(cfg.AllowedOrigins)(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"database": cfg.DatabaseDriver,
			"redis":    cfg.RedisEnabled,
			"kafka":    cfg.KafkaEnabled,
		}).Info("API server started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("API server stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

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
	"github.com/pharmkit-ai/platform/pkg/benchmark"
	"github.com/pharmkit-ai/platform/pkg/common/config"
	"github.com/pharmkit-ai/platform/pkg/common/database"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/featurestore"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres()

	featureRepo := featurestore.NewRepository(db)
	if err := featureRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate projection tables")
	}

	redisClient := database.GetRedis()
	defer database.CloseRedis()

	store := featurestore.NewStore(featureRepo, redisClient, cfg.FeatureStoreCacheTTL)
	handler := featurestore.NewHandler(store, normalizer.NewRepository(db), benchmark.NewRepository(db))

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	handler.Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8092"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8092",
		}).Info("Feature Store Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Feature Store Service...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Feature Store Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pharmkit-ai/platform/pkg/benchmark"
	"github.com/pharmkit-ai/platform/pkg/catalog"
	"github.com/pharmkit-ai/platform/pkg/common/config"
	"github.com/pharmkit-ai/platform/pkg/common/database"
	"github.com/pharmkit-ai/platform/pkg/common/kafka"
	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/covariates"
	"github.com/pharmkit-ai/platform/pkg/featurestore"
	"github.com/pharmkit-ai/platform/pkg/normalizer"
	"github.com/pharmkit-ai/platform/pkg/pipeline"
	"github.com/pharmkit-ai/platform/pkg/pivot"
	"github.com/pharmkit-ai/platform/pkg/source/pkdb"
	"github.com/pharmkit-ai/platform/pkg/source/tdc"
)

// PipelineService owns ingestion from the external sources and the
// derivation runs that rebuild the materialized projections.
type PipelineService struct {
	cfg        *config.Config
	normalizer *normalizer.Service
	benchmarks *benchmark.Service
	runner     *pipeline.Runner
	pkdbClient *pkdb.Client
	tdcClient  *tdc.Client
	producer   *kafka.Producer
	dlq        *kafka.Producer
}

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres()

	cat, err := catalog.Load(cfg.AttributeCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load attribute catalog")
	}

	studyRepo := normalizer.NewRepository(db)
	if err := studyRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate canonical tables")
	}
	benchRepo := benchmark.NewRepository(db)
	if err := benchRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate benchmark tables")
	}
	featureRepo := featurestore.NewRepository(db)
	if err := featureRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate projection tables")
	}
	runRepo := pipeline.NewRunRepository(db)
	if err := runRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate run table")
	}

	redisClient := database.GetRedis()
	defer database.CloseRedis()

	service := &PipelineService{
		cfg:        cfg,
		normalizer: normalizer.NewService(normalizer.NewTransformer(cat), studyRepo),
		benchmarks: benchmark.NewService(benchRepo),
		pkdbClient: pkdb.NewClient(pkdb.Options{
			BaseURL:      cfg.PKDBBaseURL,
			PageDelay:    cfg.PKDBPageDelay,
			MaxPages:     cfg.PKDBMaxPages,
			TokenURL:     cfg.PKDBTokenURL,
			ClientID:     cfg.PKDBClientID,
			ClientSecret: cfg.PKDBClientSecret,
		}),
		tdcClient: tdc.NewClient(cfg.TDCBaseURL, cfg.TDCRequestTimeout),
	}

	service.producer = kafka.NewProducer(cfg.PipelineEventsTopic)
	defer service.producer.Close()
	service.dlq = kafka.NewProducer(cfg.PipelineDLQTopic)
	defer service.dlq.Close()

	store := featurestore.NewStore(featureRepo, redisClient, cfg.FeatureStoreCacheTTL)
	service.runner = pipeline.NewRunner(
		studyRepo,
		featureRepo,
		store,
		runRepo,
		pivot.NewAggregator(cat),
		covariates.NewCalculator(covariates.DefaultEncodings()),
		service.producer,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run requests can also arrive over the event bus.
	consumer := kafka.NewConsumer("run-requests", "pipeline-service")
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(ctx, service.processRunEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	pipeline.NewHandler(service.runner, runRepo, service.normalizer, cfg.PipelineRunTimeout).Register(api)
	api.HandleFunc("/sync/pkdb", service.handleSyncPKDB).Methods("POST")
	api.HandleFunc("/sync/benchmarks/{endpoint}", service.handleSyncBenchmark).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8091"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8091",
		}).Info("Pipeline Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Pipeline Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Pipeline Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *PipelineService) processRunEvent(ctx context.Context, event models.Event) error {
	logger.Log.WithFields(map[string]interface{}{
		"event_id": event.ID,
	}).Info("Processing run request event")

	var req models.RunRequest
	if sids, ok := event.Data["study_sids"].([]interface{}); ok {
		for _, sid := range sids {
			if str, ok := sid.(string); ok {
				req.StudySIDs = append(req.StudySIDs, str)
			}
		}
	}
	req.RequestedBy = event.Source

	run, err := s.runner.Start(ctx, req, s.cfg.PipelineRunTimeout)
	if err != nil {
		// Malformed requests go to the DLQ; the consumer commits and moves on.
		if dlqErr := s.dlq.PublishEvent(ctx, "run.rejected", "pipeline-service", map[string]interface{}{
			"event_id": event.ID,
			"error":    err.Error(),
		}); dlqErr != nil {
			logger.Log.WithError(dlqErr).Error("Failed to publish to DLQ")
		}
		return nil
	}

	logger.Log.WithField("run_id", run.ID).Info("Run started from event")
	return nil
}

// handleSyncPKDB pulls all study endpoints from the clinical API in
// dependency order (studies first, so orphan flags settle correctly).
func (s *PipelineService) handleSyncPKDB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fetches := []struct {
		source string
		fetch  func(context.Context) ([]models.RawRecord, error)
	}{
		{models.SourceStudies, s.pkdbClient.FetchStudies},
		{models.SourceGroups, s.pkdbClient.FetchGroups},
		{models.SourceIndividuals, s.pkdbClient.FetchIndividuals},
		{models.SourceInterventions, s.pkdbClient.FetchInterventions},
		{models.SourceSubstanceStats, s.pkdbClient.FetchSubstanceStats},
	}

	summaries := make([]models.IngestSummary, 0, len(fetches))
	for _, f := range fetches {
		records, err := f.fetch(ctx)
		if err != nil {
			logger.Log.WithError(err).WithField("source", f.source).Error("Source fetch failed")
			http.Error(w, fmt.Sprintf("fetching %s: %v", f.source, err), http.StatusBadGateway)
			return
		}
		if len(records) == 0 {
			continue
		}
		summary, err := s.normalizer.Ingest(ctx, f.source, records)
		if err != nil {
			logger.Log.WithError(err).WithField("source", f.source).Error("Ingest failed")
			http.Error(w, fmt.Sprintf("ingesting %s: %v", f.source, err), http.StatusInternalServerError)
			return
		}
		summaries = append(summaries, summary)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"sources": summaries})
}

func (s *PipelineService) handleSyncBenchmark(w http.ResponseWriter, r *http.Request) {
	endpoint := mux.Vars(r)["endpoint"]
	ctx := r.Context()

	records, err := s.tdcClient.FetchEndpoint(ctx, endpoint)
	if err != nil {
		logger.Log.WithError(err).WithField("endpoint", endpoint).Error("Benchmark fetch failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	summary, err := s.benchmarks.Ingest(ctx, endpoint, records)
	if err != nil {
		logger.Log.WithError(err).WithField("endpoint", endpoint).Error("Benchmark ingest failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

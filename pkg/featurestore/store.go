package featurestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pharmkit-ai/platform/pkg/common/logger"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"github.com/pharmkit-ai/platform/pkg/covariates"
	"github.com/redis/go-redis/v9"
)

// Store wraps the repository with a Redis cache for hot per-subject feature
// sets. The database rows stay authoritative; the cache is a TTL-bounded
// projection.
type Store struct {
	repo     *Repository
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewStore(repo *Repository, redisClient *redis.Client, cacheTTL time.Duration) *Store {
	return &Store{
		repo:     repo,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

func featureKey(level, studySID string, subjectPK int64) string {
	return fmt.Sprintf("features:%s:%s:%d", level, studySID, subjectPK)
}

// GetFeatureSet serves from cache when possible, falling back to the
// covariate table.
func (s *Store) GetFeatureSet(ctx context.Context, level, studySID string, subjectPK int64) (models.FeatureSet, error) {
	key := featureKey(level, studySID, subjectPK)

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, key).Result(); err == nil {
			var fs models.FeatureSet
			if err := json.Unmarshal([]byte(data), &fs); err == nil {
				return fs, nil
			}
		}
	}

	row, err := s.repo.GetCovariateRow(ctx, level, studySID, subjectPK)
	if err != nil {
		return models.FeatureSet{}, fmt.Errorf("loading covariate row: %w", err)
	}

	fs := FeatureSetFromRow(*row, nil)
	if err := s.MaterializeHotFeatures(ctx, fs); err != nil {
		logger.Log.WithError(err).Warn("failed to cache feature set")
	}
	return fs, nil
}

// MaterializeHotFeatures writes one feature set to the cache with TTL.
func (s *Store) MaterializeHotFeatures(ctx context.Context, fs models.FeatureSet) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(fs)
	if err != nil {
		return err
	}
	key := featureKey(fs.Level, fs.StudySID, fs.SubjectPK)
	return s.redis.Set(ctx, key, data, s.cacheTTL).Err()
}

// WarmStudy caches a feature set for every derived row of a freshly
// replaced study, merging in study-level extras such as the dose summary.
func (s *Store) WarmStudy(ctx context.Context, rows []covariates.Row, extra map[string]models.Feature) error {
	for _, row := range rows {
		fs := FeatureSetFromRow(derivedRowFromCovariates(row), extra)
		if err := s.MaterializeHotFeatures(ctx, fs); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateStudy drops every cached feature set for the study at the given
// level. Called before a wholesale replacement lands.
func (s *Store) InvalidateStudy(ctx context.Context, level, studySID string) error {
	if s.redis == nil {
		return nil
	}
	pattern := fmt.Sprintf("features:%s:%s:*", level, studySID)
	iter := s.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// FeatureSetFromRow flattens a covariate row (plus optional extra features,
// e.g. the dose summary) into the serving shape.
func FeatureSetFromRow(row DerivedCovariateRow, extra map[string]models.Feature) models.FeatureSet {
	now := time.Now().UTC()
	features := make(map[string]models.Feature)

	put := func(name string, value interface{}) {
		features[name] = models.Feature{Name: name, Value: value, Timestamp: now}
	}

	if row.Age != nil {
		put("age", *row.Age)
	}
	if row.Weight != nil {
		put("weight", *row.Weight)
	}
	if row.Height != nil {
		put("height", *row.Height)
	}
	if row.BSA != nil {
		put("bsa", *row.BSA)
	}
	if row.EstCrCl != nil {
		put("est_crcl", *row.EstCrCl)
	}
	if row.IBW != nil {
		put("ibw", *row.IBW)
	}
	if row.BMI != nil {
		put("bmi", *row.BMI)
	}
	if row.IsSmoker != nil {
		put("is_smoker", *row.IsSmoker)
	}
	if row.IsFemale != nil {
		put("is_female", *row.IsFemale)
	}
	if row.IsHealthy != nil {
		put("is_healthy", *row.IsHealthy)
	}
	if row.OnOC != nil {
		put("on_oc", *row.OnOC)
	}
	if row.AgeCategory != "" {
		put("age_category", row.AgeCategory)
	}
	if row.BMICategory != "" {
		put("bmi_category", row.BMICategory)
	}

	for name, feature := range extra {
		features[name] = feature
	}

	return models.FeatureSet{
		StudySID:  row.StudySID,
		Level:     row.Level,
		SubjectPK: row.SubjectPK,
		Features:  features,
		Version:   1,
	}
}

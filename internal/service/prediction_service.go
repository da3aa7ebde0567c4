package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"loanpilot/internal/model"
	"loanpilot/pkg/config"
	"loanpilot/pkg/dataset"
	"loanpilot/pkg/forest"
	"loanpilot/pkg/logger"
	"loanpilot/pkg/pipeline"
	"loanpilot/pkg/store/mysql"
	redisstore "loanpilot/pkg/store/redis"
)

// PredictionService owns the preprocessing pipeline and the trained forest.
// It serves sanction-amount predictions with a Redis cache in front and a
// MySQL record of every score behind.
type PredictionService struct {
	mu       sync.RWMutex
	pipe     *pipeline.Pipeline
	model    *forest.Regressor
	features []string
	info     *model.ModelInfo

	cache          *redisstore.PredictionCache
	predictionRepo *mysql.PredictionRepository
}

// NewPredictionService creates a prediction service. Train must be called
// before the service can score.
func NewPredictionService(cache *redisstore.PredictionCache, predictionRepo *mysql.PredictionRepository) *PredictionService {
	return &PredictionService{
		cache:          cache,
		predictionRepo: predictionRepo,
	}
}

// Train fits the pipeline and the forest from the configured training CSV,
// evaluates on a holdout split, and swaps the new model in. Cached
// predictions from the previous model are invalidated.
func (s *PredictionService) Train(ctx context.Context) error {
	cfg := config.GlobalConfig.Model

	frame, err := dataset.Load(cfg.DatasetPath, pipeline.CategoricalColumns)
	if err != nil {
		return fmt.Errorf("failed to load training data: %w", err)
	}
	logger.InfoCtx(ctx, "training data loaded, path: %s, rows: %d", cfg.DatasetPath, frame.Rows())

	trainFrame, testFrame := dataset.Split(frame, cfg.TestFraction, cfg.Seed)

	pipe := pipeline.NewLoanPipeline()
	if err := pipe.Fit(trainFrame); err != nil {
		return fmt.Errorf("failed to fit pipeline: %w", err)
	}
	if err := pipe.Apply(testFrame); err != nil {
		return fmt.Errorf("failed to transform holdout data: %w", err)
	}

	features := pipeline.FeatureNames(trainFrame, pipeline.ColSanctionAmount)
	trainX := pipeline.Matrix(trainFrame, features)
	trainY, err := pipeline.Target(trainFrame, pipeline.ColSanctionAmount)
	if err != nil {
		return err
	}

	reg, err := s.loadOrTrain(ctx, trainX, trainY, features, cfg)
	if err != nil {
		return err
	}

	testX := pipeline.Matrix(testFrame, features)
	testY, err := pipeline.Target(testFrame, pipeline.ColSanctionAmount)
	if err != nil {
		return err
	}
	mae, r2, err := reg.Evaluate(testX, testY)
	if err != nil {
		return fmt.Errorf("failed to evaluate model: %w", err)
	}
	logger.InfoCtx(ctx, "model evaluated, mae: %.2f, r2: %.4f, train_rows: %d, test_rows: %d",
		mae, r2, len(trainY), len(testY))

	info := &model.ModelInfo{
		Features:  features,
		Trees:     len(reg.Trees),
		MAE:       mae,
		R2:        r2,
		TrainedAt: time.Now(),
		TrainRows: len(trainY),
		TestRows:  len(testY),
	}

	s.mu.Lock()
	s.pipe = pipe
	s.model = reg
	s.features = features
	s.info = info
	s.mu.Unlock()

	// Predictions made by the previous model are stale now.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.WarnCtx(ctx, "failed to invalidate prediction cache: %v", err)
		}
		if err := s.cache.PutModelInfo(ctx, info); err != nil {
			logger.WarnCtx(ctx, "failed to publish model info: %v", err)
		}
	}
	if s.predictionRepo != nil {
		if err := s.predictionRepo.DeleteAll(ctx); err != nil {
			logger.WarnCtx(ctx, "failed to clear stored predictions: %v", err)
		}
	}

	return nil
}

// loadOrTrain restores the forest from the configured snapshot when one
// exists and matches the feature layout, otherwise trains a fresh one and
// writes the snapshot back.
func (s *PredictionService) loadOrTrain(ctx context.Context, X [][]float64, y []float64, features []string, cfg config.ModelConfig) (*forest.Regressor, error) {
	if cfg.SnapshotPath != "" {
		reg, err := forest.Load(cfg.SnapshotPath)
		switch {
		case err == nil && featuresMatch(reg.Features, features):
			logger.InfoCtx(ctx, "model restored from snapshot, path: %s, trees: %d", cfg.SnapshotPath, len(reg.Trees))
			return reg, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			logger.WarnCtx(ctx, "failed to load model snapshot, retraining: %v", err)
		case err == nil:
			logger.WarnCtx(ctx, "model snapshot feature layout changed, retraining")
		}
	}

	reg, err := forest.Train(X, y, features, forest.Config{
		Trees:    cfg.Trees,
		MaxDepth: cfg.MaxDepth,
		MinLeaf:  cfg.MinLeaf,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}

	if cfg.SnapshotPath != "" {
		if err := reg.Save(cfg.SnapshotPath); err != nil {
			logger.WarnCtx(ctx, "failed to save model snapshot: %v", err)
		}
	}
	return reg, nil
}

// Score predicts the sanction amount for a profile. Cached predictions are
// served from Redis; fresh predictions are cached and recorded in MySQL.
func (s *PredictionService) Score(ctx context.Context, profile *model.ApplicantProfile) (float64, bool, error) {
	if profile == nil {
		return 0, false, fmt.Errorf("applicant profile is nil")
	}

	hash, err := redisstore.ProfileHash(profile)
	if err != nil {
		return 0, false, fmt.Errorf("failed to hash profile: %w", err)
	}

	if s.cache != nil {
		amount, hit, err := s.cache.Get(ctx, hash)
		if err != nil {
			logger.WarnCtx(ctx, "prediction cache lookup failed: %v", err)
		} else if hit {
			return amount, true, nil
		}
	}

	amount, err := s.predict(profile)
	if err != nil {
		return 0, false, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, hash, amount); err != nil {
			logger.WarnCtx(ctx, "failed to cache prediction: %v", err)
		}
	}
	if s.predictionRepo != nil {
		row := &mysql.Prediction{
			ProfileHash:    hash,
			SanctionAmount: amount,
			ModelTrainedAt: s.Info().TrainedAt,
		}
		if err := s.predictionRepo.Upsert(ctx, row); err != nil {
			logger.WarnCtx(ctx, "failed to record prediction: %v", err)
		}
	}

	return amount, false, nil
}

// predict runs the profile through the fitted pipeline and the forest.
func (s *PredictionService) predict(profile *model.ApplicantProfile) (float64, error) {
	s.mu.RLock()
	pipe, reg, features := s.pipe, s.model, s.features
	s.mu.RUnlock()

	if pipe == nil || reg == nil {
		return 0, fmt.Errorf("model is not trained")
	}

	frame := profile.Frame()
	if err := pipe.Apply(frame); err != nil {
		return 0, fmt.Errorf("failed to transform profile: %w", err)
	}

	rows := pipeline.Matrix(frame, features)
	if len(rows) != 1 {
		return 0, fmt.Errorf("profile transformed into %d rows", len(rows))
	}
	amount, err := reg.Predict(rows[0])
	if err != nil {
		return 0, err
	}
	// A sanction amount cannot be negative.
	if amount < 0 {
		amount = 0
	}
	return amount, nil
}

// Info describes the loaded model. Returns nil until Train has succeeded.
func (s *PredictionService) Info() *model.ModelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return nil
	}
	infoCopy := *s.info
	return &infoCopy
}

func featuresMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

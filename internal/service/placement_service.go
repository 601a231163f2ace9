package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"levelup_backend/internal/model"
	"levelup_backend/internal/progression"
	"levelup_backend/internal/repository"
	"levelup_backend/pkg/logger"
	"levelup_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const placementCacheKey = "levelup:placement:questions"

type PlacementService struct {
	ContentRepo *repository.ContentRepository
	Progress    *ProgressService
	Redis       *redis.Client
	CacheTTL    time.Duration
}

// NewPlacementService caches the question pool in rdb when it is non-nil.
func NewPlacementService(contentRepo *repository.ContentRepository, progress *ProgressService, rdb *redis.Client, ttl time.Duration) *PlacementService {
	return &PlacementService{
		ContentRepo: contentRepo,
		Progress:    progress,
		Redis:       rdb,
		CacheTTL:    ttl,
	}
}

// Questions returns the whole placement pool without answers, or progression.ErrNoQuestions.
func (s *PlacementService) Questions(ctx context.Context) ([]model.QuestionView, error) {
	if views, ok := s.cached(ctx); ok {
		return views, nil
	}

	questions, err := s.ContentRepo.TestQuestions.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, progression.ErrNoQuestions
	}

	views := make([]model.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.View())
	}
	s.store(ctx, views)
	return views, nil
}

func (s *PlacementService) cached(ctx context.Context) ([]model.QuestionView, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, placementCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Placement cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var views []model.QuestionView
	if err := json.Unmarshal(raw, &views); err != nil || len(views) == 0 {
		return nil, false
	}
	return views, true
}

func (s *PlacementService) store(ctx context.Context, views []model.QuestionView) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, placementCacheKey, raw, s.CacheTTL).Err(); err != nil {
		logger.Log.Warn("Placement cache write failed", zap.Error(err))
	}
}

// InvalidateCache drops the cached pool after test questions change.
func (s *PlacementService) InvalidateCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, placementCacheKey).Err(); err != nil {
		logger.Log.Warn("Placement cache invalidation failed", zap.Error(err))
	}
}

type PlacementOutcome struct {
	progression.PlacementResult
	LevelName string `json:"levelName"`
}

// Submit grades answers against the full pool and moves the learner to the resulting level.
// The progress record is untouched when the pool is empty.
func (s *PlacementService) Submit(ctx context.Context, userID uint, answers map[uint]string) (*PlacementOutcome, error) {
	questions, err := s.ContentRepo.TestQuestions.All(ctx)
	if err != nil {
		return nil, err
	}

	result, err := progression.ScorePlacement(answers, questions)
	if err != nil {
		return nil, err
	}

	level, err := s.Progress.LevelRepo.EnsureLevel(ctx, result.Level)
	if err != nil {
		return nil, err
	}
	p, err := s.Progress.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Progress.ProgressRepo.SavePlacement(ctx, p, result.Level, result.Percentage); err != nil {
		return nil, fmt.Errorf("save placement result: %w", err)
	}

	monitoring.RecordPlacement(result.Level, result.Percentage)
	logger.Log.Info("Placement test scored",
		zap.Uint("user_id", userID),
		zap.Int("correct", result.Correct),
		zap.Int("total", result.Total),
		zap.Int("level", result.Level),
	)

	return &PlacementOutcome{PlacementResult: result, LevelName: level.Name}, nil
}

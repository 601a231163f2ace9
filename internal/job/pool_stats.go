// Package job runs the background schedule.
package job

import (
	"context"
	"strconv"
	"time"

	"levelup_backend/internal/model"
	"levelup_backend/internal/repository"
	"levelup_backend/pkg/logger"
	"levelup_backend/pkg/monitoring"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type Scheduler struct {
	scheduler *gocron.Scheduler
	content   *repository.ContentRepository
	interval  time.Duration
}

func New(content *repository.ContentRepository, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		content:   content,
		interval:  interval,
	}
}

// Start schedules the pool statistics job, running it once immediately.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(s.refreshPoolStats)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) refreshPoolStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := RecordPoolStats(ctx, s.content); err != nil {
		logger.Log.Error("Pool statistics job failed", zap.Error(err))
	}
}

// RecordPoolStats sets the content pool gauge for every type and level, zero included.
func RecordPoolStats(ctx context.Context, content *repository.ContentRepository) error {
	pools := []struct {
		name  string
		count func(context.Context) (map[int]int64, error)
	}{
		{string(model.ContentTerm), content.Terms.CountByLevel},
		{string(model.ContentRule), content.Rules.CountByLevel},
		{string(model.ContentProblem), content.Problems.CountByLevel},
		{"test_question", content.TestQuestions.CountByLevel},
	}

	for _, p := range pools {
		counts, err := p.count(ctx)
		if err != nil {
			return err
		}
		for lvl := model.MinLevel; lvl <= model.MaxLevel; lvl++ {
			monitoring.ContentPool.WithLabelValues(p.name, strconv.Itoa(lvl)).Set(float64(counts[lvl]))
		}
	}
	return nil
}

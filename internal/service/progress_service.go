package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"levelup_backend/internal/model"
	"levelup_backend/internal/progression"
	"levelup_backend/internal/repository"
	"levelup_backend/internal/util"
	"levelup_backend/pkg/logger"
	"levelup_backend/pkg/monitoring"
	"levelup_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// itemsForFullProgress is the consumed item count shown as 100% on the dashboard.
const itemsForFullProgress = 100

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	LevelRepo    *repository.LevelRepository
	ContentRepo  *repository.ContentRepository

	selector atomic.Pointer[progression.Selector]
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	levelRepo *repository.LevelRepository,
	contentRepo *repository.ContentRepository,
	scope progression.PacingScope,
) *ProgressService {
	s := &ProgressService{
		ProgressRepo: progressRepo,
		LevelRepo:    levelRepo,
		ContentRepo:  contentRepo,
	}
	s.SetPacingScope(scope)
	return s
}

// SetPacingScope swaps the selector; in-flight selections finish with the old one.
func (s *ProgressService) SetPacingScope(scope progression.PacingScope) {
	sel := progression.NewSelector(s.ContentRepo, scope)
	if old := s.selector.Swap(sel); old != nil && old.Scope() != sel.Scope() {
		logger.Log.Info("Pacing scope changed",
			zap.String("from", string(old.Scope())),
			zap.String("to", string(sel.Scope())),
		)
	}
}

func (s *ProgressService) PacingScope() progression.PacingScope {
	return s.selector.Load().Scope()
}

// GetOrCreate never fails for a missing record: one with level 1 defaults is created.
func (s *ProgressService) GetOrCreate(ctx context.Context, userID uint) (*model.UserProgress, error) {
	p, created, err := s.ProgressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress of user %d: %w", userID, err)
	}
	if created {
		if _, err := s.LevelRepo.EnsureLevel(ctx, p.CurrentLevel); err != nil {
			return nil, err
		}
		logger.Log.Info("Created missing progress record", zap.Uint("user_id", userID))
	}
	return p, nil
}

type Dashboard struct {
	Progress           *model.UserProgress       `json:"progress"`
	LevelName          string                    `json:"levelName"`
	Counts             repository.ConsumedCounts `json:"counts"`
	HasStartedLearning bool                      `json:"hasStartedLearning"`
	ProgressPercentage float64                   `json:"progressPercentage"`
}

func (s *ProgressService) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts, err := s.ProgressRepo.Counts(ctx, p)
	if err != nil {
		return nil, err
	}

	pct := float64(counts.Total()) / itemsForFullProgress * 100
	if pct > 100 {
		pct = 100
	}

	return &Dashboard{
		Progress:           p,
		LevelName:          s.LevelRepo.Name(ctx, p.CurrentLevel),
		Counts:             counts,
		HasStartedLearning: p.PlacementTestTaken || counts.Total() > 0,
		ProgressPercentage: pct,
	}, nil
}

// StartFromZero puts the learner back on level 1 and clears the placement result.
func (s *ProgressService) StartFromZero(ctx context.Context, userID uint) (*model.UserProgress, error) {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.LevelRepo.EnsureLevel(ctx, model.MinLevel); err != nil {
		return nil, err
	}
	if err := s.ProgressRepo.Reset(ctx, p); err != nil {
		return nil, fmt.Errorf("reset progress: %w", err)
	}
	return p, nil
}

// NextContent is the item handed to the learner. Item holds a *model.Term, a
// *model.RuleTheory or a model.QuestionView; it is nil when NoContent is set.
type NextContent struct {
	Type      model.ContentType `json:"type,omitempty"`
	Item      interface{}       `json:"item,omitempty"`
	Level     int               `json:"level"`
	LevelName string            `json:"levelName"`
	Advanced  bool              `json:"advanced"`
	NoContent bool              `json:"noContent"`
}

// NextContent runs the selector for the user and stores any level it advanced to.
func (s *ProgressService) NextContent(ctx context.Context, userID uint) (*NextContent, error) {
	ctx, span := tracing.Start(ctx, "ProgressService.NextContent")
	defer span.End()

	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	terms, rules, problems, err := s.ProgressRepo.Consumed(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("load consumed sets: %w", err)
	}

	from := p.CurrentLevel
	d, err := s.selector.Load().Next(ctx, progression.State{
		Level:    from,
		Terms:    terms,
		Rules:    rules,
		Problems: problems,
	})
	if err != nil {
		return nil, err
	}

	if d.Level != from {
		if _, err := s.LevelRepo.EnsureLevel(ctx, d.Level); err != nil {
			return nil, err
		}
		if err := s.ProgressRepo.UpdateLevel(ctx, p, d.Level); err != nil {
			return nil, fmt.Errorf("advance to level %d: %w", d.Level, err)
		}
		if d.Advanced(from) {
			monitoring.RecordAdvance(d.Level)
			logger.Log.Info("Learner advanced",
				zap.Uint("user_id", userID),
				zap.Int("from", from),
				zap.Int("to", d.Level),
			)
		}
	}

	span.SetAttributes(
		attribute.Int("level", d.Level),
		attribute.String("content.type", string(d.Type)),
	)

	next := &NextContent{
		Type:      d.Type,
		Level:     d.Level,
		LevelName: s.LevelRepo.Name(ctx, d.Level),
		Advanced:  d.Advanced(from),
		NoContent: !d.Found(),
	}
	switch d.Type {
	case model.ContentTerm:
		next.Item = d.Term
	case model.ContentRule:
		next.Item = d.Rule
	case model.ContentProblem:
		next.Item = d.Problem.View()
	}

	if next.NoContent {
		monitoring.NoContent.Inc()
	} else {
		monitoring.ContentServed.WithLabelValues(string(d.Type)).Inc()
	}
	return next, nil
}

func (s *ProgressService) MarkTermStudied(ctx context.Context, userID, termID uint) error {
	term, err := s.ContentRepo.Terms.FindByID(ctx, termID)
	if err != nil {
		return contentErr(err)
	}
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.ProgressRepo.AddTerm(ctx, p, term)
}

func (s *ProgressService) MarkRuleStudied(ctx context.Context, userID, ruleID uint) error {
	rule, err := s.ContentRepo.Rules.FindByID(ctx, ruleID)
	if err != nil {
		return contentErr(err)
	}
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.ProgressRepo.AddRule(ctx, p, rule)
}

type AnswerResult struct {
	IsCorrect     bool               `json:"isCorrect"`
	CorrectAnswer model.AnswerOption `json:"correctAnswer"`
	Explanation   string             `json:"explanation"`
}

// CheckProblemAnswer grades a practice answer. Only a correct answer marks the problem
// solved; a blank or unknown letter is simply wrong.
func (s *ProgressService) CheckProblemAnswer(ctx context.Context, userID, problemID uint, answer string) (*AnswerResult, error) {
	problem, err := s.ContentRepo.Problems.FindByID(ctx, problemID)
	if err != nil {
		return nil, contentErr(err)
	}
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	correct := problem.CorrectAnswer.Matches(answer)
	if correct {
		if err := s.ProgressRepo.AddProblem(ctx, p, problem); err != nil {
			return nil, err
		}
	}

	return &AnswerResult{
		IsCorrect:     correct,
		CorrectAnswer: problem.CorrectAnswer,
		Explanation:   problem.Explanation,
	}, nil
}

func (s *ProgressService) ListProgress(ctx context.Context, page, limit int) ([]model.ProgressSummary, int64, error) {
	return s.ProgressRepo.ListSummaries(ctx, page, limit)
}

func contentErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrContentNotFound
	}
	return err
}

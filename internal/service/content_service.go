package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"levelup_backend/internal/model"
	"levelup_backend/internal/repository"
	"levelup_backend/internal/util"

	"gorm.io/gorm"
)

// ContentAdmin is the admin CRUD for one content kind. Every write first makes sure the
// item's difficulty level row exists.
type ContentAdmin[T any] struct {
	Store  *repository.ContentStore[T]
	levels *repository.LevelRepository

	base     func(*T) *model.BaseModel
	levelOf  func(*T) int
	validate func(*T) error
	// called after any successful write
	changed func(context.Context)
}

func (a *ContentAdmin[T]) Get(ctx context.Context, id uint) (*T, error) {
	item, err := a.Store.FindByID(ctx, id)
	if err != nil {
		return nil, contentErr(err)
	}
	return item, nil
}

func (a *ContentAdmin[T]) List(ctx context.Context, level, page, limit int) ([]T, int64, error) {
	return a.Store.List(ctx, level, page, limit)
}

func (a *ContentAdmin[T]) Create(ctx context.Context, item *T) error {
	if err := a.prepare(ctx, item); err != nil {
		return err
	}
	*a.base(item) = model.BaseModel{}
	if err := a.Store.Create(ctx, item); err != nil {
		return err
	}
	a.notify(ctx)
	return nil
}

// Update replaces every editable field of item id with those of item.
func (a *ContentAdmin[T]) Update(ctx context.Context, id uint, item *T) error {
	existing, err := a.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := a.prepare(ctx, item); err != nil {
		return err
	}

	b := a.base(item)
	*b = *a.base(existing)
	if err := a.Store.Update(ctx, item); err != nil {
		return err
	}
	a.notify(ctx)
	return nil
}

func (a *ContentAdmin[T]) Delete(ctx context.Context, id uint) error {
	if err := a.Store.Delete(ctx, id); err != nil {
		return contentErr(err)
	}
	a.notify(ctx)
	return nil
}

func (a *ContentAdmin[T]) prepare(ctx context.Context, item *T) error {
	if !model.ValidLevel(a.levelOf(item)) {
		return util.ErrInvalidLevel
	}
	if err := a.validate(item); err != nil {
		return err
	}
	_, err := a.levels.EnsureLevel(ctx, a.levelOf(item))
	return err
}

func (a *ContentAdmin[T]) notify(ctx context.Context) {
	if a.changed != nil {
		a.changed(ctx)
	}
}

func validateText(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", util.ErrInvalidContent)
	}
	return nil
}

func validateChoice(m *model.MultipleChoice) error {
	if strings.TrimSpace(m.Question) == "" {
		return fmt.Errorf("%w: question is required", util.ErrInvalidContent)
	}
	opt, err := model.ParseAnswerOption(string(m.CorrectAnswer))
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidContent, err)
	}
	m.CorrectAnswer = opt
	return nil
}

type ContentService struct {
	LevelRepo     *repository.LevelRepository
	ContentRepo   *repository.ContentRepository
	Terms         *ContentAdmin[model.Term]
	Rules         *ContentAdmin[model.RuleTheory]
	Problems      *ContentAdmin[model.Problem]
	TestQuestions *ContentAdmin[model.TestQuestion]
}

// NewContentService wires admin CRUD for every content kind. Test question writes drop the
// cached placement pool.
func NewContentService(contentRepo *repository.ContentRepository, levelRepo *repository.LevelRepository, placement *PlacementService) *ContentService {
	var invalidate func(context.Context)
	if placement != nil {
		invalidate = placement.InvalidateCache
	}

	return &ContentService{
		LevelRepo:   levelRepo,
		ContentRepo: contentRepo,
		Terms: &ContentAdmin[model.Term]{
			Store:    contentRepo.Terms,
			levels:   levelRepo,
			base:     func(t *model.Term) *model.BaseModel { return &t.BaseModel },
			levelOf:  func(t *model.Term) int { return t.Level },
			validate: func(t *model.Term) error { return validateText(t.Title) },
		},
		Rules: &ContentAdmin[model.RuleTheory]{
			Store:    contentRepo.Rules,
			levels:   levelRepo,
			base:     func(r *model.RuleTheory) *model.BaseModel { return &r.BaseModel },
			levelOf:  func(r *model.RuleTheory) int { return r.Level },
			validate: func(r *model.RuleTheory) error { return validateText(r.Title) },
		},
		Problems: &ContentAdmin[model.Problem]{
			Store:    contentRepo.Problems,
			levels:   levelRepo,
			base:     func(p *model.Problem) *model.BaseModel { return &p.BaseModel },
			levelOf:  func(p *model.Problem) int { return p.Level },
			validate: func(p *model.Problem) error { return validateChoice(&p.MultipleChoice) },
		},
		TestQuestions: &ContentAdmin[model.TestQuestion]{
			Store:    contentRepo.TestQuestions,
			levels:   levelRepo,
			base:     func(q *model.TestQuestion) *model.BaseModel { return &q.BaseModel },
			levelOf:  func(q *model.TestQuestion) int { return q.Level },
			validate: func(q *model.TestQuestion) error { return validateChoice(&q.MultipleChoice) },
			changed:  invalidate,
		},
	}
}

func (s *ContentService) ListLevels(ctx context.Context) ([]model.DifficultyLevel, error) {
	return s.LevelRepo.List(ctx)
}

// CreateLevel is idempotent: an existing level is returned with its stored name.
func (s *ContentService) CreateLevel(ctx context.Context, level int, name string) (*model.DifficultyLevel, error) {
	if !model.ValidLevel(level) {
		return nil, util.ErrInvalidLevel
	}
	return s.LevelRepo.EnsureNamed(ctx, level, strings.TrimSpace(name))
}

func (s *ContentService) GetLevel(ctx context.Context, level int) (*model.DifficultyLevel, error) {
	l, err := s.LevelRepo.FindByLevel(ctx, level)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}
	return l, nil
}

type SearchResult struct {
	Terms []model.Term       `json:"terms"`
	Rules []model.RuleTheory `json:"rules"`
}

// Search lists terms and rules whose title or explanation contains q; an empty q lists all.
func (s *ContentService) Search(ctx context.Context, q string) (*SearchResult, error) {
	q = strings.TrimSpace(q)
	terms, err := s.ContentRepo.Terms.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	rules, err := s.ContentRepo.Rules.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Terms: terms, Rules: rules}, nil
}

package repository

import (
	"context"
	"errors"
	"levelup_backend/internal/model"

	"gorm.io/gorm"
)

const (
	assocTerms    = "TermsStudied"
	assocRules    = "RulesStudied"
	assocProblems = "ProblemsSolved"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Create(ctx context.Context, p *model.UserProgress) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *ProgressRepository) FindByUserID(ctx context.Context, userID uint) (*model.UserProgress, error) {
	var p model.UserProgress
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	return &p, err
}

// GetOrCreate loads the user's progress, creating the level-1 defaults when there is none.
// The bool reports whether a row was created.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID uint) (*model.UserProgress, bool, error) {
	p, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	p = model.NewUserProgress(userID)
	if err := r.Create(ctx, p); err != nil {
		// lost a race on the unique user_id index
		if existing, findErr := r.FindByUserID(ctx, userID); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return p, true, nil
}

// Consumed returns content ID -> level for each of the three consumed sets.
func (r *ProgressRepository) Consumed(ctx context.Context, p *model.UserProgress) (terms, rules, problems map[uint]int, err error) {
	db := r.DB.WithContext(ctx)

	var ts []model.Term
	if err = db.Model(p).Association(assocTerms).Find(&ts); err != nil {
		return
	}
	var rs []model.RuleTheory
	if err = db.Model(p).Association(assocRules).Find(&rs); err != nil {
		return
	}
	var ps []model.Problem
	if err = db.Model(p).Association(assocProblems).Find(&ps); err != nil {
		return
	}

	terms = make(map[uint]int, len(ts))
	for _, t := range ts {
		terms[t.ID] = t.Level
	}
	rules = make(map[uint]int, len(rs))
	for _, rt := range rs {
		rules[rt.ID] = rt.Level
	}
	problems = make(map[uint]int, len(ps))
	for _, pr := range ps {
		problems[pr.ID] = pr.Level
	}
	return terms, rules, problems, nil
}

type ConsumedCounts struct {
	Terms    int64 `json:"termsStudied"`
	Rules    int64 `json:"rulesStudied"`
	Problems int64 `json:"problemsSolved"`
}

func (c ConsumedCounts) Total() int64 {
	return c.Terms + c.Rules + c.Problems
}

func (r *ProgressRepository) Counts(ctx context.Context, p *model.UserProgress) (ConsumedCounts, error) {
	db := r.DB.WithContext(ctx)
	count := func(name string) (int64, error) {
		assoc := db.Model(p).Association(name)
		n := assoc.Count()
		return n, assoc.Error
	}

	var c ConsumedCounts
	var err error
	if c.Terms, err = count(assocTerms); err != nil {
		return c, err
	}
	if c.Rules, err = count(assocRules); err != nil {
		return c, err
	}
	if c.Problems, err = count(assocProblems); err != nil {
		return c, err
	}
	return c, nil
}

// Adding an item that is already in the set leaves the set unchanged.

func (r *ProgressRepository) AddTerm(ctx context.Context, p *model.UserProgress, t *model.Term) error {
	return r.DB.WithContext(ctx).Model(p).Association(assocTerms).Append(t)
}

func (r *ProgressRepository) AddRule(ctx context.Context, p *model.UserProgress, rt *model.RuleTheory) error {
	return r.DB.WithContext(ctx).Model(p).Association(assocRules).Append(rt)
}

func (r *ProgressRepository) AddProblem(ctx context.Context, p *model.UserProgress, pr *model.Problem) error {
	return r.DB.WithContext(ctx).Model(p).Association(assocProblems).Append(pr)
}

func (r *ProgressRepository) UpdateLevel(ctx context.Context, p *model.UserProgress, level int) error {
	if err := r.DB.WithContext(ctx).Model(p).Update("current_level", level).Error; err != nil {
		return err
	}
	p.CurrentLevel = level
	return nil
}

func (r *ProgressRepository) SavePlacement(ctx context.Context, p *model.UserProgress, level int, score float64) error {
	err := r.DB.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"current_level":        level,
		"placement_test_taken": true,
		"placement_test_score": score,
	}).Error
	if err != nil {
		return err
	}
	p.CurrentLevel = level
	p.PlacementTestTaken = true
	p.PlacementTestScore = score
	return nil
}

// Reset puts the learner back on level 1 and forgets the placement result. Consumed sets
// are kept.
func (r *ProgressRepository) Reset(ctx context.Context, p *model.UserProgress) error {
	err := r.DB.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"current_level":        model.MinLevel,
		"placement_test_taken": false,
		"placement_test_score": 0,
	}).Error
	if err != nil {
		return err
	}
	p.CurrentLevel = model.MinLevel
	p.PlacementTestTaken = false
	p.PlacementTestScore = 0
	return nil
}

func (r *ProgressRepository) ListSummaries(ctx context.Context, page, limit int) ([]model.ProgressSummary, int64, error) {
	var rows []model.ProgressSummary
	var total int64

	query := r.DB.WithContext(ctx).Table("user_progress").
		Joins("JOIN users ON users.id = user_progress.user_id AND users.deleted_at IS NULL").
		Where("user_progress.deleted_at IS NULL")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.
		Select("user_progress.user_id, users.username, user_progress.current_level, user_progress.placement_test_taken, user_progress.placement_test_score").
		Order("users.username asc").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	return rows, total, err
}

package repository

import (
	"context"
	"levelup_backend/internal/model"

	"gorm.io/gorm"
)

// ContentStore is the table access shared by the four content kinds.
type ContentStore[T any] struct {
	DB *gorm.DB
	// searchable columns for Search
	textColumns []string
}

func NewContentStore[T any](db *gorm.DB, textColumns ...string) *ContentStore[T] {
	return &ContentStore[T]{DB: db, textColumns: textColumns}
}

func (s *ContentStore[T]) Create(ctx context.Context, item *T) error {
	return s.DB.WithContext(ctx).Create(item).Error
}

func (s *ContentStore[T]) CreateInBatches(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).CreateInBatches(&items, 100).Error
}

func (s *ContentStore[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var item T
	err := s.DB.WithContext(ctx).First(&item, id).Error
	return &item, err
}

func (s *ContentStore[T]) Update(ctx context.Context, item *T) error {
	return s.DB.WithContext(ctx).Save(item).Error
}

func (s *ContentStore[T]) Delete(ctx context.Context, id uint) error {
	var item T
	res := s.DB.WithContext(ctx).Delete(&item, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List pages through items, optionally restricted to one level (level 0 means all).
func (s *ContentStore[T]) List(ctx context.Context, level, page, limit int) ([]T, int64, error) {
	var items []T
	var total int64
	query := s.DB.WithContext(ctx).Model(new(T))
	if level > 0 {
		query = query.Where("level = ?", level)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("level asc, id asc").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

func (s *ContentStore[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	err := s.DB.WithContext(ctx).Order("id asc").Find(&items).Error
	return items, err
}

// Search matches q as a substring of any text column. An empty q returns everything.
func (s *ContentStore[T]) Search(ctx context.Context, q string) ([]T, error) {
	var items []T
	query := s.DB.WithContext(ctx).Model(new(T))
	if q != "" && len(s.textColumns) > 0 {
		like := "%" + q + "%"
		cond := s.DB.Where(s.textColumns[0]+" LIKE ?", like)
		for _, col := range s.textColumns[1:] {
			cond = cond.Or(col+" LIKE ?", like)
		}
		query = query.Where(cond)
	}
	err := query.Order("level asc, id asc").Find(&items).Error
	return items, err
}

// FirstUnseen returns the lowest-ID item at level whose ID is not in exclude, or nil.
func (s *ContentStore[T]) FirstUnseen(ctx context.Context, level int, exclude []uint) (*T, error) {
	var item T
	query := s.DB.WithContext(ctx).Where("level = ?", level)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	res := query.Order("id asc").Limit(1).Find(&item)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &item, nil
}

// CountByLevel returns level -> number of items.
func (s *ContentStore[T]) CountByLevel(ctx context.Context) (map[int]int64, error) {
	var rows []struct {
		Level int
		Total int64
	}
	err := s.DB.WithContext(ctx).Model(new(T)).
		Select("level, COUNT(*) AS total").
		Group("level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int64, len(rows))
	for _, r := range rows {
		counts[r.Level] = r.Total
	}
	return counts, nil
}

// ContentRepository groups the study and placement pools. It is the progression Catalog.
type ContentRepository struct {
	DB            *gorm.DB
	Terms         *ContentStore[model.Term]
	Rules         *ContentStore[model.RuleTheory]
	Problems      *ContentStore[model.Problem]
	TestQuestions *ContentStore[model.TestQuestion]
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{
		DB:            db,
		Terms:         NewContentStore[model.Term](db, "title", "explanation"),
		Rules:         NewContentStore[model.RuleTheory](db, "title", "explanation"),
		Problems:      NewContentStore[model.Problem](db, "question", "explanation"),
		TestQuestions: NewContentStore[model.TestQuestion](db, "question", "explanation"),
	}
}

func (r *ContentRepository) FirstUnseenTerm(ctx context.Context, level int, exclude []uint) (*model.Term, error) {
	return r.Terms.FirstUnseen(ctx, level, exclude)
}

func (r *ContentRepository) FirstUnseenRule(ctx context.Context, level int, exclude []uint) (*model.RuleTheory, error) {
	return r.Rules.FirstUnseen(ctx, level, exclude)
}

func (r *ContentRepository) FirstUnseenProblem(ctx context.Context, level int, exclude []uint) (*model.Problem, error) {
	return r.Problems.FirstUnseen(ctx, level, exclude)
}

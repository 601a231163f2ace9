package repository

import (
	"context"
	"fmt"
	"levelup_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LevelRepository struct {
	DB *gorm.DB
}

func NewLevelRepository(db *gorm.DB) *LevelRepository {
	return &LevelRepository{DB: db}
}

// EnsureLevel returns the row for level, inserting it with its default name when missing.
// Concurrent callers converge on the same row through the unique index.
func (r *LevelRepository) EnsureLevel(ctx context.Context, level int) (*model.DifficultyLevel, error) {
	return r.ensure(ctx, level, "")
}

// EnsureNamed is EnsureLevel with an explicit name for a new row. An existing row keeps its
// name.
func (r *LevelRepository) EnsureNamed(ctx context.Context, level int, name string) (*model.DifficultyLevel, error) {
	return r.ensure(ctx, level, name)
}

func (r *LevelRepository) ensure(ctx context.Context, level int, name string) (*model.DifficultyLevel, error) {
	if !model.ValidLevel(level) {
		return nil, fmt.Errorf("difficulty level %d out of range %d-%d", level, model.MinLevel, model.MaxLevel)
	}

	db := r.DB.WithContext(ctx)
	row := model.DifficultyLevel{Level: level, Name: name}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var existing model.DifficultyLevel
	if err := db.Where("level = ?", level).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *LevelRepository) FindByLevel(ctx context.Context, level int) (*model.DifficultyLevel, error) {
	var l model.DifficultyLevel
	err := r.DB.WithContext(ctx).Where("level = ?", level).First(&l).Error
	return &l, err
}

func (r *LevelRepository) List(ctx context.Context) ([]model.DifficultyLevel, error) {
	var levels []model.DifficultyLevel
	err := r.DB.WithContext(ctx).Order("level asc").Find(&levels).Error
	return levels, err
}

// Name returns the stored display name, falling back to the default table.
func (r *LevelRepository) Name(ctx context.Context, level int) string {
	l, err := r.FindByLevel(ctx, level)
	if err != nil || l.Name == "" {
		return model.DefaultLevelName(level)
	}
	return l.Name
}

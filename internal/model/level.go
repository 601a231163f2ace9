package model

import (
	"fmt"

	"gorm.io/gorm"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

var levelNames = map[int]string{
	1: "Beginner",
	2: "Elementary",
	3: "Intermediate",
	4: "Advanced",
	5: "Expert",
}

// DefaultLevelName returns the display name used when a level is saved without one.
func DefaultLevelName(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return fmt.Sprintf("Level %d", level)
}

func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// swagger:model DifficultyLevel
type DifficultyLevel struct {
	BaseModel
	Level int    `gorm:"uniqueIndex;not null" json:"level"`
	Name  string `gorm:"size:50" json:"name"`
}

func (DifficultyLevel) TableName() string {
	return "difficulty_levels"
}

func (l *DifficultyLevel) BeforeSave(tx *gorm.DB) error {
	if !ValidLevel(l.Level) {
		return fmt.Errorf("difficulty level %d out of range %d-%d", l.Level, MinLevel, MaxLevel)
	}
	if l.Name == "" {
		l.Name = DefaultLevelName(l.Level)
	}
	return nil
}

func (l DifficultyLevel) String() string {
	return fmt.Sprintf("Level %d: %s", l.Level, l.Name)
}

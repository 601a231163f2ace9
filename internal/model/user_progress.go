package model

// swagger:model UserProgress
type UserProgress struct {
	BaseModel
	UserID             uint         `gorm:"uniqueIndex;not null" json:"userId"`
	CurrentLevel       int          `gorm:"not null;default:1" json:"currentLevel"`
	TermsStudied       []Term       `gorm:"many2many:user_progress_terms;" json:"-"`
	RulesStudied       []RuleTheory `gorm:"many2many:user_progress_rules;" json:"-"`
	ProblemsSolved     []Problem    `gorm:"many2many:user_progress_problems;" json:"-"`
	PlacementTestTaken bool         `gorm:"default:false" json:"placementTestTaken"`
	PlacementTestScore float64      `gorm:"default:0" json:"placementTestScore"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// NewUserProgress returns the defaults a fresh account starts with.
func NewUserProgress(userID uint) *UserProgress {
	return &UserProgress{
		UserID:       userID,
		CurrentLevel: MinLevel,
	}
}

// ProgressSummary is the admin listing row.
type ProgressSummary struct {
	UserID             uint    `json:"userId"`
	Username           string  `json:"username"`
	CurrentLevel       int     `json:"currentLevel"`
	PlacementTestTaken bool    `json:"placementTestTaken"`
	PlacementTestScore float64 `json:"placementTestScore"`
}

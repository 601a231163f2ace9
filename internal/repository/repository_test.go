package repository

import (
	"context"
	"testing"

	"levelup_backend/internal/model"
	"levelup_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUser(t *testing.T, db *gorm.DB, name string) (*model.User, *model.UserProgress) {
	t.Helper()
	u := &model.User{Username: name, Password: "x", Role: model.Student}
	p, err := NewUserRepository(db).CreateWithProgress(context.Background(), u)
	require.NoError(t, err)
	return u, p
}

func TestLevelRepository_EnsureLevelIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLevelRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Where("level = ?", 3).Unscoped().Delete(&model.DifficultyLevel{}).Error)

	first, err := repo.EnsureLevel(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Intermediate", first.Name)

	second, err := repo.EnsureNamed(ctx, 3, "Something else")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Intermediate", second.Name, "existing name is kept")

	var n int64
	db.Model(&model.DifficultyLevel{}).Where("level = ?", 3).Count(&n)
	assert.Equal(t, int64(1), n)

	_, err = repo.EnsureLevel(ctx, 6)
	assert.Error(t, err)
}

func TestLevelRepository_Name(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLevelRepository(db)

	assert.Equal(t, "Expert", repo.Name(context.Background(), 5))
	assert.Equal(t, "Level 9", repo.Name(context.Background(), 9))
}

func TestContentStore_FirstUnseen(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	for _, term := range []model.Term{
		{Title: "a", Level: 1},
		{Title: "b", Level: 1},
		{Title: "c", Level: 2},
	} {
		term := term
		require.NoError(t, repo.Terms.Create(ctx, &term))
	}

	got, err := repo.FirstUnseenTerm(ctx, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Title)

	got, err = repo.FirstUnseenTerm(ctx, 1, []uint{got.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Title)

	all, err := repo.Terms.All(ctx)
	require.NoError(t, err)
	var level1 []uint
	for _, term := range all {
		if term.Level == 1 {
			level1 = append(level1, term.ID)
		}
	}
	got, err = repo.FirstUnseenTerm(ctx, 1, level1)
	require.NoError(t, err)
	assert.Nil(t, got)

	rule, err := repo.FirstUnseenRule(ctx, 1, nil)
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestContentStore_CRUDAndSearch(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	p := &model.Problem{
		MultipleChoice: model.MultipleChoice{Question: "Past tense of go?", OptionA: "goed", OptionB: "went", CorrectAnswer: model.OptionB, Explanation: "irregular verb"},
		Level:          2,
	}
	require.NoError(t, repo.Problems.Create(ctx, p))

	found, err := repo.Problems.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OptionB, found.CorrectAnswer)

	found.Explanation = "go / went / gone"
	require.NoError(t, repo.Problems.Update(ctx, found))

	hits, err := repo.Problems.Search(ctx, "gone")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = repo.Problems.Search(ctx, "nothing like this")
	require.NoError(t, err)
	assert.Empty(t, hits)

	items, total, err := repo.Problems.List(ctx, 2, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	counts, err := repo.Problems.CountByLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{2: 1}, counts)

	require.NoError(t, repo.Problems.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Problems.Delete(ctx, p.ID), gorm.ErrRecordNotFound)
	_, err = repo.Problems.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProgressRepository_AddIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	content := NewContentRepository(db)
	progress := NewProgressRepository(db)
	ctx := context.Background()

	_, p := newUser(t, db, "alice")

	term := &model.Term{Title: "noun", Level: 1}
	require.NoError(t, content.Terms.Create(ctx, term))
	rule := &model.RuleTheory{Title: "plural", Level: 2}
	require.NoError(t, content.Rules.Create(ctx, rule))

	require.NoError(t, progress.AddTerm(ctx, p, term))
	require.NoError(t, progress.AddTerm(ctx, p, term))
	require.NoError(t, progress.AddRule(ctx, p, rule))

	terms, rules, problems, err := progress.Consumed(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{term.ID: 1}, terms)
	assert.Equal(t, map[uint]int{rule.ID: 2}, rules)
	assert.Empty(t, problems)

	counts, err := progress.Counts(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, ConsumedCounts{Terms: 1, Rules: 1}, counts)
	assert.Equal(t, int64(2), counts.Total())
}

func TestProgressRepository_GetOrCreate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	p, created, err := repo.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, p.CurrentLevel)

	again, created, err := repo.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)
}

func TestProgressRepository_PlacementAndReset(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	_, p := newUser(t, db, "bob")

	require.NoError(t, repo.SavePlacement(ctx, p, 4, 65))
	stored, err := repo.FindByUserID(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CurrentLevel)
	assert.True(t, stored.PlacementTestTaken)
	assert.Equal(t, 65.0, stored.PlacementTestScore)

	require.NoError(t, repo.Reset(ctx, stored))
	stored, err = repo.FindByUserID(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentLevel)
	assert.False(t, stored.PlacementTestTaken)
	assert.Zero(t, stored.PlacementTestScore)
}

func TestProgressRepository_ListSummaries(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	newUser(t, db, "zed")
	_, p := newUser(t, db, "amy")
	require.NoError(t, repo.UpdateLevel(ctx, p, 3))

	rows, total, err := repo.ListSummaries(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, "amy", rows[0].Username)
	assert.Equal(t, 3, rows[0].CurrentLevel)
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u, p := newUser(t, db, "carol")
	assert.Equal(t, u.ID, p.UserID)

	found, err := repo.FindByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = repo.CreateWithProgress(ctx, &model.User{Username: "carol", Password: "y"})
	assert.Error(t, err, "usernames are unique")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.UpdateRole(ctx, u.ID, model.Admin))
	found, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Admin, found.Role)
}

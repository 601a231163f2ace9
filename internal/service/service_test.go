package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"levelup_backend/internal/config"
	"levelup_backend/internal/model"
	"levelup_backend/internal/progression"
	"levelup_backend/internal/repository"
	"levelup_backend/internal/testutil"
	"levelup_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fixture struct {
	ctx       context.Context
	users     *repository.UserRepository
	progress  *repository.ProgressRepository
	content   *repository.ContentRepository
	auth      *AuthService
	learning  *ProgressService
	placement *PlacementService
	admin     *ContentService
	importer  *ImportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: "service-test-secret", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
	}

	users := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	levels := repository.NewLevelRepository(db)
	content := repository.NewContentRepository(db)

	learning := NewProgressService(progressRepo, levels, content, progression.PacingGlobal)
	placement := NewPlacementService(content, learning, nil, time.Minute)

	return &fixture{
		ctx:       context.Background(),
		users:     users,
		progress:  progressRepo,
		content:   content,
		auth:      NewAuthService(users, cfg),
		learning:  learning,
		placement: placement,
		admin:     NewContentService(content, levels, placement),
		importer:  NewImportService(db, NewStorageService(&cfg.Storage), placement),
	}
}

func (f *fixture) register(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.auth.Register(f.ctx, name, "password123")
	require.NoError(t, err)
	return u
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	u := f.register(t, "alice")
	assert.Equal(t, model.Student, u.Role)
	assert.NotEqual(t, "password123", u.Password)

	p, err := f.progress.FindByUserID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.False(t, p.PlacementTestTaken)

	_, err = f.auth.Register(f.ctx, "alice", "other")
	assert.ErrorIs(t, err, util.ErrUsernameTaken)

	token, logged, err := f.auth.Login(f.ctx, "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, logged.ID)

	_, _, err = f.auth.Login(f.ctx, "alice", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = f.auth.Login(f.ctx, "nobody", "password123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	n, err := f.auth.UserCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.auth.CurrentUser(f.ctx, 999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob")

	admin, err := f.auth.EnsureAdmin(f.ctx, "bob", "ignored")
	require.NoError(t, err)
	assert.Equal(t, model.Admin, admin.Role)

	stored, err := f.users.FindByUsername(f.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.Admin, stored.Role)

	fresh, err := f.auth.EnsureAdmin(f.ctx, "root", "password123")
	require.NoError(t, err)
	assert.Equal(t, model.Admin, fresh.Role)
}

func TestProgressService_GetOrCreate(t *testing.T) {
	f := newFixture(t)
	u := &model.User{Username: "orphan", Password: "x"}
	require.NoError(t, f.users.DB.Create(u).Error)

	p, err := f.learning.GetOrCreate(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentLevel)

	again, err := f.learning.GetOrCreate(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
}

func TestProgressService_NextContentAdvancesLevel(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "carol")

	l1 := model.Term{Title: "level one", Level: 1}
	l2 := model.Term{Title: "level two", Level: 2}
	require.NoError(t, f.content.Terms.Create(f.ctx, &l1))
	require.NoError(t, f.content.Terms.Create(f.ctx, &l2))

	next, err := f.learning.NextContent(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContentTerm, next.Type)
	assert.Equal(t, l1.ID, next.Item.(*model.Term).ID)
	assert.False(t, next.Advanced)

	require.NoError(t, f.learning.MarkTermStudied(f.ctx, u.ID, l1.ID))

	next, err = f.learning.NextContent(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, l2.ID, next.Item.(*model.Term).ID)
	assert.True(t, next.Advanced)
	assert.Equal(t, 2, next.Level)
	assert.Equal(t, "Elementary", next.LevelName)

	p, err := f.progress.FindByUserID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentLevel)

	require.NoError(t, f.learning.MarkTermStudied(f.ctx, u.ID, l2.ID))
	next, err = f.learning.NextContent(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, next.NoContent)
	assert.Nil(t, next.Item)
	assert.Equal(t, 5, next.Level)
}

func TestProgressService_NextContentHidesProblemAnswer(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "dave")

	pr := model.Problem{
		MultipleChoice: model.MultipleChoice{Question: "2+2?", OptionA: "3", OptionB: "4", CorrectAnswer: model.OptionB},
		Level:          1,
	}
	require.NoError(t, f.content.Problems.Create(f.ctx, &pr))

	next, err := f.learning.NextContent(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContentProblem, next.Type)
	view, ok := next.Item.(model.QuestionView)
	require.True(t, ok)
	assert.Equal(t, pr.ID, view.ID)
}

func TestProgressService_MarkStudiedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "erin")

	term := model.Term{Title: "t", Level: 1}
	rule := model.RuleTheory{Title: "r", Level: 1}
	require.NoError(t, f.content.Terms.Create(f.ctx, &term))
	require.NoError(t, f.content.Rules.Create(f.ctx, &rule))

	for i := 0; i < 2; i++ {
		require.NoError(t, f.learning.MarkTermStudied(f.ctx, u.ID, term.ID))
		require.NoError(t, f.learning.MarkRuleStudied(f.ctx, u.ID, rule.ID))
	}

	d, err := f.learning.Dashboard(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Counts.Terms)
	assert.Equal(t, int64(1), d.Counts.Rules)
	assert.True(t, d.HasStartedLearning)
	assert.InDelta(t, 2.0, d.ProgressPercentage, 1e-9)

	assert.ErrorIs(t, f.learning.MarkTermStudied(f.ctx, u.ID, 4242), util.ErrContentNotFound)
	assert.ErrorIs(t, f.learning.MarkRuleStudied(f.ctx, u.ID, 4242), util.ErrContentNotFound)
}

func TestProgressService_CheckProblemAnswer(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "frank")

	pr := model.Problem{
		MultipleChoice: model.MultipleChoice{Question: "q", CorrectAnswer: model.OptionC, Explanation: "because"},
		Level:          1,
	}
	require.NoError(t, f.content.Problems.Create(f.ctx, &pr))

	res, err := f.learning.CheckProblemAnswer(f.ctx, u.ID, pr.ID, "a")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, model.OptionC, res.CorrectAnswer)

	res, err = f.learning.CheckProblemAnswer(f.ctx, u.ID, pr.ID, "")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)

	d, err := f.learning.Dashboard(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.Counts.Problems)
	assert.False(t, d.HasStartedLearning)

	res, err = f.learning.CheckProblemAnswer(f.ctx, u.ID, pr.ID, " c ")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "because", res.Explanation)

	d, err = f.learning.Dashboard(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Counts.Problems)

	_, err = f.learning.CheckProblemAnswer(f.ctx, u.ID, 999, "A")
	assert.ErrorIs(t, err, util.ErrContentNotFound)
}

func TestProgressService_StartFromZeroKeepsConsumed(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "grace")

	term := model.Term{Title: "t", Level: 1}
	require.NoError(t, f.content.Terms.Create(f.ctx, &term))
	require.NoError(t, f.learning.MarkTermStudied(f.ctx, u.ID, term.ID))

	p, err := f.progress.FindByUserID(f.ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, f.progress.SavePlacement(f.ctx, p, 4, 65))

	p, err = f.learning.StartFromZero(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.False(t, p.PlacementTestTaken)
	assert.Zero(t, p.PlacementTestScore)

	d, err := f.learning.Dashboard(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Counts.Terms)
}

func TestProgressService_SetPacingScope(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, progression.PacingGlobal, f.learning.PacingScope())

	f.learning.SetPacingScope(progression.PacingLevel)
	assert.Equal(t, progression.PacingLevel, f.learning.PacingScope())

	f.learning.SetPacingScope("bogus")
	assert.Equal(t, progression.PacingGlobal, f.learning.PacingScope())
}

func seedTestQuestions(t *testing.T, f *fixture, n int) []model.TestQuestion {
	t.Helper()
	qs := make([]model.TestQuestion, n)
	for i := range qs {
		qs[i] = model.TestQuestion{
			MultipleChoice: model.MultipleChoice{Question: fmt.Sprintf("q%d", i), CorrectAnswer: model.OptionA},
			Level:          1,
		}
	}
	require.NoError(t, f.content.TestQuestions.CreateInBatches(f.ctx, qs))
	return qs
}

func TestPlacementService_EmptyPool(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "heidi")

	_, err := f.placement.Questions(f.ctx)
	assert.ErrorIs(t, err, progression.ErrNoQuestions)

	_, err = f.placement.Submit(f.ctx, u.ID, map[uint]string{1: "A"})
	assert.ErrorIs(t, err, progression.ErrNoQuestions)

	p, err := f.progress.FindByUserID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.False(t, p.PlacementTestTaken)
	assert.Zero(t, p.PlacementTestScore)
}

func TestPlacementService_Submit(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "ivan")
	qs := seedTestQuestions(t, f, 10)

	views, err := f.placement.Questions(f.ctx)
	require.NoError(t, err)
	assert.Len(t, views, 10)

	answers := map[uint]string{
		qs[0].ID: "a",
		qs[1].ID: "A",
		qs[2].ID: "B",
	}
	out, err := f.placement.Submit(f.ctx, u.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Correct)
	assert.Equal(t, 10, out.Total)
	assert.Equal(t, 20.0, out.Percentage)
	assert.Equal(t, 2, out.Level)
	assert.Equal(t, "Elementary", out.LevelName)

	p, err := f.progress.FindByUserID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentLevel)
	assert.True(t, p.PlacementTestTaken)
	assert.Equal(t, 20.0, p.PlacementTestScore)

	d, err := f.learning.Dashboard(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, d.HasStartedLearning)
}

func TestContentService_CRUD(t *testing.T) {
	f := newFixture(t)

	bad := &model.Term{Title: "x", Level: 9}
	assert.ErrorIs(t, f.admin.Terms.Create(f.ctx, bad), util.ErrInvalidLevel)
	assert.ErrorIs(t, f.admin.Terms.Create(f.ctx, &model.Term{Level: 1}), util.ErrInvalidContent)

	term := &model.Term{Title: "Noun", Explanation: "a naming word", Level: 2}
	require.NoError(t, f.admin.Terms.Create(f.ctx, term))
	require.NotZero(t, term.ID)

	edit := &model.Term{Title: "Noun (edited)", Level: 3}
	require.NoError(t, f.admin.Terms.Update(f.ctx, term.ID, edit))
	assert.Equal(t, term.ID, edit.ID)

	got, err := f.admin.Terms.Get(f.ctx, term.ID)
	require.NoError(t, err)
	assert.Equal(t, "Noun (edited)", got.Title)
	assert.Equal(t, 3, got.Level)

	require.NoError(t, f.admin.Terms.Delete(f.ctx, term.ID))
	_, err = f.admin.Terms.Get(f.ctx, term.ID)
	assert.ErrorIs(t, err, util.ErrContentNotFound)
	assert.ErrorIs(t, f.admin.Terms.Delete(f.ctx, term.ID), util.ErrContentNotFound)
	assert.ErrorIs(t, f.admin.Terms.Update(f.ctx, term.ID, edit), util.ErrContentNotFound)
}

func TestContentService_ChoiceValidation(t *testing.T) {
	f := newFixture(t)

	p := &model.Problem{MultipleChoice: model.MultipleChoice{Question: "q", CorrectAnswer: "d"}, Level: 1}
	require.NoError(t, f.admin.Problems.Create(f.ctx, p))
	assert.Equal(t, model.OptionD, p.CorrectAnswer)

	bad := &model.TestQuestion{MultipleChoice: model.MultipleChoice{Question: "q", CorrectAnswer: "E"}, Level: 1}
	assert.ErrorIs(t, f.admin.TestQuestions.Create(f.ctx, bad), util.ErrInvalidContent)
}

func TestContentService_Levels(t *testing.T) {
	f := newFixture(t)

	levels, err := f.admin.ListLevels(f.ctx)
	require.NoError(t, err)
	assert.Len(t, levels, 5)

	l, err := f.admin.CreateLevel(f.ctx, 3, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Intermediate", l.Name)

	_, err = f.admin.CreateLevel(f.ctx, 0, "")
	assert.ErrorIs(t, err, util.ErrInvalidLevel)

	_, err = f.admin.GetLevel(f.ctx, 6)
	assert.ErrorIs(t, err, util.ErrContentNotFound)
}

func TestContentService_Search(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.admin.Terms.Create(f.ctx, &model.Term{Title: "Verb", Explanation: "an action", Level: 1}))
	require.NoError(t, f.admin.Terms.Create(f.ctx, &model.Term{Title: "Noun", Level: 1}))
	require.NoError(t, f.admin.Rules.Create(f.ctx, &model.RuleTheory{Title: "Word order", Explanation: "verb second", Level: 2}))

	res, err := f.admin.Search(f.ctx, "verb")
	require.NoError(t, err)
	assert.Len(t, res.Terms, 1)
	assert.Len(t, res.Rules, 1)

	res, err = f.admin.Search(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, res.Terms, 2)
}

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	sheets := map[string][][]interface{}{
		SheetTerms: {
			{"Level", "Title", "Explanation"},
			{1, "Article", "a, an, the"},
			{2, "Pronoun", ""},
			{9, "Too hard", ""},
			{},
		},
		SheetRules: {
			{"Level", "Title", "Explanation"},
			{1, "", "missing title"},
		},
		SheetTestQuestions: {
			{"Level", "Question", "A", "B", "C", "D", "Correct", "Explanation"},
			{1, "Pick A", "yes", "no", "no", "no", "a", ""},
			{1, "Broken", "x", "y", "z", "w", "Q", ""},
		},
	}
	for name, rows := range sheets {
		_, err := wb.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			if len(row) == 0 {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, wb.SetSheetRow(name, cellName, &row))
		}
	}

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportService_Import(t *testing.T) {
	f := newFixture(t)

	report, err := f.importer.Import(f.ctx, "content.xlsx", workbook(t))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Terms)
	assert.Equal(t, 0, report.Rules)
	assert.Equal(t, 1, report.TestQuestions)
	assert.NotEmpty(t, report.Archive)
	require.Len(t, report.Errors, 3)

	sheets := map[string]int{}
	for _, e := range report.Errors {
		sheets[e.Sheet]++
	}
	assert.Equal(t, map[string]int{SheetTerms: 1, SheetRules: 1, SheetTestQuestions: 1}, sheets)

	terms, err := f.content.Terms.All(f.ctx)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "Article", terms[0].Title)

	qs, err := f.content.TestQuestions.All(f.ctx)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, model.OptionA, qs[0].CorrectAnswer)
}

func TestImportService_Rejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.importer.Import(f.ctx, "content.csv", bytes.NewBufferString("a,b"))
	assert.ErrorIs(t, err, util.ErrInvalidImport)

	_, err = f.importer.Import(f.ctx, "content.xlsx", bytes.NewBufferString("not a workbook"))
	assert.ErrorIs(t, err, util.ErrInvalidImport)

	wb := excelize.NewFile()
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	_, err = f.importer.Import(f.ctx, "empty.xlsx", buf)
	assert.ErrorIs(t, err, util.ErrInvalidImport)
}

func TestStorageService_ArchiveAndRemove(t *testing.T) {
	root := t.TempDir()
	storage := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: root})
	ctx := context.Background()

	file, err := storage.Archive(ctx, "imports", ".xlsx", []byte("payload"), util.MimeXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(file.Key, "imports/"+time.Now().Format(util.DateFormat)+"/"))
	assert.Equal(t, "/uploads/"+file.Key, file.URL)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(file.Key)))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, storage.Remove(ctx, file.Key))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(file.Key)))
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	assert.NoError(t, storage.Remove(ctx, file.Key))
}

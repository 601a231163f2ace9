package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"levelup_backend/internal/model"
	"levelup_backend/internal/repository"
	"levelup_backend/internal/util"
	"levelup_backend/pkg/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Workbook sheet names. Each sheet starts with a header row.
const (
	SheetTerms         = "Terms"
	SheetRules         = "Rules"
	SheetProblems      = "Problems"
	SheetTestQuestions = "TestQuestions"
)

// Column order of the text sheets (Terms, Rules) and the question sheets.
const (
	colLevel = iota
	colTitle
	colExplanation
)

const (
	colQLevel = iota
	colQuestion
	colOptionA
	colOptionB
	colOptionC
	colOptionD
	colCorrect
	colQExplanation
)

const maxImportSize = 10 << 20

type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportReport struct {
	Archive       string     `json:"archive,omitempty"`
	Terms         int        `json:"terms"`
	Rules         int        `json:"rules"`
	Problems      int        `json:"problems"`
	TestQuestions int        `json:"testQuestions"`
	Errors        []RowError `json:"errors"`
}

func (r *ImportReport) Total() int {
	return r.Terms + r.Rules + r.Problems + r.TestQuestions
}

func (r *ImportReport) fail(sheet string, row int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, RowError{Sheet: sheet, Row: row, Message: fmt.Sprintf(format, args...)})
}

type ImportService struct {
	DB        *gorm.DB
	Storage   *StorageService
	Placement *PlacementService
}

func NewImportService(db *gorm.DB, storage *StorageService, placement *PlacementService) *ImportService {
	return &ImportService{DB: db, Storage: storage, Placement: placement}
}

// ImportFile imports a workbook from the local file system.
func (s *ImportService) ImportFile(ctx context.Context, path string) (*ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.Import(ctx, filepath.Base(path), f)
}

// Import archives the workbook, then inserts every valid row in one transaction. Invalid rows
// are skipped and listed in the report.
func (s *ImportService) Import(ctx context.Context, filename string, r io.Reader) (*ImportReport, error) {
	if !allowedImport(filename) {
		return nil, fmt.Errorf("%w: only .xlsx workbooks are accepted", util.ErrInvalidImport)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxImportSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("%w: file larger than %d bytes", util.ErrInvalidImport, maxImportSize)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidImport, err)
	}
	defer wb.Close()

	report := &ImportReport{Errors: []RowError{}}
	batch, err := readWorkbook(wb, report)
	if err != nil {
		return nil, err
	}

	var archived *ArchivedFile
	if s.Storage != nil {
		archived, err = s.Storage.Archive(ctx, "imports", ".xlsx", data, util.MimeXLSX)
		if err != nil {
			logger.Log.Warn("Failed to archive import workbook", zap.String("file", filename), zap.Error(err))
		} else {
			report.Archive = archived.URL
		}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		levels := repository.NewLevelRepository(tx)
		for lvl := range batch.levels {
			if _, err := levels.EnsureLevel(ctx, lvl); err != nil {
				return err
			}
		}

		content := repository.NewContentRepository(tx)
		if err := content.Terms.CreateInBatches(ctx, batch.terms); err != nil {
			return err
		}
		if err := content.Rules.CreateInBatches(ctx, batch.rules); err != nil {
			return err
		}
		if err := content.Problems.CreateInBatches(ctx, batch.problems); err != nil {
			return err
		}
		return content.TestQuestions.CreateInBatches(ctx, batch.testQuestions)
	})
	if err != nil {
		if archived != nil {
			if rmErr := s.Storage.Remove(ctx, archived.Key); rmErr != nil {
				logger.Log.Warn("Failed to remove archived workbook", zap.String("key", archived.Key), zap.Error(rmErr))
			}
		}
		return nil, fmt.Errorf("import %s: %w", filename, err)
	}

	report.Terms = len(batch.terms)
	report.Rules = len(batch.rules)
	report.Problems = len(batch.problems)
	report.TestQuestions = len(batch.testQuestions)

	if report.TestQuestions > 0 && s.Placement != nil {
		s.Placement.InvalidateCache(ctx)
	}

	logger.Log.Info("Content imported",
		zap.String("file", filename),
		zap.Int("rows", report.Total()),
		zap.Int("rejected", len(report.Errors)),
	)
	return report, nil
}

func allowedImport(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range util.AllowedImportExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

type importBatch struct {
	levels        map[int]bool
	terms         []model.Term
	rules         []model.RuleTheory
	problems      []model.Problem
	testQuestions []model.TestQuestion
}

func readWorkbook(wb *excelize.File, report *ImportReport) (*importBatch, error) {
	sheets := make(map[string]bool)
	for _, name := range wb.GetSheetList() {
		sheets[name] = true
	}
	if !sheets[SheetTerms] && !sheets[SheetRules] && !sheets[SheetProblems] && !sheets[SheetTestQuestions] {
		return nil, fmt.Errorf("%w: workbook has none of the sheets %s, %s, %s, %s",
			util.ErrInvalidImport, SheetTerms, SheetRules, SheetProblems, SheetTestQuestions)
	}

	batch := &importBatch{levels: make(map[int]bool)}
	rowsOf := func(sheet string) ([][]string, error) {
		if !sheets[sheet] {
			return nil, nil
		}
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", util.ErrInvalidImport, sheet, err)
		}
		if len(rows) > 0 {
			rows = rows[1:]
		}
		return rows, nil
	}

	for _, sheet := range []string{SheetTerms, SheetRules} {
		rows, err := rowsOf(sheet)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			// sheet row number, header is row 1
			n := i + 2
			if blankRow(row) {
				continue
			}
			level, ok := parseLevel(cell(row, colLevel))
			if !ok {
				report.fail(sheet, n, "level must be between %d and %d", model.MinLevel, model.MaxLevel)
				continue
			}
			title := cell(row, colTitle)
			if title == "" {
				report.fail(sheet, n, "title is required")
				continue
			}
			batch.levels[level] = true
			if sheet == SheetTerms {
				batch.terms = append(batch.terms, model.Term{Title: title, Explanation: cell(row, colExplanation), Level: level})
			} else {
				batch.rules = append(batch.rules, model.RuleTheory{Title: title, Explanation: cell(row, colExplanation), Level: level})
			}
		}
	}

	for _, sheet := range []string{SheetProblems, SheetTestQuestions} {
		rows, err := rowsOf(sheet)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			n := i + 2
			if blankRow(row) {
				continue
			}
			level, ok := parseLevel(cell(row, colQLevel))
			if !ok {
				report.fail(sheet, n, "level must be between %d and %d", model.MinLevel, model.MaxLevel)
				continue
			}
			mc := model.MultipleChoice{
				Question:    cell(row, colQuestion),
				OptionA:     cell(row, colOptionA),
				OptionB:     cell(row, colOptionB),
				OptionC:     cell(row, colOptionC),
				OptionD:     cell(row, colOptionD),
				Explanation: cell(row, colQExplanation),
			}
			if mc.Question == "" {
				report.fail(sheet, n, "question is required")
				continue
			}
			opt, err := model.ParseAnswerOption(cell(row, colCorrect))
			if err != nil {
				report.fail(sheet, n, "%v", err)
				continue
			}
			mc.CorrectAnswer = opt
			batch.levels[level] = true
			if sheet == SheetProblems {
				batch.problems = append(batch.problems, model.Problem{MultipleChoice: mc, Level: level})
			} else {
				batch.testQuestions = append(batch.testQuestions, model.TestQuestion{MultipleChoice: mc, Level: level})
			}
		}
	}
	return batch, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseLevel(s string) (int, bool) {
	level, err := strconv.Atoi(s)
	if err != nil || !model.ValidLevel(level) {
		return 0, false
	}
	return level, true
}

package model

import (
	"errors"
	"strings"
)

type ContentType string

const (
	ContentTerm    ContentType = "term"
	ContentRule    ContentType = "rule"
	ContentProblem ContentType = "problem"
)

// AnswerOption is one of the four symbolic choices of a multiple choice question.
type AnswerOption string

const (
	OptionA AnswerOption = "A"
	OptionB AnswerOption = "B"
	OptionC AnswerOption = "C"
	OptionD AnswerOption = "D"
)

var ErrInvalidOption = errors.New("answer must be one of A, B, C, D")

// ParseAnswerOption accepts "a".."d" in any case, surrounding spaces ignored.
func ParseAnswerOption(s string) (AnswerOption, error) {
	opt := AnswerOption(strings.ToUpper(strings.TrimSpace(s)))
	if !opt.Valid() {
		return "", ErrInvalidOption
	}
	return opt, nil
}

func (o AnswerOption) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Matches reports whether a raw submitted answer selects this option. Blank or unknown
// answers never match.
func (o AnswerOption) Matches(submitted string) bool {
	got, err := ParseAnswerOption(submitted)
	return err == nil && got == o
}

// swagger:model Term
type Term struct {
	BaseModel
	Title       string `gorm:"size:200;not null" json:"title"`
	Explanation string `gorm:"type:text" json:"explanation"`
	Level       int    `gorm:"index;not null" json:"level"`
}

func (Term) TableName() string {
	return "terms"
}

// swagger:model RuleTheory
type RuleTheory struct {
	BaseModel
	Title       string `gorm:"size:200;not null" json:"title"`
	Explanation string `gorm:"type:text" json:"explanation"`
	Level       int    `gorm:"index;not null" json:"level"`
}

func (RuleTheory) TableName() string {
	return "rule_theories"
}

// MultipleChoice is shared by practice problems and placement test questions.
type MultipleChoice struct {
	Question      string       `gorm:"type:text;not null" json:"question"`
	OptionA       string       `gorm:"size:200" json:"optionA"`
	OptionB       string       `gorm:"size:200" json:"optionB"`
	OptionC       string       `gorm:"size:200" json:"optionC"`
	OptionD       string       `gorm:"size:200" json:"optionD"`
	CorrectAnswer AnswerOption `gorm:"size:1;not null" json:"correctAnswer"`
	Explanation   string       `gorm:"type:text" json:"explanation"`
}

// Short is the question truncated to 50 characters for listings.
func (m MultipleChoice) Short() string {
	r := []rune(m.Question)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return m.Question
}

// swagger:model Problem
type Problem struct {
	BaseModel
	MultipleChoice
	Level int `gorm:"index;not null" json:"level"`
}

func (Problem) TableName() string {
	return "problems"
}

// TestQuestion belongs to the placement test pool, which never overlaps study content.
// swagger:model TestQuestion
type TestQuestion struct {
	BaseModel
	MultipleChoice
	Level int `gorm:"index;not null" json:"level"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}

// QuestionView is a multiple choice question as shown to a learner, without the answer.
type QuestionView struct {
	ID       uint   `json:"id"`
	Question string `json:"question"`
	OptionA  string `json:"optionA"`
	OptionB  string `json:"optionB"`
	OptionC  string `json:"optionC"`
	OptionD  string `json:"optionD"`
	Level    int    `json:"level"`
}

func (m MultipleChoice) view(id uint, level int) QuestionView {
	return QuestionView{
		ID:       id,
		Question: m.Question,
		OptionA:  m.OptionA,
		OptionB:  m.OptionB,
		OptionC:  m.OptionC,
		OptionD:  m.OptionD,
		Level:    level,
	}
}

func (p Problem) View() QuestionView {
	return p.MultipleChoice.view(p.ID, p.Level)
}

func (q TestQuestion) View() QuestionView {
	return q.MultipleChoice.view(q.ID, q.Level)
}

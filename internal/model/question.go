package model

import (
	"github.com/google/uuid"
)

// OptionKey identifies one of the four original answer options.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionCount is the fixed number of options per question.
const OptionCount = 4

// OptionKeys lists the option identifiers in original order.
var OptionKeys = [OptionCount]OptionKey{OptionA, OptionB, OptionC, OptionD}

// Question represents a single multiple-choice question. Immutable after load.
type Question struct {
	ID            uuid.UUID `json:"id"`
	TestID        uuid.UUID `json:"test_id"`
	Prompt        string    `json:"prompt"`
	Image         string    `json:"image,omitempty"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption OptionKey `json:"correct_option"`
	OrderNum      int       `json:"order_num"`
}

// OptionTexts returns the option texts in original A..D order.
func (q *Question) OptionTexts() [OptionCount]string {
	return [OptionCount]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// ShuffledQuestion is a Question plus the per-attempt presentation order.
// Created once at test start and frozen for the lifetime of the attempt,
// including across save/resume, so grading stays consistent.
type ShuffledQuestion struct {
	Question
	PresentedOptions []string `json:"presented_options"`
	CorrectIndex     int      `json:"correct_index"`
}

// PresentedQuestion is the student-facing view of a ShuffledQuestion,
// stripped of the correct option and its presented position.
type PresentedQuestion struct {
	ID      uuid.UUID `json:"id"`
	Prompt  string    `json:"prompt"`
	Image   string    `json:"image,omitempty"`
	Options []string  `json:"options"`
}

// ForStudent strips grading information from a shuffled question.
func (sq *ShuffledQuestion) ForStudent() PresentedQuestion {
	return PresentedQuestion{
		ID:      sq.ID,
		Prompt:  sq.Prompt,
		Image:   sq.Image,
		Options: sq.PresentedOptions,
	}
}

// AddQuestionRequest is the payload for adding a question to a test.
type AddQuestionRequest struct {
	Prompt        string `json:"prompt" binding:"required,min=1,max=2000"`
	Image         string `json:"image" binding:"omitempty,max=500"`
	OptionA       string `json:"option_a" binding:"required,max=500"`
	OptionB       string `json:"option_b" binding:"required,max=500"`
	OptionC       string `json:"option_c" binding:"required,max=500"`
	OptionD       string `json:"option_d" binding:"required,max=500"`
	CorrectOption string `json:"correct_option" binding:"required,oneof=A B C D"`
	OrderNum      int    `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a test's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,dive"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// TestCategory groups tests in the catalog lobby.
type TestCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Categories is the fixed catalog category set.
var Categories = []TestCategory{
	{ID: "white", Name: "White Mock Tests", Icon: "⚪", Description: "Comprehensive mock tests"},
	{ID: "blue", Name: "Blue Mock Tests", Icon: "🔵", Description: "Advanced practice tests"},
	{ID: "grey", Name: "Grey Mock Tests", Icon: "⚫", Description: "Standard difficulty tests"},
	{ID: "pyq", Name: "PYQ (2005-2025)", Icon: "📚", Description: "Previous Year Questions"},
	{ID: "latest", Name: "Latest Pattern", Icon: "🆕", Description: "New test pattern"},
}

// ValidCategory reports whether id names a known catalog category.
func ValidCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Test represents a timed multiple-choice test owned by the catalog.
// The session engine only ever reads it.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	DurationSeconds int        `json:"duration_seconds"`
	Category        string     `json:"category"`
	QuestionCount   int        `json:"question_count"`
	Questions       []Question `json:"questions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Name            string `json:"name" binding:"required,min=3,max=255"`
	Description     string `json:"description" binding:"omitempty,max=1000"`
	DurationSeconds int    `json:"duration_seconds" binding:"required,min=60,max=21600"`
	Category        string `json:"category" binding:"required"`
}

// TestPayload is the Redis-cached catalog payload sent to students.
// Questions carry their original option order; shuffling happens per
// attempt inside the engine, never in the cache.
type TestPayload struct {
	TestID          uuid.UUID  `json:"test_id"`
	Name            string     `json:"name"`
	DurationSeconds int        `json:"duration_seconds"`
	Category        string     `json:"category"`
	Questions       []Question `json:"questions"`
}

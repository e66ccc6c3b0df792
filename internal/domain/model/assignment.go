package model

import (
	"math"
	"strings"
	"time"
)

// MaxMarks is the largest total an assignment may carry; stores keep marks
// in a 32-bit integer column.
const MaxMarks = math.MaxInt32

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts any casing and surrounding whitespace.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

type Assignment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Marks       int        `json:"marks"`
	Thumbnail   string     `json:"thumbnail"`
	Difficulty  Difficulty `json:"difficulty"`
	DueDate     time.Time  `json:"dueDate"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsOwnedBy compares against a canonical identity.
func (a *Assignment) IsOwnedBy(identity string) bool {
	return SameIdentity(a.CreatedBy, identity)
}

// AssignmentFilter narrows catalog listings. Zero values mean "no filter".
type AssignmentFilter struct {
	Difficulty Difficulty
	Search     string
}

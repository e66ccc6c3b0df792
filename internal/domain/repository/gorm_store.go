package repository

import (
	"errors"
	"fmt"
	"strings"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Gorm row types. Table and column names match the Postgres schema so both
// SQL stores can share one database.

type gormUser struct {
	Email          string `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	PhotoURL       string
	HashedPassword string `gorm:"not null"`
	CreatedAt      time.Time
}

func (gormUser) TableName() string { return "users" }

type gormAssignment struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Description string `gorm:"not null"`
	Marks       int    `gorm:"not null;check:marks >= 0"`
	Thumbnail   string `gorm:"not null"`
	Difficulty  string `gorm:"index;not null;check:difficulty IN ('easy','medium','hard')"`
	DueDate     time.Time
	CreatedBy   string `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (gormAssignment) TableName() string { return "assignments" }

type gormSubmission struct {
	ID             string `gorm:"primaryKey"`
	AssignmentID   string `gorm:"uniqueIndex:idx_submissions_assignment_submitter;not null"`
	SubmitterEmail string `gorm:"uniqueIndex:idx_submissions_assignment_submitter;not null"`
	GoogleDocLink  string `gorm:"not null"`
	QuickNote      string
	Status         string `gorm:"index;not null"`
	ObtainedMark   *float64
	Feedback       *string
	EvaluatedBy    *string
	EvaluatedAt    *time.Time
	SubmittedAt    time.Time
}

func (gormSubmission) TableName() string { return "submissions" }

// AutoMigrate creates or updates the tables used by the gorm store.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&gormUser{}, &gormAssignment{}, &gormSubmission{})
}

func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:       &gormUserRepository{db: db},
		Assignments: &gormAssignmentRepository{db: db},
		Submissions: &gormSubmissionRepository{db: db},
		Leaderboard: &gormLeaderboardRepository{db: db},
	}
}

// translateGormError maps driver failures onto the common sentinels.
func translateGormError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, common.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toGormAssignment(a *model.Assignment) *gormAssignment {
	return &gormAssignment{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Description: a.Description,
		Marks:       a.Marks,
		Thumbnail:   a.Thumbnail,
		Difficulty:  string(a.Difficulty),
		DueDate:     a.DueDate,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (g *gormAssignment) toModel() model.Assignment {
	return model.Assignment{
		ID:          g.ID,
		Title:       g.Title,
		Slug:        g.Slug,
		Description: g.Description,
		Marks:       g.Marks,
		Thumbnail:   g.Thumbnail,
		Difficulty:  model.Difficulty(g.Difficulty),
		DueDate:     g.DueDate,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toGormSubmission(s *model.Submission) *gormSubmission {
	return &gormSubmission{
		ID:             s.ID,
		AssignmentID:   s.AssignmentID,
		SubmitterEmail: s.SubmitterEmail,
		GoogleDocLink:  s.GoogleDocLink,
		QuickNote:      s.QuickNote,
		Status:         string(s.Status),
		ObtainedMark:   s.ObtainedMark,
		Feedback:       s.Feedback,
		EvaluatedBy:    s.EvaluatedBy,
		EvaluatedAt:    s.EvaluatedAt,
		SubmittedAt:    s.SubmittedAt,
	}
}

func (g *gormSubmission) toModel() model.Submission {
	return model.Submission{
		ID:             g.ID,
		AssignmentID:   g.AssignmentID,
		SubmitterEmail: g.SubmitterEmail,
		GoogleDocLink:  g.GoogleDocLink,
		QuickNote:      g.QuickNote,
		Status:         model.SubmissionStatus(g.Status),
		ObtainedMark:   g.ObtainedMark,
		Feedback:       g.Feedback,
		EvaluatedBy:    g.EvaluatedBy,
		EvaluatedAt:    g.EvaluatedAt,
		SubmittedAt:    g.SubmittedAt,
	}
}

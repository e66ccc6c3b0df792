package repository

import (
	"context"
	"errors"
	"fmt"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection       = "users"
	assignmentsCollection = "assignments"
	submissionsCollection = "submissions"
)

// Documents written by older clients carry numbers as int32, double, strings
// or Extended-JSON wrappers, so numeric fields decode into interface{} and go
// through mongoNumber.

type mongoUser struct {
	Email          string    `bson:"_id"`
	Name           string    `bson:"name"`
	PhotoURL       string    `bson:"photoURL,omitempty"`
	HashedPassword string    `bson:"hashedPassword"`
	CreatedAt      time.Time `bson:"createdAt"`
}

type mongoAssignment struct {
	ID          string      `bson:"_id"`
	Title       string      `bson:"title"`
	Slug        string      `bson:"slug"`
	Description string      `bson:"description"`
	Marks       interface{} `bson:"marks"`
	Thumbnail   string      `bson:"thumbnail"`
	Difficulty  string      `bson:"difficulty"`
	DueDate     time.Time   `bson:"dueDate"`
	CreatedBy   string      `bson:"createdBy"`
	CreatedAt   time.Time   `bson:"createdAt"`
	UpdatedAt   time.Time   `bson:"updatedAt"`
}

type mongoSubmission struct {
	ID             string      `bson:"_id"`
	AssignmentID   string      `bson:"assignmentId"`
	SubmitterEmail string      `bson:"submitterEmail"`
	GoogleDocLink  string      `bson:"googleDocLink"`
	QuickNote      string      `bson:"quickNote"`
	Status         string      `bson:"status"`
	ObtainedMark   interface{} `bson:"obtainedMark,omitempty"`
	Feedback       *string     `bson:"feedback,omitempty"`
	EvaluatedBy    *string     `bson:"evaluatedBy,omitempty"`
	EvaluatedAt    *time.Time  `bson:"evaluatedAt,omitempty"`
	SubmittedAt    time.Time   `bson:"submittedAt"`
}

// mongoNumber adapts driver-specific decodings (embedded documents,
// Decimal128) to the shapes model.ParseNumber understands.
func mongoNumber(v interface{}) (float64, error) {
	switch x := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return model.ParseNumber(m)
	case primitive.M:
		return model.ParseNumber(map[string]any(x))
	}
	return model.ParseNumber(v)
}

func (d *mongoAssignment) toModel() (model.Assignment, error) {
	marks, err := mongoNumber(d.Marks)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("assignment %s marks: %w", d.ID, err)
	}
	return model.Assignment{
		ID:          d.ID,
		Title:       d.Title,
		Slug:        d.Slug,
		Description: d.Description,
		Marks:       int(marks),
		Thumbnail:   d.Thumbnail,
		Difficulty:  model.Difficulty(d.Difficulty),
		DueDate:     d.DueDate,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (d *mongoSubmission) toModel() (model.Submission, error) {
	s := model.Submission{
		ID:             d.ID,
		AssignmentID:   d.AssignmentID,
		SubmitterEmail: d.SubmitterEmail,
		GoogleDocLink:  d.GoogleDocLink,
		QuickNote:      d.QuickNote,
		Status:         model.SubmissionStatus(d.Status),
		Feedback:       d.Feedback,
		EvaluatedBy:    d.EvaluatedBy,
		EvaluatedAt:    d.EvaluatedAt,
		SubmittedAt:    d.SubmittedAt,
	}
	if d.ObtainedMark != nil {
		mark, err := mongoNumber(d.ObtainedMark)
		if err != nil {
			return model.Submission{}, fmt.Errorf("submission %s obtainedMark: %w", d.ID, err)
		}
		s.ObtainedMark = &mark
	}
	return s, nil
}

// NewMongoStore ensures the indexes the store relies on and returns the
// repositories backed by db.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	assignments := db.Collection(assignmentsCollection)
	submissions := db.Collection(submissionsCollection)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := assignments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("mongo assignments indexes: %w", err)
	}
	if _, err := submissions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}, {Key: "submitterEmail", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("mongo submissions indexes: %w", err)
	}

	return &Store{
		Users:       &mongoUserRepository{col: db.Collection(usersCollection)},
		Assignments: &mongoAssignmentRepository{col: assignments, submissions: submissions},
		Submissions: &mongoSubmissionRepository{col: submissions},
		Leaderboard: &mongoLeaderboardRepository{col: submissions},
	}, nil
}

func translateMongoError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return common.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, common.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

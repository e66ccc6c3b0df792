package model

import "time"

type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusCompleted SubmissionStatus = "completed"
)

const (
	MinObtainedMark = 0
	MaxObtainedMark = 100
)

// Submission is one user's attempt at an assignment. The evaluation fields
// stay nil until the submission is graded, and never change afterwards.
type Submission struct {
	ID             string           `json:"id"`
	AssignmentID   string           `json:"assignmentId"`
	SubmitterEmail string           `json:"submitterEmail"`
	GoogleDocLink  string           `json:"googleDocLink"`
	QuickNote      string           `json:"quickNote"`
	Status         SubmissionStatus `json:"status"`
	ObtainedMark   *float64         `json:"obtainedMark,omitempty"`
	Feedback       *string          `json:"feedback,omitempty"`
	EvaluatedBy    *string          `json:"evaluatedBy,omitempty"`
	EvaluatedAt    *time.Time       `json:"evaluatedAt,omitempty"`
	SubmittedAt    time.Time        `json:"submittedAt"`
}

func (s *Submission) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// Evaluation is what a grader records on a pending submission.
type Evaluation struct {
	GraderEmail  string
	ObtainedMark float64
	Feedback     string
	EvaluatedAt  time.Time
}

// Complete applies an evaluation to the in-memory record. Stores perform the
// persistent transition; this keeps the returned value in step with it.
func (s *Submission) Complete(e Evaluation) {
	mark, feedback, grader, at := e.ObtainedMark, e.Feedback, e.GraderEmail, e.EvaluatedAt
	s.Status = StatusCompleted
	s.ObtainedMark = &mark
	s.Feedback = &feedback
	s.EvaluatedBy = &grader
	s.EvaluatedAt = &at
}

// SubmissionView is a submission joined with the catalog fields the
// submitter and graders need to see.
type SubmissionView struct {
	Submission
	AssignmentTitle     string `json:"assignmentTitle"`
	AssignmentMarks     int    `json:"assignmentMarks"`
	AssignmentCreatedBy string `json:"assignmentCreatedBy"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	// ListBySubmitter joins each submission with its assignment, newest first.
	ListBySubmitter(ctx context.Context, identity string) ([]model.SubmissionView, error)
	// ListPending returns pending submissions that identity may grade: neither
	// submitted by identity nor belonging to an assignment identity created.
	ListPending(ctx context.Context, identity string) ([]model.SubmissionView, error)
	// MarkCompleted moves a pending submission to completed. It fails with
	// ErrConflict when the submission is no longer pending.
	MarkCompleted(ctx context.Context, id string, e model.Evaluation) error
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `s.id, s.assignment_id, s.submitter_email, s.google_doc_link, s.quick_note, s.status,
       s.obtained_mark, s.feedback, s.evaluated_by, s.evaluated_at, s.submitted_at`

func (r *pgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, assignment_id, submitter_email, google_doc_link, quick_note, status, submitted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, sub.ID, sub.AssignmentID, sub.SubmitterEmail, sub.GoogleDocLink,
		sub.QuickNote, string(sub.Status), sub.SubmittedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return fmt.Errorf("you have already submitted this assignment: %w", common.ErrConflict)
			case "23503":
				return fmt.Errorf("assignment %s: %w", sub.AssignmentID, common.ErrNotFound)
			}
		}
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s WHERE s.id = $1`
	sub := &model.Submission{}
	if err := scanSubmission(r.db.QueryRowContext(ctx, query, id), sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListBySubmitter(ctx context.Context, identity string) ([]model.SubmissionView, error) {
	query := `SELECT ` + submissionColumns + `, a.title, a.marks, a.created_by
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        WHERE s.submitter_email = $1
        ORDER BY s.submitted_at DESC, s.id ASC`
	return r.listViews(ctx, "ListBySubmitter", query, identity)
}

func (r *pgSubmissionRepository) ListPending(ctx context.Context, identity string) ([]model.SubmissionView, error) {
	query := `SELECT ` + submissionColumns + `, a.title, a.marks, a.created_by
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        WHERE s.status = 'pending' AND s.submitter_email <> $1 AND a.created_by <> $1
        ORDER BY s.submitted_at ASC, s.id ASC`
	return r.listViews(ctx, "ListPending", query, identity)
}

func (r *pgSubmissionRepository) listViews(ctx context.Context, op, query string, args ...any) ([]model.SubmissionView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.%s query: %w", op, err)
	}
	defer rows.Close()

	views := []model.SubmissionView{}
	for rows.Next() {
		var v model.SubmissionView
		if err := scanSubmission(rows, &v.Submission, &v.AssignmentTitle, &v.AssignmentMarks, &v.AssignmentCreatedBy); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.%s scan: %w", op, err)
		}
		views = append(views, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.%s rows.Err: %w", op, err)
	}
	return views, nil
}

func (r *pgSubmissionRepository) MarkCompleted(ctx context.Context, id string, e model.Evaluation) error {
	query := `UPDATE submissions SET
                status = 'completed', obtained_mark = $1, feedback = $2, evaluated_by = $3, evaluated_at = $4
              WHERE id = $5 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, e.ObtainedMark, e.Feedback, e.GraderEmail, e.EvaluatedAt, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.MarkCompleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM submissions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("pgSubmissionRepository.MarkCompleted exists: %w", err)
	}
	if !exists {
		return common.ErrNotFound
	}
	return fmt.Errorf("submission has already been evaluated: %w", common.ErrConflict)
}

func scanSubmission(row rowScanner, sub *model.Submission, extra ...any) error {
	var (
		mark        sql.NullFloat64
		feedback    sql.NullString
		evaluatedBy sql.NullString
		evaluatedAt sql.NullTime
	)
	dest := []any{&sub.ID, &sub.AssignmentID, &sub.SubmitterEmail, &sub.GoogleDocLink, &sub.QuickNote, &sub.Status,
		&mark, &feedback, &evaluatedBy, &evaluatedAt, &sub.SubmittedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if mark.Valid {
		sub.ObtainedMark = &mark.Float64
	}
	if feedback.Valid {
		sub.Feedback = &feedback.String
	}
	if evaluatedBy.Valid {
		sub.EvaluatedBy = &evaluatedBy.String
	}
	if evaluatedAt.Valid {
		sub.EvaluatedAt = &evaluatedAt.Time
	}
	return nil
}

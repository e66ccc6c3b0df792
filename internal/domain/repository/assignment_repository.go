package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	Update(ctx context.Context, a *model.Assignment) error
	// Delete removes the assignment together with its submissions.
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Assignment, error)
	FindBySlug(ctx context.Context, slug string) (*model.Assignment, error)
	List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error)
}

type pgAssignmentRepository struct {
	db *sql.DB
}

func NewPgAssignmentRepository(db *sql.DB) AssignmentRepository {
	return &pgAssignmentRepository{db: db}
}

const assignmentColumns = `id, title, slug, description, marks, thumbnail, difficulty, due_date, created_by, created_at, updated_at`

func (r *pgAssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	query := `INSERT INTO assignments (` + assignmentColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query, a.ID, a.Title, a.Slug, a.Description, a.Marks, a.Thumbnail,
		string(a.Difficulty), a.DueDate, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("assignment with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgAssignmentRepository.Create: %w", err)
	}
	return nil
}

func (r *pgAssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	query := `UPDATE assignments SET
                title = $1, slug = $2, description = $3, marks = $4, thumbnail = $5,
                difficulty = $6, due_date = $7, updated_at = $8
              WHERE id = $9`

	res, err := r.db.ExecContext(ctx, query, a.Title, a.Slug, a.Description, a.Marks, a.Thumbnail,
		string(a.Difficulty), a.DueDate, a.UpdatedAt, a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("assignment with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgAssignmentRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgAssignmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgAssignmentRepository.Delete begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE assignment_id = $1`, id); err != nil {
		return fmt.Errorf("pgAssignmentRepository.Delete submissions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgAssignmentRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return tx.Commit()
}

func (r *pgAssignmentRepository) FindByID(ctx context.Context, id string) (*model.Assignment, error) {
	return r.findOne(ctx, "id", id)
}

func (r *pgAssignmentRepository) FindBySlug(ctx context.Context, slug string) (*model.Assignment, error) {
	return r.findOne(ctx, "slug", slug)
}

func (r *pgAssignmentRepository) findOne(ctx context.Context, column, value string) (*model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE ` + column + ` = $1`

	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAssignmentRepository.FindBy %s: %w", column, err)
	}
	return a, nil
}

func (r *pgAssignmentRepository) List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + assignmentColumns + ` FROM assignments`)

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", argID))
		args = append(args, string(filter.Difficulty))
		argID++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`LOWER(title) LIKE $%d ESCAPE '\'`, argID))
		args = append(args, likePattern(filter.Search))
		argID++
	}

	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC, id ASC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgAssignmentRepository.List query: %w", err)
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("pgAssignmentRepository.List scan: %w", err)
		}
		assignments = append(assignments, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAssignmentRepository.List rows.Err: %w", err)
	}
	return assignments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Description, &a.Marks, &a.Thumbnail,
		&a.Difficulty, &a.DueDate, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// likePattern turns free text into a lower-cased LIKE pattern that matches it
// as a literal substring.
func likePattern(search string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(strings.ToLower(search)) + "%"
}

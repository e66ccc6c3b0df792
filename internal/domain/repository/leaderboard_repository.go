package repository

import (
	"context"
	"database/sql"
	"fmt"
	"studyhub/internal/domain/model"
)

type LeaderboardRepository interface {
	// ListCompleted returns every completed submission with the display
	// fields the leaderboard needs. Order is unspecified.
	ListCompleted(ctx context.Context) ([]model.LeaderboardRow, error)
}

type pgLeaderboardRepository struct {
	db *sql.DB
}

func NewPgLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &pgLeaderboardRepository{db: db}
}

func (r *pgLeaderboardRepository) ListCompleted(ctx context.Context) ([]model.LeaderboardRow, error) {
	query := `
        SELECT s.id, s.submitter_email, u.name, u.photo_url, a.title, s.obtained_mark, s.evaluated_at
        FROM submissions s
        LEFT JOIN assignments a ON a.id = s.assignment_id
        LEFT JOIN users u ON u.email = s.submitter_email
        WHERE s.status = 'completed'`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.ListCompleted query: %w", err)
	}
	defer rows.Close()

	out := []model.LeaderboardRow{}
	for rows.Next() {
		var (
			row         model.LeaderboardRow
			name, photo sql.NullString
			title       sql.NullString
			mark        sql.NullFloat64
			evaluatedAt sql.NullTime
		)
		if err := rows.Scan(&row.SubmissionID, &row.SubmitterEmail, &name, &photo, &title, &mark, &evaluatedAt); err != nil {
			return nil, fmt.Errorf("pgLeaderboardRepository.ListCompleted scan: %w", err)
		}
		row.SubmitterName, row.SubmitterPhoto, row.AssignmentTitle = name.String, photo.String, title.String
		row.Mark, row.EvaluatedAt = mark.Float64, evaluatedAt.Time
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.ListCompleted rows.Err: %w", err)
	}
	return out, nil
}

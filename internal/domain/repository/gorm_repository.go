package repository

import (
	"context"
	"errors"
	"fmt"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"time"

	"gorm.io/gorm"
)

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	row := gormUser{
		Email:          user.Email,
		Name:           user.Name,
		PhotoURL:       user.PhotoURL,
		HashedPassword: user.HashedPassword,
		CreatedAt:      user.CreatedAt,
	}
	return translateGormError("gormUserRepository.Create", r.db.WithContext(ctx).Create(&row).Error)
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var row gormUser
	if err := r.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		return nil, translateGormError("gormUserRepository.FindByEmail", err)
	}
	return &model.User{
		Email:          row.Email,
		Name:           row.Name,
		PhotoURL:       row.PhotoURL,
		HashedPassword: row.HashedPassword,
		CreatedAt:      row.CreatedAt,
	}, nil
}

type gormAssignmentRepository struct {
	db *gorm.DB
}

func (r *gormAssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	return translateGormError("gormAssignmentRepository.Create", r.db.WithContext(ctx).Create(toGormAssignment(a)).Error)
}

func (r *gormAssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	// UpdateColumns keeps gorm from overwriting updated_at with its own clock.
	result := r.db.WithContext(ctx).Model(&gormAssignment{}).Where("id = ?", a.ID).UpdateColumns(map[string]any{
		"title":       a.Title,
		"slug":        a.Slug,
		"description": a.Description,
		"marks":       a.Marks,
		"thumbnail":   a.Thumbnail,
		"difficulty":  string(a.Difficulty),
		"due_date":    a.DueDate,
		"updated_at":  a.UpdatedAt,
	})
	if result.Error != nil {
		return translateGormError("gormAssignmentRepository.Update", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *gormAssignmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", id).Delete(&gormSubmission{}).Error; err != nil {
			return translateGormError("gormAssignmentRepository.Delete submissions", err)
		}
		result := tx.Where("id = ?", id).Delete(&gormAssignment{})
		if result.Error != nil {
			return translateGormError("gormAssignmentRepository.Delete", result.Error)
		}
		if result.RowsAffected == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

func (r *gormAssignmentRepository) FindByID(ctx context.Context, id string) (*model.Assignment, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *gormAssignmentRepository) FindBySlug(ctx context.Context, slug string) (*model.Assignment, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

func (r *gormAssignmentRepository) findOne(ctx context.Context, cond string, value string) (*model.Assignment, error) {
	var row gormAssignment
	if err := r.db.WithContext(ctx).First(&row, cond, value).Error; err != nil {
		return nil, translateGormError("gormAssignmentRepository.findOne", err)
	}
	a := row.toModel()
	return &a, nil
}

func (r *gormAssignmentRepository) List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error) {
	q := r.db.WithContext(ctx).Model(&gormAssignment{})
	if filter.Difficulty != "" {
		q = q.Where("difficulty = ?", string(filter.Difficulty))
	}
	if filter.Search != "" {
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\'`, likePattern(filter.Search))
	}

	var rows []gormAssignment
	if err := q.Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translateGormError("gormAssignmentRepository.List", err)
	}
	out := make([]model.Assignment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

type gormSubmissionRepository struct {
	db *gorm.DB
}

type gormSubmissionView struct {
	Submission          gormSubmission `gorm:"embedded"`
	AssignmentTitle     string
	AssignmentMarks     int
	AssignmentCreatedBy string
}

func (r *gormSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	err := translateGormError("gormSubmissionRepository.Create", r.db.WithContext(ctx).Create(toGormSubmission(sub)).Error)
	if errors.Is(err, common.ErrConflict) {
		return fmt.Errorf("you have already submitted this assignment: %w", common.ErrConflict)
	}
	return err
}

func (r *gormSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	var row gormSubmission
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translateGormError("gormSubmissionRepository.FindByID", err)
	}
	s := row.toModel()
	return &s, nil
}

func (r *gormSubmissionRepository) views(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("submissions AS s").
		Select("s.*, a.title AS assignment_title, a.marks AS assignment_marks, a.created_by AS assignment_created_by").
		Joins("JOIN assignments a ON a.id = s.assignment_id")
}

func (r *gormSubmissionRepository) ListBySubmitter(ctx context.Context, identity string) ([]model.SubmissionView, error) {
	var rows []gormSubmissionView
	err := r.views(ctx).
		Where("s.submitter_email = ?", identity).
		Order("s.submitted_at DESC").Order("s.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translateGormError("gormSubmissionRepository.ListBySubmitter", err)
	}
	return toSubmissionViews(rows), nil
}

func (r *gormSubmissionRepository) ListPending(ctx context.Context, identity string) ([]model.SubmissionView, error) {
	var rows []gormSubmissionView
	err := r.views(ctx).
		Where("s.status = ?", string(model.StatusPending)).
		Where("s.submitter_email <> ? AND a.created_by <> ?", identity, identity).
		Order("s.submitted_at ASC").Order("s.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translateGormError("gormSubmissionRepository.ListPending", err)
	}
	return toSubmissionViews(rows), nil
}

func toSubmissionViews(rows []gormSubmissionView) []model.SubmissionView {
	out := make([]model.SubmissionView, 0, len(rows))
	for i := range rows {
		out = append(out, model.SubmissionView{
			Submission:          rows[i].Submission.toModel(),
			AssignmentTitle:     rows[i].AssignmentTitle,
			AssignmentMarks:     rows[i].AssignmentMarks,
			AssignmentCreatedBy: rows[i].AssignmentCreatedBy,
		})
	}
	return out
}

func (r *gormSubmissionRepository) MarkCompleted(ctx context.Context, id string, e model.Evaluation) error {
	result := r.db.WithContext(ctx).Model(&gormSubmission{}).
		Where("id = ? AND status = ?", id, string(model.StatusPending)).
		UpdateColumns(map[string]any{
			"status":        string(model.StatusCompleted),
			"obtained_mark": e.ObtainedMark,
			"feedback":      e.Feedback,
			"evaluated_by":  e.GraderEmail,
			"evaluated_at":  e.EvaluatedAt,
		})
	if result.Error != nil {
		return translateGormError("gormSubmissionRepository.MarkCompleted", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&gormSubmission{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateGormError("gormSubmissionRepository.MarkCompleted count", err)
	}
	if count == 0 {
		return common.ErrNotFound
	}
	return fmt.Errorf("submission has already been evaluated: %w", common.ErrConflict)
}

type gormLeaderboardRepository struct {
	db *gorm.DB
}

type gormLeaderboardRow struct {
	SubmissionID    string
	SubmitterEmail  string
	SubmitterName   *string
	SubmitterPhoto  *string
	AssignmentTitle *string
	Mark            *float64
	EvaluatedAt     *time.Time
}

func (r *gormLeaderboardRepository) ListCompleted(ctx context.Context) ([]model.LeaderboardRow, error) {
	var rows []gormLeaderboardRow
	err := r.db.WithContext(ctx).Table("submissions AS s").
		Select("s.id AS submission_id, s.submitter_email, u.name AS submitter_name, u.photo_url AS submitter_photo, " +
			"a.title AS assignment_title, s.obtained_mark AS mark, s.evaluated_at").
		Joins("LEFT JOIN assignments a ON a.id = s.assignment_id").
		Joins("LEFT JOIN users u ON u.email = s.submitter_email").
		Where("s.status = ?", string(model.StatusCompleted)).
		Scan(&rows).Error
	if err != nil {
		return nil, translateGormError("gormLeaderboardRepository.ListCompleted", err)
	}

	out := make([]model.LeaderboardRow, 0, len(rows))
	for _, row := range rows {
		lr := model.LeaderboardRow{SubmissionID: row.SubmissionID, SubmitterEmail: row.SubmitterEmail}
		if row.SubmitterName != nil {
			lr.SubmitterName = *row.SubmitterName
		}
		if row.SubmitterPhoto != nil {
			lr.SubmitterPhoto = *row.SubmitterPhoto
		}
		if row.AssignmentTitle != nil {
			lr.AssignmentTitle = *row.AssignmentTitle
		}
		if row.Mark != nil {
			lr.Mark = *row.Mark
		}
		if row.EvaluatedAt != nil {
			lr.EvaluatedAt = *row.EvaluatedAt
		}
		out = append(out, lr)
	}
	return out, nil
}

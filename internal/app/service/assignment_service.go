package service

import (
	"context"
	"strings"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"studyhub/internal/domain/repository"
	"studyhub/internal/platform/metrics"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// LeaderboardRefresher schedules a rebuild of the leaderboard projection.
type LeaderboardRefresher interface {
	RequestRefresh(ctx context.Context) error
}

type AssignmentService struct {
	assignmentRepo repository.AssignmentRepository
	leaderboard    LeaderboardRefresher
	log            *zap.Logger
	now            func() time.Time
}

func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	leaderboard LeaderboardRefresher,
	log *zap.Logger,
) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		leaderboard:    leaderboard,
		log:            log,
		now:            time.Now,
	}
}

type AssignmentRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Marks       model.Number `json:"marks"`
	Thumbnail   string       `json:"thumbnail"`
	Difficulty  string       `json:"difficulty"`
	DueDate     string       `json:"dueDate"`
}

type ListAssignmentsRequest struct {
	Difficulty string
	Search     string
}

// validated is an AssignmentRequest that passed every field check.
type validated struct {
	title       string
	description string
	marks       int
	thumbnail   string
	difficulty  model.Difficulty
	dueDate     time.Time
}

func (s *AssignmentService) validate(req AssignmentRequest, rejectPastDue bool) (validated, error) {
	var ve common.ValidationErrors
	out := validated{
		title:       strings.TrimSpace(req.Title),
		description: strings.TrimSpace(req.Description),
		thumbnail:   strings.TrimSpace(req.Thumbnail),
	}

	if out.title == "" {
		ve.Add("title", "Title is required.")
	}

	switch {
	case out.description == "":
		ve.Add("description", "Description is required.")
	case utf8.RuneCountInString(out.description) < minDescriptionLength:
		ve.Add("description", "Description must be at least 20 characters.")
	}

	switch {
	case !req.Marks.Present:
		ve.Add("marks", "Total marks is required.")
	case !req.Marks.Valid:
		ve.Add("marks", "Total marks must be a number.")
	case req.Marks.Value < 0:
		ve.Add("marks", "Total marks cannot be negative.")
	case req.Marks.Value > model.MaxMarks:
		ve.Add("marks", "Total marks is too large.")
	case !req.Marks.IsInteger():
		ve.Add("marks", "Total marks must be a whole number.")
	default:
		out.marks = int(req.Marks.Value)
	}

	switch {
	case out.thumbnail == "":
		ve.Add("thumbnail", "Thumbnail URL is required.")
	case !isAbsoluteURL(out.thumbnail):
		ve.Add("thumbnail", "Please enter a valid URL.")
	}

	if strings.TrimSpace(req.Difficulty) == "" {
		ve.Add("difficulty", "Difficulty level is required.")
	} else if d, ok := model.ParseDifficulty(req.Difficulty); ok {
		out.difficulty = d
	} else {
		ve.Add("difficulty", "Please select a valid difficulty level.")
	}

	if strings.TrimSpace(req.DueDate) == "" {
		ve.Add("dueDate", "Due date is required.")
	} else if due, hasClock, ok := parseDueDate(req.DueDate); !ok {
		ve.Add("dueDate", "Please select a valid due date.")
	} else if rejectPastDue && isPast(due, hasClock, s.now()) {
		ve.Add("dueDate", "Due date cannot be in the past.")
	} else {
		out.dueDate = due
	}

	return out, ve.Err()
}

func makeSlug(title string) string {
	return slug.Make(title) + "-" + uuid.NewString()[:8]
}

func (s *AssignmentService) List(ctx context.Context, req ListAssignmentsRequest) ([]model.Assignment, error) {
	filter := model.AssignmentFilter{Search: strings.TrimSpace(req.Search)}
	if strings.TrimSpace(req.Difficulty) != "" {
		d, ok := model.ParseDifficulty(req.Difficulty)
		if !ok {
			var ve common.ValidationErrors
			ve.Add("difficulty", "Please select a valid difficulty level.")
			return nil, ve.Err()
		}
		filter.Difficulty = d
	}

	assignments, err := s.assignmentRepo.List(ctx, filter)
	if err != nil {
		return nil, common.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (s *AssignmentService) Create(ctx context.Context, caller model.Principal, req AssignmentRequest) (*model.Assignment, error) {
	v, err := s.validate(req, false)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	assignment := &model.Assignment{
		ID:          uuid.NewString(),
		Title:       v.title,
		Slug:        makeSlug(v.title),
		Description: v.description,
		Marks:       v.marks,
		Thumbnail:   v.thumbnail,
		Difficulty:  v.difficulty,
		DueDate:     v.dueDate,
		CreatedBy:   model.NormalizeIdentity(caller.Email),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, common.Errorf("failed to create assignment: %w", err)
	}

	metrics.AssignmentsCreated.Inc()
	s.log.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("created_by", assignment.CreatedBy))
	return assignment, nil
}

// Update replaces the editable fields of an assignment owned by caller. The
// owner and creation time never change.
func (s *AssignmentService) Update(ctx context.Context, caller model.Principal, id string, req AssignmentRequest) (*model.Assignment, error) {
	existing, err := s.assignmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, common.Errorf("assignment %s: %w", id, err)
	}
	if !existing.IsOwnedBy(caller.Email) {
		return nil, common.Errorf("you are not allowed to update this assignment: %w", common.ErrForbidden)
	}

	v, err := s.validate(req, true)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if updated.Title != v.title {
		updated.Slug = makeSlug(v.title)
	}
	updated.Title = v.title
	updated.Description = v.description
	updated.Marks = v.marks
	updated.Thumbnail = v.thumbnail
	updated.Difficulty = v.difficulty
	updated.DueDate = v.dueDate
	updated.UpdatedAt = s.now().UTC()

	if err := s.assignmentRepo.Update(ctx, &updated); err != nil {
		return nil, common.Errorf("failed to update assignment %s: %w", id, err)
	}
	if updated.Title != existing.Title {
		s.requestRefresh(ctx, "assignment retitled")
	}
	return &updated, nil
}

// Delete removes an assignment owned by caller together with its submissions.
func (s *AssignmentService) Delete(ctx context.Context, caller model.Principal, id string) error {
	existing, err := s.assignmentRepo.FindByID(ctx, id)
	if err != nil {
		return common.Errorf("assignment %s: %w", id, err)
	}
	if !existing.IsOwnedBy(caller.Email) {
		return common.Errorf("you are not allowed to delete this assignment: %w", common.ErrForbidden)
	}

	if err := s.assignmentRepo.Delete(ctx, id); err != nil {
		return common.Errorf("failed to delete assignment %s: %w", id, err)
	}
	s.log.Info("assignment deleted", zap.String("assignment_id", id))
	s.requestRefresh(ctx, "assignment deleted")
	return nil
}

func (s *AssignmentService) Get(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.assignmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, common.Errorf("assignment %s: %w", id, err)
	}
	return a, nil
}

func (s *AssignmentService) GetBySlug(ctx context.Context, slug string) (*model.Assignment, error) {
	a, err := s.assignmentRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, common.Errorf("assignment %q: %w", slug, err)
	}
	return a, nil
}

// requestRefresh never fails the caller; the scheduled refresh catches up.
func (s *AssignmentService) requestRefresh(ctx context.Context, reason string) {
	if s.leaderboard == nil {
		return
	}
	if err := s.leaderboard.RequestRefresh(ctx); err != nil {
		s.log.Warn("failed to request leaderboard refresh", zap.String("reason", reason), zap.Error(err))
	}
}

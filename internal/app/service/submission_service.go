package service

import (
	"context"
	"errors"
	"strings"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"studyhub/internal/domain/repository"
	"studyhub/internal/platform/metrics"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	assignmentRepo repository.AssignmentRepository
	log            *zap.Logger
	now            func() time.Time
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		assignmentRepo: assignmentRepo,
		log:            log,
		now:            time.Now,
	}
}

type SubmitRequest struct {
	GoogleDocLink string `json:"googleDocLink"`
	QuickNote     string `json:"quickNote"`
}

// Submit records caller's attempt at an assignment as pending. A second
// submission for the same assignment fails with ErrConflict.
func (s *SubmissionService) Submit(ctx context.Context, caller model.Principal, assignmentID string, req SubmitRequest) (*model.Submission, error) {
	link := strings.TrimSpace(req.GoogleDocLink)
	if !isAbsoluteURL(link) {
		var ve common.ValidationErrors
		ve.Add("googleDocLink", "Please enter a valid Google Docs link.")
		return nil, ve.Err()
	}

	if _, err := s.assignmentRepo.FindByID(ctx, assignmentID); err != nil {
		return nil, common.Errorf("assignment %s: %w", assignmentID, err)
	}

	sub := &model.Submission{
		ID:             uuid.NewString(),
		AssignmentID:   assignmentID,
		SubmitterEmail: model.NormalizeIdentity(caller.Email),
		GoogleDocLink:  link,
		QuickNote:      req.QuickNote,
		Status:         model.StatusPending,
		SubmittedAt:    s.now().UTC(),
	}
	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		if !errors.Is(err, common.ErrConflict) {
			s.log.Error("failed to store submission", zap.String("assignment_id", assignmentID), zap.Error(err))
		}
		return nil, common.Errorf("failed to submit assignment %s: %w", assignmentID, err)
	}

	metrics.SubmissionsCreated.Inc()
	s.log.Info("submission received",
		zap.String("submission_id", sub.ID),
		zap.String("assignment_id", assignmentID))
	return sub, nil
}

// ListMine returns caller's submissions joined with their assignments.
func (s *SubmissionService) ListMine(ctx context.Context, caller model.Principal) ([]model.SubmissionView, error) {
	views, err := s.submissionRepo.ListBySubmitter(ctx, model.NormalizeIdentity(caller.Email))
	if err != nil {
		return nil, common.Errorf("failed to list submissions: %w", err)
	}
	return views, nil
}

// ListPendingForGrading returns the pending submissions caller is allowed to
// grade.
func (s *SubmissionService) ListPendingForGrading(ctx context.Context, caller model.Principal) ([]model.SubmissionView, error) {
	views, err := s.submissionRepo.ListPending(ctx, model.NormalizeIdentity(caller.Email))
	if err != nil {
		return nil, common.Errorf("failed to list pending submissions: %w", err)
	}
	return views, nil
}

// Get returns a submission to its submitter, the assignment owner or its
// evaluator. While pending it is also visible to anyone who may grade it.
func (s *SubmissionService) Get(ctx context.Context, caller model.Principal, id string) (*model.Submission, error) {
	sub, err := s.submissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, common.Errorf("submission %s: %w", id, err)
	}
	assignment, err := s.assignmentRepo.FindByID(ctx, sub.AssignmentID)
	if err != nil {
		return nil, common.Errorf("assignment %s: %w", sub.AssignmentID, err)
	}

	identity := model.NormalizeIdentity(caller.Email)
	switch {
	case model.SameIdentity(identity, sub.SubmitterEmail), assignment.IsOwnedBy(identity):
	case sub.EvaluatedBy != nil && model.SameIdentity(identity, *sub.EvaluatedBy):
	case !sub.IsCompleted():
	default:
		return nil, common.Errorf("you are not allowed to view this submission: %w", common.ErrForbidden)
	}
	return sub, nil
}

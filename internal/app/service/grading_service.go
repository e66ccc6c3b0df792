package service

import (
	"context"
	"errors"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"studyhub/internal/domain/repository"
	"studyhub/internal/platform/metrics"
	"studyhub/internal/platform/queue"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const gradeLockPrefix = "grade_lock:"

type GradingService struct {
	submissionRepo repository.SubmissionRepository
	assignmentRepo repository.AssignmentRepository
	rdb            *redis.Client
	lockTTL        time.Duration
	leaderboard    LeaderboardRefresher
	log            *zap.Logger
	now            func() time.Time
}

func NewGradingService(
	submissionRepo repository.SubmissionRepository,
	assignmentRepo repository.AssignmentRepository,
	rdb *redis.Client,
	lockTTL time.Duration,
	leaderboard LeaderboardRefresher,
	log *zap.Logger,
) *GradingService {
	return &GradingService{
		submissionRepo: submissionRepo,
		assignmentRepo: assignmentRepo,
		rdb:            rdb,
		lockTTL:        lockTTL,
		leaderboard:    leaderboard,
		log:            log,
		now:            time.Now,
	}
}

type GradeRequest struct {
	ObtainedMark model.Number `json:"obtainedMark"`
	Feedback     string       `json:"feedback"`
}

var errAlreadyEvaluated = common.Errorf("submission has already been evaluated: %w", common.ErrConflict)

// Grade completes a pending submission. Checks run in order: existence,
// self-grading, current status, then the mark itself. A per-submission
// lock turns concurrent attempts into a fast conflict; the store's
// conditional update decides the winner.
func (s *GradingService) Grade(ctx context.Context, grader model.Principal, submissionID string, req GradeRequest) (*model.Submission, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		s.count(err)
		return nil, common.Errorf("submission %s: %w", submissionID, err)
	}
	assignment, err := s.assignmentRepo.FindByID(ctx, sub.AssignmentID)
	if err != nil {
		s.count(err)
		return nil, common.Errorf("assignment %s: %w", sub.AssignmentID, err)
	}

	graderID := model.NormalizeIdentity(grader.Email)
	if model.SameIdentity(graderID, sub.SubmitterEmail) || assignment.IsOwnedBy(graderID) {
		s.count(common.ErrSelfGrading)
		s.log.Warn("self-grading refused",
			zap.String("submission_id", submissionID),
			zap.String("grader", graderID))
		return nil, common.ErrSelfGrading
	}
	if sub.IsCompleted() {
		s.count(errAlreadyEvaluated)
		return nil, errAlreadyEvaluated
	}

	mark := req.ObtainedMark
	if !mark.Valid || mark.Value < model.MinObtainedMark || mark.Value > model.MaxObtainedMark {
		var ve common.ValidationErrors
		ve.Add("obtainedMark", "Please enter a valid mark between 0 and 100.")
		err := ve.Err()
		s.count(err)
		return nil, err
	}

	lock, err := queue.AcquireLock(ctx, s.rdb, gradeLockPrefix+submissionID, s.lockTTL)
	switch {
	case errors.Is(err, queue.ErrLockHeld):
		s.count(errAlreadyEvaluated)
		return nil, common.Errorf("submission %s is being evaluated: %w", submissionID, common.ErrConflict)
	case err != nil:
		// The conditional update below still guarantees a single winner.
		s.log.Warn("grade lock unavailable, relying on store check",
			zap.String("submission_id", submissionID), zap.Error(err))
	default:
		defer func() {
			if _, err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("failed to release grade lock", zap.String("key", lock.Key()), zap.Error(err))
			}
		}()
	}

	evaluation := model.Evaluation{
		GraderEmail:  graderID,
		ObtainedMark: mark.Value,
		Feedback:     req.Feedback,
		EvaluatedAt:  s.now().UTC(),
	}
	if err := s.submissionRepo.MarkCompleted(ctx, submissionID, evaluation); err != nil {
		s.count(err)
		return nil, common.Errorf("failed to grade submission %s: %w", submissionID, err)
	}
	sub.Complete(evaluation)
	s.count(nil)

	s.log.Info("submission graded",
		zap.String("submission_id", submissionID),
		zap.String("grader", graderID),
		zap.Float64("obtained_mark", mark.Value))

	if s.leaderboard != nil {
		if err := s.leaderboard.RequestRefresh(ctx); err != nil {
			s.log.Warn("failed to request leaderboard refresh", zap.Error(err))
		}
	}
	return sub, nil
}

func (s *GradingService) count(err error) {
	outcome := "completed"
	switch {
	case err == nil:
	case errors.Is(err, common.ErrSelfGrading):
		outcome = "self_grading"
	case errors.Is(err, common.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, common.ErrValidation):
		outcome = "invalid"
	case errors.Is(err, common.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.Grades.WithLabelValues(outcome).Inc()
}

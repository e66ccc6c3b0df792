package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"studyhub/internal/common/security"
	"studyhub/internal/domain/model"
	"studyhub/internal/domain/repository"
	"studyhub/internal/testhelpers"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store       *repository.Store
	mr          *miniredis.Miniredis
	rdb         *redis.Client
	leaderboard *LeaderboardService
	assignments *AssignmentService
	submissions *SubmissionService
	grading     *GradingService
	auth        *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testhelpers.SetupTestStore(t)
	mr, rdb := testhelpers.SetupTestRedis(t)
	log := zaptest.NewLogger(t)

	f := &fixture{store: store, mr: mr, rdb: rdb}
	f.leaderboard = NewLeaderboardService(store.Leaderboard, rdb, LeaderboardOptions{
		CacheKey:  "leaderboard:test",
		CacheTTL:  time.Minute,
		QueueName: "leaderboard_refresh_queue",
	}, log)
	f.assignments = NewAssignmentService(store.Assignments, f.leaderboard, log)
	f.submissions = NewSubmissionService(store.Submissions, store.Assignments, log)
	f.grading = NewGradingService(store.Submissions, store.Assignments, rdb, 5*time.Second, f.leaderboard, log)
	f.auth = NewAuthService(store.Users, security.NewTokenManager([]byte("test-secret"), time.Hour), rdb, log)

	clock := func() time.Time { return fixedNow }
	f.assignments.now = clock
	f.submissions.now = clock
	f.grading.now = clock
	f.auth.now = clock
	return f
}

func principal(email string) model.Principal {
	return model.Principal{Email: email}
}

func validAssignment() AssignmentRequest {
	return AssignmentRequest{
		Title:       "Algebra",
		Description: strings.Repeat("x", 25),
		Marks:       model.NumberOf(50),
		Thumbnail:   "https://ex.com/a.png",
		Difficulty:  "easy",
		DueDate:     fixedNow.Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}
}

func (f *fixture) createAssignment(t *testing.T, owner string) *model.Assignment {
	t.Helper()
	a, err := f.assignments.Create(context.Background(), principal(owner), validAssignment())
	require.NoError(t, err)
	return a
}

func (f *fixture) submit(t *testing.T, assignmentID, submitter string) *model.Submission {
	t.Helper()
	sub, err := f.submissions.Submit(context.Background(), principal(submitter), assignmentID, SubmitRequest{
		GoogleDocLink: "https://docs.google.com/document/d/abc",
	})
	require.NoError(t, err)
	return sub
}

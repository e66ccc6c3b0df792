package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"studyhub/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// runStoreContract runs the behaviour every Store backend must share. open
// returns an empty store for each case.
func runStoreContract(t *testing.T, open func(t *testing.T) *repository.Store) {
	cases := []struct {
		name string
		run  func(t *testing.T, store *repository.Store)
	}{
		{"Assignments/CRUD", testAssignmentsCRUD},
		{"Assignments/DuplicateSlug", testAssignmentsDuplicateSlug},
		{"Assignments/ListFilters", testAssignmentsListFilters},
		{"Assignments/DeleteCascades", testAssignmentsDeleteCascades},
		{"Submissions/UniquePerSubmitter", testSubmissionsUniquePerSubmitter},
		{"Submissions/Views", testSubmissionsViews},
		{"Submissions/MarkCompleted", testSubmissionsMarkCompleted},
		{"Submissions/MarkCompletedConcurrent", testSubmissionsMarkCompletedConcurrent},
		{"Submissions/PendingExcludesCompleted", testSubmissionsPendingExcludesCompleted},
		{"Users", testUsers},
		{"Leaderboard/ListCompleted", testLeaderboardListCompleted},
		{"Leaderboard/DropsDeletedAssignment", testLeaderboardDropsDeletedAssignment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, open(t))
		})
	}
}

func seedAssignment(t *testing.T, store *repository.Store, id, title, owner string, d model.Difficulty, at time.Time) *model.Assignment {
	t.Helper()
	a := &model.Assignment{
		ID:          id,
		Title:       title,
		Slug:        "slug-" + id,
		Description: "A description that is long enough.",
		Marks:       50,
		Thumbnail:   "https://img.example.com/" + id + ".png",
		Difficulty:  d,
		DueDate:     at.Add(72 * time.Hour),
		CreatedBy:   owner,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, store.Assignments.Create(context.Background(), a))
	return a
}

func seedSubmission(t *testing.T, store *repository.Store, id, assignmentID, submitter string, at time.Time) *model.Submission {
	t.Helper()
	s := &model.Submission{
		ID:             id,
		AssignmentID:   assignmentID,
		SubmitterEmail: submitter,
		GoogleDocLink:  "https://docs.google.com/document/d/" + id,
		QuickNote:      "note",
		Status:         model.StatusPending,
		SubmittedAt:    at,
	}
	require.NoError(t, store.Submissions.Create(context.Background(), s))
	return s
}

func testAssignmentsCRUD(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	a := seedAssignment(t, store, "a1", "Linear Algebra", "alice@x.com", model.DifficultyEasy, base)

	got, err := store.Assignments.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, model.DifficultyEasy, got.Difficulty)
	assert.True(t, a.DueDate.Equal(got.DueDate))

	bySlug, err := store.Assignments.FindBySlug(ctx, "slug-a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", bySlug.ID)

	got.Title = "Linear Algebra II"
	got.Marks = 80
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, store.Assignments.Update(ctx, got))

	updated, err := store.Assignments.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra II", updated.Title)
	assert.Equal(t, 80, updated.Marks)
	assert.Equal(t, "alice@x.com", updated.CreatedBy)

	missing := *got
	missing.ID = "nope"
	assert.ErrorIs(t, store.Assignments.Update(ctx, &missing), common.ErrNotFound)

	_, err = store.Assignments.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testAssignmentsDuplicateSlug(t *testing.T, store *repository.Store) {
	a := seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)

	dup := *a
	dup.ID = "a2"
	err := store.Assignments.Create(context.Background(), &dup)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func testAssignmentsListFilters(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedAssignment(t, store, "a1", "Linear Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedAssignment(t, store, "a2", "Organic Chemistry", "bob@x.com", model.DifficultyHard, base.Add(time.Minute))
	seedAssignment(t, store, "a3", "Abstract algebra", "bob@x.com", model.DifficultyHard, base.Add(2*time.Minute))
	seedAssignment(t, store, "a4", "100% Effort_Essay", "bob@x.com", model.DifficultyMedium, base.Add(3*time.Minute))

	all, err := store.Assignments.List(ctx, model.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a4", all[0].ID, "newest first")

	hard, err := store.Assignments.List(ctx, model.AssignmentFilter{Difficulty: model.DifficultyHard})
	require.NoError(t, err)
	assert.Len(t, hard, 2)

	algebra, err := store.Assignments.List(ctx, model.AssignmentFilter{Search: "ALGEBRA"})
	require.NoError(t, err)
	assert.Len(t, algebra, 2)

	both, err := store.Assignments.List(ctx, model.AssignmentFilter{Difficulty: model.DifficultyHard, Search: "algebra"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "a3", both[0].ID)

	literal, err := store.Assignments.List(ctx, model.AssignmentFilter{Search: "0% e"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "a4", literal[0].ID)

	wildcard, err := store.Assignments.List(ctx, model.AssignmentFilter{Search: "%"})
	require.NoError(t, err)
	assert.Len(t, wildcard, 1, "percent is matched literally")

	none, err := store.Assignments.List(ctx, model.AssignmentFilter{Search: "physics"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testAssignmentsDeleteCascades(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedAssignment(t, store, "a2", "Chemistry", "alice@x.com", model.DifficultyEasy, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)
	seedSubmission(t, store, "s2", "a2", "bob@x.com", base)

	require.NoError(t, store.Assignments.Delete(ctx, "a1"))

	_, err := store.Assignments.FindByID(ctx, "a1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.Submissions.FindByID(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.Submissions.FindByID(ctx, "s2")
	assert.NoError(t, err)

	assert.ErrorIs(t, store.Assignments.Delete(ctx, "a1"), common.ErrNotFound)
}

func testSubmissionsUniquePerSubmitter(t *testing.T, store *repository.Store) {
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)

	dup := &model.Submission{ID: "s2", AssignmentID: "a1", SubmitterEmail: "bob@x.com", GoogleDocLink: "https://d", Status: model.StatusPending, SubmittedAt: base}
	err := store.Submissions.Create(context.Background(), dup)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func testSubmissionsViews(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedAssignment(t, store, "a2", "Chemistry", "bob@x.com", model.DifficultyHard, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)
	seedSubmission(t, store, "s2", "a2", "carol@x.com", base.Add(time.Minute))
	seedSubmission(t, store, "s3", "a1", "carol@x.com", base.Add(2*time.Minute))

	mine, err := store.Submissions.ListBySubmitter(ctx, "carol@x.com")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "s3", mine[0].ID, "newest first")
	assert.Equal(t, "Algebra", mine[0].AssignmentTitle)
	assert.Equal(t, 50, mine[0].AssignmentMarks)
	assert.Equal(t, "alice@x.com", mine[0].AssignmentCreatedBy)
	assert.Nil(t, mine[0].ObtainedMark)

	// bob owns a2 and submitted s1, so only s3 is left for him.
	pending, err := store.Submissions.ListPending(ctx, "bob@x.com")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s3", pending[0].ID)

	// alice owns a1; s2 on bob's assignment is hers to grade.
	pending, err = store.Submissions.ListPending(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s2", pending[0].ID)
}

func testSubmissionsMarkCompleted(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)

	eval := model.Evaluation{GraderEmail: "carol@x.com", ObtainedMark: 88.5, Feedback: "Good", EvaluatedAt: base.Add(time.Hour)}
	require.NoError(t, store.Submissions.MarkCompleted(ctx, "s1", eval))

	got, err := store.Submissions.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())
	require.NotNil(t, got.ObtainedMark)
	assert.Equal(t, 88.5, *got.ObtainedMark)
	assert.Equal(t, "Good", *got.Feedback)
	assert.Equal(t, "carol@x.com", *got.EvaluatedBy)
	assert.True(t, eval.EvaluatedAt.Equal(*got.EvaluatedAt))

	again := model.Evaluation{GraderEmail: "dave@x.com", ObtainedMark: 10, EvaluatedAt: base.Add(2 * time.Hour)}
	assert.ErrorIs(t, store.Submissions.MarkCompleted(ctx, "s1", again), common.ErrConflict)
	assert.ErrorIs(t, store.Submissions.MarkCompleted(ctx, "missing", again), common.ErrNotFound)

	got, err = store.Submissions.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 88.5, *got.ObtainedMark, "completed submissions are immutable")
}

func testSubmissionsMarkCompletedConcurrent(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Submissions.MarkCompleted(ctx, "s1", model.Evaluation{GraderEmail: "carol@x.com", ObtainedMark: float64(i), EvaluatedAt: base})
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, common.ErrConflict):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), conflicts.Load())
}

func testUsers(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	u := &model.User{Email: "alice@x.com", Name: "Alice", HashedPassword: "hash", CreatedAt: base}
	require.NoError(t, store.Users.Create(ctx, u))
	assert.ErrorIs(t, store.Users.Create(ctx, u), common.ErrConflict)

	got, err := store.Users.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "hash", got.HashedPassword)

	_, err = store.Users.FindByEmail(ctx, "bob@x.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testLeaderboardListCompleted(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	require.NoError(t, store.Users.Create(ctx, &model.User{Email: "bob@x.com", Name: "Bob", PhotoURL: "https://img/bob.png", HashedPassword: "h", CreatedAt: base}))
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)
	seedSubmission(t, store, "s2", "a1", "carol@x.com", base)
	seedSubmission(t, store, "s3", "a1", "dave@x.com", base)

	require.NoError(t, store.Submissions.MarkCompleted(ctx, "s1", model.Evaluation{GraderEmail: "alice@x.com", ObtainedMark: 70, EvaluatedAt: base}))
	require.NoError(t, store.Submissions.MarkCompleted(ctx, "s2", model.Evaluation{GraderEmail: "alice@x.com", ObtainedMark: 95, EvaluatedAt: base}))

	rows, err := store.Leaderboard.ListCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]model.LeaderboardRow{}
	for _, r := range rows {
		byID[r.SubmissionID] = r
	}
	assert.Equal(t, "Bob", byID["s1"].SubmitterName)
	assert.Equal(t, "https://img/bob.png", byID["s1"].SubmitterPhoto)
	assert.Equal(t, 70.0, byID["s1"].Mark)
	assert.Equal(t, "Algebra", byID["s2"].AssignmentTitle)
	assert.Empty(t, byID["s2"].SubmitterName, "carol has no user record")
	assert.Equal(t, 95.0, byID["s2"].Mark)
}

func testSubmissionsPendingExcludesCompleted(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)
	seedSubmission(t, store, "s2", "a1", "carol@x.com", base.Add(time.Minute))

	require.NoError(t, store.Submissions.MarkCompleted(ctx, "s1", model.Evaluation{GraderEmail: "dave@x.com", ObtainedMark: 60, Feedback: "ok", EvaluatedAt: base}))

	pending, err := store.Submissions.ListPending(ctx, "dave@x.com")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "s2", pending[0].ID)

	mine, err := store.Submissions.ListBySubmitter(ctx, "bob@x.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.StatusCompleted, mine[0].Status)
	require.NotNil(t, mine[0].ObtainedMark)
	assert.Equal(t, 60.0, *mine[0].ObtainedMark)
}

func testLeaderboardDropsDeletedAssignment(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	seedAssignment(t, store, "a1", "Algebra", "alice@x.com", model.DifficultyEasy, base)
	seedAssignment(t, store, "a2", "Chemistry", "alice@x.com", model.DifficultyEasy, base)
	seedSubmission(t, store, "s1", "a1", "bob@x.com", base)
	seedSubmission(t, store, "s2", "a2", "bob@x.com", base)
	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, store.Submissions.MarkCompleted(ctx, id, model.Evaluation{GraderEmail: "carol@x.com", ObtainedMark: 80, Feedback: "ok", EvaluatedAt: base}))
	}

	require.NoError(t, store.Assignments.Delete(ctx, "a1"))

	rows, err := store.Leaderboard.ListCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "s2", rows[0].SubmissionID)
	assert.Equal(t, "Chemistry", rows[0].AssignmentTitle)
}

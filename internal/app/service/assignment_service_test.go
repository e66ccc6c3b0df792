package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"studyhub/internal/common"
	"studyhub/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var ve common.ValidationErrors
	require.ErrorAs(t, err, &ve)
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field)
	}
	return fields
}

func TestCreateAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.assignments.Create(ctx, principal("  Alice@X.com "), validAssignment())
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "alice@x.com", a.CreatedBy)
	assert.Equal(t, model.DifficultyEasy, a.Difficulty)
	assert.Equal(t, 50, a.Marks)
	assert.True(t, strings.HasPrefix(a.Slug, "algebra-"), a.Slug)
	assert.Equal(t, fixedNow, a.CreatedAt)

	stored, err := f.assignments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Title, stored.Title)

	bySlug, err := f.assignments.GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, a.ID, bySlug.ID)
}

func TestCreateAssignmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*AssignmentRequest)
		field  string
	}{
		{"empty title", func(r *AssignmentRequest) { r.Title = "   " }, "title"},
		{"short description", func(r *AssignmentRequest) { r.Description = "too short" }, "description"},
		{"description padded with spaces", func(r *AssignmentRequest) { r.Description = "  short  " + strings.Repeat(" ", 30) }, "description"},
		{"missing marks", func(r *AssignmentRequest) { r.Marks = model.Number{} }, "marks"},
		{"marks not a number", func(r *AssignmentRequest) { r.Marks = model.Number{Present: true} }, "marks"},
		{"negative marks", func(r *AssignmentRequest) { r.Marks = model.NumberOf(-1) }, "marks"},
		{"fractional marks", func(r *AssignmentRequest) { r.Marks = model.NumberOf(12.5) }, "marks"},
		{"marks beyond int32", func(r *AssignmentRequest) { r.Marks = model.NumberOf(3e9) }, "marks"},
		{"marks beyond int64", func(r *AssignmentRequest) { r.Marks = model.NumberOf(1e20) }, "marks"},
		{"thumbnail not a url", func(r *AssignmentRequest) { r.Thumbnail = "a.png" }, "thumbnail"},
		{"thumbnail wrong scheme", func(r *AssignmentRequest) { r.Thumbnail = "ftp://ex.com/a.png" }, "thumbnail"},
		{"unknown difficulty", func(r *AssignmentRequest) { r.Difficulty = "extreme" }, "difficulty"},
		{"missing due date", func(r *AssignmentRequest) { r.DueDate = "" }, "dueDate"},
		{"garbage due date", func(r *AssignmentRequest) { r.DueDate = "next tuesday" }, "dueDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validAssignment()
			tc.mutate(&req)
			_, err := f.assignments.Create(ctx, principal("alice@x.com"), req)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, []string{tc.field}, fieldsOf(t, err))
		})
	}

	list, err := f.assignments.List(ctx, ListAssignmentsRequest{})
	require.NoError(t, err)
	assert.Empty(t, list, "rejected requests must not be stored")
}

func TestCreateAssignmentAcceptsCaseInsensitiveDifficultyAndPastDueDate(t *testing.T) {
	f := newFixture(t)

	req := validAssignment()
	req.Difficulty = " HARD "
	req.DueDate = "2020-01-01"
	a, err := f.assignments.Create(context.Background(), principal("alice@x.com"), req)
	require.NoError(t, err)
	assert.Equal(t, model.DifficultyHard, a.Difficulty)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), a.DueDate)
}

func TestListAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	easy := validAssignment()
	easy.Title = "Linear Algebra"
	hard := validAssignment()
	hard.Title = "Graph Theory"
	hard.Difficulty = "hard"

	_, err := f.assignments.Create(ctx, principal("a@x.com"), easy)
	require.NoError(t, err)
	f.assignments.now = func() time.Time { return fixedNow.Add(time.Minute) }
	_, err = f.assignments.Create(ctx, principal("b@x.com"), hard)
	require.NoError(t, err)

	all, err := f.assignments.List(ctx, ListAssignmentsRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Graph Theory", all[0].Title, "newest first")

	filtered, err := f.assignments.List(ctx, ListAssignmentsRequest{Difficulty: "Hard", Search: "GRAPH"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Graph Theory", filtered[0].Title)

	none, err := f.assignments.List(ctx, ListAssignmentsRequest{Difficulty: "easy", Search: "graph"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.assignments.List(ctx, ListAssignmentsRequest{Difficulty: "impossible"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAssignment(t, "alice@x.com")

	req := validAssignment()
	req.Title = "Advanced Algebra"
	req.Marks = model.NumberOf(80)
	req.Difficulty = "medium"

	updated, err := f.assignments.Update(ctx, principal("ALICE@x.com"), a.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Advanced Algebra", updated.Title)
	assert.Equal(t, 80, updated.Marks)
	assert.Equal(t, model.DifficultyMedium, updated.Difficulty)
	assert.Equal(t, a.CreatedBy, updated.CreatedBy)
	assert.True(t, a.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, strings.HasPrefix(updated.Slug, "advanced-algebra-"), updated.Slug)

	stored, err := f.assignments.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.Marks)
}

func TestUpdateAssignmentRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAssignment(t, "alice@x.com")

	t.Run("not the owner", func(t *testing.T) {
		_, err := f.assignments.Update(ctx, principal("mallory@x.com"), a.ID, validAssignment())
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.assignments.Update(ctx, principal("alice@x.com"), "missing", validAssignment())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("due date in the past", func(t *testing.T) {
		req := validAssignment()
		req.DueDate = fixedNow.Add(-time.Hour).Format(time.RFC3339)
		_, err := f.assignments.Update(ctx, principal("alice@x.com"), a.ID, req)
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Equal(t, []string{"dueDate"}, fieldsOf(t, err))
	})

	t.Run("due today as a plain date", func(t *testing.T) {
		req := validAssignment()
		req.DueDate = fixedNow.Format(time.DateOnly)
		_, err := f.assignments.Update(ctx, principal("alice@x.com"), a.ID, req)
		assert.NoError(t, err)
	})

	t.Run("negative marks", func(t *testing.T) {
		req := validAssignment()
		req.Marks = model.NumberOf(-5)
		_, err := f.assignments.Update(ctx, principal("alice@x.com"), a.ID, req)
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("marks too large", func(t *testing.T) {
		for _, v := range []float64{3e9, 1e20} {
			req := validAssignment()
			req.Marks = model.NumberOf(v)
			_, err := f.assignments.Update(ctx, principal("alice@x.com"), a.ID, req)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, []string{"marks"}, fieldsOf(t, err))
		}
	})

	t.Run("largest allowed marks", func(t *testing.T) {
		req := validAssignment()
		req.Marks = model.NumberOf(model.MaxMarks)
		updated, err := f.assignments.Update(ctx, principal("alice@x.com"), a.ID, req)
		require.NoError(t, err)
		assert.Equal(t, model.MaxMarks, updated.Marks)
	})
}

func TestDeleteAssignmentCascadesAndRefreshes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")

	err := f.assignments.Delete(ctx, principal("bob@x.com"), a.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	require.NoError(t, f.assignments.Delete(ctx, principal("alice@x.com"), a.ID))

	_, err = f.assignments.Get(ctx, a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.submissions.Get(ctx, principal(sub.SubmitterEmail), sub.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	queued, err := f.rdb.LLen(ctx, f.leaderboard.QueueName()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, queued)

	err = f.assignments.Delete(ctx, principal("alice@x.com"), a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

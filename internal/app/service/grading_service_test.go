package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"studyhub/internal/common"
	"studyhub/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markOf(v float64) GradeRequest {
	return GradeRequest{ObtainedMark: model.NumberOf(v), Feedback: "well done"}
}

func TestGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")

	graded, err := f.grading.Grade(ctx, principal("Carol@x.com"), sub.ID, markOf(88))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, graded.Status)
	require.NotNil(t, graded.ObtainedMark)
	assert.Equal(t, 88.0, *graded.ObtainedMark)
	assert.Equal(t, "well done", *graded.Feedback)
	assert.Equal(t, "carol@x.com", *graded.EvaluatedBy)
	assert.True(t, graded.EvaluatedAt.Equal(fixedNow))

	stored, err := f.submissions.Get(ctx, principal(sub.SubmitterEmail), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, 88.0, *stored.ObtainedMark)

	queued, err := f.rdb.LLen(ctx, f.leaderboard.QueueName()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, queued)
	assert.False(t, f.mr.Exists("grade_lock:"+sub.ID), "lock released after grading")
}

func TestGradeAcceptsWrappedNumber(t *testing.T) {
	f := newFixture(t)
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")

	var req GradeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"obtainedMark":{"$numberInt":"95"},"feedback":""}`), &req))

	graded, err := f.grading.Grade(context.Background(), principal("carol@x.com"), sub.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 95.0, *graded.ObtainedMark)
}

func TestGradeRefusesSelfGrading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")

	for _, grader := range []string{"alice@x.com", "  ALICE@x.com ", "bob@x.com", "Bob@X.com"} {
		_, err := f.grading.Grade(ctx, principal(grader), sub.ID, markOf(90))
		require.ErrorIs(t, err, common.ErrSelfGrading, grader)
		assert.ErrorIs(t, err, common.ErrForbidden)
	}

	stored, err := f.submissions.Get(ctx, principal(sub.SubmitterEmail), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.ObtainedMark)
	assert.Nil(t, stored.Feedback)
}

func TestGradeRejectsInvalidMarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "carol@x.com")

	for name, req := range map[string]GradeRequest{
		"above range":  markOf(150),
		"below range":  markOf(-1),
		"missing":      {},
		"not a number": {ObtainedMark: model.Number{Present: true}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.grading.Grade(ctx, principal("bob@x.com"), sub.ID, req)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, []string{"obtainedMark"}, fieldsOf(t, err))
		})
	}

	stored, err := f.submissions.Get(ctx, principal(sub.SubmitterEmail), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestGradeBoundaryMarks(t *testing.T) {
	f := newFixture(t)
	a := f.createAssignment(t, "alice@x.com")
	low := f.submit(t, a.ID, "bob@x.com")
	high := f.submit(t, a.ID, "carol@x.com")

	_, err := f.grading.Grade(context.Background(), principal("dave@x.com"), low.ID, markOf(0))
	assert.NoError(t, err)
	_, err = f.grading.Grade(context.Background(), principal("dave@x.com"), high.ID, markOf(100))
	assert.NoError(t, err)
}

func TestGradeIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")

	_, err := f.grading.Grade(ctx, principal("carol@x.com"), sub.ID, markOf(70))
	require.NoError(t, err)

	f.grading.now = func() time.Time { return fixedNow.Add(time.Hour) }
	_, err = f.grading.Grade(ctx, principal("dave@x.com"), sub.ID, markOf(20))
	assert.ErrorIs(t, err, common.ErrConflict)

	stored, err := f.submissions.Get(ctx, principal(sub.SubmitterEmail), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, *stored.ObtainedMark)
	assert.Equal(t, "carol@x.com", *stored.EvaluatedBy)
	assert.True(t, stored.EvaluatedAt.Equal(fixedNow))
}

func TestGradeNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.grading.Grade(context.Background(), principal("carol@x.com"), "missing", markOf(50))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGradeWhileLockedConflicts(t *testing.T) {
	f := newFixture(t)
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")
	require.NoError(t, f.mr.Set("grade_lock:"+sub.ID, "someone-else"))

	_, err := f.grading.Grade(context.Background(), principal("carol@x.com"), sub.ID, markOf(50))
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestConcurrentGradesHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")

	const graders = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < graders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.grading.Grade(context.Background(), principal("grader@x.com"), sub.ID, markOf(float64(50+i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, common.ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, graders-1, conflicts)
}

func TestGradeFallsBackToStoreWhenRedisIsDown(t *testing.T) {
	f := newFixture(t)
	a := f.createAssignment(t, "alice@x.com")
	sub := f.submit(t, a.ID, "bob@x.com")
	f.mr.Close()

	graded, err := f.grading.Grade(context.Background(), principal("carol@x.com"), sub.ID, markOf(60))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, graded.Status)

	_, err = f.grading.Grade(context.Background(), principal("dave@x.com"), sub.ID, markOf(10))
	assert.ErrorIs(t, err, common.ErrConflict)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"studyhub/internal/common"
	"studyhub/internal/domain/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepository struct {
	col *mongo.Collection
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	doc := mongoUser{
		Email:          user.Email,
		Name:           user.Name,
		PhotoURL:       user.PhotoURL,
		HashedPassword: user.HashedPassword,
		CreatedAt:      user.CreatedAt,
	}
	_, err := r.col.InsertOne(ctx, doc)
	return translateMongoError("mongoUserRepository.Create", err)
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc mongoUser
	if err := r.col.FindOne(ctx, bson.M{"_id": email}).Decode(&doc); err != nil {
		return nil, translateMongoError("mongoUserRepository.FindByEmail", err)
	}
	return &model.User{
		Email:          doc.Email,
		Name:           doc.Name,
		PhotoURL:       doc.PhotoURL,
		HashedPassword: doc.HashedPassword,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

type mongoAssignmentRepository struct {
	col         *mongo.Collection
	submissions *mongo.Collection
}

func (r *mongoAssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	doc := mongoAssignment{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Description: a.Description,
		Marks:       a.Marks,
		Thumbnail:   a.Thumbnail,
		Difficulty:  string(a.Difficulty),
		DueDate:     a.DueDate,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	_, err := r.col.InsertOne(ctx, doc)
	return translateMongoError("mongoAssignmentRepository.Create", err)
}

func (r *mongoAssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": bson.M{
		"title":       a.Title,
		"slug":        a.Slug,
		"description": a.Description,
		"marks":       a.Marks,
		"thumbnail":   a.Thumbnail,
		"difficulty":  string(a.Difficulty),
		"dueDate":     a.DueDate,
		"updatedAt":   a.UpdatedAt,
	}})
	if err != nil {
		return translateMongoError("mongoAssignmentRepository.Update", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes submissions before the assignment, so a failure part way
// leaves the assignment in place rather than orphaned submissions.
func (r *mongoAssignmentRepository) Delete(ctx context.Context, id string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translateMongoError("mongoAssignmentRepository.Delete count", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	if _, err := r.submissions.DeleteMany(ctx, bson.M{"assignmentId": id}); err != nil {
		return translateMongoError("mongoAssignmentRepository.Delete submissions", err)
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateMongoError("mongoAssignmentRepository.Delete", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoAssignmentRepository) FindByID(ctx context.Context, id string) (*model.Assignment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoAssignmentRepository) FindBySlug(ctx context.Context, slug string) (*model.Assignment, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *mongoAssignmentRepository) findOne(ctx context.Context, filter bson.M) (*model.Assignment, error) {
	var doc mongoAssignment
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongoError("mongoAssignmentRepository.findOne", err)
	}
	a, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *mongoAssignmentRepository) List(ctx context.Context, filter model.AssignmentFilter) ([]model.Assignment, error) {
	query := bson.M{}
	if filter.Difficulty != "" {
		query["difficulty"] = string(filter.Difficulty)
	}
	if filter.Search != "" {
		query["title"] = bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, translateMongoError("mongoAssignmentRepository.List", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAssignment
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translateMongoError("mongoAssignmentRepository.List decode", err)
	}
	out := make([]model.Assignment, 0, len(docs))
	for i := range docs {
		a, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

type mongoSubmissionRepository struct {
	col *mongo.Collection
}

type mongoSubmissionJoined struct {
	mongoSubmission `bson:",inline"`
	Assignment      mongoAssignment `bson:"assignment"`
}

func (r *mongoSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	doc := mongoSubmission{
		ID:             sub.ID,
		AssignmentID:   sub.AssignmentID,
		SubmitterEmail: sub.SubmitterEmail,
		GoogleDocLink:  sub.GoogleDocLink,
		QuickNote:      sub.QuickNote,
		Status:         string(sub.Status),
		SubmittedAt:    sub.SubmittedAt,
	}
	_, err := r.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("you have already submitted this assignment: %w", common.ErrConflict)
	}
	return translateMongoError("mongoSubmissionRepository.Create", err)
}

func (r *mongoSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	var doc mongoSubmission
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateMongoError("mongoSubmissionRepository.FindByID", err)
	}
	s, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *mongoSubmissionRepository) ListBySubmitter(ctx context.Context, identity string) ([]model.SubmissionView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "submitterEmail", Value: identity}}}},
		lookupAssignment(),
		{{Key: "$unwind", Value: "$assignment"}},
		{{Key: "$sort", Value: bson.D{{Key: "submittedAt", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	return r.aggregateViews(ctx, "ListBySubmitter", pipeline)
}

func (r *mongoSubmissionRepository) ListPending(ctx context.Context, identity string) ([]model.SubmissionView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "status", Value: string(model.StatusPending)},
			{Key: "submitterEmail", Value: bson.D{{Key: "$ne", Value: identity}}},
		}}},
		lookupAssignment(),
		{{Key: "$unwind", Value: "$assignment"}},
		{{Key: "$match", Value: bson.D{{Key: "assignment.createdBy", Value: bson.D{{Key: "$ne", Value: identity}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "submittedAt", Value: 1}, {Key: "_id", Value: 1}}}},
	}
	return r.aggregateViews(ctx, "ListPending", pipeline)
}

func lookupAssignment() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: assignmentsCollection},
		{Key: "localField", Value: "assignmentId"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "assignment"},
	}}}
}

func (r *mongoSubmissionRepository) aggregateViews(ctx context.Context, op string, pipeline mongo.Pipeline) ([]model.SubmissionView, error) {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translateMongoError("mongoSubmissionRepository."+op, err)
	}
	defer cur.Close(ctx)

	var docs []mongoSubmissionJoined
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translateMongoError("mongoSubmissionRepository."+op+" decode", err)
	}
	out := make([]model.SubmissionView, 0, len(docs))
	for i := range docs {
		s, err := docs[i].mongoSubmission.toModel()
		if err != nil {
			return nil, err
		}
		a, err := docs[i].Assignment.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, model.SubmissionView{
			Submission:          s,
			AssignmentTitle:     a.Title,
			AssignmentMarks:     a.Marks,
			AssignmentCreatedBy: a.CreatedBy,
		})
	}
	return out, nil
}

func (r *mongoSubmissionRepository) MarkCompleted(ctx context.Context, id string, e model.Evaluation) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(model.StatusPending)},
		bson.M{"$set": bson.M{
			"status":       string(model.StatusCompleted),
			"obtainedMark": e.ObtainedMark,
			"feedback":     e.Feedback,
			"evaluatedBy":  e.GraderEmail,
			"evaluatedAt":  e.EvaluatedAt,
		}},
	)
	if err != nil {
		return translateMongoError("mongoSubmissionRepository.MarkCompleted", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return translateMongoError("mongoSubmissionRepository.MarkCompleted count", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return fmt.Errorf("submission has already been evaluated: %w", common.ErrConflict)
}

type mongoLeaderboardRepository struct {
	col *mongo.Collection
}

type mongoLeaderboardDoc struct {
	ID             string      `bson:"_id"`
	SubmitterEmail string      `bson:"submitterEmail"`
	ObtainedMark   interface{} `bson:"obtainedMark"`
	EvaluatedAt    *time.Time  `bson:"evaluatedAt"`
	Title          *string     `bson:"title"`
	Name           *string     `bson:"name"`
	PhotoURL       *string     `bson:"photoURL"`
}

func (r *mongoLeaderboardRepository) ListCompleted(ctx context.Context) ([]model.LeaderboardRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: string(model.StatusCompleted)}}}},
		lookupAssignment(),
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "submitterEmail"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "submitterEmail", Value: 1},
			{Key: "obtainedMark", Value: 1},
			{Key: "evaluatedAt", Value: 1},
			{Key: "title", Value: bson.D{{Key: "$first", Value: "$assignment.title"}}},
			{Key: "name", Value: bson.D{{Key: "$first", Value: "$user.name"}}},
			{Key: "photoURL", Value: bson.D{{Key: "$first", Value: "$user.photoURL"}}},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translateMongoError("mongoLeaderboardRepository.ListCompleted", err)
	}
	defer cur.Close(ctx)

	var docs []mongoLeaderboardDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translateMongoError("mongoLeaderboardRepository.ListCompleted decode", err)
	}

	out := make([]model.LeaderboardRow, 0, len(docs))
	for _, d := range docs {
		mark, err := mongoNumber(d.ObtainedMark)
		if err != nil {
			if errors.Is(err, model.ErrNotANumber) {
				// A completed record without a readable mark cannot be ranked.
				continue
			}
			return nil, err
		}
		row := model.LeaderboardRow{SubmissionID: d.ID, SubmitterEmail: d.SubmitterEmail, Mark: mark}
		if d.EvaluatedAt != nil {
			row.EvaluatedAt = *d.EvaluatedAt
		}
		if d.Title != nil {
			row.AssignmentTitle = *d.Title
		}
		if d.Name != nil {
			row.SubmitterName = *d.Name
		}
		if d.PhotoURL != nil {
			row.SubmitterPhoto = *d.PhotoURL
		}
		out = append(out, row)
	}
	return out, nil
}

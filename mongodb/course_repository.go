package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/edulab-dev/lms-bridge/domain"
	berrors "github.com/edulab-dev/lms-bridge/errors"
)

type TermRepository struct {
	coll *mongo.Collection
}

func NewTermRepository(db *mongo.Database) domain.TermRepository {
	return &TermRepository{coll: db.Collection(TermsCollection)}
}

func (r *TermRepository) CreateTerm(ctx context.Context, term *domain.Term) (string, error) {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, term); err != nil {
		return "", err
	}
	return term.ID, nil
}

// UpdateTerm overwrites name and description only; parent linkage is owned
// by SetTermParent.
func (r *TermRepository) UpdateTerm(ctx context.Context, term *domain.Term) error {
	update := bson.M{"$set": bson.M{
		"name":        term.Name,
		"description": term.Description,
		"updated_at":  time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": term.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return berrors.ErrNotFound
	}
	return nil
}

func (r *TermRepository) SetTermParent(ctx context.Context, termID, parentID string) error {
	update := bson.M{"$set": bson.M{"parent_id": parentID, "updated_at": time.Now().UTC()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": termID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return berrors.ErrNotFound
	}
	return nil
}

func (r *TermRepository) GetTermByID(ctx context.Context, id string) (*domain.Term, error) {
	var term domain.Term
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&term)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, berrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &term, nil
}

type CourseRepository struct {
	coll *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) domain.CourseRepository {
	return &CourseRepository{coll: db.Collection(CoursesCollection)}
}

func (r *CourseRepository) CreateCourse(ctx context.Context, course *domain.Course) (string, error) {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, course); err != nil {
		return "", err
	}
	return course.ID, nil
}

// UpdateCourse overwrites the remote-sourced fields. Roster and enrollment
// count are owned by ReplaceRoster and left untouched here.
func (r *CourseRepository) UpdateCourse(ctx context.Context, course *domain.Course) error {
	update := bson.M{"$set": bson.M{
		"name":       course.Name,
		"summary":    course.Summary,
		"term_id":    course.TermID,
		"start_date": course.StartDate,
		"end_date":   course.EndDate,
		"remote_url": course.RemoteURL,
		"status":     course.Status,
		"updated_at": time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": course.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return berrors.ErrNotFound
	}
	return nil
}

func (r *CourseRepository) GetCourseByID(ctx context.Context, id string) (*domain.Course, error) {
	var course domain.Course
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, berrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) ListCourses(ctx context.Context) ([]*domain.Course, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var courses []*domain.Course
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CourseRepository) ReplaceRoster(ctx context.Context, courseID string, roster []domain.RosterEntry) error {
	update := bson.M{"$set": bson.M{
		"roster":           roster,
		"enrollment_count": len(roster),
		"updated_at":       time.Now().UTC(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": courseID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return berrors.ErrNotFound
	}
	return nil
}

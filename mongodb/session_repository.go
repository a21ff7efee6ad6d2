package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/edulab-dev/lms-bridge/domain"
	berrors "github.com/edulab-dev/lms-bridge/errors"
)

type SessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) domain.SessionRepository {
	return &SessionRepository{coll: db.Collection(SessionsCollection)}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := r.coll.InsertOne(ctx, session)
	return err
}

// GetSession returns a live session; expired sessions read as not found.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	err := r.coll.FindOne(ctx, bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, berrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

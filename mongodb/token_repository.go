package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/edulab-dev/lms-bridge/domain"
	berrors "github.com/edulab-dev/lms-bridge/errors"
)

type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) domain.TokenRepository {
	return &TokenRepository{coll: db.Collection(TokensCollection)}
}

// PutToken replaces the current token for (user, service). There is no
// separate delete path; overwriting is how the previous token dies.
func (r *TokenRepository) PutToken(ctx context.Context, token *domain.SSOToken) error {
	filter := bson.M{"user_id": token.UserID, "service": token.Service}
	_, err := r.coll.ReplaceOne(ctx, filter, token, options.Replace().SetUpsert(true))
	return err
}

func (r *TokenRepository) GetCurrentToken(ctx context.Context, userID string, service domain.Service) (*domain.SSOToken, error) {
	var token domain.SSOToken
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID, "service": service}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, berrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

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

type LinkRepository struct {
	coll *mongo.Collection
}

func NewLinkRepository(db *mongo.Database) domain.LinkRepository {
	return &LinkRepository{coll: db.Collection(LinksCollection)}
}

// CreateLink records a local-to-remote correspondence. The unique index on
// (entity_type, remote_id) makes a duplicate insert fail rather than fork
// the mapping; callers treat that as already-linked.
func (r *LinkRepository) CreateLink(ctx context.Context, link *domain.ExternalLink) error {
	link.CreatedAt = time.Now().UTC()
	_, err := r.coll.InsertOne(ctx, link)
	return err
}

func (r *LinkRepository) GetLinkByRemote(ctx context.Context, entityType domain.EntityType, remoteID int64) (*domain.ExternalLink, error) {
	var link domain.ExternalLink
	err := r.coll.FindOne(ctx, bson.M{"entity_type": entityType, "remote_id": remoteID}).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, berrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepository) GetLinkByLocal(ctx context.Context, entityType domain.EntityType, localID string) (*domain.ExternalLink, error) {
	var link domain.ExternalLink
	err := r.coll.FindOne(ctx, bson.M{"entity_type": entityType, "local_id": localID}).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, berrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepository) ListLinksByType(ctx context.Context, entityType domain.EntityType) ([]*domain.ExternalLink, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"entity_type": entityType})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var links []*domain.ExternalLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

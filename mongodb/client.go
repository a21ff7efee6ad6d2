// Package mongodb implements the domain repositories on MongoDB. All bridge
// state (accounts, sessions, tokens, links, terms, courses with rosters) is
// keyed per entity; there are no cross-document transactions, correctness
// rests on idempotent upserts.
package mongodb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

const (
	UsersCollection    = "bridge_users"      // Local accounts
	SessionsCollection = "bridge_sessions"   // Browser sessions
	TokensCollection   = "bridge_sso_tokens" // Current token per (user, service)
	LinksCollection    = "bridge_links"      // Local-to-remote entity links
	TermsCollection    = "bridge_terms"      // Course categories
	CoursesCollection  = "bridge_courses"    // Courses with embedded rosters
)

// Connect establishes the MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	log.Info().Str("uri", uri).Msg("connecting to mongodb")

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(10 * time.Second)
	clientOptions.SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the unique indexes the repositories rely on. Called
// once at startup; index creation is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{UsersCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "email", Value: 1}}, Options: unique,
		}},
		{TokensCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "service", Value: 1}}, Options: unique,
		}},
		{LinksCollection, mongo.IndexModel{
			Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "remote_id", Value: 1}}, Options: unique,
		}},
	}

	for _, idx := range indexes {
		if _, err := db.Collection(idx.coll).Indexes().CreateOne(ctx, idx.model); err != nil {
			return err
		}
	}
	return nil
}

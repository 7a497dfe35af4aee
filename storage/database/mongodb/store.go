// Package mongorepos implements the repositories on MongoDB.
package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/otp"
)

const (
	accountCollection   = "accounts"
	codeCollection      = "otp_codes"
	sessionCollection   = "sessions"
	allowListCollection = "admin_allowlist"

	// codes stay a day past expiry so that late verifications still report EXPIRED
	codeRetentionSeconds = 24 * 60 * 60
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ account.Repository      = (*Store)(nil)
	_ otp.Repository          = (*Store)(nil)
	_ otp.AllowListRepository = (*Store)(nil)
	_ auth.SessionRepository  = (*Store)(nil)
)

// Open connects to uri, checks the server answers and ensures the indexes of database dbName.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongodb")
	}
	s := &Store{client: client, db: client.Database(dbName)}
	if err = s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		accountCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		codeCollection: {
			{Keys: bson.D{{Key: "ownerEmail", Value: 1}, {Key: "issuedAt", Value: -1}}},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(codeRetentionSeconds)},
		},
		sessionCollection: {
			{Keys: bson.D{{Key: "accountId", Value: 1}}},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) accounts() *mongo.Collection  { return s.db.Collection(accountCollection) }
func (s *Store) codes() *mongo.Collection     { return s.db.Collection(codeCollection) }
func (s *Store) sessions() *mongo.Collection  { return s.db.Collection(sessionCollection) }
func (s *Store) allowList() *mongo.Collection { return s.db.Collection(allowListCollection) }

package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/trezcool/madrasa/core/otp"
)

type allowListDoc struct {
	Email   string    `bson:"_id"`
	AddedAt time.Time `bson:"addedAt"`
}

func (s *Store) AllowListContains(ctx context.Context, email string) (bool, error) {
	n, err := s.allowList().CountDocuments(ctx, bson.M{"_id": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "querying allow-list")
	}
	return n > 0, nil
}

func (s *Store) AddToAllowList(ctx context.Context, entry otp.AllowListEntry) error {
	_, err := s.allowList().InsertOne(ctx, allowListDoc{Email: entry.Email, AddedAt: entry.AddedAt})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return otp.ErrAlreadyAllowed
		}
		return errors.Wrap(err, "inserting allow-list entry")
	}
	return nil
}

func (s *Store) RemoveFromAllowList(ctx context.Context, email string) error {
	res, err := s.allowList().DeleteOne(ctx, bson.M{"_id": email})
	if err != nil {
		return errors.Wrap(err, "deleting allow-list entry")
	}
	if res.DeletedCount == 0 {
		return otp.ErrNotAllowed
	}
	return nil
}

func (s *Store) ListAllowList(ctx context.Context) ([]otp.AllowListEntry, error) {
	cur, err := s.allowList().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "listing allow-list")
	}
	var docs []allowListDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding allow-list")
	}
	entries := make([]otp.AllowListEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, otp.AllowListEntry{Email: d.Email, AddedAt: d.AddedAt.UTC()})
	}
	return entries, nil
}

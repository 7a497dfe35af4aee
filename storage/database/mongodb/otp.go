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

type codeDoc struct {
	ID         string     `bson:"_id"`
	OwnerEmail string     `bson:"ownerEmail"`
	CodeHash   string     `bson:"codeHash"`
	IssuedAt   time.Time  `bson:"issuedAt"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	ConsumedAt *time.Time `bson:"consumedAt,omitempty"`
	RevokedAt  *time.Time `bson:"revokedAt,omitempty"`
	Attempts   int        `bson:"attempts"`
}

func (d codeDoc) toCode() otp.Code {
	return otp.Code{
		ID:         d.ID,
		OwnerEmail: d.OwnerEmail,
		CodeHash:   d.CodeHash,
		IssuedAt:   d.IssuedAt.UTC(),
		ExpiresAt:  d.ExpiresAt.UTC(),
		ConsumedAt: utcPtr(d.ConsumedAt),
		RevokedAt:  utcPtr(d.RevokedAt),
		Attempts:   d.Attempts,
	}
}

// usable matches codes neither consumed nor revoked; a null filter also matches missing fields.
func usable(filter bson.M) bson.M {
	filter["consumedAt"] = nil
	filter["revokedAt"] = nil
	return filter
}

func (s *Store) CreateCode(ctx context.Context, code otp.Code) (otp.Code, error) {
	_, err := s.codes().UpdateMany(ctx,
		usable(bson.M{"ownerEmail": code.OwnerEmail}),
		bson.M{"$set": bson.M{"revokedAt": code.IssuedAt}},
	)
	if err != nil {
		return otp.Code{}, errors.Wrap(err, "revoking previous codes")
	}
	_, err = s.codes().InsertOne(ctx, codeDoc{
		ID:         code.ID,
		OwnerEmail: code.OwnerEmail,
		CodeHash:   code.CodeHash,
		IssuedAt:   code.IssuedAt,
		ExpiresAt:  code.ExpiresAt,
		ConsumedAt: code.ConsumedAt,
		RevokedAt:  code.RevokedAt,
		Attempts:   code.Attempts,
	})
	if err != nil {
		return otp.Code{}, errors.Wrap(err, "inserting code")
	}
	return code, nil
}

func (s *Store) newestCode(ctx context.Context, filter bson.M) (otp.Code, error) {
	var doc codeDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "issuedAt", Value: -1}})
	if err := s.codes().FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return otp.Code{}, otp.ErrNotFound
		}
		return otp.Code{}, errors.Wrap(err, "finding code")
	}
	return doc.toCode(), nil
}

func (s *Store) LatestCode(ctx context.Context, owner string) (otp.Code, error) {
	return s.newestCode(ctx, bson.M{"ownerEmail": owner})
}

func (s *Store) ActiveCode(ctx context.Context, owner string) (otp.Code, error) {
	return s.newestCode(ctx, usable(bson.M{"ownerEmail": owner}))
}

// ConsumeCode is a single-document conditional update, atomic on the server.
func (s *Store) ConsumeCode(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.codes().UpdateOne(ctx, usable(bson.M{"_id": id}), bson.M{"$set": bson.M{"consumedAt": at}})
	if err != nil {
		return false, errors.Wrap(err, "consuming code")
	}
	return res.ModifiedCount == 1, nil
}

func (s *Store) RegisterCodeFailure(ctx context.Context, id string, maxAttempts int, at time.Time) (int, error) {
	var doc codeDoc
	err := s.codes().FindOneAndUpdate(ctx,
		usable(bson.M{"_id": id}),
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, otp.ErrNotFound
		}
		return 0, errors.Wrap(err, "registering code failure")
	}
	if doc.Attempts >= maxAttempts {
		_, err = s.codes().UpdateOne(ctx, usable(bson.M{"_id": id}), bson.M{"$set": bson.M{"revokedAt": at}})
		if err != nil {
			return doc.Attempts, errors.Wrap(err, "revoking code")
		}
	}
	return doc.Attempts, nil
}

func (s *Store) DeleteExpiredCodes(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.codes().DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired codes")
	}
	return res.DeletedCount, nil
}

package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
)

type sessionDoc struct {
	ID        string     `bson:"_id"`
	AccountID string     `bson:"accountId"`
	Role      int        `bson:"role"`
	IssuedAt  time.Time  `bson:"issuedAt"`
	ExpiresAt time.Time  `bson:"expiresAt"`
	RevokedAt *time.Time `bson:"revokedAt,omitempty"`
	UserAgent string     `bson:"userAgent"`
	IP        string     `bson:"ip"`
}

func (s *Store) CreateSession(ctx context.Context, sess auth.Session) (auth.Session, error) {
	_, err := s.sessions().InsertOne(ctx, sessionDoc{
		ID:        sess.ID,
		AccountID: sess.AccountID,
		Role:      int(sess.Role),
		IssuedAt:  sess.IssuedAt,
		ExpiresAt: sess.ExpiresAt,
		RevokedAt: sess.RevokedAt,
		UserAgent: sess.UserAgent,
		IP:        sess.IP,
	})
	if err != nil {
		return auth.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (auth.Session, error) {
	var doc sessionDoc
	if err := s.sessions().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, errors.Wrap(err, "finding session")
	}
	return auth.Session{
		ID:        doc.ID,
		AccountID: doc.AccountID,
		Role:      account.Role(doc.Role),
		IssuedAt:  doc.IssuedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
		RevokedAt: utcPtr(doc.RevokedAt),
		UserAgent: doc.UserAgent,
		IP:        doc.IP,
	}, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.sessions().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.A{bson.M{"$set": bson.M{"revokedAt": bson.M{"$ifNull": bson.A{"$revokedAt", at}}}}},
	)
	if err != nil {
		return errors.Wrap(err, "revoking session")
	}
	if res.MatchedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

func (s *Store) RevokeAccountSessions(ctx context.Context, accountID string, at time.Time) (int64, error) {
	res, err := s.sessions().UpdateMany(ctx,
		bson.M{"accountId": accountID, "revokedAt": nil},
		bson.M{"$set": bson.M{"revokedAt": at}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "revoking account sessions")
	}
	return res.ModifiedCount, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sessions().DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	return res.DeletedCount, nil
}

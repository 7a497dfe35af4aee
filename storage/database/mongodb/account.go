package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/trezcool/madrasa/core/account"
)

type accountDoc struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	DisplayName  string     `bson:"displayName"`
	Role         int        `bson:"role"`
	IsActive     bool       `bson:"isActive"`
	PasswordHash string     `bson:"passwordHash"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty"`
}

func (d accountDoc) toAccount() account.Account {
	return account.Account{
		ID:           d.ID,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		Role:         account.Role(d.Role),
		IsActive:     d.IsActive,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
		LastLogin:    utcPtr(d.LastLogin),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *Store) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	_, err := s.accounts().InsertOne(ctx, accountDoc{
		ID:           acc.ID,
		Email:        acc.Email,
		DisplayName:  acc.DisplayName,
		Role:         int(acc.Role),
		IsActive:     acc.IsActive,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt,
		UpdatedAt:    acc.UpdatedAt,
		LastLogin:    acc.LastLogin,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (s *Store) findAccount(ctx context.Context, filter bson.M) (account.Account, error) {
	var doc accountDoc
	if err := s.accounts().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	return doc.toAccount(), nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": id})
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return s.findAccount(ctx, bson.M{"email": email})
}

func (s *Store) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	var doc accountDoc
	err := s.accounts().FindOneAndUpdate(ctx,
		bson.M{"_id": acc.ID},
		bson.M{"$set": bson.M{
			"displayName": acc.DisplayName,
			"role":        int(acc.Role),
			"isActive":    acc.IsActive,
			"updatedAt":   acc.UpdatedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	return doc.toAccount(), nil
}

func (s *Store) updateOne(ctx context.Context, id string, set bson.M) error {
	res, err := s.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	if res.MatchedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{"passwordHash": hash, "updatedAt": at})
}

func (s *Store) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{"lastLogin": at})
}

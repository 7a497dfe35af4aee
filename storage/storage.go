// Package storage opens the persistence backend selected by configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/otp"
	"github.com/trezcool/madrasa/storage/database"
	inmemdb "github.com/trezcool/madrasa/storage/database/inmem"
	mongorepos "github.com/trezcool/madrasa/storage/database/mongodb"
	sqlxrepos "github.com/trezcool/madrasa/storage/database/sqlx"
)

// Store is every repository of the application behind one backend.
type Store interface {
	account.Repository
	otp.Repository
	otp.AllowListRepository
	auth.SessionRepository
	Close(ctx context.Context) error
}

var (
	_ Store = (*inmemdb.DB)(nil)
	_ Store = (*mongorepos.Store)(nil)
	_ Store = (*sqlxrepos.Store)(nil)
)

// Open connects to the configured database engine.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (Store, error) {
	switch conf.Database.Engine {
	case core.EngineMemory:
		logger.Warn("using the in-memory store: nothing survives a restart")
		return inmemdb.NewDB(), nil
	case core.EngineMongoDB:
		return mongorepos.Open(ctx, conf.Database.URI, conf.Database.Name)
	case core.EnginePostgres:
		db, err := database.Open(ctx, conf.Database.URI)
		if err != nil {
			return nil, err
		}
		return sqlxrepos.NewStore(db), nil
	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

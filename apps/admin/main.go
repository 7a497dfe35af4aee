package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/credential"
	"github.com/trezcool/madrasa/core/otp"
	logsvc "github.com/trezcool/madrasa/services/logger"
	"github.com/trezcool/madrasa/storage"
	"github.com/trezcool/madrasa/storage/database"
	sqlxrepos "github.com/trezcool/madrasa/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stderr, "admin", conf)
	ctx := context.Background()

	if conf.Database.Engine == core.EnginePostgres {
		if err := database.CreateIfNotExist(ctx, conf.Database.URI); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
	}

	store, err := storage.Open(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	hasher, err := credential.NewHasher(conf.Password.Hasher, conf.Password.BcryptCost)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up password hasher: %v", err), err)
	}
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator, conf.Password)

	codec := auth.NewTokenCodec(conf.SecretKey, conf.AppName)
	cli := commandLine{
		accountSvc: account.NewService(account.Deps{
			Repo:     store,
			Hasher:   hasher,
			Validate: validate,
			Sessions: auth.NewManager(store, codec, conf.Server.SessionTTL, logger),
			Logger:   logger,
		}),
		allowList: otp.NewAllowListManager(store),
		out:       os.Stdout,
	}
	if s, ok := store.(*sqlxrepos.Store); ok {
		cli.db = s.DB().DB
	}

	err = cli.run(os.Args)
	if cerr := store.Close(ctx); cerr != nil {
		logger.Error("closing database", cerr)
	}
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

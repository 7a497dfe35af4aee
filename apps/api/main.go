package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/madrasa/apps/api/echo"
	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/credential"
	"github.com/trezcool/madrasa/core/otp"
	emailsvc "github.com/trezcool/madrasa/services/email"
	logsvc "github.com/trezcool/madrasa/services/logger"
	"github.com/trezcool/madrasa/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(os.Stdout, "api", conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	ctx := context.Background()
	store, err := storage.Open(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("closing database", err)
		}
	}()

	mailSvc, err := emailsvc.New(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email service: %v", err), err)
	}

	hasher, err := credential.NewHasher(conf.Password.Hasher, conf.Password.BcryptCost)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up password hasher: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator, conf.Password)
	if err = core.RegisterMessages(translator); err != nil {
		logger.Fatal(fmt.Sprintf("registering messages: %v", err), err)
	}

	core.ParseEmailTemplates(conf, logger)

	codec := auth.NewTokenCodec(conf.SecretKey, conf.AppName)
	sessions := auth.NewManager(store, codec, conf.Server.SessionTTL, logger)
	accountSvc := account.NewService(account.Deps{
		Repo:     store,
		Hasher:   hasher,
		Validate: validate,
		Sessions: sessions,
		Logger:   logger,
	})
	otpSvc := otp.NewService(otp.Deps{
		Repo:      store,
		AllowList: otp.NewAllowList(conf.OTP.AllowList, store),
		MailSvc:   mailSvc,
		Logger:    logger,
	}, otp.NewConfig(conf))

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Purge Worker

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purge(purgeCtx, conf.OTP.PurgeEvery, logger, otpSvc.PurgeExpired, sessions.PurgeExpired)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		AccountSvc: accountSvc,
		OTPSvc:     otpSvc,
		Sessions:   sessions,
		Resolver:   auth.NewResolver(codec, store, store, logger),
	})

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// purge deletes expired codes & sessions every interval until ctx is done. A zero interval disables it.
func purge(ctx context.Context, every time.Duration, logger core.Logger, tasks ...func(context.Context) (int64, error)) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, task := range tasks {
				n, err := task(ctx)
				if err != nil {
					logger.Error("purging expired records", err)
					continue
				}
				if n > 0 {
					logger.Debug("purged expired records", map[string]interface{}{"count": n})
				}
			}
		}
	}
}

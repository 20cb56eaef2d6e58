package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	recordrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/record/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-auth-go")

	// signing config is a fatal startup condition: a missing secret must stop
	// the process here, never surface as a per-request failure
	authCfg := auth.ConfigFromEnv()
	issuer, err := auth.NewIssuer(authCfg)
	if err != nil {
		sugar.Fatalf("auth config: %v", err)
	}
	validator, err := auth.NewValidator(authCfg)
	if err != nil {
		sugar.Fatalf("auth config: %v", err)
	}

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// idempotent schema setup; the unique constraint on accounts.email is what
	// makes concurrent registration safe
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSetup()
	if err := repo.NewAccountRepo(db).EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure accounts table: %v", err)
	}
	if err := recordrepo.NewRecordRepo(db).EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure records table: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8433"
	}

	handler := router.RegisterRoutes(sugar, db, issuer, validator)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		sugar.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// Command adduser creates a login account, and its company when none is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/config"
	"poultrytrade/backend/internal/database"
	"poultrytrade/backend/internal/store/postgres"
	"poultrytrade/backend/internal/trip"
	"poultrytrade/backend/pkg/logger"
)

func main() {
	var (
		company  = flag.String("company", "", "name of a new company to create")
		tenantID = flag.Int64("tenant", 0, "existing company id")
		name     = flag.String("name", "", "user name")
		mobile   = flag.String("mobile", "", "10 digit mobile number")
		role     = flag.String("role", "TRADER", "TRADER, MANAGER, DRIVER or LIFTER")
		password = flag.String("password", "", "initial password")
	)
	flag.Parse()

	cfg, err := config.Load(".env", "backend/.env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	r, ok := trip.ParseRole(*role)
	if !ok || *name == "" || len(*mobile) != 10 || len(*password) < 8 {
		flag.Usage()
		os.Exit(2)
	}
	if (*company == "") == (*tenantID == 0) {
		log.Fatal("exactly one of -company or -tenant is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatal("failed to hash password", zap.Error(err))
	}

	store := postgres.New(pool)
	u := auth.User{TenantID: *tenantID, Name: *name, Mobile: *mobile, Role: r, PasswordHash: hash}
	var id int64
	if *company != "" {
		*tenantID, id, err = store.CreateCompanyWithUser(ctx, *company, u)
	} else {
		id, err = store.CreateUser(ctx, u)
	}
	if err != nil {
		log.Fatal("failed to create user", zap.Error(err))
	}
	log.Info("user created", zap.Int64("user_id", id), zap.Int64("tenant_id", *tenantID), zap.String("role", string(r)))
}

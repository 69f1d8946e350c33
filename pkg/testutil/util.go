package testutil

import (
	"context"
	"time"

	"github.com/flowjournal/backend/config"
	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/pkg/authenticator"
	"github.com/flowjournal/backend/pkg/logger"
	"github.com/flowjournal/backend/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	// Each in-memory sqlite connection is its own database. Tests that hit
	// the database from multiple goroutines need all of them on one.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Configs{
		ApiServer: config.ServerConfigs{
			MaxLimit:     50,
			DefaultLimit: 1,
		},
		Auth: config.AuthConfigs{
			TokenSecret: "secret",
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: time.Minute,
			},
		},
		Draw: config.DrawConfigs{
			SelectionSecret:     "selection-secret",
			SweepInterval:       time.Minute,
			ActiveListTTL:       time.Minute,
			StuckSweepThreshold: 3,
		},
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger())
	ctx = xcontext.WithTokenEngine(ctx, authenticator.NewTokenEngine(cfg.Auth.TokenSecret))
	ctx = xcontext.WithDB(ctx, db)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func MockContextWithUserID(userID string) context.Context {
	return xcontext.WithRequestUserID(MockContext(), userID)
}

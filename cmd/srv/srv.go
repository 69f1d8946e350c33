package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/flowjournal/backend/config"
	"github.com/flowjournal/backend/internal/domain"
	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/logger"
	"github.com/flowjournal/backend/pkg/router"
	"github.com/flowjournal/backend/pkg/xcontext"
	"github.com/flowjournal/backend/pkg/xredis"
)

type srv struct {
	ctx context.Context
	app *cli.App

	pointsRepo repository.PointsRepository
	drawRepo   repository.DrawRepository
	entryRepo  repository.EntryRepository
	resultRepo repository.DrawResultRepository
	userRepo   repository.UserRepository

	ledger       *domain.Ledger
	selector     *domain.WinnerSelector
	drawDomain   domain.DrawDomain
	pointsDomain domain.PointsDomain

	redisClient xredis.Client
	router      *router.Router
	server      *http.Server
}

func (s *srv) loadConfig() config.Configs {
	return config.Configs{
		Env: getEnv("ENV", "local"),
		Database: config.DatabaseConfigs{
			Host:     getEnv("MYSQL_HOST", "mysql"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			User:     getEnv("MYSQL_USER", "flowjournal"),
			Password: getEnv("MYSQL_PASSWORD", "password"),
			Database: getEnv("MYSQL_DATABASE", "flowjournal"),
		},
		ApiServer: config.ServerConfigs{
			Host:         getEnv("HOST", "localhost"),
			Port:         getEnv("PORT", "8080"),
			DefaultLimit: getEnvInt("API_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvInt("API_MAX_LIMIT", 50),
		},
		Auth: config.AuthConfigs{
			TokenSecret: getEnv("TOKEN_SECRET", "token_secret"),
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: getEnvDuration("ACCESS_TOKEN_DURATION", time.Hour),
			},
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Draw: config.DrawConfigs{
			SelectionSecret:     getEnv("DRAW_SELECTION_SECRET", "selection_secret"),
			SweepInterval:       getEnvDuration("DRAW_SWEEP_INTERVAL", time.Minute),
			ActiveListTTL:       getEnvDuration("DRAW_ACTIVE_LIST_TTL", 30*time.Second),
			StuckSweepThreshold: getEnvInt("DRAW_STUCK_SWEEP_THRESHOLD", 5),
		},
	}
}

func (s *srv) loadContext() {
	s.ctx = context.Background()
	s.ctx = xcontext.WithConfigs(s.ctx, s.loadConfig())
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger())
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx)
	db, err := gorm.Open(mysql.Open(cfg.Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) migrateDB() {
	if err := entity.MigrateTable(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadRepos() {
	s.pointsRepo = repository.NewPointsRepository()
	s.drawRepo = repository.NewDrawRepository()
	s.entryRepo = repository.NewEntryRepository()
	s.resultRepo = repository.NewDrawResultRepository()
	s.userRepo = repository.NewUserRepository()
}

func (s *srv) loadDomains() {
	s.ledger = domain.NewLedger(s.pointsRepo)
	s.selector = domain.NewWinnerSelector(s.drawRepo, s.entryRepo, s.resultRepo)
	s.drawDomain = domain.NewDrawDomain(
		s.drawRepo, s.entryRepo, s.resultRepo, s.ledger, s.redisClient)
	s.pointsDomain = domain.NewPointsDomain(s.pointsRepo, s.ledger)
}

func getEnv(key, def string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return def
}

func getEnvInt(key string, def int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		panic(err)
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}

	return d
}
